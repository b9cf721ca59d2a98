package yugwan

import (
	"context"
	"fmt"
)

const (
	noticesEndpoint = "/archive/notices/"
	newsEndpoint    = "/archive/news/"
	albumsEndpoint  = "/archive/gallery/albums/"
	videosEndpoint  = "/archive/gallery/videos/"
)

// archiveService implements ArchiveService
type archiveService struct {
	client *Client
}

func (s *archiveService) ListNotices(ctx context.Context, params *ListParams) (*Page[Notice], error) {
	return listPage[Notice](ctx, s.client, noticesEndpoint, params)
}

// GetNotice retrieves a notice with its content. Each call counts as a view.
func (s *archiveService) GetNotice(ctx context.Context, id int) (*Notice, error) {
	var notice Notice
	if err := s.client.call(ctx, &Request{Path: detailPath(noticesEndpoint, id)}, &notice); err != nil {
		return nil, err
	}
	return &notice, nil
}

func (s *archiveService) ListNews(ctx context.Context, params *ListParams) (*Page[News], error) {
	return listPage[News](ctx, s.client, newsEndpoint, params)
}

func (s *archiveService) ListAlbums(ctx context.Context, params *ListParams) (*Page[GalleryAlbum], error) {
	return listPage[GalleryAlbum](ctx, s.client, albumsEndpoint, params)
}

// GetAlbum retrieves an album with its images. Each call counts as a view.
func (s *archiveService) GetAlbum(ctx context.Context, id int) (*GalleryAlbum, error) {
	var album GalleryAlbum
	if err := s.client.call(ctx, &Request{Path: detailPath(albumsEndpoint, id)}, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

func (s *archiveService) ListVideos(ctx context.Context, params *ListParams) (*Page[GalleryVideo], error) {
	return listPage[GalleryVideo](ctx, s.client, videosEndpoint, params)
}

func listPage[T any](ctx context.Context, c *Client, path string, params *ListParams) (*Page[T], error) {
	result, err := c.Do(ctx, &Request{Path: path, Query: params.Values()})
	if err != nil {
		return nil, err
	}
	return decodePage[T](result.Data)
}

func detailPath(collection string, id int) string {
	return fmt.Sprintf("%s%d/", collection, id)
}
