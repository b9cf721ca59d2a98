package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joonyo2/yugwan/pkg/yugwan"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// yugwanTools holds the API client and implements all tool handlers
type yugwanTools struct {
	client *yugwan.Client
}

// GetNotices tool - lists announcements
type GetNoticesInput struct {
	Page     int    `json:"page,omitempty" jsonschema:"Page number starting at 1 (optional)"`
	Search   string `json:"search,omitempty" jsonschema:"Search text matched against title and content (optional)"`
	Category string `json:"category,omitempty" jsonschema:"Filter by category code (optional)"`
}

type NoticeEntry struct {
	ID       int       `json:"id" jsonschema:"Notice ID"`
	Title    string    `json:"title" jsonschema:"Notice title"`
	Category string    `json:"category" jsonschema:"Category name"`
	Pinned   bool      `json:"pinned" jsonschema:"Whether the notice is pinned to the top"`
	Views    int       `json:"views" jsonschema:"View count"`
	Date     time.Time `json:"date" jsonschema:"Publication time"`
}

type GetNoticesOutput struct {
	Notices []NoticeEntry `json:"notices" jsonschema:"Notices on this page"`
	Total   int           `json:"total" jsonschema:"Total number of matching notices"`
	HasMore bool          `json:"hasMore" jsonschema:"Whether another page follows"`
}

func (t *yugwanTools) GetNotices(ctx context.Context, req *mcp.CallToolRequest, input GetNoticesInput) (*mcp.CallToolResult, GetNoticesOutput, error) {
	page, err := t.client.Archive.ListNotices(ctx, &yugwan.ListParams{
		Page:     input.Page,
		Search:   input.Search,
		Category: input.Category,
	})
	if err != nil {
		return nil, GetNoticesOutput{}, fmt.Errorf("failed to fetch notices: %w", err)
	}

	entries := make([]NoticeEntry, 0, len(page.Results))
	for _, n := range page.Results {
		entries = append(entries, NoticeEntry{
			ID:       n.ID,
			Title:    n.Title,
			Category: displayOr(n.CategoryDisplay, n.Category),
			Pinned:   n.IsPinned,
			Views:    n.Views,
			Date:     n.CreatedAt,
		})
	}

	return nil, GetNoticesOutput{
		Notices: entries,
		Total:   page.Count,
		HasMore: page.HasNext(),
	}, nil
}

// GetNotice tool - retrieves one announcement with its content
type GetNoticeInput struct {
	ID int `json:"id" jsonschema:"Notice ID"`
}

type GetNoticeOutput struct {
	NoticeEntry
	Content string `json:"content" jsonschema:"Notice body (HTML)"`
}

func (t *yugwanTools) GetNotice(ctx context.Context, req *mcp.CallToolRequest, input GetNoticeInput) (*mcp.CallToolResult, GetNoticeOutput, error) {
	if input.ID <= 0 {
		return nil, GetNoticeOutput{}, fmt.Errorf("id must be positive")
	}

	n, err := t.client.Archive.GetNotice(ctx, input.ID)
	if err != nil {
		return nil, GetNoticeOutput{}, fmt.Errorf("failed to fetch notice %d: %w", input.ID, err)
	}

	return nil, GetNoticeOutput{
		NoticeEntry: NoticeEntry{
			ID:       n.ID,
			Title:    n.Title,
			Category: displayOr(n.CategoryDisplay, n.Category),
			Pinned:   n.IsPinned,
			Views:    n.Views,
			Date:     n.CreatedAt,
		},
		Content: n.Content,
	}, nil
}

// GetNews tool - lists press coverage
type GetNewsInput struct {
	Page   int    `json:"page,omitempty" jsonschema:"Page number starting at 1 (optional)"`
	Search string `json:"search,omitempty" jsonschema:"Search text (optional)"`
	Source string `json:"source,omitempty" jsonschema:"Filter by news outlet (optional)"`
}

type NewsEntry struct {
	Title    string `json:"title" jsonschema:"Article title"`
	Source   string `json:"source" jsonschema:"News outlet"`
	Excerpt  string `json:"excerpt,omitempty" jsonschema:"Short summary"`
	Link     string `json:"link" jsonschema:"Article URL"`
	Date     string `json:"date" jsonschema:"Publication date (YYYY-MM-DD)"`
	Featured bool   `json:"featured" jsonschema:"Whether the article is featured"`
}

type GetNewsOutput struct {
	News    []NewsEntry `json:"news" jsonschema:"Articles on this page"`
	Total   int         `json:"total" jsonschema:"Total number of matching articles"`
	HasMore bool        `json:"hasMore" jsonschema:"Whether another page follows"`
}

func (t *yugwanTools) GetNews(ctx context.Context, req *mcp.CallToolRequest, input GetNewsInput) (*mcp.CallToolResult, GetNewsOutput, error) {
	page, err := t.client.Archive.ListNews(ctx, &yugwan.ListParams{
		Page:   input.Page,
		Search: input.Search,
		Source: input.Source,
	})
	if err != nil {
		return nil, GetNewsOutput{}, fmt.Errorf("failed to fetch news: %w", err)
	}

	entries := make([]NewsEntry, 0, len(page.Results))
	for _, n := range page.Results {
		entries = append(entries, NewsEntry{
			Title:    n.Title,
			Source:   n.Source,
			Excerpt:  n.Excerpt,
			Link:     n.LinkURL,
			Date:     n.PublishedDate.String(),
			Featured: n.IsFeatured,
		})
	}

	return nil, GetNewsOutput{
		News:    entries,
		Total:   page.Count,
		HasMore: page.HasNext(),
	}, nil
}

// GetPopups tool - lists popups currently shown on the site
type GetPopupsInput struct {
	// No input parameters needed
}

type PopupEntry struct {
	ID    int       `json:"id" jsonschema:"Popup ID"`
	Title string    `json:"title" jsonschema:"Popup title"`
	Link  string    `json:"link,omitempty" jsonschema:"Target URL"`
	Until time.Time `json:"until" jsonschema:"End of the display period"`
}

type GetPopupsOutput struct {
	Popups []PopupEntry `json:"popups" jsonschema:"Active popups"`
	Count  int          `json:"count" jsonschema:"Number of active popups"`
}

func (t *yugwanTools) GetPopups(ctx context.Context, req *mcp.CallToolRequest, input GetPopupsInput) (*mcp.CallToolResult, GetPopupsOutput, error) {
	popups, err := t.client.Popups.GetActive(ctx)
	if err != nil {
		return nil, GetPopupsOutput{}, fmt.Errorf("failed to fetch popups: %w", err)
	}

	entries := make([]PopupEntry, 0, len(popups))
	for _, p := range popups {
		entries = append(entries, PopupEntry{ID: p.ID, Title: p.Title, Link: p.LinkURL, Until: p.EndAt})
	}

	return nil, GetPopupsOutput{Popups: entries, Count: len(entries)}, nil
}

// GetContestWinners tool - lists speech contest awards
type GetContestWinnersInput struct {
	Year int `json:"year,omitempty" jsonschema:"Contest year, all years when omitted"`
}

type WinnerEntry struct {
	Year     int    `json:"year" jsonschema:"Contest year"`
	Award    string `json:"award" jsonschema:"Award name"`
	Name     string `json:"name" jsonschema:"Participant name"`
	School   string `json:"school" jsonschema:"School name"`
	Division string `json:"division" jsonschema:"Contest division"`
	Speech   string `json:"speech,omitempty" jsonschema:"Speech title"`
}

type GetContestWinnersOutput struct {
	Winners []WinnerEntry `json:"winners" jsonschema:"Awarded entries"`
	Count   int           `json:"count" jsonschema:"Number of winners"`
}

func (t *yugwanTools) GetContestWinners(ctx context.Context, req *mcp.CallToolRequest, input GetContestWinnersInput) (*mcp.CallToolResult, GetContestWinnersOutput, error) {
	winners, err := t.client.Contest.GetWinners(ctx, input.Year)
	if err != nil {
		return nil, GetContestWinnersOutput{}, fmt.Errorf("failed to fetch winners: %w", err)
	}

	entries := make([]WinnerEntry, 0, len(winners))
	for _, w := range winners {
		entries = append(entries, WinnerEntry{
			Year:     w.ContestYear,
			Award:    w.Award,
			Name:     w.Name,
			School:   w.SchoolName,
			Division: displayOr(w.DivisionDisplay, w.Division),
			Speech:   w.SpeechTitle,
		})
	}

	return nil, GetContestWinnersOutput{Winners: entries, Count: len(entries)}, nil
}

// GetProfile tool - the signed-in member
type GetProfileInput struct {
	// No input parameters needed
}

type GetProfileOutput struct {
	Username string `json:"username" jsonschema:"Login name"`
	Name     string `json:"name" jsonschema:"Display name"`
	Email    string `json:"email" jsonschema:"Email address"`
	Tier     string `json:"tier" jsonschema:"Membership tier"`
}

func (t *yugwanTools) GetProfile(ctx context.Context, req *mcp.CallToolRequest, input GetProfileInput) (*mcp.CallToolResult, GetProfileOutput, error) {
	user, err := t.client.Auth.GetProfile(ctx)
	if err != nil {
		if yugwan.IsAuthError(err) {
			return nil, GetProfileOutput{}, fmt.Errorf("not logged in, run `yugwan login` with the same session settings: %w", err)
		}
		return nil, GetProfileOutput{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return nil, GetProfileOutput{
		Username: user.Username,
		Name:     user.Profile().DisplayName(),
		Email:    user.Email,
		Tier:     displayOr(user.TierDisplay, user.Tier),
	}, nil
}

func displayOr(display, raw string) string {
	if display != "" {
		return display
	}
	return raw
}
