package yugwan

import "context"

const activePopupsEndpoint = "/popups/active/"

// popupService implements PopupService
type popupService struct {
	client *Client
}

func (s *popupService) GetActive(ctx context.Context) ([]Popup, error) {
	result, err := s.client.Do(ctx, &Request{Path: activePopupsEndpoint})
	if err != nil {
		return nil, err
	}

	page, err := decodePage[Popup](result.Data)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}
