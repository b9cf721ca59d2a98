package yugwan

import (
	"context"
	"net/http"
)

const (
	volunteerApplyEndpoint = "/join/volunteers/apply/"
	donationsEndpoint      = "/join/donations/"
	memberRegisterEndpoint = "/members/register/"
)

// joinService implements JoinService
type joinService struct {
	client *Client
}

func (s *joinService) ApplyVolunteer(ctx context.Context, params *VolunteerApplicationParams) (*Receipt, error) {
	if params == nil {
		return nil, invalidRequest("volunteer params are required")
	}
	return s.submit(ctx, volunteerApplyEndpoint, params)
}

func (s *joinService) Donate(ctx context.Context, params *DonationParams) (*Receipt, error) {
	if params == nil {
		return nil, invalidRequest("donation params are required")
	}
	return s.submit(ctx, donationsEndpoint, params)
}

func (s *joinService) RegisterMember(ctx context.Context, params *MemberParams) (*Receipt, error) {
	if params == nil {
		return nil, invalidRequest("member params are required")
	}
	return s.submit(ctx, memberRegisterEndpoint, params)
}

func (s *joinService) submit(ctx context.Context, path string, body interface{}) (*Receipt, error) {
	var receipt Receipt
	if err := s.client.call(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
