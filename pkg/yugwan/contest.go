package yugwan

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	contestApplyEndpoint         = "/contest/apply/"
	contestMyApplicationEndpoint = "/contest/my-application/"
	contestWinnersEndpoint       = "/contest/winners/"
	scriptFileField              = "script_file"
)

// contestService implements ContestService
type contestService struct {
	client *Client
}

func (s *contestService) Apply(ctx context.Context, params *ContestApplicationParams) (*Receipt, error) {
	if params == nil {
		return nil, invalidRequest("contest application params are required")
	}
	if params.ScriptFile.Content == nil {
		return nil, invalidRequest("script file is required")
	}

	file := params.ScriptFile
	file.Field = scriptFileField

	var receipt Receipt
	if err := s.client.call(ctx, &Request{
		Method: http.MethodPost,
		Path:   contestApplyEndpoint,
		Form: &Form{
			Fields: params.fields(),
			Files:  []FormFile{file},
		},
	}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// fields encodes the form as the backend's multipart field names
func (p *ContestApplicationParams) fields() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}

	if p.ContestYear > 0 {
		v.Set("contest_year", strconv.Itoa(p.ContestYear))
	}
	set("name", p.Name)
	set("birth_date", p.BirthDate.String())
	set("school_name", p.SchoolName)
	set("grade", p.Grade)
	set("division", p.Division)
	set("speech_title", p.SpeechTitle)
	set("parent_name", p.ParentName)
	set("contact_parent", p.ContactParent)
	set("teacher_name", p.TeacherName)
	set("email", p.Email)
	set("address", p.Address)
	v.Set("rules_agreed", strconv.FormatBool(p.RulesAgreed))
	v.Set("privacy_agreed", strconv.FormatBool(p.PrivacyAgreed))
	v.Set("news_agreed", strconv.FormatBool(p.NewsAgreed))
	return v
}

// GetMyApplication matches the guardian phone without dashes, as stored
func (s *contestService) GetMyApplication(ctx context.Context, email, phone string) (*ContestApplication, error) {
	var application ContestApplication
	if err := s.client.call(ctx, &Request{
		Path: contestMyApplicationEndpoint,
		Query: url.Values{
			"email": {strings.TrimSpace(email)},
			"phone": {strings.ReplaceAll(strings.TrimSpace(phone), "-", "")},
		},
	}, &application); err != nil {
		return nil, err
	}
	return &application, nil
}

func (s *contestService) GetWinners(ctx context.Context, year int) ([]ContestWinner, error) {
	req := &Request{Path: contestWinnersEndpoint}
	if year > 0 {
		req.Query = url.Values{"year": {strconv.Itoa(year)}}
	}

	result, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	page, err := decodePage[ContestWinner](result.Data)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}
