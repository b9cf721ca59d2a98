package yugwan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Encode(t *testing.T) {
	tests := []struct {
		name       string
		req        *Request
		wantMethod string
		wantPath   string
		wantBody   string
	}{
		{name: "defaults to GET", req: &Request{Path: "/popups/active/"}, wantMethod: "GET", wantPath: "/popups/active/"},
		{name: "lowercase method", req: &Request{Method: "patch", Path: "/auth/profile/"}, wantMethod: "PATCH", wantPath: "/auth/profile/"},
		{name: "adds leading slash", req: &Request{Path: "archive/news/"}, wantMethod: "GET", wantPath: "/archive/news/"},
		{
			name:       "appends query",
			req:        &Request{Path: "/archive/news/", Query: url.Values{"search": {"만세 운동"}}},
			wantMethod: "GET",
			wantPath:   "/archive/news/?search=%EB%A7%8C%EC%84%B8+%EC%9A%B4%EB%8F%99",
		},
		{
			name:       "extends existing query",
			req:        &Request{Path: "/archive/news/?page=2", Query: url.Values{"source": {"KBS"}}},
			wantMethod: "GET",
			wantPath:   "/archive/news/?page=2&source=KBS",
		},
		{
			name:       "json body",
			req:        &Request{Method: "POST", Path: "/join/donations/", Body: map[string]int{"amount": 10000}},
			wantMethod: "POST",
			wantPath:   "/join/donations/",
			wantBody:   `{"amount":10000}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.req.encode()
			require.NoError(t, err)

			assert.Equal(t, tt.wantMethod, encoded.Method)
			assert.Equal(t, tt.wantPath, encoded.Path)
			assert.Empty(t, encoded.ContentType)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, string(encoded.Body))
			} else {
				assert.Nil(t, encoded.Body)
			}
		})
	}
}

func TestRequest_EncodeCopiesHeaders(t *testing.T) {
	headers := map[string]string{"X-Trace": "1"}
	req := &Request{Path: "/", Header: headers}

	encoded, err := req.encode()
	require.NoError(t, err)

	headers["X-Trace"] = "2"
	assert.Equal(t, "1", encoded.Header["X-Trace"])
}

func TestForm_Encode(t *testing.T) {
	form := &Form{
		Fields: url.Values{"name": {"유관순"}, "contest_year": {"2026"}},
		Files: []FormFile{
			{Field: "script_file", Filename: `my "speech".pdf`, ContentType: "application/pdf", Content: strings.NewReader("%PDF")},
			{Field: "extra", Content: bytes.NewReader([]byte{0x01})},
		},
	}

	body, contentType, err := form.encode()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var names []string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		data, _ := io.ReadAll(part)

		names = append(names, part.FormName())
		switch part.FormName() {
		case "script_file":
			assert.Equal(t, `my "speech".pdf`, part.FileName())
			assert.Equal(t, "application/pdf", part.Header.Get("Content-Type"))
			assert.Equal(t, "%PDF", string(data))
		case "extra":
			assert.Equal(t, "extra", part.FileName())
			assert.Equal(t, "application/octet-stream", part.Header.Get("Content-Type"))
		case "name":
			assert.Equal(t, "유관순", string(data))
		}
	}

	// fields sorted by key, then files
	assert.Equal(t, []string{"contest_year", "name", "script_file", "extra"}, names)
}

func TestForm_EncodeRejectsUnnamedFile(t *testing.T) {
	form := &Form{Files: []FormFile{{Content: strings.NewReader("x")}}}

	_, _, err := form.encode()

	assert.Error(t, err)
}

func TestNewReauthEvent(t *testing.T) {
	tests := []struct {
		name        string
		ctx         context.Context
		loginPath   string
		requestPath string
		wantReturn  string
		wantLogin   string
	}{
		{
			name:        "request path",
			ctx:         context.Background(),
			loginPath:   DefaultLoginPath,
			requestPath: "/auth/profile/",
			wantReturn:  "/auth/profile/",
			wantLogin:   "/join/membership.html?redirect=%2Fauth%2Fprofile%2F",
		},
		{
			name:        "page from context with query",
			ctx:         WithReturnPath(context.Background(), "/archive/notice.html?id=3&tab=all"),
			loginPath:   DefaultLoginPath,
			requestPath: "/archive/notices/3/",
			wantReturn:  "/archive/notice.html?id=3&tab=all",
			wantLogin:   "/join/membership.html?redirect=%2Farchive%2Fnotice.html%3Fid%3D3%26tab%3Dall",
		},
		{
			name:        "spaces as %20",
			ctx:         WithReturnPath(context.Background(), "/my page.html"),
			loginPath:   DefaultLoginPath,
			requestPath: "/",
			wantReturn:  "/my page.html",
			wantLogin:   "/join/membership.html?redirect=%2Fmy%20page.html",
		},
		{
			name:        "login path with query",
			ctx:         context.Background(),
			loginPath:   "/login?lang=ko",
			requestPath: "/contest/apply/",
			wantReturn:  "/contest/apply/",
			wantLogin:   "/login?lang=ko&redirect=%2Fcontest%2Fapply%2F",
		},
		{
			name:        "empty context value ignored",
			ctx:         WithReturnPath(context.Background(), ""),
			loginPath:   DefaultLoginPath,
			requestPath: "/popups/active/",
			wantReturn:  "/popups/active/",
			wantLogin:   "/join/membership.html?redirect=%2Fpopups%2Factive%2F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := newReauthEvent(tt.ctx, tt.loginPath, tt.requestPath)
			assert.Equal(t, tt.wantReturn, event.ReturnPath)
			assert.Equal(t, tt.wantLogin, event.LoginURL)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		network   bool
		retryable bool
		status    int
	}{
		{name: "reauth", err: ErrReauthRequired, auth: true},
		{name: "unauthorized", err: &Error{Code: "UNAUTHORIZED", StatusCode: 401, Err: ErrNotAuthenticated}, auth: true, status: 401},
		{name: "forbidden", err: &Error{Code: "FORBIDDEN", StatusCode: 403, Err: ErrForbidden}, auth: true, status: 403},
		{name: "rate limited", err: &Error{Code: "RATE_LIMITED", StatusCode: 429, Err: ErrRateLimited}, retryable: true, status: 429},
		{name: "bad gateway", err: &Error{Code: "SERVER_ERROR", StatusCode: 502}, retryable: true, status: 502},
		{name: "network", err: fmt.Errorf("profile: %w", networkErrorForTest()), network: true, retryable: true},
		{name: "invalid request", err: invalidRequest("nope")},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.auth, IsAuthError(tt.err))
			assert.Equal(t, tt.network, IsNetworkError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.status, StatusCode(tt.err))
		})
	}
}

func networkErrorForTest() *Error {
	return WrapError(fmt.Errorf("%w: dial tcp: connection refused", ErrNetwork), "NETWORK_ERROR", "network error")
}

func TestClient_SessionInfo(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newFakeAPI(t), nil)

	info, err := client.SessionInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Authenticated)
	assert.Nil(t, info.Access)

	issued := time.Now().Add(-10 * time.Minute).Truncate(time.Second)
	access := signTestToken(t, jwtlib.MapClaims{
		"token_type": "access",
		"user_id":    7,
		"jti":        "a-jti",
		"iat":        issued.Unix(),
		"exp":        issued.Add(5 * time.Minute).Unix(),
	})
	refresh := signTestToken(t, jwtlib.MapClaims{
		"token_type": "refresh",
		"user_id":    7,
		"exp":        issued.Add(24 * time.Hour).Unix(),
	})
	require.NoError(t, client.SetTokens(ctx, access, refresh))
	require.NoError(t, client.store.SetProfile(ctx, Profile{Username: "ygs"}))

	info, err = client.SessionInfo(ctx)

	require.NoError(t, err)
	assert.True(t, info.Authenticated)
	require.NotNil(t, info.Profile)
	assert.Equal(t, "ygs", info.Profile.DisplayName())
	require.NotNil(t, info.Access)
	assert.Equal(t, "access", info.Access.TokenType)
	assert.Equal(t, "7", info.Access.UserID)
	assert.True(t, info.Access.IssuedAt.Equal(issued))
	assert.True(t, info.AccessExpired(time.Now()))
	require.NotNil(t, info.Refresh)
	assert.False(t, info.Refresh.Expired(time.Now()))
}

func TestClient_SessionInfoOpaqueTokens(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newFakeAPI(t), nil)
	require.NoError(t, client.SetTokens(ctx, "A1", "R1"))

	info, err := client.SessionInfo(ctx)

	require.NoError(t, err)
	assert.True(t, info.Authenticated)
	assert.Nil(t, info.Access)
	assert.Nil(t, info.Refresh)
	assert.False(t, info.AccessExpired(time.Now()))
}

func signTestToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
