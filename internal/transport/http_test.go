package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joonyo2/yugwan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_HeaderComposition(t *testing.T) {
	tests := []struct {
		name          string
		req           *Request
		token         string
		wantAuth      string
		wantType      string
		wantCustomHdr string
	}{
		{
			name:     "no token sends no Authorization header",
			req:      &Request{Method: http.MethodGet, Path: "/popups/active/"},
			wantType: "application/json",
		},
		{
			name:     "token is sent as bearer",
			req:      &Request{Method: http.MethodGet, Path: "/auth/profile/"},
			token:    "A1",
			wantAuth: "Bearer A1",
			wantType: "application/json",
		},
		{
			name: "multipart keeps its boundary content type",
			req: &Request{
				Method:      http.MethodPost,
				Path:        "/contest/apply/",
				Body:        []byte("--b\r\n--b--\r\n"),
				ContentType: "multipart/form-data; boundary=b",
			},
			token:    "A1",
			wantAuth: "Bearer A1",
			wantType: "multipart/form-data; boundary=b",
		},
		{
			name: "caller headers win",
			req: &Request{
				Method: http.MethodGet,
				Path:   "/archive/notices/",
				Header: map[string]string{"Authorization": "Custom xyz", "X-Trace": "t1"},
			},
			token:         "A1",
			wantAuth:      "Custom xyz",
			wantType:      "application/json",
			wantCustomHdr: "t1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got http.Header
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			transport := NewHTTPTransport(&Options{BaseURL: server.URL})
			resp, err := transport.Send(context.Background(), tt.req, tt.token)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantAuth, got.Get("Authorization"))
			assert.Equal(t, tt.wantType, got.Get("Content-Type"))
			assert.Equal(t, tt.wantCustomHdr, got.Get("X-Trace"))
			assert.Equal(t, types.UserAgent, got.Get("User-Agent"))
		})
	}
}

func TestSend_BodyAndPath(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(&Options{BaseURL: server.URL + "/api/v1/"})
	resp, err := transport.Send(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/join/donations/?source=web",
		Body:   []byte(`{"amount":10000}`),
	}, "")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/join/donations/", gotPath)
	assert.Equal(t, "source=web", gotQuery)
	assert.JSONEq(t, `{"amount":10000}`, string(gotBody))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id": 7}`, string(resp.Body))
}

func TestSend_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var hookErr error
	transport := NewHTTPTransport(&Options{
		BaseURL: url,
		Hooks: &types.Hooks{
			OnError: func(ctx context.Context, err error) { hookErr = err },
		},
	})

	resp, err := transport.Send(context.Background(), &Request{Path: "/popups/active/"}, "A1")

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, types.IsNetworkError(err))

	var apiErr *types.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NETWORK_ERROR", apiErr.Code)
	assert.Equal(t, types.NetworkErrorMessage, apiErr.Message)
	assert.Zero(t, apiErr.StatusCode)
	assert.Equal(t, err, hookErr)
}

func TestSend_Hooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	var requests, responses int32
	transport := NewHTTPTransport(&Options{
		BaseURL: server.URL,
		Hooks: &types.Hooks{
			OnRequest: func(ctx context.Context, req *http.Request) { atomic.AddInt32(&requests, 1) },
			OnResponse: func(ctx context.Context, resp *http.Response, d time.Duration) {
				atomic.AddInt32(&responses, 1)
				assert.Equal(t, http.StatusTeapot, resp.StatusCode)
			},
		},
	})

	_, err := transport.Send(context.Background(), &Request{Path: "/"}, "")

	require.NoError(t, err)
	assert.Equal(t, int32(1), requests)
	assert.Equal(t, int32(1), responses)
}

func TestSend_RetryConfigRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(&Options{
		BaseURL:     server.URL,
		RetryConfig: &types.RetryConfig{MaxRetries: 3, RetryWait: time.Millisecond, MaxWait: 5 * time.Millisecond},
	})

	resp, err := transport.Send(context.Background(), &Request{Path: "/archive/news/"}, "")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSend_RetryExhaustedReturnsLastResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"maintenance"}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(&Options{
		BaseURL:     server.URL,
		RetryConfig: &types.RetryConfig{MaxRetries: 1, RetryWait: time.Millisecond, MaxWait: time.Millisecond},
	})

	resp, err := transport.Send(context.Background(), &Request{Path: "/"}, "")

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantData    string
		wantCode    string
		wantMessage string
		wantErr     error
	}{
		{name: "success object", status: 200, body: `{"id":1}`, wantData: `{"id":1}`},
		{name: "success array", status: 200, body: `[1,2]`, wantData: `[1,2]`},
		{name: "malformed success body", status: 200, body: `<html>oops`, wantData: `{}`},
		{name: "empty success body", status: 204, body: ``, wantData: `{}`},
		{
			name: "message wins over detail", status: 400,
			body:     `{"message":"invalid email","detail":"ignored"}`,
			wantCode: "BAD_REQUEST", wantMessage: "invalid email", wantErr: types.ErrBadRequest,
		},
		{
			name: "detail when no message", status: 401,
			body:     `{"detail":"Given token not valid for any token type"}`,
			wantCode: "UNAUTHORIZED", wantMessage: "Given token not valid for any token type", wantErr: types.ErrNotAuthenticated,
		},
		{
			name: "empty message falls through to detail", status: 403,
			body:     `{"message":"","detail":"no permission"}`,
			wantCode: "FORBIDDEN", wantMessage: "no permission", wantErr: types.ErrForbidden,
		},
		{
			name: "fallback for field errors", status: 400,
			body:     `{"email":["already registered"]}`,
			wantCode: "BAD_REQUEST", wantMessage: types.DefaultErrorMessage, wantErr: types.ErrBadRequest,
		},
		{
			name: "fallback for html error page", status: 502,
			body:     `<html>Bad Gateway</html>`,
			wantCode: "SERVER_ERROR", wantMessage: types.DefaultErrorMessage, wantErr: types.ErrServerError,
		},
		{name: "not found", status: 404, body: `{}`, wantCode: "NOT_FOUND", wantMessage: types.DefaultErrorMessage, wantErr: types.ErrNotFound},
		{name: "rate limited", status: 429, body: `{"detail":"slow down"}`, wantCode: "RATE_LIMITED", wantMessage: "slow down", wantErr: types.ErrRateLimited},
		{name: "other status", status: 409, body: `{"message":"conflict"}`, wantCode: "HTTP_ERROR", wantMessage: "conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(&types.Response{StatusCode: tt.status, Body: []byte(tt.body)})

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.status, result.StatusCode)
				assert.JSONEq(t, tt.wantData, string(result.Data))
				return
			}

			require.Error(t, err)
			assert.Nil(t, result)

			var apiErr *types.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.True(t, json.Valid(apiErr.Body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNormalize_FieldErrors(t *testing.T) {
	_, err := Normalize(&types.Response{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"email":["already registered","second"],"phone":"required","detail":"x"}`),
	})

	var apiErr *types.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, map[string]string{
		"email": "already registered",
		"phone": "required",
	}, apiErr.FieldErrors())
	assert.JSONEq(t, `{"email":["already registered","second"],"phone":"required","detail":"x"}`, string(apiErr.Body))
}

func TestNormalize_NonStringMessage(t *testing.T) {
	_, err := Normalize(&types.Response{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"message":{"email":"bad"}}`),
	})

	var apiErr *types.Error
	require.True(t, errors.As(err, &apiErr))
	assert.JSONEq(t, `{"email":"bad"}`, apiErr.Message)
}

func TestPathOnly(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/auth/profile/", want: "/auth/profile/"},
		{path: "/contest/my-application/?email=a%40b.c&phone=010", want: "/contest/my-application/"},
		{path: "/archive/notices/?", want: "/archive/notices/"},
		{path: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, PathOnly(tt.path))
		})
	}
}
