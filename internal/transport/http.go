package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joonyo2/yugwan/internal/types"
	"github.com/pkg/errors"
)

const (
	authHeaderKey   = "Authorization"
	contentTypeKey  = "Content-Type"
	jsonContentType = "application/json"
)

// Request is an encoded, immutable request. It can be sent more than once.
type Request struct {
	Method string
	Path   string
	Body   []byte
	// ContentType overrides the JSON content type; multipart bodies set their boundary here
	ContentType string
	// Header holds caller headers, applied last
	Header map[string]string
}

// Multipart reports whether the body is a multipart form
func (r *Request) Multipart() bool {
	return strings.HasPrefix(r.ContentType, "multipart/")
}

// HTTPTransport builds and dispatches requests against the API base URL
type HTTPTransport struct {
	baseURL     string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	headers     map[string]string
	logger      types.Logger
	hooks       *types.Hooks
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(opts *Options) *HTTPTransport {
	if opts == nil {
		opts = &Options{}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = types.ProductionBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	// Create retry client if configured
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil && opts.RetryConfig.MaxRetries > 0 {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		// hand the last response back instead of turning exhausted 5xx into errors
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		retryClient.Logger = nil

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		}
	}

	// Set default headers
	headers := map[string]string{
		"Accept":     jsonContentType,
		"User-Agent": types.UserAgent,
	}

	// Merge custom headers
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPTransport{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		headers:     headers,
		logger:      opts.Logger,
		hooks:       opts.Hooks,
	}
}

// BaseURL returns the API base every path is appended to
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// Send dispatches req, attaching accessToken as a bearer token when non-empty.
// The only error returned is a *types.Error wrapping types.ErrNetwork: any
// response, whatever its status, is returned to the caller.
func (t *HTTPTransport) Send(ctx context.Context, req *Request, accessToken string) (*types.Response, error) {
	httpReq, err := t.buildRequest(ctx, req, accessToken)
	if err != nil {
		return nil, types.NewNetworkError(err)
	}

	// Call request hook
	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}

	// Log request
	if t.logger != nil {
		t.logger.Debug("API request", "method", httpReq.Method, "path", PathOnly(req.Path), "authenticated", accessToken != "")
	}

	// Execute request
	start := time.Now()
	resp, err := t.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		netErr := types.NewNetworkError(err)
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, netErr)
		}
		if t.logger != nil {
			t.logger.Warn("API request failed", "method", httpReq.Method, "path", PathOnly(req.Path), "error", err)
		}
		return nil, netErr
	}
	defer resp.Body.Close()

	// Call response hook
	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	// An unreadable body is handled like a malformed one
	body, err := io.ReadAll(resp.Body)
	if err != nil && t.logger != nil {
		t.logger.Warn("failed to read response body", "path", PathOnly(req.Path), "error", err)
	}

	// Log response
	if t.logger != nil {
		t.logger.Debug("API response", "method", httpReq.Method, "path", PathOnly(req.Path), "status", resp.StatusCode, "duration", duration, "size", len(body))
	}

	return &types.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// buildRequest composes URL and headers. Precedence, lowest first: transport
// defaults, Content-Type, Authorization, caller headers.
func (t *HTTPTransport) buildRequest(ctx context.Context, req *Request, accessToken string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	// Set headers
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	if req.ContentType != "" {
		httpReq.Header.Set(contentTypeKey, req.ContentType)
	} else {
		httpReq.Header.Set(contentTypeKey, jsonContentType)
	}

	// Set auth header
	if accessToken != "" {
		httpReq.Header.Set(authHeaderKey, "Bearer "+accessToken)
	}

	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// doRequest executes the HTTP request with retry if configured
func (t *HTTPTransport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil {
		// Convert to retryable request
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// Options for HTTP transport
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

// PathOnly drops the query string, which may carry personal data
func PathOnly(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
