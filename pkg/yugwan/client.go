package yugwan

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/joonyo2/yugwan/internal/auth"
	"github.com/joonyo2/yugwan/internal/session"
	"github.com/joonyo2/yugwan/internal/transport"
	internalTypes "github.com/joonyo2/yugwan/internal/types"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	// DevelopmentBaseURL is the API base of a backend running on localhost
	DevelopmentBaseURL = internalTypes.DevelopmentBaseURL

	// ProductionBaseURL is the public API base
	ProductionBaseURL = internalTypes.ProductionBaseURL

	// DefaultLoginPath is the login page used in ReauthEvent.LoginURL
	DefaultLoginPath = internalTypes.DefaultLoginPath

	// UserAgent is the user agent string
	UserAgent = internalTypes.UserAgent
)

// Environment selects which API deployment the client talks to
type Environment = internalTypes.Environment

const (
	EnvironmentDevelopment = internalTypes.EnvironmentDevelopment
	EnvironmentProduction  = internalTypes.EnvironmentProduction
)

// EnvironmentForHost maps the host the caller runs on to an Environment.
// localhost and loopback addresses select development.
func EnvironmentForHost(host string) Environment {
	return internalTypes.EnvironmentForHost(host)
}

// Result is a successful, normalized response
type Result = internalTypes.Result

// RetryConfig configures transport-level retries of 5xx and connection
// errors. It is independent of the single retry after a session refresh.
type RetryConfig = internalTypes.RetryConfig

// Hooks provides lifecycle hooks for requests
type Hooks = internalTypes.Hooks

// Client is the Yu Gwan-sun API client. It is safe for concurrent use.
type Client struct {
	// Service interfaces
	Auth    AuthService
	Contest ContestService
	Archive ArchiveService
	Join    JoinService
	Popups  PopupService

	// Internal fields
	baseURL   string
	loginPath string
	transport Transport
	store     *session.Store
	refresher *auth.Refresher
	options   *ClientOptions
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the URL derived from Environment
	BaseURL string

	// Environment selects the API base when BaseURL is empty. Defaults to production.
	Environment Environment

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout. Zero means none.
	Timeout time.Duration

	// Headers are added to every request
	Headers map[string]string

	// SessionBackend persists tokens. Defaults to process memory.
	SessionBackend SessionBackend

	// Logger for debug logging
	Logger Logger

	// RetryConfig configures retry behavior
	RetryConfig *RetryConfig

	// RateLimiter for rate limiting
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions

	// LoginPath is the page users are sent to when the session ends
	LoginPath string

	// OnReauthRequired is called after a session could not be renewed and
	// has been cleared
	OnReauthRequired func(ctx context.Context, event ReauthEvent)
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NewRateLimiter allows rps requests per second with the given burst
func NewRateLimiter(rps float64, burst int) RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Transport dispatches encoded requests
type Transport interface {
	Send(ctx context.Context, req *transport.Request, accessToken string) (*internalTypes.Response, error)
}

// NewClient creates a new client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		// Use provided options if available, otherwise create new ones
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		// Override DSN if provided separately
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		// Set default environment if not provided
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = string(resolveEnvironment(opts.Environment))
		}

		// Initialize Sentry
		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = resolveEnvironment(opts.Environment).BaseURL()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout > 0 {
		withTimeout := *httpClient
		withTimeout.Timeout = opts.Timeout
		httpClient = &withTimeout
	}

	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	var logger internalTypes.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	// Create transport using the internal package
	trans := transport.NewHTTPTransport(&transport.Options{
		BaseURL:     baseURL,
		HTTPClient:  httpClient,
		Headers:     opts.Headers,
		RetryConfig: opts.RetryConfig,
		Logger:      logger,
		Hooks:       opts.Hooks,
	})

	store := session.NewStore(opts.SessionBackend)

	c := &Client{
		baseURL:   baseURL,
		loginPath: loginPath,
		transport: trans,
		store:     store,
		refresher: auth.NewRefresher(store, trans, logger, opts.Hooks),
		options:   opts,
	}

	// Initialize services
	c.initServices()

	return c, nil
}

func resolveEnvironment(env Environment) Environment {
	if env == "" {
		return EnvironmentProduction
	}
	return internalTypes.ParseEnvironment(string(env))
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Auth = &authService{client: c}
	c.Contest = &contestService{client: c}
	c.Archive = &archiveService{client: c}
	c.Join = &joinService{client: c}
	c.Popups = &popupService{client: c}
}

// BaseURL returns the API base every request path is appended to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes req through the session pipeline.
//
// The access token present at dispatch is attached as a bearer token. A 401
// answer to an authenticated request triggers one session refresh and one
// retry with the renewed token; the retry's outcome is final. If the session
// cannot be renewed it is cleared, OnReauthRequired is called and
// ErrReauthRequired is returned. A caller whose ctx is done by the time the
// refresh settles gets ctx.Err() and the session is left as the refresh left it.
//
// Non-2xx responses are returned as *Error. Failures before any response
// wrap ErrNetwork and are never retried here.
func (c *Client) Do(ctx context.Context, req *Request) (*Result, error) {
	encoded, err := req.encode()
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()

	var access string
	if !req.Anonymous {
		access, err = c.store.AccessToken(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read session")
		}
	}

	resp, err := c.dispatch(ctx, encoded, access, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && access != "" {
		c.debug("access token rejected, refreshing session", "request_id", requestID, "path", transport.PathOnly(encoded.Path))

		renewed, ok := c.refresher.Refresh(ctx, access)
		// a caller that gave up is told so, whatever became of the session
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !ok {
			return nil, c.endSession(ctx, encoded, requestID)
		}

		// one retry, its result is final whatever the status
		resp, err = c.dispatch(ctx, encoded, renewed, requestID)
		if err != nil {
			return nil, err
		}
	}

	result, err := transport.Normalize(resp)
	if err != nil && resp.StatusCode >= 500 {
		c.captureError(ctx, err, encoded, requestID)
	}
	return result, err
}

// dispatch sends one attempt after waiting for the rate limiter
func (c *Client) dispatch(ctx context.Context, req *transport.Request, access, requestID string) (*internalTypes.Response, error) {
	// Rate limiting
	if c.options.RateLimiter != nil {
		if err := c.options.RateLimiter.Wait(ctx); err != nil {
			c.captureError(ctx, err, req, requestID)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.transport.Send(ctx, req, access)
	if err != nil {
		c.captureError(ctx, err, req, requestID)
		return nil, err
	}

	c.debug("request completed",
		"request_id", requestID,
		"method", req.Method,
		"path", transport.PathOnly(req.Path),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

// endSession clears the session after a failed refresh and notifies the
// caller. The callback only runs once the session is gone.
func (c *Client) endSession(ctx context.Context, req *transport.Request, requestID string) error {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		if c.options.Logger != nil {
			c.options.Logger.Error("failed to clear session", "request_id", requestID, "error", err)
		}
		return err
	}

	event := newReauthEvent(ctx, c.loginPath, transport.PathOnly(req.Path))
	if c.options.Logger != nil {
		c.options.Logger.Info("session ended, re-authentication required", "request_id", requestID, "login_url", event.LoginURL)
	}

	if c.options.OnReauthRequired != nil {
		c.options.OnReauthRequired(ctx, event)
	}
	return ErrReauthRequired
}

// captureError reports err to Sentry, preferring the hub on ctx
func (c *Client) captureError(ctx context.Context, err error, req *transport.Request, requestID string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("http.method", req.Method)
		scope.SetTag("http.path", transport.PathOnly(req.Path))
		scope.SetTag("request_id", requestID)
		scope.SetContext("request", map[string]interface{}{
			"method":     req.Method,
			"path":       transport.PathOnly(req.Path),
			"status":     StatusCode(err),
			"base_url":   c.baseURL,
			"request_id": requestID,
		})
		hub.CaptureException(err)
	})
}

// Session returns the stored tokens
func (c *Client) Session(ctx context.Context) (Session, error) {
	return c.store.Get(ctx)
}

// SetTokens stores tokens obtained outside the client. An empty refresh
// token keeps the current one.
func (c *Client) SetTokens(ctx context.Context, access, refresh string) error {
	return c.store.Set(ctx, access, refresh)
}

// Close flushes any pending Sentry events and performs cleanup
func (c *Client) Close() {
	// Flush Sentry events with a 2 second timeout
	sentry.Flush(2 * time.Second)
}

func (c *Client) debug(msg string, keysAndValues ...interface{}) {
	if c.options.Logger != nil {
		c.options.Logger.Debug(msg, keysAndValues...)
	}
}
