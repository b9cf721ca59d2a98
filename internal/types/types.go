package types

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Response is a raw HTTP response whose body has been fully read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Result is a successful, normalized response
type Result struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RetryConfig configures transport-level retry behavior
type RetryConfig struct {
	MaxRetries int           `json:"maxRetries"`
	RetryWait  time.Duration `json:"retryWait"`
	MaxWait    time.Duration `json:"maxWait"`
}

// Hooks provides lifecycle hooks for requests
type Hooks struct {
	OnRequest  func(ctx context.Context, req *http.Request)
	OnResponse func(ctx context.Context, resp *http.Response, duration time.Duration)
	OnError    func(ctx context.Context, err error)
	OnRefresh  func(ctx context.Context, refreshed bool, duration time.Duration)
}
