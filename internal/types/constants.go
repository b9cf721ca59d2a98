package types

import (
	"errors"
	"net"
	"strings"
)

// Environment selects which API deployment the client talks to
type Environment string

const (
	// EnvironmentDevelopment targets a backend running on the local machine
	EnvironmentDevelopment Environment = "development"

	// EnvironmentProduction targets the public API
	EnvironmentProduction Environment = "production"
)

const (
	// DevelopmentBaseURL is the API base used when running against localhost
	DevelopmentBaseURL = "http://localhost:8000/api/v1"

	// ProductionBaseURL is the public API base
	ProductionBaseURL = "https://api.yugwansun.org/api/v1"

	// UserAgent is the user agent string
	UserAgent = "yugwan-go/1.0.0"

	// DefaultLoginPath is where the user is sent when the session cannot be renewed
	DefaultLoginPath = "/join/membership.html"

	// DefaultErrorMessage is used when an error body carries neither message nor detail
	DefaultErrorMessage = "an error occurred while processing the request"

	// NetworkErrorMessage is the message of every transport-level failure
	NetworkErrorMessage = "network error"
)

// API endpoints, relative to the base URL
const (
	LoginEndpoint          = "/auth/token/"
	RefreshEndpoint        = "/auth/token/refresh/"
	RegisterEndpoint       = "/auth/register/"
	ProfileEndpoint        = "/auth/profile/"
	PasswordChangeEndpoint = "/auth/password/change/"
	AccountDeleteEndpoint  = "/auth/account/delete/"
)

// Common errors
var (
	// ErrNetwork is wrapped by every failure that happened before a response arrived
	ErrNetwork = errors.New("network error")

	// ErrReauthRequired is returned when the session expired and could not be renewed
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrNotAuthenticated is returned for 401 responses that were not recovered
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned for 403 responses
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest is returned for 400 responses
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")
)

// BaseURL returns the API base for the environment
func (e Environment) BaseURL() string {
	if e == EnvironmentDevelopment {
		return DevelopmentBaseURL
	}
	return ProductionBaseURL
}

// ParseEnvironment maps a free-form name to an Environment. Unknown values are production.
func ParseEnvironment(name string) Environment {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dev", "development", "local":
		return EnvironmentDevelopment
	default:
		return EnvironmentProduction
	}
}

// EnvironmentForHost picks the environment from the host the client runs on.
// localhost and loopback addresses select development.
func EnvironmentForHost(host string) Environment {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if strings.EqualFold(host, "localhost") {
		return EnvironmentDevelopment
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil && ip.IsLoopback() {
		return EnvironmentDevelopment
	}
	return EnvironmentProduction
}
