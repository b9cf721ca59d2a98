package yugwan

import (
	"errors"
	"fmt"
	"net/http"

	internalTypes "github.com/joonyo2/yugwan/internal/types"
)

// Error represents a failed API call. StatusCode is zero for network errors.
type Error = internalTypes.Error

var (
	// ErrNetwork is wrapped by every failure that happened before a response arrived
	ErrNetwork = internalTypes.ErrNetwork

	// ErrReauthRequired is returned when the session expired and could not be
	// renewed. The session has been cleared and OnReauthRequired has run.
	ErrReauthRequired = internalTypes.ErrReauthRequired

	// ErrNotAuthenticated is returned for 401 responses that were not recovered
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrForbidden is returned for 403 responses
	ErrForbidden = internalTypes.ErrForbidden

	// ErrBadRequest is returned for 400 responses
	ErrBadRequest = internalTypes.ErrBadRequest

	// ErrNotFound is returned when resource not found
	ErrNotFound = internalTypes.ErrNotFound

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = internalTypes.ErrRateLimited

	// ErrServerError is returned for server errors
	ErrServerError = internalTypes.ErrServerError

	// ErrInvalidRequest is returned for requests that cannot be encoded
	ErrInvalidRequest = errors.New("invalid request")
)

// NewError creates a new API error
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrReauthRequired) ||
		errors.Is(err, ErrForbidden)
}

// IsNetworkError reports whether err is a transport-level failure
func IsNetworkError(err error) bool {
	return internalTypes.IsNetworkError(err)
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}

	return false
}

// StatusCode returns the HTTP status carried by err, or zero
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func invalidRequestCause(message string, cause error) *Error {
	return &Error{
		Code:    "INVALID_REQUEST",
		Message: message,
		Err:     fmt.Errorf("%w: %v", ErrInvalidRequest, cause),
	}
}

func invalidRequest(message string) *Error {
	return &Error{
		Code:    "INVALID_REQUEST",
		Message: message,
		Err:     ErrInvalidRequest,
	}
}
