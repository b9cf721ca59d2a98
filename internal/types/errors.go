package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error represents a failed API call
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"statusCode,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Body       json.RawMessage        `json:"body,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("error: %s", e.Code)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// FieldErrors returns the first message reported for each field of a
// validation error body, e.g. {"email": ["already registered"]}.
// Non-field keys (message, detail) are skipped.
func (e *Error) FieldErrors() map[string]string {
	fields := make(map[string]string)
	for key, value := range e.Details {
		if key == "message" || key == "detail" {
			continue
		}
		switch v := value.(type) {
		case string:
			fields[key] = v
		case []interface{}:
			if len(v) == 0 {
				continue
			}
			if s, ok := v[0].(string); ok {
				fields[key] = s
			}
		}
	}
	return fields
}

// NewNetworkError wraps a transport failure
func NewNetworkError(cause error) *Error {
	return &Error{
		Code:    "NETWORK_ERROR",
		Message: NetworkErrorMessage,
		Err:     fmt.Errorf("%w: %v", ErrNetwork, cause),
	}
}

// IsNetworkError reports whether err is a transport-level failure
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}
