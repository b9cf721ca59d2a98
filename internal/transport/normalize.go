package transport

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/joonyo2/yugwan/internal/types"
)

var emptyObject = json.RawMessage("{}")

// Normalize turns a raw response into a Result for 2xx statuses or a
// *types.Error for everything else. A body that is not valid JSON is treated
// as an empty object and never causes an error by itself.
func Normalize(resp *types.Response) (*types.Result, error) {
	body := parseBody(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &types.Result{StatusCode: resp.StatusCode, Data: body}, nil
	}

	apiErr := &types.Error{
		Code:       errorCode(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       body,
		Err:        statusSentinel(resp.StatusCode),
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err == nil {
		apiErr.Details = fields
	}
	apiErr.Message = errorMessage(fields)

	return nil, apiErr
}

// parseBody returns body when it holds a single valid JSON value, else {}
func parseBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return emptyObject
	}
	return json.RawMessage(trimmed)
}

// errorMessage picks message, then detail, then the fallback. Values that are
// empty, null, false or zero are skipped.
func errorMessage(fields map[string]interface{}) string {
	for _, key := range []string{"message", "detail"} {
		if msg, ok := messageText(fields[key]); ok {
			return msg
		}
	}
	return types.DefaultErrorMessage
}

func messageText(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
	case float64:
		if v == 0 {
			return "", false
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

func errorCode(statusCode int) string {
	switch {
	case statusCode == http.StatusBadRequest:
		return "BAD_REQUEST"
	case statusCode == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case statusCode == http.StatusForbidden:
		return "FORBIDDEN"
	case statusCode == http.StatusNotFound:
		return "NOT_FOUND"
	case statusCode == http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case statusCode >= 500:
		return "SERVER_ERROR"
	default:
		return "HTTP_ERROR"
	}
}

func statusSentinel(statusCode int) error {
	switch {
	case statusCode == http.StatusBadRequest:
		return types.ErrBadRequest
	case statusCode == http.StatusUnauthorized:
		return types.ErrNotAuthenticated
	case statusCode == http.StatusForbidden:
		return types.ErrForbidden
	case statusCode == http.StatusNotFound:
		return types.ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		return types.ErrRateLimited
	case statusCode >= 500:
		return types.ErrServerError
	default:
		return nil
	}
}
