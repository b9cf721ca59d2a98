package yugwan

import (
	"context"
	"net/url"
	"strings"
)

// ReauthEvent describes a session that could not be renewed. The session has
// already been cleared when it is delivered.
type ReauthEvent struct {
	// ReturnPath is where the user should land after logging in again
	ReturnPath string

	// LoginURL is LoginPath with ReturnPath in its redirect parameter
	LoginURL string
}

type returnPathKey struct{}

// WithReturnPath records the page a request is made on behalf of. It becomes
// ReauthEvent.ReturnPath if that request ends the session.
func WithReturnPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, returnPathKey{}, path)
}

func returnPathFromContext(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(returnPathKey{}).(string)
	return path, ok && path != ""
}

func newReauthEvent(ctx context.Context, loginPath, requestPath string) ReauthEvent {
	returnPath, ok := returnPathFromContext(ctx)
	if !ok {
		returnPath = requestPath
	}

	sep := "?"
	if strings.Contains(loginPath, "?") {
		sep = "&"
	}

	return ReauthEvent{
		ReturnPath: returnPath,
		LoginURL:   loginPath + sep + "redirect=" + escapeComponent(returnPath),
	}
}

// escapeComponent escapes like a URI component: spaces become %20, not +
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
