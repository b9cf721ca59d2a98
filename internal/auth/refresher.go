// Package auth renews expired sessions.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joonyo2/yugwan/internal/session"
	"github.com/joonyo2/yugwan/internal/transport"
	"github.com/joonyo2/yugwan/internal/types"
	"golang.org/x/sync/singleflight"
)

// Sender dispatches an encoded request
type Sender interface {
	Send(ctx context.Context, req *transport.Request, accessToken string) (*types.Response, error)
}

// Refresher exchanges the stored refresh token for a new access token.
// Concurrent refreshes for the same expired token share one network call.
type Refresher struct {
	store  *session.Store
	sender Sender
	logger types.Logger
	hooks  *types.Hooks
	group  singleflight.Group
}

// NewRefresher creates a refresher writing renewed tokens to store
func NewRefresher(store *session.Store, sender Sender, logger types.Logger, hooks *types.Hooks) *Refresher {
	return &Refresher{
		store:  store,
		sender: sender,
		logger: logger,
		hooks:  hooks,
	}
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type outcome struct {
	access string
	ok     bool
}

// Refresh renews the session whose access token staleAccess was rejected.
// It returns the access token to retry with and true on success. Failures are
// logged and reported only through the boolean.
//
// If the stored access token already differs from staleAccess another caller
// renewed the session in the meantime and no request is made. Cancellation of
// ctx does not abort the refresh or fail it.
func (r *Refresher) Refresh(ctx context.Context, staleAccess string) (string, bool) {
	// the shared call must not die with whichever caller started it
	flightCtx := context.WithoutCancel(ctx)

	sess, err := r.store.Get(flightCtx)
	if err != nil {
		r.warn("failed to read session", err)
		return "", false
	}
	if sess.AccessToken != "" && sess.AccessToken != staleAccess {
		r.debug("session already renewed")
		return sess.AccessToken, true
	}
	if sess.RefreshToken == "" {
		r.debug("no refresh token available")
		return "", false
	}

	v, _, shared := r.group.Do(staleAccess, func() (interface{}, error) {
		// a flight for the same token may have landed since the read above
		current, err := r.store.Get(flightCtx)
		if err == nil && current.AccessToken != "" && current.AccessToken != staleAccess {
			return outcome{access: current.AccessToken, ok: true}, nil
		}
		if err == nil && current.RefreshToken != "" {
			sess = current
		}
		return r.refresh(flightCtx, sess.RefreshToken), nil
	})
	res := v.(outcome)

	if shared && r.logger != nil {
		r.logger.Debug("joined in-flight token refresh", "refreshed", res.ok)
	}
	return res.access, res.ok
}

func (r *Refresher) refresh(ctx context.Context, refreshToken string) outcome {
	start := time.Now()
	res := r.exchange(ctx, refreshToken)

	if r.hooks != nil && r.hooks.OnRefresh != nil {
		r.hooks.OnRefresh(ctx, res.ok, time.Since(start))
	}
	if r.logger != nil {
		r.logger.Info("token refresh finished", "refreshed", res.ok, "duration", time.Since(start))
	}
	return res
}

func (r *Refresher) exchange(ctx context.Context, refreshToken string) outcome {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		r.warn("failed to encode refresh request", err)
		return outcome{}
	}

	// no Authorization header: the access token is the thing that expired
	resp, err := r.sender.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   types.RefreshEndpoint,
		Body:   body,
	}, "")
	if err != nil {
		r.warn("token refresh request failed", err)
		return outcome{}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if r.logger != nil {
			r.logger.Warn("token refresh rejected", "status", resp.StatusCode)
		}
		return outcome{}
	}

	var tokens refreshResponse
	if err := json.Unmarshal(resp.Body, &tokens); err != nil {
		r.warn("failed to parse refresh response", err)
		return outcome{}
	}
	if tokens.Access == "" {
		r.debug("refresh response carried no access token")
		return outcome{}
	}

	// an absent refresh token keeps the current one
	if err := r.store.Set(ctx, tokens.Access, tokens.Refresh); err != nil {
		r.warn("failed to store renewed tokens", err)
		return outcome{}
	}

	return outcome{access: tokens.Access, ok: true}
}

func (r *Refresher) debug(msg string) {
	if r.logger != nil {
		r.logger.Debug(msg)
	}
}

func (r *Refresher) warn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, "error", err)
	}
}
