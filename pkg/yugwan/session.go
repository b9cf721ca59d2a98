package yugwan

import (
	"context"
	"time"

	"github.com/joonyo2/yugwan/internal/session"
	"github.com/joonyo2/yugwan/internal/session/redis"
	"github.com/joonyo2/yugwan/internal/session/sqlite"
	"github.com/joonyo2/yugwan/internal/tokeninfo"
)

// Session holds the stored tokens. Empty strings mean absent.
type Session = session.Session

// Profile is the cached display snapshot of the logged-in user
type Profile = session.Profile

// SessionBackend persists session values by key
type SessionBackend = session.Backend

// TokenInfo is display metadata read from a token without verifying it
type TokenInfo = tokeninfo.Info

// RedisConfig configures NewRedisBackend
type RedisConfig = redis.Config

// NewMemoryBackend keeps the session in process memory
func NewMemoryBackend() SessionBackend {
	return session.NewMemoryBackend()
}

// NewFileBackend keeps the session in a JSON document at path, created with
// owner-only permissions
func NewFileBackend(path string) SessionBackend {
	return session.NewFileBackend(path)
}

// NewSQLiteBackend keeps the session in a SQLite database. Several
// namespaces can share one database.
func NewSQLiteBackend(dsn, namespace string) (*sqlite.Backend, error) {
	return sqlite.NewBackend(dsn, namespace)
}

// NewRedisBackend keeps the session in a Redis hash
func NewRedisBackend(cfg RedisConfig) (*redis.Backend, error) {
	return redis.NewBackend(cfg)
}

// SessionInfo summarizes the stored session for display
type SessionInfo struct {
	Authenticated bool       `json:"authenticated"`
	Profile       *Profile   `json:"profile,omitempty"`
	Access        *TokenInfo `json:"access,omitempty"`
	Refresh       *TokenInfo `json:"refresh,omitempty"`
}

// AccessExpired reports whether the access token's exp claim has passed.
// Unknown expiry reads as not expired; the server decides.
func (s *SessionInfo) AccessExpired(now time.Time) bool {
	return s.Access != nil && s.Access.Expired(now)
}

// SessionInfo describes the stored session. Tokens that are not JWTs are
// reported without metadata.
func (c *Client) SessionInfo(ctx context.Context) (*SessionInfo, error) {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	info := &SessionInfo{Authenticated: sess.Authenticated()}
	if !info.Authenticated {
		return info, nil
	}

	if profile, err := c.store.Profile(ctx); err == nil {
		info.Profile = profile
	}
	if access, err := tokeninfo.Parse(sess.AccessToken); err == nil {
		info.Access = access
	}
	if sess.RefreshToken != "" {
		if refresh, err := tokeninfo.Parse(sess.RefreshToken); err == nil {
			info.Refresh = refresh
		}
	}

	return info, nil
}
