// Package session persists the access/refresh token pair and the cached
// profile snapshot under the same well-known keys the web client uses.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// Storage keys shared with the browser client
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	ProfileKey      = "yugwan_user"
)

// ErrEmptyAccessToken is returned by Set when no access token is given
var ErrEmptyAccessToken = errors.New("access token is required")

// Backend is durable key/value storage. Implementations must be safe for
// concurrent use and must have persisted a write by the time it returns.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Session is the stored token pair. Empty strings mean absent.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Authenticated reports whether an access token is stored
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Profile is the display snapshot of the signed-in user
type Profile struct {
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName returns the first name, falling back to the username
func (p Profile) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Username
}

// Store is the token store of one client
type Store struct {
	backend Backend
	mu      sync.RWMutex
}

// NewStore creates a store on top of backend. A nil backend keeps tokens in memory.
func NewStore(backend Backend) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Store{backend: backend}
}

// Get returns the stored session
func (s *Store) Get(ctx context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx)
}

// AccessToken returns the stored access token, or "" when there is none
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	sess, err := s.Get(ctx)
	return sess.AccessToken, err
}

// Set stores a new access token. An empty refresh keeps the stored refresh token.
func (s *Store) Set(ctx context.Context, access, refresh string) error {
	if access == "" {
		return ErrEmptyAccessToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(ctx, AccessTokenKey, access); err != nil {
		return errors.Wrap(err, "failed to store access token")
	}
	if refresh != "" {
		if err := s.backend.Set(ctx, RefreshTokenKey, refresh); err != nil {
			return errors.Wrap(err, "failed to store refresh token")
		}
	}
	return nil
}

// Clear removes both tokens and the cached profile
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, AccessTokenKey, RefreshTokenKey, ProfileKey); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}

// Profile returns the cached profile snapshot. A missing or unreadable
// snapshot yields (nil, nil).
func (s *Store) Profile(ctx context.Context) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok, err := s.backend.Get(ctx, ProfileKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile")
	}
	if !ok {
		return nil, nil
	}

	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, nil
	}
	return &profile, nil
}

// SetProfile caches the profile snapshot
func (s *Store) SetProfile(ctx context.Context, profile Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "failed to marshal profile")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(ctx, ProfileKey, string(data)); err != nil {
		return errors.Wrap(err, "failed to store profile")
	}
	return nil
}

func (s *Store) load(ctx context.Context) (Session, error) {
	access, ok, err := s.backend.Get(ctx, AccessTokenKey)
	if err != nil {
		return Session{}, errors.Wrap(err, "failed to read access token")
	}
	if !ok || access == "" {
		// a refresh token is never reported without its access token
		return Session{}, nil
	}

	refresh, _, err := s.backend.Get(ctx, RefreshTokenKey)
	if err != nil {
		return Session{}, errors.Wrap(err, "failed to read refresh token")
	}
	return Session{AccessToken: access, RefreshToken: refresh}, nil
}
