package yugwan

import (
	"context"
	"encoding/json"
	"net/http"

	internalTypes "github.com/joonyo2/yugwan/internal/types"
	"github.com/pkg/errors"
)

// authService implements AuthService
type authService struct {
	client *Client
}

// Login performs authentication. Like every request it carries the stored
// access token, if any, so a dead stored session can end in ErrReauthRequired;
// the session is cleared by then and Login can simply be called again.
func (a *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var tokens TokenPair
	err := a.client.call(ctx, &Request{
		Method: http.MethodPost,
		Path:   internalTypes.LoginEndpoint,
		Body:   map[string]string{"email": email, "password": password},
	}, &tokens)
	if err != nil {
		return nil, err
	}

	if err := a.client.store.Set(ctx, tokens.Access, tokens.Refresh); err != nil {
		return nil, errors.Wrap(err, "failed to store tokens")
	}

	a.client.info("Logged in")
	return &tokens, nil
}

func (a *authService) Register(ctx context.Context, params *RegisterParams) (*RegisterResult, error) {
	if params == nil {
		return nil, invalidRequest("register params are required")
	}

	var result RegisterResult
	if err := a.client.call(ctx, &Request{
		Method: http.MethodPost,
		Path:   internalTypes.RegisterEndpoint,
		Body:   params,
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *authService) GetProfile(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.call(ctx, &Request{Path: internalTypes.ProfileEndpoint}, &user); err != nil {
		return nil, err
	}
	a.cacheProfile(ctx, &user)
	return &user, nil
}

func (a *authService) UpdateProfile(ctx context.Context, params *UpdateProfileParams) (*User, error) {
	if params == nil {
		return nil, invalidRequest("profile params are required")
	}

	var user User
	if err := a.client.call(ctx, &Request{
		Method: http.MethodPatch,
		Path:   internalTypes.ProfileEndpoint,
		Body:   params,
	}, &user); err != nil {
		return nil, err
	}
	a.cacheProfile(ctx, &user)
	return &user, nil
}

func (a *authService) ChangePassword(ctx context.Context, currentPassword, newPassword string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := a.client.call(ctx, &Request{
		Method: http.MethodPost,
		Path:   internalTypes.PasswordChangeEndpoint,
		Body: map[string]string{
			"current_password": currentPassword,
			"new_password":     newPassword,
		},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *authService) DeleteAccount(ctx context.Context, password string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := a.client.call(ctx, &Request{
		Method: http.MethodPost,
		Path:   internalTypes.AccountDeleteEndpoint,
		Body:   map[string]string{"password": password},
	}, &resp); err != nil {
		return nil, err
	}

	if err := a.client.store.Clear(ctx); err != nil {
		return &resp, errors.Wrap(err, "account deleted but session could not be cleared")
	}
	return &resp, nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.client.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	a.client.info("Logged out")
	return nil
}

func (a *authService) IsLoggedIn(ctx context.Context) (bool, error) {
	sess, err := a.client.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return sess.Authenticated(), nil
}

func (a *authService) CachedProfile(ctx context.Context) (*Profile, error) {
	return a.client.store.Profile(ctx)
}

// cacheProfile stores the display snapshot; failures only cost the cache
func (a *authService) cacheProfile(ctx context.Context, user *User) {
	if err := a.client.store.SetProfile(ctx, user.Profile()); err != nil && a.client.options.Logger != nil {
		a.client.options.Logger.Warn("failed to cache profile", "error", err)
	}
}

// call runs req through Do and decodes the response data into out
func (c *Client) call(ctx context.Context, req *Request, out interface{}) error {
	result, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

func (c *Client) info(msg string, keysAndValues ...interface{}) {
	if c.options.Logger != nil {
		c.options.Logger.Info(msg, keysAndValues...)
	}
}
