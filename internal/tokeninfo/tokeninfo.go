// Package tokeninfo reads display metadata out of access and refresh tokens.
//
// Signatures are not verified: the client never trusts these values for
// authorization, the server does that. Tokens stay opaque everywhere else.
package tokeninfo

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Info is what the client can learn from a token without the signing key
type Info struct {
	TokenType string    `json:"tokenType,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	JTI       string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"issuedAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the token's exp claim is in the past at now.
// A token without exp never expires.
func (i *Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// TTL returns the time left before expiry, zero once expired or without exp
func (i *Info) TTL(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() || i.Expired(now) {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}

// Parse decodes the claims of a JWT without verifying it
func Parse(raw string) (*Info, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty token")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	info := &Info{}
	info.TokenType, _ = claims["token_type"].(string)
	info.JTI, _ = claims["jti"].(string)
	info.UserID = claimString(claims["user_id"])
	if info.UserID == "" {
		info.UserID, _ = claims.GetSubject()
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}

	return info, nil
}

// claimString renders numeric and string ids alike
func claimString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
