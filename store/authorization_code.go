package store

import (
	"context"
	"time"

	"github.com/jrsteele09/go-identity-server/users"
)

// AuthorizationCode is the server-side record behind an authorization code
// handle. The handle itself is never stored here; it is the store key.
type AuthorizationCode struct {
	ClientID            string          `json:"clientId"`
	Subject             users.Principal `json:"subject"`
	Scopes              []string        `json:"scopes"`
	RedirectURI         string          `json:"redirectUri"`
	Nonce               string          `json:"nonce,omitempty"`
	CodeChallenge       string          `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string          `json:"codeChallengeMethod,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	IsOpenID            bool            `json:"isOpenId"`
	SessionID           string          `json:"sessionId,omitempty"`
}

// Expired reports whether the code is past the client-configured lifetime.
func (c *AuthorizationCode) Expired(now time.Time, lifetime time.Duration) bool {
	return now.After(c.CreatedAt.Add(lifetime))
}

// AuthorizationCodeStore persists authorization codes keyed by handle.
//
// Redeem is a single atomic get-and-delete: for N concurrent redemptions of
// the same handle, exactly one returns the record and the rest return
// ErrNotFound. A lookup-then-delete implemented as two steps is a race and is
// not a valid implementation.
type AuthorizationCodeStore interface {
	Store(ctx context.Context, handle string, code *AuthorizationCode) error
	Redeem(ctx context.Context, handle string) (*AuthorizationCode, error)
}
