package store

import (
	"context"
	"time"

	"github.com/jrsteele09/go-identity-server/users"
)

// RefreshToken is the server-side record behind a refresh token handle: the
// access-token template it re-mints, bound to the original client and subject.
type RefreshToken struct {
	ClientID  string          `json:"clientId"`
	Subject   users.Principal `json:"subject"`
	Scopes    []string        `json:"scopes"`
	Lifetime  time.Duration   `json:"lifetime"`
	CreatedAt time.Time       `json:"createdAt"`

	// Sliding extends the expiry window on each rotation instead of measuring
	// from original issuance.
	Sliding bool `json:"sliding,omitempty"`
}

// Expired reports whether the token is past its lifetime.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(t.Lifetime))
}

// RefreshTokenStore persists refresh tokens keyed by handle.
//
// Rotate atomically invalidates oldHandle and records token under newHandle.
// It returns ErrNotFound when oldHandle has no live record, so that two
// concurrent rotations of a one-time-use token succeed exactly once. If
// anything fails after the old handle is gone, the old handle stays gone:
// lockout is preferred over replay.
type RefreshTokenStore interface {
	Store(ctx context.Context, handle string, token *RefreshToken) error
	Get(ctx context.Context, handle string) (*RefreshToken, error)
	Rotate(ctx context.Context, oldHandle, newHandle string, token *RefreshToken) error
	Delete(ctx context.Context, handle string) error
}
