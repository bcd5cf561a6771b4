package store

import (
	"context"
	"time"

	"github.com/jrsteele09/go-identity-server/users"
)

// ReferenceToken is the server-side content of a reference-style access token.
// The bearer presents the opaque handle; validation resolves it here.
type ReferenceToken struct {
	ClientID  string          `json:"clientId"`
	Subject   users.Principal `json:"subject"`
	Scopes    []string        `json:"scopes"`
	Issuer    string          `json:"issuer"`
	Audience  string          `json:"audience"`
	CreatedAt time.Time       `json:"createdAt"`
	Lifetime  time.Duration   `json:"lifetime"`
}

// Expired reports whether the token is past its lifetime.
func (t *ReferenceToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(t.Lifetime))
}

// ReferenceTokenStore persists reference access tokens. No special atomicity is
// required beyond a token never being readable before its Store completes.
type ReferenceTokenStore interface {
	Store(ctx context.Context, handle string, token *ReferenceToken) error
	Get(ctx context.Context, handle string) (*ReferenceToken, error)
	Delete(ctx context.Context, handle string) error
}
