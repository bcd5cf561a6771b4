package users

import (
	"context"
	"time"
)

// Claim is a single subject claim. Claim types may repeat (e.g. role).
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Principal is the immutable snapshot of an authenticated subject that gets
// bound into authorization codes and refresh tokens. It is deliberately small:
// full claim composition happens at token-minting time via ClaimsProvider.
type Principal struct {
	Subject              string    `json:"subject"`
	DisplayName          string    `json:"displayName,omitempty"`
	AuthenticationMethod string    `json:"authenticationMethod,omitempty"`
	IdentityProvider     string    `json:"identityProvider,omitempty"`
	AuthTime             time.Time `json:"authTime"`
	Claims               []Claim   `json:"claims,omitempty"`
}

// ClaimValue returns the first claim of the given type, or "".
func (p *Principal) ClaimValue(claimType string) string {
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}

// AuthenticationService is the external collaborator the core uses for local
// credential checks and for re-checking a subject's active status at token
// redemption time.
type AuthenticationService interface {
	// AuthenticateLocal verifies a username/password pair. Returns (nil, nil)
	// when the credentials are wrong; a non-nil error signals an infrastructure
	// fault, not a failed login.
	AuthenticateLocal(ctx context.Context, username, password string) (*Principal, error)

	// IsActive reports whether the subject is still allowed to sign in. Called
	// on every code and refresh-token redemption.
	IsActive(ctx context.Context, subject string) (bool, error)
}

// ClaimsProvider composes the claims released for a subject and a set of
// granted scopes. The core treats it as opaque; failures are fatal to the
// issuing request.
type ClaimsProvider interface {
	ClaimsFor(ctx context.Context, principal *Principal, scopeNames []string) ([]Claim, error)
}
