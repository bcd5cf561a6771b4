// Package validation implements the protocol- and client-level validation of
// authorize and token requests. Validators accept a raw parameter bag, consult
// the client and scope registries and the token stores, and return either an
// immutable validated-request value or a typed *oauth2.Error. The validated
// value is the single source of truth for the response generators; raw
// parameters are never re-read downstream.
package validation

import (
	"net/url"
	"time"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/users"
)

// ValidatedAuthorizeRequest is the accumulated, fully-validated state of an
// authorization request. Constructed only by AuthorizeRequestValidator;
// treated as immutable once returned.
type ValidatedAuthorizeRequest struct {
	Client *clients.Client

	ResponseType oauth2.ResponseType
	Flow         oauth2.Flow
	ResponseMode oauth2.ResponseModeType
	RedirectURI  string

	// RequestedScopes is the full validated set; Scopes carries the
	// identity/resource partition.
	RequestedScopes []string
	Scopes          *ScopeValidationResult
	IsOpenID        bool

	State     string
	Nonce     string
	MaxAge    *int
	Prompt    string
	AcrValues []string
	LoginHint string
	UILocales string
	IdP       string

	CodeChallenge       string
	CodeChallengeMethod oauth2.CodeMethodType

	// Raw is kept for audit/log purposes only; never consulted for decisions.
	Raw url.Values
}

// ValidatedTokenRequest is the accumulated, fully-validated state of a token
// request, produced by TokenRequestValidator for an authenticated client.
type ValidatedTokenRequest struct {
	Client    *clients.Client
	GrantType oauth2.GrantType

	// CustomGrantType holds the grant-type string for custom grants.
	CustomGrantType string

	// Scopes is set for grants that carry a scope parameter
	// (client_credentials, password, custom).
	Scopes *ScopeValidationResult

	// AuthorizationCode is the redeemed code record for code grants; the
	// handle has already been invalidated by the time validation succeeds.
	AuthorizationCode *store.AuthorizationCode

	// RefreshToken and RefreshTokenHandle are set for refresh grants.
	// Rotation (for one-time-use clients) happens during response generation.
	RefreshToken       *store.RefreshToken
	RefreshTokenHandle string

	// Principal is the resolved subject for grants with a completed sign-in
	// (code, password, refresh, custom); nil for client_credentials.
	Principal *users.Principal

	Raw url.Values
}

// GrantedScopes returns the scope names this request grants.
func (r *ValidatedTokenRequest) GrantedScopes() []string {
	switch {
	case r.AuthorizationCode != nil:
		return r.AuthorizationCode.Scopes
	case r.RefreshToken != nil:
		return r.RefreshToken.Scopes
	case r.Scopes != nil:
		return r.Scopes.GrantedNames()
	}
	return nil
}

// ClientCredentials is the credential presented by the calling client, as
// extracted at the HTTP boundary (Basic header or POST body).
type ClientCredentials struct {
	ID     string
	Secret string

	// Method records how the credential arrived; "none" for public clients.
	Method string
}

// nowFunc is the injectable clock shared by the validators in this package.
type nowFunc func() time.Time
