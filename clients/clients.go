package clients

import (
	"time"

	"github.com/jrsteele09/go-identity-server/oauth2"
)

// RefreshTokenUsage selects whether a refresh token survives redemption.
type RefreshTokenUsage string

const (
	// RefreshTokenOneTime rotates the handle on every redemption; the old handle
	// is invalidated atomically with issuance of the new one.
	RefreshTokenOneTime RefreshTokenUsage = "one_time"

	// RefreshTokenReuse keeps the same handle until it expires or is revoked.
	RefreshTokenReuse RefreshTokenUsage = "reuse"
)

// RefreshTokenExpiration selects how a refresh token's lifetime is measured.
type RefreshTokenExpiration string

const (
	// RefreshTokenAbsolute expires relative to original issuance, regardless of use.
	RefreshTokenAbsolute RefreshTokenExpiration = "absolute"

	// RefreshTokenSliding extends the window on every redemption.
	RefreshTokenSliding RefreshTokenExpiration = "sliding"
)

// Client is the immutable per-request snapshot of a relying party's
// configuration. Lifecycle is external; the core only reads it.
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// SecretHashes holds bcrypt hashes of the client's shared secrets. A client
	// with no secrets is a public client and may only use code + PKCE.
	SecretHashes []string `json:"secretHashes"`

	// Flow is the single OAuth2 flow the client is registered for.
	Flow oauth2.Flow `json:"flow"`

	// AllowedCustomGrantTypes names the assertion/custom grants the client may
	// use when Flow is FlowCustom.
	AllowedCustomGrantTypes []string `json:"allowedCustomGrantTypes,omitempty"`

	// AllowedScopes restricts the scopes the client may request. nil means
	// unrestricted; an empty non-nil slice means no scopes at all.
	AllowedScopes []string `json:"allowedScopes,omitempty"`

	// RedirectURIs is the exact-match set of registered redirect URIs.
	RedirectURIs []string `json:"redirectURIs,omitempty"`

	AllowedCorsOrigins []string `json:"allowedCorsOrigins,omitempty"`

	// IdentityProviderRestrictions limits which upstream IdPs may authenticate
	// users for this client. Empty means any.
	IdentityProviderRestrictions []string `json:"identityProviderRestrictions,omitempty"`

	RequireConsent   bool `json:"requireConsent"`
	EnableLocalLogin bool `json:"enableLocalLogin"`

	// RequirePKCE forces code_challenge on authorize requests. Plain challenges
	// are rejected unless AllowPlainTextPKCE is set.
	RequirePKCE        bool `json:"requirePKCE"`
	AllowPlainTextPKCE bool `json:"allowPlainTextPKCE"`

	AccessTokenType oauth2.AccessTokenType `json:"accessTokenType"`

	AccessTokenLifetime       time.Duration `json:"accessTokenLifetime"`
	IdentityTokenLifetime     time.Duration `json:"identityTokenLifetime"`
	AuthorizationCodeLifetime time.Duration `json:"authorizationCodeLifetime"`
	RefreshTokenLifetime      time.Duration `json:"refreshTokenLifetime"`

	RefreshTokenUsage      RefreshTokenUsage      `json:"refreshTokenUsage"`
	RefreshTokenExpiration RefreshTokenExpiration `json:"refreshTokenExpiration"`
}

// IsPublic reports whether the client has no credential of its own.
func (c *Client) IsPublic() bool {
	return len(c.SecretHashes) == 0
}

// AllowsScope checks the client's scope restriction list. A nil list means the
// client is unrestricted.
func (c *Client) AllowsScope(name string) bool {
	if c.AllowedScopes == nil {
		return true
	}
	for _, s := range c.AllowedScopes {
		if s == name {
			return true
		}
	}
	return false
}

// AllowsCustomGrant reports whether the client is explicitly authorized for the
// named custom grant type.
func (c *Client) AllowsCustomGrant(grantType string) bool {
	for _, g := range c.AllowedCustomGrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// AllowsGrantType maps the client's registered flow to the token-endpoint grant
// types it may use. Implicit clients never appear at the token endpoint.
func (c *Client) AllowsGrantType(grantType oauth2.GrantType) bool {
	switch c.Flow {
	case oauth2.FlowAuthorizationCode, oauth2.FlowHybrid:
		return grantType == oauth2.AuthorizationCodeGrant || grantType == oauth2.RefreshTokenGrant
	case oauth2.FlowClientCredentials:
		return grantType == oauth2.ClientCredentialsGrant
	case oauth2.FlowResourceOwner:
		return grantType == oauth2.PasswordGrant || grantType == oauth2.RefreshTokenGrant
	}
	return false
}

// SupportsRefreshTokens reports whether the client's flow can produce refresh
// tokens, i.e. whether offline_access may be granted to it.
func (c *Client) SupportsRefreshTokens() bool {
	switch c.Flow {
	case oauth2.FlowAuthorizationCode, oauth2.FlowHybrid, oauth2.FlowResourceOwner:
		return true
	}
	return false
}

// AllowsIdentityProvider checks the client's IdP restriction list. An empty
// list means any provider is acceptable.
func (c *Client) AllowsIdentityProvider(provider string) bool {
	if len(c.IdentityProviderRestrictions) == 0 {
		return true
	}
	for _, p := range c.IdentityProviderRestrictions {
		if p == provider {
			return true
		}
	}
	return false
}

// DefaultLifetimes fills zero-valued lifetimes with sensible defaults. Returns
// the receiver for chaining at composition time.
func (c *Client) DefaultLifetimes() *Client {
	if c.AccessTokenLifetime == 0 {
		c.AccessTokenLifetime = time.Hour
	}
	if c.IdentityTokenLifetime == 0 {
		c.IdentityTokenLifetime = 5 * time.Minute
	}
	if c.AuthorizationCodeLifetime == 0 {
		c.AuthorizationCodeLifetime = 5 * time.Minute
	}
	if c.RefreshTokenLifetime == 0 {
		c.RefreshTokenLifetime = 30 * 24 * time.Hour
	}
	if c.RefreshTokenUsage == "" {
		c.RefreshTokenUsage = RefreshTokenOneTime
	}
	if c.RefreshTokenExpiration == "" {
		c.RefreshTokenExpiration = RefreshTokenAbsolute
	}
	if c.AccessTokenType == "" {
		c.AccessTokenType = oauth2.AccessTokenJWT
	}
	return c
}
