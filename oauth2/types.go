package oauth2

import (
	"sort"
	"strings"
)

// ResponseType represents the OAuth 2.0 / OIDC response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	CodeResponseType ResponseType = "code"

	// TokenResponseType indicates the implicit flow returning an access token
	// directly on the front channel.
	TokenResponseType ResponseType = "token"

	// IDTokenResponseType indicates the implicit flow returning only an identity token.
	IDTokenResponseType ResponseType = "id_token"

	// IDTokenTokenResponseType returns both an identity token and an access token
	// on the front channel.
	IDTokenTokenResponseType ResponseType = "id_token token"

	// CodeIDTokenResponseType is the hybrid flow returning a code plus a front-channel
	// identity token bound to it via c_hash.
	CodeIDTokenResponseType ResponseType = "code id_token"

	// CodeTokenResponseType is the hybrid flow returning a code plus a front-channel
	// access token.
	CodeTokenResponseType ResponseType = "code token"

	// CodeIDTokenTokenResponseType is the hybrid flow returning a code, an identity
	// token and an access token.
	CodeIDTokenTokenResponseType ResponseType = "code id_token token"
)

// ParseResponseType canonicalizes a raw response_type value. The individual parts
// may arrive in any order ("id_token code" == "code id_token"). Returns false for
// anything that is not one of the supported combinations.
func ParseResponseType(raw string) (ResponseType, bool) {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return "", false
	}
	sort.Strings(parts) // "code" < "id_token" < "token"
	rt := ResponseType(strings.Join(parts, " "))
	if _, ok := responseTypeFlows[rt]; !ok {
		return "", false
	}
	return rt, true
}

// HasCode reports whether the response type asks for an authorization code.
func (rt ResponseType) HasCode() bool { return rt.contains("code") }

// HasToken reports whether the response type asks for a front-channel access token.
func (rt ResponseType) HasToken() bool { return rt.contains("token") }

// HasIDToken reports whether the response type asks for a front-channel identity token.
func (rt ResponseType) HasIDToken() bool { return rt.contains("id_token") }

func (rt ResponseType) contains(part string) bool {
	for _, p := range strings.Fields(string(rt)) {
		if p == part {
			return true
		}
	}
	return false
}

// Flow identifies the OAuth2 flow a client is registered for.
type Flow string

const (
	FlowAuthorizationCode Flow = "authorization_code"
	FlowImplicit          Flow = "implicit"
	FlowHybrid            Flow = "hybrid"
	FlowClientCredentials Flow = "client_credentials"
	FlowResourceOwner     Flow = "resource_owner"
	FlowCustom            Flow = "custom"
)

var responseTypeFlows = map[ResponseType]Flow{
	CodeResponseType:             FlowAuthorizationCode,
	TokenResponseType:            FlowImplicit,
	IDTokenResponseType:          FlowImplicit,
	IDTokenTokenResponseType:     FlowImplicit,
	CodeIDTokenResponseType:      FlowHybrid,
	CodeTokenResponseType:        FlowHybrid,
	CodeIDTokenTokenResponseType: FlowHybrid,
}

// FlowForResponseType maps a response type to the flow it implies.
func FlowForResponseType(rt ResponseType) (Flow, bool) {
	flow, ok := responseTypeFlows[rt]
	return flow, ok
}

// ResponseModeType denotes how the authorization response parameters are returned
// to the client: in the query string, the URL fragment, or via an auto-submitting
// form POST.
type ResponseModeType string

const (
	QueryResponseMode    ResponseModeType = "query"
	FragmentResponseMode ResponseModeType = "fragment"
	FormPostResponseMode ResponseModeType = "form_post"
)

// DefaultResponseMode returns the response mode mandated by the spec when the
// client did not ask for one: query for pure code responses, fragment whenever
// tokens travel on the front channel.
func DefaultResponseMode(rt ResponseType) ResponseModeType {
	if rt == CodeResponseType {
		return QueryResponseMode
	}
	return FragmentResponseMode
}

// ResponseModeAllowed reports whether the requested mode may carry the given
// response type. Query responses leak tokens into logs and referrers, so any
// response type that returns a token on the front channel must not use it.
func ResponseModeAllowed(mode ResponseModeType, rt ResponseType) bool {
	switch mode {
	case FragmentResponseMode, FormPostResponseMode:
		return true
	case QueryResponseMode:
		return !rt.HasToken() && !rt.HasIDToken()
	}
	return false
}

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodS256 means code_challenge = BASE64URL(SHA256(code_verifier)).
	CodeMethodS256 CodeMethodType = "S256"

	// CodeMethodPlain means the code_verifier is sent as the challenge unchanged.
	// Only protects against passive attacks; clients must opt in explicitly.
	CodeMethodPlain CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type presented at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// ClientCredentialsGrant allows machine-to-machine authentication with no
	// user context. Never yields identity or refresh tokens.
	ClientCredentialsGrant GrantType = "client_credentials"

	// PasswordGrant is the resource-owner password grant: the client forwards
	// the user's credentials directly.
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	RefreshTokenGrant GrantType = "refresh_token"
)

// AccessTokenType selects how access tokens are materialized for a client.
type AccessTokenType string

const (
	// AccessTokenJWT issues self-contained signed JWTs.
	AccessTokenJWT AccessTokenType = "jwt"

	// AccessTokenReference issues an opaque handle; the token content lives
	// server-side and is resolved through the reference token store.
	AccessTokenReference AccessTokenType = "reference"
)

const (
	// BearerTokenType is the token_type value returned with every access token.
	BearerTokenType = "Bearer"

	// OfflineAccessScope is the resource scope that makes a grant eligible for
	// refresh tokens.
	OfflineAccessScope = "offline_access"

	// OpenIDScope marks a request as an OpenID Connect request.
	OpenIDScope = "openid"
)
