package oauth2

import (
	"net/url"
	"strconv"
)

// AuthorizeResponse is the protocol-shaped result of a successful authorization
// request. How it is encoded onto the wire (query, fragment or form post) is a
// boundary concern; Params exposes the parameter set for whichever mode applies.
type AuthorizeResponse struct {
	RedirectURI  string
	ResponseMode ResponseModeType
	State        string

	// Code is set for code and hybrid response types.
	Code string

	// Front-channel tokens for implicit and hybrid response types.
	AccessToken   string
	TokenType     string
	ExpiresIn     int
	IdentityToken string

	Scope string
}

// Params returns the response parameters to append to the redirect URI.
func (r *AuthorizeResponse) Params() url.Values {
	values := url.Values{}
	if r.Code != "" {
		values.Set(ParamCode, r.Code)
	}
	if r.AccessToken != "" {
		values.Set("access_token", r.AccessToken)
		values.Set("token_type", r.TokenType)
		values.Set("expires_in", strconv.Itoa(r.ExpiresIn))
	}
	if r.IdentityToken != "" {
		values.Set("id_token", r.IdentityToken)
	}
	if r.Scope != "" {
		values.Set(ParamScope, r.Scope)
	}
	if r.State != "" {
		values.Set(ParamState, r.State)
	}
	return values
}
