package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard token endpoint response format as defined in RFC 6749,
// returned for all grant types.
type TokenResponse struct {
	// AccessToken is either a signed JWT or an opaque reference handle,
	// depending on the client's access token type.
	AccessToken string `json:"access_token"`

	// IdToken is the OpenID Connect identity token. Only present when the grant
	// carried identity scopes and produced a completed sign-in.
	IdToken string `json:"id_token,omitempty"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is an opaque handle, only issued when offline_access was
	// granted. Rotated on use for one-time-use clients.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the space-delimited set of granted scopes.
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the JSON error body returned by the token endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
