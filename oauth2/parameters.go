package oauth2

// Request parameter names for the authorize and token endpoints.
const (
	ParamClientID            = "client_id"
	ParamClientSecret        = "client_secret"
	ParamResponseType        = "response_type"
	ParamResponseMode        = "response_mode"
	ParamRedirectURI         = "redirect_uri"
	ParamScope               = "scope"
	ParamState               = "state"
	ParamNonce               = "nonce"
	ParamMaxAge              = "max_age"
	ParamPrompt              = "prompt"
	ParamAcrValues           = "acr_values"
	ParamLoginHint           = "login_hint"
	ParamUILocales           = "ui_locales"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
	ParamGrantType           = "grant_type"
	ParamCode                = "code"
	ParamCodeVerifier        = "code_verifier"
	ParamUsername            = "username"
	ParamPassword            = "password"
	ParamRefreshToken        = "refresh_token"
	ParamToken               = "token"
	ParamTokenTypeHint       = "token_type_hint"
	ParamError               = "error"
	ParamErrorDescription    = "error_description"
)
