package validation

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/grants"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/scopes"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/users"
)

// TokenRequestValidator validates token requests for an already-authenticated
// client, dispatching on grant_type. All string inputs are length-checked
// before any store lookup. Store faults surface as server_error, never as
// invalid_grant: a flaky store must not look like a revoked credential, and a
// successful decision is never returned while store state is uncertain.
type TokenRequestValidator struct {
	codes        store.AuthorizationCodeStore
	refreshStore store.RefreshTokenStore
	scopes       *ScopeValidator
	userService  users.AuthenticationService
	customGrants *grants.Registry
	cfg          config.OAuthConfig
	now          nowFunc
}

// TokenRequestValidatorOption configures optional validator behavior.
type TokenRequestValidatorOption func(*TokenRequestValidator)

// WithNow sets the clock (primarily for tests).
func WithNow(now func() time.Time) TokenRequestValidatorOption {
	return func(v *TokenRequestValidator) {
		v.now = now
	}
}

// WithCustomGrants registers a custom/assertion grant registry.
func WithCustomGrants(registry *grants.Registry) TokenRequestValidatorOption {
	return func(v *TokenRequestValidator) {
		v.customGrants = registry
	}
}

func NewTokenRequestValidator(
	codeStore store.AuthorizationCodeStore,
	refreshStore store.RefreshTokenStore,
	scopeValidator *ScopeValidator,
	userService users.AuthenticationService,
	cfg config.OAuthConfig,
	options ...TokenRequestValidatorOption,
) (*TokenRequestValidator, error) {
	if codeStore == nil {
		return nil, errors.New("[NewTokenRequestValidator] code store is required")
	}
	if refreshStore == nil {
		return nil, errors.New("[NewTokenRequestValidator] refresh token store is required")
	}
	if scopeValidator == nil {
		return nil, errors.New("[NewTokenRequestValidator] scope validator is required")
	}
	if userService == nil {
		return nil, errors.New("[NewTokenRequestValidator] user service is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewTokenRequestValidator] config is required")
	}

	v := &TokenRequestValidator{
		codes:        codeStore,
		refreshStore: refreshStore,
		scopes:       scopeValidator,
		userService:  userService,
		cfg:          cfg,
		now:          time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Validate dispatches on grant_type. A nil parameter bag or nil client is a
// caller contract violation.
func (v *TokenRequestValidator) Validate(ctx context.Context, params url.Values, client *clients.Client) (*ValidatedTokenRequest, *oauth2.Error) {
	if params == nil {
		panic("TokenRequestValidator.Validate: nil parameter bag")
	}
	if client == nil {
		panic("TokenRequestValidator.Validate: nil client")
	}

	limits := v.cfg.GetInputLengths()
	grantType := params.Get(oauth2.ParamGrantType)
	if grantType == "" || len(grantType) > limits.GrantType {
		return nil, oauth2.NewUserError(oauth2.ErrUnsupportedGrantType, "grant_type is missing or too long")
	}

	req := &ValidatedTokenRequest{Client: client, Raw: params}

	switch oauth2.GrantType(grantType) {
	case oauth2.AuthorizationCodeGrant:
		req.GrantType = oauth2.AuthorizationCodeGrant
		return v.validateAuthorizationCode(ctx, params, req)
	case oauth2.ClientCredentialsGrant:
		req.GrantType = oauth2.ClientCredentialsGrant
		return v.validateClientCredentials(ctx, params, req)
	case oauth2.PasswordGrant:
		req.GrantType = oauth2.PasswordGrant
		return v.validatePassword(ctx, params, req)
	case oauth2.RefreshTokenGrant:
		req.GrantType = oauth2.RefreshTokenGrant
		return v.validateRefreshToken(ctx, params, req)
	}
	return v.validateCustomGrant(ctx, grantType, params, req)
}

func (v *TokenRequestValidator) validateAuthorizationCode(ctx context.Context, params url.Values, req *ValidatedTokenRequest) (*ValidatedTokenRequest, *oauth2.Error) {
	client := req.Client
	if !client.AllowsGrantType(oauth2.AuthorizationCodeGrant) {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "client is not authorized for authorization_code")
	}

	// Bound the handle length before it becomes a store key.
	handle := params.Get(oauth2.ParamCode)
	if handle == "" || len(handle) > v.cfg.GetInputLengths().AuthorizationCode {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "authorization code is missing or malformed")
	}

	// Redeem is the single-use enforcement point: lookup and invalidation are
	// one atomic store operation, inside validation, not a later step.
	code, err := v.codes.Redeem(ctx, handle)
	if err == store.ErrNotFound {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "invalid authorization code")
	}
	if err != nil {
		return nil, oauth2.NewServerError("authorization code store unavailable")
	}

	if code.Expired(v.now(), client.AuthorizationCodeLifetime) {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "authorization code expired")
	}

	// Cross-client code injection.
	if code.ClientID != client.ID {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "authorization code was issued to a different client")
	}

	if params.Get(oauth2.ParamRedirectURI) != code.RedirectURI {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "redirect_uri does not match the authorization request")
	}

	if protoErr := v.verifyCodeVerifier(code, params.Get(oauth2.ParamCodeVerifier)); protoErr != nil {
		return nil, protoErr
	}

	if len(code.Scopes) == 0 {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidRequest, "authorization code carries no scopes")
	}

	active, err := v.userService.IsActive(ctx, code.Subject.Subject)
	if err != nil {
		return nil, oauth2.NewServerError("user service unavailable")
	}
	if !active {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "user is no longer active")
	}

	req.AuthorizationCode = code
	req.Principal = &code.Subject
	return req, nil
}

func (v *TokenRequestValidator) validateClientCredentials(ctx context.Context, params url.Values, req *ValidatedTokenRequest) (*ValidatedTokenRequest, *oauth2.Error) {
	client := req.Client
	if !client.AllowsGrantType(oauth2.ClientCredentialsGrant) {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "client is not authorized for client_credentials")
	}

	scopeResult, protoErr := v.validateScopeParam(ctx, params, client, oauth2.ClientCredentialsGrant, true)
	if protoErr != nil {
		return nil, protoErr
	}
	req.Scopes = scopeResult
	return req, nil
}

func (v *TokenRequestValidator) validatePassword(ctx context.Context, params url.Values, req *ValidatedTokenRequest) (*ValidatedTokenRequest, *oauth2.Error) {
	client := req.Client
	if !client.AllowsGrantType(oauth2.PasswordGrant) {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "client is not authorized for the password grant")
	}

	limits := v.cfg.GetInputLengths()
	username := params.Get(oauth2.ParamUsername)
	password := params.Get(oauth2.ParamPassword)
	// invalid_grant on shape problems too: distinguishable errors here are a
	// username oracle.
	if username == "" || password == "" || len(username) > limits.UserName || len(password) > limits.Password {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "invalid username or password")
	}

	scopeResult, protoErr := v.validateScopeParam(ctx, params, client, oauth2.PasswordGrant, false)
	if protoErr != nil {
		return nil, protoErr
	}

	principal, err := v.userService.AuthenticateLocal(ctx, username, password)
	if err != nil {
		return nil, oauth2.NewServerError("user service unavailable")
	}
	if principal == nil {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "invalid username or password")
	}

	req.Scopes = scopeResult
	req.Principal = principal
	return req, nil
}

func (v *TokenRequestValidator) validateRefreshToken(ctx context.Context, params url.Values, req *ValidatedTokenRequest) (*ValidatedTokenRequest, *oauth2.Error) {
	client := req.Client

	handle := params.Get(oauth2.ParamRefreshToken)
	if handle == "" || len(handle) > v.cfg.GetInputLengths().RefreshToken {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "refresh token is missing or malformed")
	}

	token, err := v.refreshStore.Get(ctx, handle)
	if err == store.ErrNotFound {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "invalid refresh token")
	}
	if err != nil {
		return nil, oauth2.NewServerError("refresh token store unavailable")
	}

	if token.Expired(v.now()) {
		// Best effort cleanup; the expiry check stands regardless.
		_ = v.refreshStore.Delete(ctx, handle)
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "refresh token expired")
	}

	if token.ClientID != client.ID {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "refresh token was issued to a different client")
	}

	// The client's registration may have changed since issuance.
	if !client.AllowsGrantType(oauth2.RefreshTokenGrant) || !client.SupportsRefreshTokens() {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "client no longer permits refresh tokens")
	}

	active, err := v.userService.IsActive(ctx, token.Subject.Subject)
	if err != nil {
		return nil, oauth2.NewServerError("user service unavailable")
	}
	if !active {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "user is no longer active")
	}

	req.RefreshToken = token
	req.RefreshTokenHandle = handle
	req.Principal = &token.Subject
	return req, nil
}

func (v *TokenRequestValidator) validateCustomGrant(ctx context.Context, grantType string, params url.Values, req *ValidatedTokenRequest) (*ValidatedTokenRequest, *oauth2.Error) {
	validator, registered := v.customGrants.Lookup(grantType)
	if !registered {
		return nil, oauth2.NewUserError(oauth2.ErrUnsupportedGrantType, "unsupported grant_type")
	}

	client := req.Client
	if client.Flow != oauth2.FlowCustom || !client.AllowsCustomGrant(grantType) {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "client is not authorized for the grant type")
	}

	scopeResult, protoErr := v.validateScopeParam(ctx, params, client, oauth2.GrantType(grantType), false)
	if protoErr != nil {
		return nil, protoErr
	}

	principal, err := validator.Validate(ctx, params)
	if err != nil {
		return nil, oauth2.NewServerError("grant validator unavailable")
	}
	if principal == nil {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidGrant, "assertion rejected")
	}

	req.GrantType = oauth2.GrantType(grantType)
	req.CustomGrantType = grantType
	req.Scopes = scopeResult
	req.Principal = principal
	return req, nil
}

func (v *TokenRequestValidator) validateScopeParam(ctx context.Context, params url.Values, client *clients.Client, grantType oauth2.GrantType, required bool) (*ScopeValidationResult, *oauth2.Error) {
	rawScope := params.Get(oauth2.ParamScope)
	if rawScope == "" {
		if required {
			return nil, oauth2.NewUserError(oauth2.ErrInvalidScope, "scope is required")
		}
		return &ScopeValidationResult{}, nil
	}
	if len(rawScope) > v.cfg.GetInputLengths().Scope {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidScope, "scope is too long")
	}

	result, protoErr, infraErr := v.scopes.Validate(ctx, client, scopes.Parse(rawScope), grantType)
	if infraErr != nil {
		return nil, oauth2.NewServerError("scope registry unavailable")
	}
	if protoErr != nil {
		// Token endpoint errors are never redirected.
		return nil, oauth2.NewUserError(protoErr.Code, protoErr.Description)
	}
	return result, nil
}

// verifyCodeVerifier checks the presented code_verifier against the challenge
// recorded at authorize time, per the stored challenge method.
func (v *TokenRequestValidator) verifyCodeVerifier(code *store.AuthorizationCode, verifier string) *oauth2.Error {
	if code.CodeChallenge == "" {
		if verifier != "" {
			return oauth2.NewUserError(oauth2.ErrInvalidGrant, "unexpected code_verifier")
		}
		return nil
	}

	if len(verifier) < v.cfg.GetMinCodeChallengeLength() || len(verifier) > v.cfg.GetMaxCodeChallengeLength() {
		return oauth2.NewUserError(oauth2.ErrInvalidGrant, "code_verifier is missing or malformed")
	}

	var presented string
	switch oauth2.CodeMethodType(code.CodeChallengeMethod) {
	case oauth2.CodeMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		presented = base64.RawURLEncoding.EncodeToString(sum[:])
	case oauth2.CodeMethodPlain:
		presented = verifier
	default:
		return oauth2.NewUserError(oauth2.ErrInvalidGrant, "invalid code challenge method")
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(code.CodeChallenge)) != 1 {
		return oauth2.NewUserError(oauth2.ErrInvalidGrant, "code_verifier does not match")
	}
	return nil
}
