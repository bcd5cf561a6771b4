package validation

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/scopes"
)

// AuthorizeRequestValidator validates authorization requests end to end.
//
// The check ordering is load-bearing and must not be rearranged: every error
// raised before the redirect_uri has been matched against the client's
// registered set is a User error (rendered, never redirected); only once the
// client + redirect_uri pairing is trusted may errors travel back to the
// client via redirect.
type AuthorizeRequestValidator struct {
	clients  clients.Repo
	scopes   *ScopeValidator
	redirect *RedirectURIValidator
	cfg      config.OAuthConfig
}

func NewAuthorizeRequestValidator(clientRegistry clients.Repo, scopeValidator *ScopeValidator, redirectValidator *RedirectURIValidator, cfg config.OAuthConfig) (*AuthorizeRequestValidator, error) {
	if clientRegistry == nil {
		return nil, errors.New("[NewAuthorizeRequestValidator] client registry is required")
	}
	if scopeValidator == nil {
		return nil, errors.New("[NewAuthorizeRequestValidator] scope validator is required")
	}
	if redirectValidator == nil {
		return nil, errors.New("[NewAuthorizeRequestValidator] redirect validator is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewAuthorizeRequestValidator] config is required")
	}
	return &AuthorizeRequestValidator{
		clients:  clientRegistry,
		scopes:   scopeValidator,
		redirect: redirectValidator,
		cfg:      cfg,
	}, nil
}

// Validate runs the authorize-request state machine over the raw parameter
// bag. A nil bag is a caller contract violation, not a protocol error.
func (v *AuthorizeRequestValidator) Validate(ctx context.Context, params url.Values) (*ValidatedAuthorizeRequest, *oauth2.Error) {
	if params == nil {
		panic("AuthorizeRequestValidator.Validate: nil parameter bag")
	}

	limits := v.cfg.GetInputLengths()
	req := &ValidatedAuthorizeRequest{Raw: params}

	// 1. client_id: until it resolves we cannot trust anything, so failures
	// are User errors.
	clientID := params.Get(oauth2.ParamClientID)
	if clientID == "" || len(clientID) > limits.ClientID {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidRequest, "client_id is missing or too long")
	}
	client, err := v.clients.FindByID(ctx, clientID)
	if err == clients.ErrNotFound {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidRequest, "unknown client")
	}
	if err != nil {
		return nil, oauth2.NewServerError("client registry unavailable")
	}
	if !client.Enabled {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidRequest, "client is disabled")
	}
	req.Client = client

	// 2. response_type.
	responseType, ok := oauth2.ParseResponseType(params.Get(oauth2.ParamResponseType))
	if !ok {
		return nil, oauth2.NewUserError(oauth2.ErrUnsupportedResponseType, "response_type is missing or unsupported")
	}
	req.ResponseType = responseType

	// 3. implied flow vs the client's registration. Hybrid clients may also
	// run a plain code leg.
	flow, _ := oauth2.FlowForResponseType(responseType)
	allowed := client.Flow == flow ||
		(flow == oauth2.FlowAuthorizationCode && client.Flow == oauth2.FlowHybrid)
	if !allowed {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "client is not registered for the requested flow")
	}
	req.Flow = flow

	// 4. redirect_uri: required, well-formed, exact match. Still User errors,
	// since the redirect target is not yet trusted.
	redirectURI := params.Get(oauth2.ParamRedirectURI)
	if redirectURI == "" || len(redirectURI) > limits.RedirectURI {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidRequest, "redirect_uri is missing or too long")
	}
	if !v.redirect.IsValid(client, redirectURI) {
		return nil, oauth2.NewUserError(oauth2.ErrUnauthorizedClient, "redirect_uri is not registered for the client")
	}
	req.RedirectURI = redirectURI

	// From here on the client + redirect_uri pairing is trusted: errors may be
	// delivered via redirect.
	state := params.Get(oauth2.ParamState)
	if len(state) > limits.State {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "state is too long")
	}
	req.State = state

	// 5. scope.
	rawScope := params.Get(oauth2.ParamScope)
	if rawScope == "" || len(rawScope) > limits.Scope {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "scope is missing or too long")
	}
	requestedScopes := scopes.Parse(rawScope)
	scopeResult, protoErr, infraErr := v.scopes.Validate(ctx, client, requestedScopes, "")
	if infraErr != nil {
		return nil, oauth2.NewServerError("scope registry unavailable")
	}
	if protoErr != nil {
		return nil, protoErr
	}
	req.RequestedScopes = requestedScopes
	req.Scopes = scopeResult
	req.IsOpenID = scopeResult.ContainsOpenID

	// 6. identity scopes need a response type able to carry/produce an
	// identity token; conversely an id_token response type needs openid.
	if len(scopeResult.Identity) > 0 && !req.IsOpenID {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "identity scopes require openid")
	}
	if req.IsOpenID && !responseType.HasIDToken() && !responseType.HasCode() {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "response_type cannot produce an identity token")
	}
	if responseType.HasIDToken() && !req.IsOpenID {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "response_type id_token requires the openid scope")
	}

	// 7. nonce is mandatory whenever an id_token is returned on the front
	// channel.
	nonce := params.Get(oauth2.ParamNonce)
	if len(nonce) > limits.Nonce {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "nonce is too long")
	}
	if responseType.HasIDToken() && nonce == "" {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "nonce is required for id_token response types")
	}
	req.Nonce = nonce

	// 8. response_mode compatibility: query must never carry front-channel
	// tokens.
	responseMode := oauth2.ResponseModeType(params.Get(oauth2.ParamResponseMode))
	if responseMode == "" {
		responseMode = oauth2.DefaultResponseMode(responseType)
	} else if !oauth2.ResponseModeAllowed(responseMode, responseType) {
		return nil, oauth2.NewClientError(oauth2.ErrUnsupportedResponseType, "response_mode is not supported for the response_type")
	}
	req.ResponseMode = responseMode

	// 9. max_age.
	if rawMaxAge := params.Get(oauth2.ParamMaxAge); rawMaxAge != "" {
		maxAge, err := strconv.Atoi(rawMaxAge)
		if err != nil || maxAge < 0 {
			return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "max_age must be a non-negative integer")
		}
		req.MaxAge = &maxAge
	}

	// 10. PKCE.
	if protoErr := v.validatePKCE(client, params, req); protoErr != nil {
		return nil, protoErr
	}

	// 11. remaining hints are recorded with length limits only; their
	// enforcement happens on the login leg, outside this core.
	acrValues := params.Get(oauth2.ParamAcrValues)
	if len(acrValues) > limits.AcrValues {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "acr_values is too long")
	}
	req.AcrValues = strings.Fields(acrValues)

	loginHint := params.Get(oauth2.ParamLoginHint)
	if len(loginHint) > limits.LoginHint {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "login_hint is too long")
	}
	req.LoginHint = loginHint

	uiLocales := params.Get(oauth2.ParamUILocales)
	if len(uiLocales) > limits.UILocale {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidRequest, "ui_locales is too long")
	}
	req.UILocales = uiLocales
	req.Prompt = params.Get(oauth2.ParamPrompt)

	// idp:<name> in acr_values selects an upstream provider; honored only if
	// the client's restriction list allows it.
	for _, acr := range req.AcrValues {
		if idp, found := strings.CutPrefix(acr, "idp:"); found {
			if client.AllowsIdentityProvider(idp) {
				req.IdP = idp
			}
			break
		}
	}

	return req, nil
}

func (v *AuthorizeRequestValidator) validatePKCE(client *clients.Client, params url.Values, req *ValidatedAuthorizeRequest) *oauth2.Error {
	challenge := params.Get(oauth2.ParamCodeChallenge)
	method := oauth2.CodeMethodType(params.Get(oauth2.ParamCodeChallengeMethod))

	if challenge == "" {
		if method != "" {
			return oauth2.NewClientError(oauth2.ErrInvalidRequest, "code_challenge_method without code_challenge")
		}
		if client.RequirePKCE {
			return oauth2.NewClientError(oauth2.ErrInvalidRequest, "client requires PKCE")
		}
		return nil
	}

	if len(challenge) < v.cfg.GetMinCodeChallengeLength() || len(challenge) > v.cfg.GetMaxCodeChallengeLength() {
		return oauth2.NewClientError(oauth2.ErrInvalidRequest, "code_challenge length is out of bounds")
	}

	// plain is the RFC 7636 default when no method is sent.
	if method == "" {
		method = oauth2.CodeMethodPlain
	}
	switch method {
	case oauth2.CodeMethodS256:
	case oauth2.CodeMethodPlain:
		if !client.AllowPlainTextPKCE {
			return oauth2.NewClientError(oauth2.ErrInvalidRequest, "plain code_challenge_method is not allowed for the client")
		}
	default:
		return oauth2.NewClientError(oauth2.ErrInvalidRequest, "unsupported code_challenge_method")
	}

	req.CodeChallenge = challenge
	req.CodeChallengeMethod = method
	return nil
}
