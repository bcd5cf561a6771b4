// Package response turns validated requests into protocol responses: it mints
// the codes and tokens a request is entitled to and assembles the wire-shaped
// result. Generators only run on validator output; they never re-check
// protocol rules, and any collaborator failure aborts the whole response.
package response

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
	"github.com/jrsteele09/go-identity-server/validation"
)

// AuthorizeResponseGenerator produces the authorization endpoint's success
// response for a signed-in subject: an authorization code, front-channel
// tokens, or both, per the validated response type.
type AuthorizeResponseGenerator struct {
	codes  store.AuthorizationCodeStore
	tokens *token.Service
	now    func() time.Time
}

// AuthorizeGeneratorOption configures optional generator behavior.
type AuthorizeGeneratorOption func(*AuthorizeResponseGenerator)

// WithAuthorizeClock sets the clock (primarily for tests).
func WithAuthorizeClock(now func() time.Time) AuthorizeGeneratorOption {
	return func(g *AuthorizeResponseGenerator) {
		g.now = now
	}
}

func NewAuthorizeResponseGenerator(codes store.AuthorizationCodeStore, tokens *token.Service, options ...AuthorizeGeneratorOption) (*AuthorizeResponseGenerator, error) {
	if codes == nil {
		return nil, errors.New("[NewAuthorizeResponseGenerator] code store is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthorizeResponseGenerator] token service is required")
	}
	g := &AuthorizeResponseGenerator{codes: codes, tokens: tokens, now: time.Now}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Generate mints the artifacts for the validated request and subject. Identity
// tokens are minted last so at_hash/c_hash can bind the other artifacts of the
// same response.
func (g *AuthorizeResponseGenerator) Generate(ctx context.Context, req *validation.ValidatedAuthorizeRequest, subject *users.Principal) (*oauth2.AuthorizeResponse, *oauth2.Error) {
	if req == nil || subject == nil {
		panic("AuthorizeResponseGenerator.Generate: nil request or subject")
	}

	granted := req.Scopes.GrantedNames()
	resp := &oauth2.AuthorizeResponse{
		RedirectURI:  req.RedirectURI,
		ResponseMode: req.ResponseMode,
		State:        req.State,
	}

	if req.ResponseType.HasCode() {
		handle := store.NewHandle()
		record := &store.AuthorizationCode{
			ClientID:            req.Client.ID,
			Subject:             *subject,
			Scopes:              granted,
			RedirectURI:         req.RedirectURI,
			Nonce:               req.Nonce,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: string(req.CodeChallengeMethod),
			CreatedAt:           g.now(),
			IsOpenID:            req.IsOpenID,
		}
		if err := g.codes.Store(ctx, handle, record); err != nil {
			return nil, oauth2.NewServerError("authorization code store unavailable")
		}
		resp.Code = handle
	}

	if req.ResponseType.HasToken() {
		accessToken, err := g.tokens.CreateAccessToken(ctx, token.AccessTokenRequest{
			Client:  req.Client,
			Subject: subject,
			Scopes:  granted,
		})
		if err != nil {
			return nil, oauth2.NewServerError("access token creation failed")
		}
		resp.AccessToken = accessToken
		resp.TokenType = oauth2.BearerTokenType
		resp.ExpiresIn = int(req.Client.AccessTokenLifetime.Seconds())
		resp.Scope = strings.Join(granted, " ")
	}

	if req.ResponseType.HasIDToken() {
		identityToken, err := g.tokens.CreateIdentityToken(ctx, token.IdentityTokenRequest{
			Client:      req.Client,
			Subject:     subject,
			Scopes:      granted,
			Nonce:       req.Nonce,
			AccessToken: resp.AccessToken,
			Code:        resp.Code,
		})
		if err != nil {
			return nil, oauth2.NewServerError("identity token creation failed")
		}
		resp.IdentityToken = identityToken
	}

	return resp, nil
}
