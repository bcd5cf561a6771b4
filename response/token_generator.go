package response

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/validation"
)

// TokenResponseGenerator produces the token endpoint's success response:
// access token, identity token when the grant carries a completed OpenID
// sign-in, and a refresh token when offline_access was granted. For refresh
// grants it also performs handle rotation per the client's usage policy.
type TokenResponseGenerator struct {
	tokens  *token.Service
	refresh store.RefreshTokenStore
	now     func() time.Time
}

// TokenGeneratorOption configures optional generator behavior.
type TokenGeneratorOption func(*TokenResponseGenerator)

// WithTokenClock sets the clock (primarily for tests).
func WithTokenClock(now func() time.Time) TokenGeneratorOption {
	return func(g *TokenResponseGenerator) {
		g.now = now
	}
}

func NewTokenResponseGenerator(tokens *token.Service, refresh store.RefreshTokenStore, options ...TokenGeneratorOption) (*TokenResponseGenerator, error) {
	if tokens == nil {
		return nil, errors.New("[NewTokenResponseGenerator] token service is required")
	}
	if refresh == nil {
		return nil, errors.New("[NewTokenResponseGenerator] refresh token store is required")
	}
	g := &TokenResponseGenerator{tokens: tokens, refresh: refresh, now: time.Now}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Generate mints the response for a validated token request.
func (g *TokenResponseGenerator) Generate(ctx context.Context, req *validation.ValidatedTokenRequest) (*oauth2.TokenResponse, *oauth2.Error) {
	if req == nil {
		panic("TokenResponseGenerator.Generate: nil request")
	}

	granted := req.GrantedScopes()

	accessToken, err := g.tokens.CreateAccessToken(ctx, token.AccessTokenRequest{
		Client:  req.Client,
		Subject: req.Principal,
		Scopes:  granted,
	})
	if err != nil {
		return nil, oauth2.NewServerError("access token creation failed")
	}

	resp := &oauth2.TokenResponse{
		AccessToken: accessToken,
		TokenType:   oauth2.BearerTokenType,
		ExpiresIn:   int(req.Client.AccessTokenLifetime.Seconds()),
		Scope:       strings.Join(granted, " "),
	}

	if g.signedInWithOpenID(req, granted) {
		nonce := ""
		if req.AuthorizationCode != nil {
			nonce = req.AuthorizationCode.Nonce
		}
		identityToken, err := g.tokens.CreateIdentityToken(ctx, token.IdentityTokenRequest{
			Client:      req.Client,
			Subject:     req.Principal,
			Scopes:      granted,
			Nonce:       nonce,
			AccessToken: accessToken,
		})
		if err != nil {
			return nil, oauth2.NewServerError("identity token creation failed")
		}
		resp.IdToken = identityToken
	}

	refreshHandle, protoErr := g.refreshHandle(ctx, req, granted)
	if protoErr != nil {
		return nil, protoErr
	}
	resp.RefreshToken = refreshHandle

	return resp, nil
}

// signedInWithOpenID reports whether the grant represents a completed OpenID
// sign-in. Client-credentials requests never get an identity token.
func (g *TokenResponseGenerator) signedInWithOpenID(req *validation.ValidatedTokenRequest, granted []string) bool {
	if req.Principal == nil {
		return false
	}
	if req.AuthorizationCode != nil {
		return req.AuthorizationCode.IsOpenID
	}
	for _, name := range granted {
		if name == oauth2.OpenIDScope {
			return true
		}
	}
	return false
}

// refreshHandle issues or rotates the refresh token for the request, returning
// "" when the grant carries no offline_access.
func (g *TokenResponseGenerator) refreshHandle(ctx context.Context, req *validation.ValidatedTokenRequest, granted []string) (string, *oauth2.Error) {
	if req.RefreshToken != nil {
		return g.rotate(ctx, req)
	}

	offline := false
	for _, name := range granted {
		if name == oauth2.OfflineAccessScope {
			offline = true
			break
		}
	}
	if !offline || req.Principal == nil {
		return "", nil
	}

	handle := store.NewHandle()
	record := &store.RefreshToken{
		ClientID:  req.Client.ID,
		Subject:   *req.Principal,
		Scopes:    granted,
		Lifetime:  req.Client.RefreshTokenLifetime,
		CreatedAt: g.now(),
		Sliding:   req.Client.RefreshTokenExpiration == clients.RefreshTokenSliding,
	}
	if err := g.refresh.Store(ctx, handle, record); err != nil {
		return "", oauth2.NewServerError("refresh token store unavailable")
	}
	return handle, nil
}

// rotate applies the client's refresh token usage policy. One-time-use handles
// are swapped atomically: a concurrent redemption of the same handle loses and
// gets invalid_grant, never a second live token.
func (g *TokenResponseGenerator) rotate(ctx context.Context, req *validation.ValidatedTokenRequest) (string, *oauth2.Error) {
	updated := *req.RefreshToken
	if updated.Sliding {
		updated.CreatedAt = g.now()
	}

	if req.Client.RefreshTokenUsage == clients.RefreshTokenReuse {
		if updated.Sliding {
			if err := g.refresh.Store(ctx, req.RefreshTokenHandle, &updated); err != nil {
				return "", oauth2.NewServerError("refresh token store unavailable")
			}
		}
		return req.RefreshTokenHandle, nil
	}

	newHandle := store.NewHandle()
	err := g.refresh.Rotate(ctx, req.RefreshTokenHandle, newHandle, &updated)
	if err == store.ErrNotFound {
		return "", oauth2.NewUserError(oauth2.ErrInvalidGrant, "refresh token already redeemed")
	}
	if err != nil {
		return "", oauth2.NewServerError("refresh token store unavailable")
	}
	return newHandle, nil
}
