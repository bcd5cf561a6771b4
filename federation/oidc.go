// Package federation implements the upstream identity provider leg: signing a
// user in against an external OIDC provider and mapping the verified identity
// token into a Principal. Which provider a client may use is decided by the
// client's restriction list before this package is consulted.
package federation

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-identity-server/users"
)

// ProviderConfig describes one upstream OIDC provider.
type ProviderConfig struct {
	// Name is the identifier used in client restrictions and idp: acr hints.
	Name         string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes beyond openid to request upstream.
	Scopes []string
}

// Provider is a configured upstream OIDC provider, discovery already done.
type Provider struct {
	name     string
	config   oauth2.Config
	verifier *oidc.IDTokenVerifier
	now      func() time.Time
}

// NewProvider runs OIDC discovery against the issuer and prepares the
// authorization code flow toward it.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.Name == "" || cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, errors.New("[NewProvider] name, issuer URL and client ID are required")
	}

	upstream, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewProvider] discovery for %q", cfg.Name)
	}

	scopes := append([]string{oidc.ScopeOpenID}, cfg.Scopes...)
	return &Provider{
		name: cfg.Name,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     upstream.Endpoint(),
			Scopes:       scopes,
		},
		verifier: upstream.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		now:      time.Now,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL builds the URL to redirect the user agent to for upstream login.
func (p *Provider) AuthCodeURL(state, nonce string) string {
	return p.config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange redeems the upstream callback code, verifies the identity token and
// maps it to a Principal. The nonce must match the one sent in AuthCodeURL.
func (p *Provider) Exchange(ctx context.Context, code, nonce string) (*users.Principal, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider.Exchange] code exchange with %q", p.name)
	}

	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok {
		return nil, errors.Errorf("[Provider.Exchange] no id_token from %q", p.name)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider.Exchange] id_token verification for %q", p.name)
	}
	if idToken.Nonce != nonce {
		return nil, errors.Errorf("[Provider.Exchange] nonce mismatch from %q", p.name)
	}

	var claims struct {
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrapf(err, "[Provider.Exchange] claims from %q", p.name)
	}

	principal := &users.Principal{
		Subject:              p.name + ":" + idToken.Subject,
		DisplayName:          claims.Name,
		AuthenticationMethod: "external",
		IdentityProvider:     p.name,
		AuthTime:             p.now(),
	}
	if principal.DisplayName == "" {
		principal.DisplayName = claims.PreferredUsername
	}
	if claims.Email != "" {
		principal.Claims = append(principal.Claims, users.Claim{Type: "email", Value: claims.Email})
	}
	return principal, nil
}

// Registry holds the configured upstream providers keyed by name.
type Registry struct {
	providers map[string]*Provider
}

func NewRegistry(providers ...*Provider) *Registry {
	r := &Registry{providers: make(map[string]*Provider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Lookup returns the named provider, if configured.
func (r *Registry) Lookup(name string) (*Provider, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.providers[name]
	return p, ok
}
