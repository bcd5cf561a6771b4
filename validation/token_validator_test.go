package validation_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/grants"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/scopes"
	"github.com/jrsteele09/go-identity-server/scopes/repofake"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/store/memory"
	"github.com/jrsteele09/go-identity-server/users"
	"github.com/jrsteele09/go-identity-server/users/servicefake"
	"github.com/jrsteele09/go-identity-server/validation"
)

type tokenValidatorFixture struct {
	validator *validation.TokenRequestValidator
	codes     *memory.CodeStore
	refresh   *memory.RefreshTokenStore
	userSvc   *servicefake.FakeUserService
}

func newTokenValidatorFixture(t *testing.T, options ...validation.TokenRequestValidatorOption) *tokenValidatorFixture {
	t.Helper()

	codes := memory.NewCodeStore()
	refresh := memory.NewRefreshTokenStore()
	scopeRepo := repofake.New(
		scopes.OpenID(), scopes.Profile(), scopes.OfflineAccess(),
		scopes.Scope{Name: "api", Type: scopes.TypeResource},
	)
	scopeValidator, err := validation.NewScopeValidator(scopeRepo)
	require.NoError(t, err)

	userSvc := servicefake.New(&servicefake.User{
		Subject:      "1",
		Username:     "alice",
		PasswordHash: servicefake.HashPassword("password"),
		Active:       true,
	})

	v, err := validation.NewTokenRequestValidator(codes, refresh, scopeValidator, userSvc, config.New(), options...)
	require.NoError(t, err)
	return &tokenValidatorFixture{validator: v, codes: codes, refresh: refresh, userSvc: userSvc}
}

func tokenCodeClient() *clients.Client {
	return (&clients.Client{
		ID:           "codeclient",
		Enabled:      true,
		SecretHashes: []string{"x"},
		Flow:         oauth2.FlowAuthorizationCode,
		RedirectURIs: []string{"https://server/cb"},
	}).DefaultLifetimes()
}

func seedCode(t *testing.T, f *tokenValidatorFixture, handle string, code *store.AuthorizationCode) {
	t.Helper()
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	if code.Subject.Subject == "" {
		code.Subject = users.Principal{Subject: "1", AuthTime: time.Now()}
	}
	require.NoError(t, f.codes.Store(context.Background(), handle, code))
}

func codeGrantParams(code string) url.Values {
	params := url.Values{}
	params.Set(oauth2.ParamGrantType, "authorization_code")
	params.Set(oauth2.ParamCode, code)
	params.Set(oauth2.ParamRedirectURI, "https://server/cb")
	return params
}

func TestTokenRequestValidator_AuthorizationCode(t *testing.T) {
	ctx := context.Background()

	t.Run("code replay fails on the second redemption", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "used-code", &store.AuthorizationCode{
			ClientID:    "codeclient",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
		})

		req, protoErr := f.validator.Validate(ctx, codeGrantParams("used-code"), tokenCodeClient())
		require.Nil(t, protoErr)
		require.NotNil(t, req.AuthorizationCode)
		require.Equal(t, "1", req.Principal.Subject)

		_, protoErr = f.validator.Validate(ctx, codeGrantParams("used-code"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("code issued to a different client", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "foreign-code", &store.AuthorizationCode{
			ClientID:    "someone-else",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
		})

		_, protoErr := f.validator.Validate(ctx, codeGrantParams("foreign-code"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("redirect_uri must match the authorization request", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "code-1", &store.AuthorizationCode{
			ClientID:    "codeclient",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
		})

		params := codeGrantParams("code-1")
		params.Set(oauth2.ParamRedirectURI, "https://server/other")
		_, protoErr := f.validator.Validate(ctx, params, tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrUnauthorizedClient, protoErr.Code)
	})

	t.Run("expired code rejected", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		f := newTokenValidatorFixture(t, validation.WithNow(func() time.Time { return future }))
		seedCode(t, f, "stale", &store.AuthorizationCode{
			ClientID:    "codeclient",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
			CreatedAt:   time.Now(),
		})

		_, protoErr := f.validator.Validate(ctx, codeGrantParams("stale"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("deactivated user rejected at redemption", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "code-2", &store.AuthorizationCode{
			ClientID:    "codeclient",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
		})
		f.userSvc.Deactivate("1")

		_, protoErr := f.validator.Validate(ctx, codeGrantParams("code-2"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("wrong client flow rejected before redemption", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "code-3", &store.AuthorizationCode{
			ClientID:    "codeclient",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
		})

		m2m := &clients.Client{ID: "m2m", Enabled: true, SecretHashes: []string{"x"}, Flow: oauth2.FlowClientCredentials}
		_, protoErr := f.validator.Validate(ctx, codeGrantParams("code-3"), m2m)
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrUnauthorizedClient, protoErr.Code)

		// The code survives for its rightful owner.
		_, protoErr = f.validator.Validate(ctx, codeGrantParams("code-3"), tokenCodeClient())
		require.Nil(t, protoErr)
	})
}

func TestTokenRequestValidator_PKCE(t *testing.T) {
	ctx := context.Background()

	pkceCode := func() *store.AuthorizationCode {
		return &store.AuthorizationCode{
			ClientID:            "codeclient",
			Scopes:              []string{"openid"},
			RedirectURI:         "https://server/cb",
			CodeChallenge:       testChallenge,
			CodeChallengeMethod: "S256",
		}
	}

	t.Run("correct verifier accepted", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "pkce-code", pkceCode())

		params := codeGrantParams("pkce-code")
		params.Set(oauth2.ParamCodeVerifier, testVerifier)
		_, protoErr := f.validator.Validate(ctx, params, tokenCodeClient())
		require.Nil(t, protoErr)
	})

	t.Run("wrong verifier rejected", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "pkce-code", pkceCode())

		params := codeGrantParams("pkce-code")
		params.Set(oauth2.ParamCodeVerifier, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		_, protoErr := f.validator.Validate(ctx, params, tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("missing verifier rejected when a challenge was recorded", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "pkce-code", pkceCode())

		_, protoErr := f.validator.Validate(ctx, codeGrantParams("pkce-code"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("unexpected verifier rejected when no challenge was recorded", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedCode(t, f, "plain-code", &store.AuthorizationCode{
			ClientID:    "codeclient",
			Scopes:      []string{"openid"},
			RedirectURI: "https://server/cb",
		})

		params := codeGrantParams("plain-code")
		params.Set(oauth2.ParamCodeVerifier, testVerifier)
		_, protoErr := f.validator.Validate(ctx, params, tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})
}

func TestTokenRequestValidator_ClientCredentials(t *testing.T) {
	ctx := context.Background()
	m2m := (&clients.Client{
		ID:           "m2m",
		Enabled:      true,
		SecretHashes: []string{"x"},
		Flow:         oauth2.FlowClientCredentials,
	}).DefaultLifetimes()

	t.Run("resource scopes granted", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "client_credentials")
		params.Set(oauth2.ParamScope, "api")

		req, protoErr := f.validator.Validate(ctx, params, m2m)
		require.Nil(t, protoErr)
		require.Nil(t, req.Principal)
		require.Equal(t, []string{"api"}, req.GrantedScopes())
	})

	t.Run("identity scopes rejected", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "client_credentials")
		params.Set(oauth2.ParamScope, "openid")

		_, protoErr := f.validator.Validate(ctx, params, m2m)
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidScope, protoErr.Code)
	})

	t.Run("offline_access rejected", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "client_credentials")
		params.Set(oauth2.ParamScope, "api offline_access")

		_, protoErr := f.validator.Validate(ctx, params, m2m)
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidScope, protoErr.Code)
	})
}

func TestTokenRequestValidator_Password(t *testing.T) {
	ctx := context.Background()
	ropc := (&clients.Client{
		ID:           "trusted",
		Enabled:      true,
		SecretHashes: []string{"x"},
		Flow:         oauth2.FlowResourceOwner,
	}).DefaultLifetimes()

	passwordParams := func(username, password string) url.Values {
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "password")
		params.Set(oauth2.ParamUsername, username)
		params.Set(oauth2.ParamPassword, password)
		params.Set(oauth2.ParamScope, "openid api")
		return params
	}

	t.Run("valid credentials resolve the subject", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		req, protoErr := f.validator.Validate(ctx, passwordParams("alice", "password"), ropc)
		require.Nil(t, protoErr)
		require.Equal(t, "1", req.Principal.Subject)
	})

	t.Run("wrong password is indistinguishable from unknown user", func(t *testing.T) {
		f := newTokenValidatorFixture(t)

		_, wrongPassword := f.validator.Validate(ctx, passwordParams("alice", "nope"), ropc)
		require.NotNil(t, wrongPassword)

		_, unknownUser := f.validator.Validate(ctx, passwordParams("mallory", "nope"), ropc)
		require.NotNil(t, unknownUser)

		require.Equal(t, wrongPassword.Code, unknownUser.Code)
		require.Equal(t, wrongPassword.Description, unknownUser.Description)
	})

	t.Run("code client cannot use the password grant", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		_, protoErr := f.validator.Validate(ctx, passwordParams("alice", "password"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrUnauthorizedClient, protoErr.Code)
	})
}

func TestTokenRequestValidator_RefreshToken(t *testing.T) {
	ctx := context.Background()

	refreshParams := func(handle string) url.Values {
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "refresh_token")
		params.Set(oauth2.ParamRefreshToken, handle)
		return params
	}

	seedRefresh := func(t *testing.T, f *tokenValidatorFixture, handle, clientID string) {
		t.Helper()
		require.NoError(t, f.refresh.Store(ctx, handle, &store.RefreshToken{
			ClientID:  clientID,
			Subject:   users.Principal{Subject: "1"},
			Scopes:    []string{"openid", "offline_access"},
			Lifetime:  30 * 24 * time.Hour,
			CreatedAt: time.Now(),
		}))
	}

	t.Run("valid redemption", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedRefresh(t, f, "rt-1", "codeclient")

		req, protoErr := f.validator.Validate(ctx, refreshParams("rt-1"), tokenCodeClient())
		require.Nil(t, protoErr)
		require.NotNil(t, req.RefreshToken)
		require.Equal(t, "rt-1", req.RefreshTokenHandle)
		require.Equal(t, "1", req.Principal.Subject)
	})

	t.Run("token bound to clientA refused for clientB", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedRefresh(t, f, "rt-a", "clientA")

		clientB := (&clients.Client{
			ID:           "clientB",
			Enabled:      true,
			SecretHashes: []string{"x"},
			Flow:         oauth2.FlowAuthorizationCode,
		}).DefaultLifetimes()

		_, protoErr := f.validator.Validate(ctx, refreshParams("rt-a"), clientB)
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("expired token rejected and removed", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		require.NoError(t, f.refresh.Store(ctx, "rt-old", &store.RefreshToken{
			ClientID:  "codeclient",
			Subject:   users.Principal{Subject: "1"},
			Lifetime:  time.Minute,
			CreatedAt: time.Now().Add(-time.Hour),
		}))

		_, protoErr := f.validator.Validate(ctx, refreshParams("rt-old"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)

		_, err := f.refresh.Get(ctx, "rt-old")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown handle", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		_, protoErr := f.validator.Validate(ctx, refreshParams("missing"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("deactivated user rejected", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		seedRefresh(t, f, "rt-2", "codeclient")
		f.userSvc.Deactivate("1")

		_, protoErr := f.validator.Validate(ctx, refreshParams("rt-2"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})
}

type fakeDeviceGrant struct{}

func (fakeDeviceGrant) GrantType() string { return "urn:example:device" }

func (fakeDeviceGrant) Validate(_ context.Context, params url.Values) (*users.Principal, error) {
	if params.Get("device_code") != "good" {
		return nil, nil
	}
	return &users.Principal{Subject: "1", AuthTime: time.Now()}, nil
}

func TestTokenRequestValidator_CustomGrants(t *testing.T) {
	ctx := context.Background()
	registry := grants.NewRegistry(fakeDeviceGrant{})

	deviceClient := (&clients.Client{
		ID:                      "device",
		Enabled:                 true,
		SecretHashes:            []string{"x"},
		Flow:                    oauth2.FlowCustom,
		AllowedCustomGrantTypes: []string{"urn:example:device"},
	}).DefaultLifetimes()

	customParams := func(deviceCode string) url.Values {
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "urn:example:device")
		params.Set("device_code", deviceCode)
		params.Set(oauth2.ParamScope, "api")
		return params
	}

	t.Run("registered grant with authorized client", func(t *testing.T) {
		f := newTokenValidatorFixture(t, validation.WithCustomGrants(registry))
		req, protoErr := f.validator.Validate(ctx, customParams("good"), deviceClient)
		require.Nil(t, protoErr)
		require.Equal(t, "urn:example:device", req.CustomGrantType)
		require.Equal(t, "1", req.Principal.Subject)
	})

	t.Run("rejected assertion", func(t *testing.T) {
		f := newTokenValidatorFixture(t, validation.WithCustomGrants(registry))
		_, protoErr := f.validator.Validate(ctx, customParams("bad"), deviceClient)
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidGrant, protoErr.Code)
	})

	t.Run("client not authorized for the grant", func(t *testing.T) {
		f := newTokenValidatorFixture(t, validation.WithCustomGrants(registry))
		_, protoErr := f.validator.Validate(ctx, customParams("good"), tokenCodeClient())
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrUnauthorizedClient, protoErr.Code)
	})

	t.Run("unregistered grant type", func(t *testing.T) {
		f := newTokenValidatorFixture(t)
		params := url.Values{}
		params.Set(oauth2.ParamGrantType, "urn:example:unknown")
		_, protoErr := f.validator.Validate(ctx, params, deviceClient)
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrUnsupportedGrantType, protoErr.Code)
	})
}
