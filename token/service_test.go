package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/store/memory"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
	"github.com/jrsteele09/go-identity-server/users/servicefake"
)

const testIssuer = "https://ids.example.com"

func newTokenService(t *testing.T, references store.ReferenceTokenStore, options ...token.ServiceOption) *token.Service {
	t.Helper()
	if references == nil {
		references = memory.NewReferenceTokenStore(time.Minute)
	}
	svc, err := token.NewService(testIssuer, token.NewHMACSigner("test-secret"), references, options...)
	require.NoError(t, err)
	return svc
}

func parseClaims(t *testing.T, signer token.Signer, raw string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(raw, signer.VerificationKey)
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return parsed.Claims.(jwt.MapClaims)
}

func jwtClient() *clients.Client {
	return (&clients.Client{
		ID:      "client",
		Enabled: true,
		Flow:    oauth2.FlowAuthorizationCode,
	}).DefaultLifetimes()
}

func alice() *users.Principal {
	return &users.Principal{
		Subject:              "1",
		DisplayName:          "alice",
		AuthenticationMethod: "password",
		AuthTime:             time.Now().Add(-time.Minute),
	}
}

func TestService_CreateAccessToken(t *testing.T) {
	ctx := context.Background()
	signer := token.NewHMACSigner("test-secret")

	t.Run("jwt access token carries the protocol claims", func(t *testing.T) {
		svc := newTokenService(t, nil)
		raw, err := svc.CreateAccessToken(ctx, token.AccessTokenRequest{
			Client:  jwtClient(),
			Subject: alice(),
			Scopes:  []string{"openid", "api"},
		})
		require.NoError(t, err)

		claims := parseClaims(t, signer, raw)
		require.Equal(t, testIssuer, claims["iss"])
		require.Equal(t, testIssuer+"/resources", claims["aud"])
		require.Equal(t, "1", claims["sub"])
		require.Equal(t, "client", claims["client_id"])
		require.Equal(t, "openid api", claims["scope"])
		require.NotEmpty(t, claims["jti"])

		iat := int64(claims["iat"].(float64))
		exp := int64(claims["exp"].(float64))
		require.Equal(t, int64(3600), exp-iat)
	})

	t.Run("client credentials token has no subject", func(t *testing.T) {
		svc := newTokenService(t, nil)
		raw, err := svc.CreateAccessToken(ctx, token.AccessTokenRequest{
			Client: jwtClient(),
			Scopes: []string{"api"},
		})
		require.NoError(t, err)

		claims := parseClaims(t, signer, raw)
		_, hasSub := claims["sub"]
		require.False(t, hasSub)
	})

	t.Run("reference token stores content and returns a handle", func(t *testing.T) {
		references := memory.NewReferenceTokenStore(time.Minute)
		svc := newTokenService(t, references)

		client := jwtClient()
		client.AccessTokenType = oauth2.AccessTokenReference

		handle, err := svc.CreateAccessToken(ctx, token.AccessTokenRequest{
			Client:  client,
			Subject: alice(),
			Scopes:  []string{"api"},
		})
		require.NoError(t, err)
		require.Len(t, handle, 64)

		record, err := references.Get(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, "client", record.ClientID)
		require.Equal(t, "1", record.Subject.Subject)
		require.Equal(t, testIssuer, record.Issuer)
	})

	t.Run("claims provider claims merged without touching protocol claims", func(t *testing.T) {
		userSvc := servicefake.New(&servicefake.User{
			Subject: "1", Username: "alice", Active: true,
			Claims: []users.Claim{
				{Type: "role", Value: "admin"},
				{Type: "role", Value: "auditor"},
				{Type: "sub", Value: "forged"},
			},
		})
		svc := newTokenService(t, nil, token.WithClaimsProvider(userSvc))

		raw, err := svc.CreateAccessToken(ctx, token.AccessTokenRequest{
			Client:  jwtClient(),
			Subject: alice(),
			Scopes:  []string{"api"},
		})
		require.NoError(t, err)

		claims := parseClaims(t, signer, raw)
		require.Equal(t, "1", claims["sub"])
		roles, ok := claims["role"].([]any)
		require.True(t, ok)
		require.Len(t, roles, 2)
	})
}

func TestService_CreateIdentityToken(t *testing.T) {
	ctx := context.Background()
	signer := token.NewHMACSigner("test-secret")

	t.Run("identity token claims", func(t *testing.T) {
		svc := newTokenService(t, nil)
		subject := alice()
		raw, err := svc.CreateIdentityToken(ctx, token.IdentityTokenRequest{
			Client:  jwtClient(),
			Subject: subject,
			Scopes:  []string{"openid"},
			Nonce:   "n-0S6_WzA2Mj",
		})
		require.NoError(t, err)

		claims := parseClaims(t, signer, raw)
		require.Equal(t, testIssuer, claims["iss"])
		require.Equal(t, "1", claims["sub"])
		require.Equal(t, "client", claims["aud"])
		require.Equal(t, "n-0S6_WzA2Mj", claims["nonce"])
		require.Equal(t, float64(subject.AuthTime.Unix()), claims["auth_time"])
		require.Equal(t, []any{"password"}, claims["amr"])
		_, hasCHash := claims["c_hash"]
		require.False(t, hasCHash)
	})

	t.Run("at_hash and c_hash bind the response artifacts", func(t *testing.T) {
		svc := newTokenService(t, nil)
		raw, err := svc.CreateIdentityToken(ctx, token.IdentityTokenRequest{
			Client:      jwtClient(),
			Subject:     alice(),
			Scopes:      []string{"openid"},
			Nonce:       "nonce",
			AccessToken: "the-access-token",
			Code:        "the-code",
		})
		require.NoError(t, err)

		claims := parseClaims(t, signer, raw)
		require.Equal(t, token.LeftHalfHash("the-access-token"), claims["at_hash"])
		require.Equal(t, token.LeftHalfHash("the-code"), claims["c_hash"])
	})
}

func TestLeftHalfHash(t *testing.T) {
	// Leftmost 128 bits of SHA-256, base64url without padding: always 22 chars.
	hash := token.LeftHalfHash("jHkWEdUXMU1BwAsC4vtUsZwnNvTIxEl0z9K3vx5KF0Y")
	require.Len(t, hash, 22)
	require.NotContains(t, hash, "=")
	require.Equal(t, hash, token.LeftHalfHash("jHkWEdUXMU1BwAsC4vtUsZwnNvTIxEl0z9K3vx5KF0Y"))
}
