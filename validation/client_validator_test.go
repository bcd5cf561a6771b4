package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/clients/fakerepo"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/users/servicefake"
	"github.com/jrsteele09/go-identity-server/validation"
)

func TestClientValidator(t *testing.T) {
	ctx := context.Background()

	confidential := &clients.Client{
		ID:           "confidential",
		Enabled:      true,
		SecretHashes: []string{servicefake.HashPassword("secret123")},
		Flow:         oauth2.FlowClientCredentials,
	}
	rotating := &clients.Client{
		ID:      "rotating",
		Enabled: true,
		SecretHashes: []string{
			servicefake.HashPassword("old-secret"),
			servicefake.HashPassword("new-secret"),
		},
		Flow: oauth2.FlowClientCredentials,
	}
	public := &clients.Client{
		ID:          "public",
		Enabled:     true,
		Flow:        oauth2.FlowAuthorizationCode,
		RequirePKCE: true,
	}
	publicNoPKCE := &clients.Client{
		ID:      "public-nopkce",
		Enabled: true,
		Flow:    oauth2.FlowAuthorizationCode,
	}
	disabled := &clients.Client{
		ID:           "disabled",
		Enabled:      false,
		SecretHashes: []string{servicefake.HashPassword("secret123")},
		Flow:         oauth2.FlowClientCredentials,
	}

	v, err := validation.NewClientValidator(
		fakerepo.New(confidential, rotating, public, publicNoPKCE, disabled), config.New())
	require.NoError(t, err)

	t.Run("valid confidential client", func(t *testing.T) {
		client, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "confidential", Secret: "secret123"})
		require.Nil(t, protoErr)
		require.Equal(t, "confidential", client.ID)
	})

	t.Run("any registered secret matches during rotation", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "rotating", Secret: "old-secret"})
		require.Nil(t, protoErr)
		_, protoErr = v.Validate(ctx, validation.ClientCredentials{ID: "rotating", Secret: "new-secret"})
		require.Nil(t, protoErr)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "confidential", Secret: "wrong"})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})

	t.Run("missing secret for confidential client", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "confidential"})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})

	t.Run("public PKCE client accepted without a secret", func(t *testing.T) {
		client, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "public", Method: "none"})
		require.Nil(t, protoErr)
		require.True(t, client.IsPublic())
	})

	t.Run("public client must not send a secret", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "public", Secret: "anything"})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})

	t.Run("public client without PKCE requirement refused", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "public-nopkce"})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})

	t.Run("disabled client", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "disabled", Secret: "secret123"})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{ID: "nobody", Secret: "x"})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})

	t.Run("missing client id", func(t *testing.T) {
		_, protoErr := v.Validate(ctx, validation.ClientCredentials{})
		require.NotNil(t, protoErr)
		require.Equal(t, oauth2.ErrInvalidClient, protoErr.Code)
	})
}
