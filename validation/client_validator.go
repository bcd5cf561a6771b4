package validation

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/oauth2"
)

// ClientValidator authenticates the calling client at the token endpoint and
// authorizes it for the requested grant type.
type ClientValidator struct {
	registry clients.Repo
	cfg      config.OAuthConfig
}

func NewClientValidator(registry clients.Repo, cfg config.OAuthConfig) (*ClientValidator, error) {
	if registry == nil {
		return nil, errors.New("[NewClientValidator] client registry is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewClientValidator] config is required")
	}
	return &ClientValidator{registry: registry, cfg: cfg}, nil
}

// Validate resolves and authenticates the presented credentials. Public
// clients (no registered secret) are accepted without a credential only when
// their flow is authorization-code with PKCE required; everything else must
// present a secret matching one of the client's bcrypt hashes. bcrypt's
// comparison is constant-time, so secret checks don't leak timing.
func (v *ClientValidator) Validate(ctx context.Context, credentials ClientCredentials) (*clients.Client, *oauth2.Error) {
	limits := v.cfg.GetInputLengths()
	if credentials.ID == "" || len(credentials.ID) > limits.ClientID {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "client_id is missing or malformed")
	}
	if len(credentials.Secret) > limits.ClientSecret {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "client credentials are invalid")
	}

	client, err := v.registry.FindByID(ctx, credentials.ID)
	if err == clients.ErrNotFound {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "unknown client")
	}
	if err != nil {
		return nil, oauth2.NewServerError("client registry unavailable")
	}
	if !client.Enabled {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "client is disabled")
	}

	if client.IsPublic() {
		if credentials.Secret != "" {
			return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "public clients must not send a secret")
		}
		if client.Flow != oauth2.FlowAuthorizationCode || !client.RequirePKCE {
			return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "client has no credential configured")
		}
		return client, nil
	}

	if credentials.Secret == "" {
		return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "client secret is required")
	}
	for _, hash := range client.SecretHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(credentials.Secret)) == nil {
			return client, nil
		}
	}
	return nil, oauth2.NewUserError(oauth2.ErrInvalidClient, "invalid client secret")
}
