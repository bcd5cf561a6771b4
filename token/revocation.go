package token

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/store"
)

// Revoker implements token revocation over the refresh and reference token
// stores. Only tokens owned by the authenticated client are removed; the
// outcome is deliberately unobservable to the caller, so an unknown handle, a
// foreign owner and a successful delete all look the same. JWT access tokens
// are not revocable: they are valid until expiry by construction.
type Revoker struct {
	refresh    store.RefreshTokenStore
	references store.ReferenceTokenStore
}

func NewRevoker(refresh store.RefreshTokenStore, references store.ReferenceTokenStore) (*Revoker, error) {
	if refresh == nil {
		return nil, errors.New("[NewRevoker] refresh token store is required")
	}
	if references == nil {
		return nil, errors.New("[NewRevoker] reference token store is required")
	}
	return &Revoker{refresh: refresh, references: references}, nil
}

// Revoke removes the token behind handle if it belongs to the client. The
// token_type_hint orders the store lookups; a wrong hint still finds the
// token. Only infrastructure faults are reported.
func (r *Revoker) Revoke(ctx context.Context, client *clients.Client, handle, hint string) error {
	if client == nil {
		return errors.New("[Revoker.Revoke] client is required")
	}
	if handle == "" {
		return nil
	}

	lookups := []func(context.Context, *clients.Client, string) (bool, error){r.revokeRefresh, r.revokeReference}
	if hint == "access_token" {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		found, err := lookup(ctx, client, handle)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
	}
	return nil
}

func (r *Revoker) revokeRefresh(ctx context.Context, client *clients.Client, handle string) (bool, error) {
	token, err := r.refresh.Get(ctx, handle)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "[Revoker.revokeRefresh]")
	}
	if token.ClientID != client.ID {
		return true, nil
	}
	if err := r.refresh.Delete(ctx, handle); err != nil {
		return false, errors.Wrap(err, "[Revoker.revokeRefresh] delete")
	}
	return true, nil
}

func (r *Revoker) revokeReference(ctx context.Context, client *clients.Client, handle string) (bool, error) {
	token, err := r.references.Get(ctx, handle)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "[Revoker.revokeReference]")
	}
	if token.ClientID != client.ID {
		return true, nil
	}
	if err := r.references.Delete(ctx, handle); err != nil {
		return false, errors.Wrap(err, "[Revoker.revokeReference] delete")
	}
	return true, nil
}
