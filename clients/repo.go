package clients

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no client exists for the given identifier.
var ErrNotFound = errors.New("client not found")

// Repo resolves client identifiers to client configuration. Pure lookup, no
// side effects. Disabled clients are returned as-is; callers must check the
// Enabled flag before granting anything.
type Repo interface {
	FindByID(ctx context.Context, id string) (*Client, error)
}
