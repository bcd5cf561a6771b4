package scopes

import "context"

// Repo is the scope registry: validators consult it to check existence and
// type of requested scope names.
type Repo interface {
	GetAll(ctx context.Context) ([]Scope, error)
}
