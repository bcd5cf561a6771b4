package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-identity-server/scopes"
)

var _ scopes.Repo = (*FakeScopeRepo)(nil)

// FakeScopeRepo is an in-memory scope registry for tests and static
// configuration.
type FakeScopeRepo struct {
	all  []scopes.Scope
	lock sync.RWMutex
}

func New(configured ...scopes.Scope) *FakeScopeRepo {
	return &FakeScopeRepo{all: configured}
}

func (r *FakeScopeRepo) GetAll(_ context.Context) ([]scopes.Scope, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]scopes.Scope, len(r.all))
	copy(out, r.all)
	return out, nil
}

// Add appends a scope definition. Intended for test setup.
func (r *FakeScopeRepo) Add(scope scopes.Scope) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.all = append(r.all, scope)
}
