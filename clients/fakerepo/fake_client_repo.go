package fakerepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-identity-server/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

// FakeClientRepo is an in-memory client registry for tests and single-node
// deployments configured at composition time.
type FakeClientRepo struct {
	byID map[string]*clients.Client
	lock sync.RWMutex
}

func New(configured ...*clients.Client) *FakeClientRepo {
	repo := &FakeClientRepo{byID: make(map[string]*clients.Client)}
	for _, c := range configured {
		repo.byID[c.ID] = c.DefaultLifetimes()
	}
	return repo
}

func (r *FakeClientRepo) FindByID(_ context.Context, id string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	client, ok := r.byID[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	copied := *client
	return &copied, nil
}

// Upsert adds or replaces a client. Intended for test setup.
func (r *FakeClientRepo) Upsert(client *clients.Client) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.byID[client.ID] = client.DefaultLifetimes()
}
