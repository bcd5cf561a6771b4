// Package memory provides in-process implementations of the token stores.
// Authorization codes and refresh tokens use mutex-guarded maps so that Redeem
// and Rotate are single critical sections; reference tokens ride on go-cache
// for TTL eviction.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jrsteele09/go-identity-server/store"
)

var (
	_ store.AuthorizationCodeStore = (*CodeStore)(nil)
	_ store.RefreshTokenStore      = (*RefreshTokenStore)(nil)
	_ store.ReferenceTokenStore    = (*ReferenceTokenStore)(nil)
)

// CodeStore holds authorization codes in memory.
type CodeStore struct {
	codes map[string]*store.AuthorizationCode
	lock  sync.Mutex
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]*store.AuthorizationCode)}
}

func (s *CodeStore) Store(_ context.Context, handle string, code *store.AuthorizationCode) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.codes[handle] = code
	return nil
}

// Redeem removes and returns the record in one critical section, so two
// concurrent redemptions of the same handle cannot both succeed.
func (s *CodeStore) Redeem(_ context.Context, handle string) (*store.AuthorizationCode, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	code, ok := s.codes[handle]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.codes, handle)
	return code, nil
}

// RefreshTokenStore holds refresh tokens in memory.
type RefreshTokenStore struct {
	tokens map[string]*store.RefreshToken
	lock   sync.Mutex
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{tokens: make(map[string]*store.RefreshToken)}
}

func (s *RefreshTokenStore) Store(_ context.Context, handle string, token *store.RefreshToken) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokens[handle] = token
	return nil
}

func (s *RefreshTokenStore) Get(_ context.Context, handle string) (*store.RefreshToken, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	token, ok := s.tokens[handle]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

// Rotate deletes oldHandle and writes newHandle in one critical section.
// Fails with ErrNotFound when oldHandle was already consumed, which gives
// one-time-use tokens the same exactly-once property as code redemption.
func (s *RefreshTokenStore) Rotate(_ context.Context, oldHandle, newHandle string, token *store.RefreshToken) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.tokens[oldHandle]; !ok {
		return store.ErrNotFound
	}
	delete(s.tokens, oldHandle)
	s.tokens[newHandle] = token
	return nil
}

func (s *RefreshTokenStore) Delete(_ context.Context, handle string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.tokens, handle)
	return nil
}

// ReferenceTokenStore holds reference access tokens with TTL eviction.
type ReferenceTokenStore struct {
	cache *gocache.Cache
}

func NewReferenceTokenStore(cleanupInterval time.Duration) *ReferenceTokenStore {
	return &ReferenceTokenStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *ReferenceTokenStore) Store(_ context.Context, handle string, token *store.ReferenceToken) error {
	s.cache.Set(handle, token, token.Lifetime)
	return nil
}

func (s *ReferenceTokenStore) Get(_ context.Context, handle string) (*store.ReferenceToken, error) {
	v, ok := s.cache.Get(handle)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*store.ReferenceToken), nil
}

func (s *ReferenceTokenStore) Delete(_ context.Context, handle string) error {
	s.cache.Delete(handle)
	return nil
}
