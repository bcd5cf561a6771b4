package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// hashHandle derives the storage key from a handle so that a leaked store dump
// never yields redeemable handles.
func hashHandle(handle string) string {
	sum := sha256.Sum256([]byte(handle))
	return hex.EncodeToString(sum[:])
}

// HashedCodeStore wraps any AuthorizationCodeStore and hashes handles before
// they reach it. Composed at construction time; transparent to callers.
type HashedCodeStore struct {
	inner AuthorizationCodeStore
}

func NewHashedCodeStore(inner AuthorizationCodeStore) *HashedCodeStore {
	return &HashedCodeStore{inner: inner}
}

func (s *HashedCodeStore) Store(ctx context.Context, handle string, code *AuthorizationCode) error {
	return s.inner.Store(ctx, hashHandle(handle), code)
}

func (s *HashedCodeStore) Redeem(ctx context.Context, handle string) (*AuthorizationCode, error) {
	return s.inner.Redeem(ctx, hashHandle(handle))
}

// HashedRefreshTokenStore wraps any RefreshTokenStore with handle hashing.
type HashedRefreshTokenStore struct {
	inner RefreshTokenStore
}

func NewHashedRefreshTokenStore(inner RefreshTokenStore) *HashedRefreshTokenStore {
	return &HashedRefreshTokenStore{inner: inner}
}

func (s *HashedRefreshTokenStore) Store(ctx context.Context, handle string, token *RefreshToken) error {
	return s.inner.Store(ctx, hashHandle(handle), token)
}

func (s *HashedRefreshTokenStore) Get(ctx context.Context, handle string) (*RefreshToken, error) {
	return s.inner.Get(ctx, hashHandle(handle))
}

func (s *HashedRefreshTokenStore) Rotate(ctx context.Context, oldHandle, newHandle string, token *RefreshToken) error {
	return s.inner.Rotate(ctx, hashHandle(oldHandle), hashHandle(newHandle), token)
}

func (s *HashedRefreshTokenStore) Delete(ctx context.Context, handle string) error {
	return s.inner.Delete(ctx, hashHandle(handle))
}

// HashedReferenceTokenStore wraps any ReferenceTokenStore with handle hashing.
type HashedReferenceTokenStore struct {
	inner ReferenceTokenStore
}

func NewHashedReferenceTokenStore(inner ReferenceTokenStore) *HashedReferenceTokenStore {
	return &HashedReferenceTokenStore{inner: inner}
}

func (s *HashedReferenceTokenStore) Store(ctx context.Context, handle string, token *ReferenceToken) error {
	return s.inner.Store(ctx, hashHandle(handle), token)
}

func (s *HashedReferenceTokenStore) Get(ctx context.Context, handle string) (*ReferenceToken, error) {
	return s.inner.Get(ctx, hashHandle(handle))
}

func (s *HashedReferenceTokenStore) Delete(ctx context.Context, handle string) error {
	return s.inner.Delete(ctx, hashHandle(handle))
}

var (
	_ AuthorizationCodeStore = (*HashedCodeStore)(nil)
	_ RefreshTokenStore      = (*HashedRefreshTokenStore)(nil)
	_ ReferenceTokenStore    = (*HashedReferenceTokenStore)(nil)
)
