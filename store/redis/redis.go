// Package redis provides Redis-backed implementations of the token stores for
// multi-node deployments. Atomicity contracts are met with GETDEL for code
// redemption and an optimistic WATCH transaction for refresh-token rotation.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	rdb "github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-identity-server/store"
)

var (
	_ store.AuthorizationCodeStore = (*CodeStore)(nil)
	_ store.RefreshTokenStore      = (*RefreshTokenStore)(nil)
	_ store.ReferenceTokenStore    = (*ReferenceTokenStore)(nil)
)

const (
	codePrefix      = "ac:"
	refreshPrefix   = "rt:"
	referencePrefix = "ref:"
)

// CodeStore persists authorization codes in Redis. Entries carry a TTL slightly
// above the longest client code lifetime; expiry is still enforced by the
// validator against the record's CreatedAt.
type CodeStore struct {
	client *rdb.Client
	ttl    time.Duration
}

func NewCodeStore(client *rdb.Client, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, ttl: ttl}
}

func (s *CodeStore) Store(ctx context.Context, handle string, code *store.AuthorizationCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return errors.Wrap(err, "redis.CodeStore.Store marshal")
	}
	if err := s.client.Set(ctx, codePrefix+handle, payload, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis.CodeStore.Store set")
	}
	return nil
}

// Redeem uses GETDEL so that concurrent redemptions of the same handle resolve
// to exactly one winner server-side.
func (s *CodeStore) Redeem(ctx context.Context, handle string) (*store.AuthorizationCode, error) {
	payload, err := s.client.GetDel(ctx, codePrefix+handle).Bytes()
	if err == rdb.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis.CodeStore.Redeem getdel")
	}
	var code store.AuthorizationCode
	if err := json.Unmarshal(payload, &code); err != nil {
		return nil, errors.Wrap(err, "redis.CodeStore.Redeem unmarshal")
	}
	return &code, nil
}

// RefreshTokenStore persists refresh tokens in Redis with their own lifetime as
// TTL.
type RefreshTokenStore struct {
	client *rdb.Client
}

func NewRefreshTokenStore(client *rdb.Client) *RefreshTokenStore {
	return &RefreshTokenStore{client: client}
}

func (s *RefreshTokenStore) Store(ctx context.Context, handle string, token *store.RefreshToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "redis.RefreshTokenStore.Store marshal")
	}
	if err := s.client.Set(ctx, refreshPrefix+handle, payload, token.Lifetime).Err(); err != nil {
		return errors.Wrap(err, "redis.RefreshTokenStore.Store set")
	}
	return nil
}

func (s *RefreshTokenStore) Get(ctx context.Context, handle string) (*store.RefreshToken, error) {
	payload, err := s.client.Get(ctx, refreshPrefix+handle).Bytes()
	if err == rdb.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis.RefreshTokenStore.Get")
	}
	var token store.RefreshToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, errors.Wrap(err, "redis.RefreshTokenStore.Get unmarshal")
	}
	return &token, nil
}

// Rotate runs a WATCH transaction on the old handle: if another rotation wins
// the race the transaction aborts and the loser sees ErrNotFound. The delete
// and the write of the new handle commit together.
func (s *RefreshTokenStore) Rotate(ctx context.Context, oldHandle, newHandle string, token *store.RefreshToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "redis.RefreshTokenStore.Rotate marshal")
	}

	oldKey := refreshPrefix + oldHandle
	txn := func(tx *rdb.Tx) error {
		if err := tx.Get(ctx, oldKey).Err(); err == rdb.Nil {
			return store.ErrNotFound
		} else if err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe rdb.Pipeliner) error {
			pipe.Del(ctx, oldKey)
			pipe.Set(ctx, refreshPrefix+newHandle, payload, token.Lifetime)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txn, oldKey)
	if err == rdb.TxFailedErr {
		// Lost the race: the old handle was consumed concurrently.
		return store.ErrNotFound
	}
	if err == store.ErrNotFound {
		return err
	}
	if err != nil {
		return errors.Wrap(err, "redis.RefreshTokenStore.Rotate")
	}
	return nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, refreshPrefix+handle).Err(); err != nil {
		return errors.Wrap(err, "redis.RefreshTokenStore.Delete")
	}
	return nil
}

// ReferenceTokenStore persists reference access tokens in Redis.
type ReferenceTokenStore struct {
	client *rdb.Client
}

func NewReferenceTokenStore(client *rdb.Client) *ReferenceTokenStore {
	return &ReferenceTokenStore{client: client}
}

func (s *ReferenceTokenStore) Store(ctx context.Context, handle string, token *store.ReferenceToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "redis.ReferenceTokenStore.Store marshal")
	}
	if err := s.client.Set(ctx, referencePrefix+handle, payload, token.Lifetime).Err(); err != nil {
		return errors.Wrap(err, "redis.ReferenceTokenStore.Store set")
	}
	return nil
}

func (s *ReferenceTokenStore) Get(ctx context.Context, handle string) (*store.ReferenceToken, error) {
	payload, err := s.client.Get(ctx, referencePrefix+handle).Bytes()
	if err == rdb.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis.ReferenceTokenStore.Get")
	}
	var token store.ReferenceToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, errors.Wrap(err, "redis.ReferenceTokenStore.Get unmarshal")
	}
	return &token, nil
}

func (s *ReferenceTokenStore) Delete(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, referencePrefix+handle).Err(); err != nil {
		return errors.Wrap(err, "redis.ReferenceTokenStore.Delete")
	}
	return nil
}
