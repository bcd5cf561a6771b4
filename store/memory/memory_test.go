package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/store/memory"
	"github.com/jrsteele09/go-identity-server/users"
)

func TestCodeStore_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("store then redeem returns the record once", func(t *testing.T) {
		s := memory.NewCodeStore()
		code := &store.AuthorizationCode{ClientID: "client", Subject: users.Principal{Subject: "1"}}
		require.NoError(t, s.Store(ctx, "handle", code))

		got, err := s.Redeem(ctx, "handle")
		require.NoError(t, err)
		require.Equal(t, "client", got.ClientID)

		_, err = s.Redeem(ctx, "handle")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown handle", func(t *testing.T) {
		s := memory.NewCodeStore()
		_, err := s.Redeem(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent redemptions succeed exactly once", func(t *testing.T) {
		s := memory.NewCodeStore()
		require.NoError(t, s.Store(ctx, "contested", &store.AuthorizationCode{ClientID: "client"}))

		const attempts = 50
		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Redeem(ctx, "contested")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		won := 0
		for err := range results {
			if err == nil {
				won++
			} else {
				require.ErrorIs(t, err, store.ErrNotFound)
			}
		}
		require.Equal(t, 1, won)
	})
}

func TestRefreshTokenStore_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation swaps handles", func(t *testing.T) {
		s := memory.NewRefreshTokenStore()
		token := &store.RefreshToken{ClientID: "client", Lifetime: time.Hour, CreatedAt: time.Now()}
		require.NoError(t, s.Store(ctx, "old", token))

		require.NoError(t, s.Rotate(ctx, "old", "new", token))

		_, err := s.Get(ctx, "old")
		require.ErrorIs(t, err, store.ErrNotFound)

		got, err := s.Get(ctx, "new")
		require.NoError(t, err)
		require.Equal(t, "client", got.ClientID)
	})

	t.Run("rotating a consumed handle fails", func(t *testing.T) {
		s := memory.NewRefreshTokenStore()
		token := &store.RefreshToken{ClientID: "client"}
		require.NoError(t, s.Store(ctx, "old", token))
		require.NoError(t, s.Rotate(ctx, "old", "new1", token))

		err := s.Rotate(ctx, "old", "new2", token)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Get(ctx, "new2")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent rotations succeed exactly once", func(t *testing.T) {
		s := memory.NewRefreshTokenStore()
		token := &store.RefreshToken{ClientID: "client"}
		require.NoError(t, s.Store(ctx, "contested", token))

		const attempts = 50
		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				results <- s.Rotate(ctx, "contested", store.NewHandle(), token)
			}(i)
		}
		wg.Wait()
		close(results)

		won := 0
		for err := range results {
			if err == nil {
				won++
			} else {
				require.ErrorIs(t, err, store.ErrNotFound)
			}
		}
		require.Equal(t, 1, won)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s := memory.NewRefreshTokenStore()
		require.NoError(t, s.Store(ctx, "h", &store.RefreshToken{ClientID: "client"}))

		first, err := s.Get(ctx, "h")
		require.NoError(t, err)
		first.ClientID = "mutated"

		second, err := s.Get(ctx, "h")
		require.NoError(t, err)
		require.Equal(t, "client", second.ClientID)
	})
}

func TestReferenceTokenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("store get delete", func(t *testing.T) {
		s := memory.NewReferenceTokenStore(time.Minute)
		token := &store.ReferenceToken{ClientID: "client", Lifetime: time.Hour, CreatedAt: time.Now()}
		require.NoError(t, s.Store(ctx, "h", token))

		got, err := s.Get(ctx, "h")
		require.NoError(t, err)
		require.Equal(t, "client", got.ClientID)

		require.NoError(t, s.Delete(ctx, "h"))
		_, err = s.Get(ctx, "h")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("entries expire with the token lifetime", func(t *testing.T) {
		s := memory.NewReferenceTokenStore(time.Minute)
		token := &store.ReferenceToken{ClientID: "client", Lifetime: 10 * time.Millisecond, CreatedAt: time.Now()}
		require.NoError(t, s.Store(ctx, "h", token))

		time.Sleep(30 * time.Millisecond)
		_, err := s.Get(ctx, "h")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestExpiry(t *testing.T) {
	now := time.Now()

	t.Run("code expiry is monotonic in time", func(t *testing.T) {
		code := &store.AuthorizationCode{CreatedAt: now}
		require.False(t, code.Expired(now, 5*time.Minute))
		require.False(t, code.Expired(now.Add(5*time.Minute), 5*time.Minute))
		require.True(t, code.Expired(now.Add(5*time.Minute+time.Second), 5*time.Minute))
	})

	t.Run("refresh token expiry", func(t *testing.T) {
		token := &store.RefreshToken{CreatedAt: now, Lifetime: time.Hour}
		require.False(t, token.Expired(now.Add(59*time.Minute)))
		require.True(t, token.Expired(now.Add(61*time.Minute)))
	})
}
