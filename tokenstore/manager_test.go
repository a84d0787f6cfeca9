package tokenstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-oauth-broker/token"
	"github.com/jrsteele09/go-oauth-broker/tokenstore"
	"github.com/jrsteele09/go-oauth-broker/tokenstore/memstore"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*memstore.MemStore
	failKey string
}

func (s failingStore) Set(ctx context.Context, key string, value []byte) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemStore.Set(ctx, key, value)
}

func sampleToken() token.Token {
	return token.Token{
		AccessToken:  "abc",
		RefreshToken: "r1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		Scope:        "read",
		IssuedAt:     time.Now().Truncate(time.Microsecond),
	}
}

func TestManager_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	m := tokenstore.NewManager(store)
	m.SetPrefix("client-1")

	_, found, err := m.Token(ctx)
	require.NoError(t, err)
	require.False(t, found)

	saved := sampleToken()
	require.NoError(t, m.SaveToken(ctx, saved))
	require.Equal(t, []string{"client-1clientToken", "client-1creationDate"}, store.Keys())

	loaded, found, err := m.Token(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, saved.Equal(loaded), "loaded %+v, saved %+v", loaded, saved)
	require.True(t, loaded.IsValid())

	t.Run("other prefix sees nothing", func(t *testing.T) {
		other := tokenstore.NewManager(store)
		other.SetPrefix("client-2")
		_, found, err := other.Token(ctx)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("remove deletes both keys", func(t *testing.T) {
		require.NoError(t, m.RemoveToken(ctx))
		require.Empty(t, store.Keys())
		_, found, err := m.Token(ctx)
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestManager_ExpiredTokenKeepsIssueDate(t *testing.T) {
	ctx := context.Background()
	m := tokenstore.NewManager(memstore.New())
	m.SetPrefix("c")

	old := sampleToken().WithIssuedAt(time.Now().Add(-2 * time.Hour).Truncate(time.Microsecond))
	require.NoError(t, m.SaveToken(ctx, old))

	loaded, found, err := m.Token(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, loaded.IsValid())
	require.True(t, loaded.IssuedAt.Equal(old.IssuedAt))
}

func TestManager_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no prefix", func(t *testing.T) {
		m := tokenstore.NewManager(memstore.New())
		require.ErrorIs(t, m.SaveToken(ctx, sampleToken()), tokenstore.ErrNoPrefix)
	})

	t.Run("date write failure fails the save", func(t *testing.T) {
		m := tokenstore.NewManager(failingStore{MemStore: memstore.New(), failKey: "ccreationDate"})
		m.SetPrefix("c")
		require.ErrorContains(t, m.SaveToken(ctx, sampleToken()), "disk full")
	})

	t.Run("token without date is ignored", func(t *testing.T) {
		store := memstore.New()
		tok := sampleToken()
		require.NoError(t, tokenstore.SetObject(ctx, store, "cclientToken", &tok))

		m := tokenstore.NewManager(store)
		m.SetPrefix("c")
		_, found, err := m.Token(ctx)
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestObjects(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	v := map[string]int{"a": 1}
	require.NoError(t, tokenstore.SetObject(ctx, store, "k", &v))

	got, err := tokenstore.GetObject[map[string]int](ctx, store, "k")
	require.NoError(t, err)
	require.Equal(t, v, *got)

	require.NoError(t, tokenstore.SetObject[map[string]int](ctx, store, "k", nil))
	_, err = tokenstore.GetObject[map[string]int](ctx, store, "k")
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
}
