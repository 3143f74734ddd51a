package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewStore(client)
}

type friendEntry struct {
	ID string `json:"id"`
}

func TestCacheAside(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *[]friendEntry) func() error {
		return func() error {
			calls++
			*dest = []friendEntry{{ID: "b"}}
			return nil
		}
	}

	var first []friendEntry
	require.NoError(t, store.CacheAside(ctx, "friends", FriendsKey("a"), &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("friends:a"))

	var second []friendEntry
	require.NoError(t, store.CacheAside(ctx, "friends", FriendsKey("a"), &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, calls, "second lookup should be served from redis")
	assert.Equal(t, first, second)

	store.Invalidate(ctx, FriendsKey("a"))
	assert.False(t, mr.Exists("friends:a"))

	var third []friendEntry
	require.NoError(t, store.CacheAside(ctx, "friends", FriendsKey("a"), &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestCacheAside_FetchErrorIsNotCached(t *testing.T) {
	mr, store := newTestStore(t)
	var dest []friendEntry
	err := store.CacheAside(context.Background(), "friends", FriendsKey("x"), &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("friends:x"))
}

func TestCacheAside_RedisDownFallsBackToFetch(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	var dest []friendEntry
	err := store.CacheAside(context.Background(), "friends", FriendsKey("a"), &dest, time.Minute, func() error {
		dest = []friendEntry{{ID: "z"}}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "z", dest[0].ID)
}

func TestNilStore(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	assert.False(t, store.Enabled())

	found, err := store.GetJSON(ctx, "k", &[]friendEntry{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, store.SetJSON(ctx, "k", 1, time.Minute))
	store.Invalidate(ctx, "k")

	revoked, err := store.IsRevoked(ctx, "jti")
	assert.NoError(t, err)
	assert.False(t, revoked)
	assert.Error(t, store.RevokeToken(ctx, "jti", time.Minute))
}

func TestRevokeToken(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RevokeToken(ctx, "abc", time.Hour))
	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Hour, mr.TTL("blacklist:abc"))

	revoked, err = store.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestNewClient_URL(t *testing.T) {
	client, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	_ = client.Close()

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}
