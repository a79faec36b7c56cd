package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/gqlboot/internal/cache"
	"github.com/joestump/gqlboot/internal/cache/cachetest"
	"github.com/joestump/gqlboot/internal/cache/redis"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	cachetest.RunStoreContract(t, store)
}

func TestRedisStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "q", []byte("data"), time.Second))
	_, err := store.Get(ctx, "q")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "q")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestRedisStore_KeysUsePrefix(t *testing.T) {
	store, mr := newTestStore(t, redis.WithPrefix("lab07:"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "abc", []byte("1"), 0))
	assert.True(t, mr.Exists("lab07:abc"))
}

func TestRedisStore_ResetLeavesForeignKeys(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "keep"))
	for i := 0; i < 250; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("key-%d", i), []byte("x"), 0))
	}

	require.NoError(t, store.Reset(ctx))

	assert.True(t, mr.Exists("other:key"))
	assert.Len(t, mr.Keys(), 1)
}
