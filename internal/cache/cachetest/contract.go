// Package cachetest holds the behaviour every cache.Store must share.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/gqlboot/internal/cache"
)

// RunStoreContract exercises store against the cache.Store contract.
// The store should be empty when the suite starts.
func RunStoreContract(t *testing.T, store cache.Store) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + "-"

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "set-get"
		require.NoError(t, store.Set(ctx, key, []byte(`{"user":{"id":"1"}}`), 0))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"user":{"id":"1"}}`, string(got))
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "overwrite"
		require.NoError(t, store.Set(ctx, key, []byte("first"), 0))
		require.NoError(t, store.Set(ctx, key, []byte("second"), 0))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "delete"
		require.NoError(t, store.Set(ctx, key, []byte("v"), 0))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, cache.ErrNotFound)

		assert.NoError(t, store.Delete(ctx, key), "deleting a missing key should not fail")
	})

	t.Run("Returned Value Is A Copy", func(t *testing.T) {
		key := prefix + "copy"
		value := []byte("abc")
		require.NoError(t, store.Set(ctx, key, value, 0))
		value[0] = 'x'

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))

		got[1] = 'y'
		again, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})

	t.Run("Reset", func(t *testing.T) {
		k1, k2 := prefix+"reset-1", prefix+"reset-2"
		require.NoError(t, store.Set(ctx, k1, []byte("1"), 0))
		require.NoError(t, store.Set(ctx, k2, []byte("2"), time.Hour))

		require.NoError(t, store.Reset(ctx))

		_, err := store.Get(ctx, k1)
		assert.ErrorIs(t, err, cache.ErrNotFound)
		_, err = store.Get(ctx, k2)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})
}
