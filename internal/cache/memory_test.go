package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/gqlboot/internal/cache"
	"github.com/joestump/gqlboot/internal/cache/cachetest"
)

func TestMemory_Contract(t *testing.T) {
	cachetest.RunStoreContract(t, cache.NewMemory())
}

func TestMemory_StartsEmpty(t *testing.T) {
	assert.Equal(t, 0, cache.NewMemory().Len())
}

func TestMemory_TTLExpiration(t *testing.T) {
	m := cache.NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(m, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(59 * time.Second)
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.Equal(t, 0, m.Len(), "expired entry should be dropped on read")
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	m := cache.NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(m, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * 365 * time.Hour)

	_, err := m.Get(ctx, "k")
	assert.NoError(t, err)
}
