package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairdaily/pairing-service/internal/cache"
	"github.com/pairdaily/pairing-service/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg), mr
}

func TestCycleLock(t *testing.T) {
	ctx := context.Background()
	c, _ := setupCache(t)

	ok, err := c.AcquireCycleLock(ctx, "2025-06-15", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// second acquisition for the same date fails
	ok, err = c.AcquireCycleLock(ctx, "2025-06-15", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// other dates are independent
	ok, err = c.AcquireCycleLock(ctx, "2025-06-16", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// releasing frees the date again
	require.NoError(t, c.ReleaseCycleLock(ctx, "2025-06-15"))
	ok, err = c.AcquireCycleLock(ctx, "2025-06-15", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCycleLockExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	ok, err := c.AcquireCycleLock(ctx, "2025-06-15", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// a crashed run only holds the lock until the TTL runs out
	mr.FastForward(2 * time.Minute)

	ok, err = c.AcquireCycleLock(ctx, "2025-06-15", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
