package cache

import (
	"context"
	"testing"

	"example.com/backstage/services/laundry/config"

	"github.com/stretchr/testify/require"
)

func TestDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, c.Enabled())

	var out map[string]string
	require.ErrorIs(t, c.Get(context.Background(), "k", &out), ErrCacheDisabled)
	require.ErrorIs(t, c.Set(context.Background(), "k", "v", 0), ErrCacheDisabled)
	require.ErrorIs(t, c.Delete(context.Background(), "k"), ErrCacheDisabled)
	require.NoError(t, c.Close())
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *RedisCache
	require.False(t, c.Enabled())
}

func TestCacheKeys(t *testing.T) {
	require.Equal(t, "driver-location:ion", GetDriverLocationCacheKey("ion"))
}
