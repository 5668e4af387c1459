package subscriptiontracker

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

func TestCloseCache(t *testing.T) {
	t.Run("redis connection is released", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := cache.New(t.Context(), config.Cache{
			Driver:       cache.DriverRedis,
			AddressRedis: mr.Addr(),
			DialTimeout:  time.Second,
			TimeoutRedis: time.Second,
		})
		require.NoError(t, err)

		require.NoError(t, closeCache(c))

		rc, ok := c.(*cache.Redis)
		require.True(t, ok)
		assert.ErrorIs(t, rc.Db.Ping(t.Context()).Err(), redis.ErrClosed)
	})

	t.Run("memory cache has nothing to close", func(t *testing.T) {
		assert.NoError(t, closeCache(cache.NewMemory(time.Minute)))
	})
}
