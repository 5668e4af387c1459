package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := InitServer(context.Background(), config.Cache{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func implementations(t *testing.T) map[string]Cache {
	r, _ := setupRedis(t)
	return map[string]Cache{
		"redis":  r,
		"memory": NewMemory(time.Minute),
	}
}

func TestSetAndGet(t *testing.T) {
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			expected := testStruct{Name: "Alice", Age: 30}
			require.NoError(t, c.Set(t.Context(), "user:1", expected, time.Minute))

			var actual testStruct
			found, err := c.Get(t.Context(), "user:1", &actual)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, expected, actual)
		})
	}
}

func TestGetNotFound(t *testing.T) {
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			var out testStruct
			found, err := c.Get(t.Context(), "no_such_key", &out)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestInvalidate(t *testing.T) {
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			owner := "0b7c7a52-6c6e-4a3e-9d55-5b8e4f1c2a10"
			require.NoError(t, c.Set(ctx, OwnerKey(owner, "all"), "a", time.Minute))
			require.NoError(t, c.Set(ctx, OwnerKey(owner, "active:10:0"), "b", time.Minute))
			require.NoError(t, c.Set(ctx, OwnerKey("other", "all"), "c", time.Minute))
			require.NoError(t, c.Set(ctx, "plain", "d", time.Minute))
			require.NoError(t, c.Set(ctx, GenerationKey(owner), "g1", time.Minute))

			require.NoError(t, c.Invalidate(ctx, OwnerPrefix(owner), "plain"))

			var out string
			for _, key := range []string{OwnerKey(owner, "all"), OwnerKey(owner, "active:10:0"), "plain"} {
				found, err := c.Get(ctx, key, &out)
				require.NoError(t, err)
				assert.False(t, found, key)
			}

			found, err := c.Get(ctx, OwnerKey("other", "all"), &out)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "c", out)

			found, err = c.Get(ctx, GenerationKey(owner), &out)
			require.NoError(t, err)
			assert.True(t, found, "generation survives owner invalidation")
			assert.Equal(t, "g1", out)
		})
	}
}

func TestRedisGetInvalidJSON(t *testing.T) {
	c, _ := setupRedis(t)

	err := c.Db.Set(context.Background(), "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out testStruct
	found, err := c.Get(t.Context(), "bad", &out)
	require.Error(t, err)
	assert.False(t, found)
}

func TestRedisExpiration(t *testing.T) {
	c, mr := setupRedis(t)

	require.NoError(t, c.Set(t.Context(), "short", "v", time.Second))
	mr.FastForward(2 * time.Second)

	var out string
	found, err := c.Get(t.Context(), "short", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	c, err := New(t.Context(), config.Cache{Driver: DriverMemory, TTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New(t.Context(), config.Cache{Driver: "memcached"})
	require.Error(t, err)
}
