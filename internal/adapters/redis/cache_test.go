package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "jacow_reports/internal/adapters/redis"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	var got entry
	ok, err := c.Get(ctx, "stats:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "stats:1", entry{Name: "MOPA", Count: 3}, 60))
	assert.True(t, mr.Exists("jacow:stats:1"))

	ok, err = c.Get(ctx, "stats:1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{Name: "MOPA", Count: 3}, got)
	assert.Greater(t, mr.TTL("jacow:stats:1"), time.Duration(0))
}

func TestCache_Expires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "x"}, 10))
	mr.FastForward(11 * time.Second)

	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptValue(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set("jacow:bad", "{not json"))

	var got entry
	ok, err := c.Get(context.Background(), "bad", &got)
	assert.Error(t, err)
	assert.False(t, ok)
}
