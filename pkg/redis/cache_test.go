package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewTierCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "alice", "premium"))
	v, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "premium", v)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewClientPing(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), mr.Addr(), "", 0, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Healthy(context.Background()))

	mr.Close()
	_, err = NewClient(context.Background(), mr.Addr(), "", 0, nil)
	assert.Error(t, err)
}
