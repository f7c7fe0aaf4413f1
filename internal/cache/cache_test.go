package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	c.Set(ctx, "k", &entry{Name: "a", Value: 1}, time.Minute)
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	got, ok := UnmarshalCacheValue[entry](v)
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	c.Set(ctx, "short", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
}

func TestUnmarshalCacheValue(t *testing.T) {
	v, ok := UnmarshalCacheValue[entry](`{"name":"b","value":2}`)
	require.True(t, ok)
	assert.Equal(t, 2, v.Value)

	v, ok = UnmarshalCacheValue[entry](entry{Name: "c"})
	require.True(t, ok)
	assert.Equal(t, "c", v.Name)

	_, ok = UnmarshalCacheValue[entry](nil)
	assert.False(t, ok)
	_, ok = UnmarshalCacheValue[entry]("not json")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	log := zap.NewNop()

	c, err := New(Options{Type: TypeInMemory}, log)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryCache{}, c)

	c, err = New(Options{Type: TypeNone}, log)
	require.NoError(t, err)
	c.Set(context.Background(), "k", 1, 0)
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)

	_, err = New(Options{Type: "memcached"}, log)
	assert.Error(t, err)

	_, err = New(Options{Type: TypeRedis}, log)
	assert.Error(t, err, "empty redis addr is rejected")
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("BILLOPTIMIZER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BILLOPTIMIZER_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(addr, "")
	require.NoError(t, err)
	c := NewRedisCache(client, zap.NewNop())
	defer c.Close()

	c.Set(ctx, "billoptimizer:test", &entry{Name: "r", Value: 3}, time.Minute)
	v, ok := c.Get(ctx, "billoptimizer:test")
	require.True(t, ok)
	got, ok := UnmarshalCacheValue[entry](v)
	require.True(t, ok)
	assert.Equal(t, 3, got.Value)

	c.Delete(ctx, "billoptimizer:test")
	_, ok = c.Get(ctx, "billoptimizer:test")
	assert.False(t, ok)
}
