package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := c.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrMiss))

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	now = now.Add(30 * time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	type record struct {
		NIP  string `json:"nip"`
		Name string `json:"name"`
	}

	require.NoError(t, SetJSON(ctx, c, "registry:nip:1234563218", record{NIP: "1234563218", Name: "Firma"}, time.Hour))

	var got record
	require.NoError(t, GetJSON(ctx, c, "registry:nip:1234563218", &got))
	assert.Equal(t, "Firma", got.Name)

	require.NoError(t, c.Set(ctx, "broken", "{", time.Hour))
	assert.Error(t, GetJSON(ctx, c, "broken", &got))

	assert.True(t, errors.Is(GetJSON(ctx, c, "absent", &got), ErrMiss))
}

func TestNewWithoutAddressUsesMemory(t *testing.T) {
	c, err := New("", "", 0)
	require.NoError(t, err)
	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestMemoryCacheIncr(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "rl:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(30 * time.Second)
	got, err := c.Incr(ctx, "rl:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 4, got)

	now = now.Add(31 * time.Second)
	got, err = c.Incr(ctx, "rl:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)

	require.NoError(t, c.Set(ctx, "text", "abc", time.Minute))
	_, err = c.Incr(ctx, "text", time.Minute)
	assert.Error(t, err)
}

func TestMemoryCacheSweepDropsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	defer c.Close()
	c.now = func() time.Time { return now }

	for window := 0; window < 60; window++ {
		for ip := 0; ip < 100; ip++ {
			_, err := c.Incr(ctx, fmt.Sprintf("ratelimit:lookup:10.0.0.%d:%d", ip, window), time.Minute)
			require.NoError(t, err)
		}
		now = now.Add(time.Minute + time.Second)
	}
	require.NoError(t, c.Set(ctx, "registry:nip:1234563218", "{}", time.Hour))
	assert.Len(t, c.store, 6001)

	assert.Equal(t, 6000, c.sweep())
	assert.Len(t, c.store, 1)

	value, err := c.Get(ctx, "registry:nip:1234563218")
	require.NoError(t, err)
	assert.Equal(t, "{}", value)
}

func TestMemoryCacheGetKeepsReplacedEntry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	defer c.Close()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "key", "old", time.Minute))
	now = now.Add(2 * time.Minute)

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NotContains(t, c.store, "key")

	require.NoError(t, c.Set(ctx, "key", "new", time.Minute))
	value, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestMemoryCacheCloseStopsSweep(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-c.stop:
	default:
		t.Fatal("sweep still running after Close")
	}
}
