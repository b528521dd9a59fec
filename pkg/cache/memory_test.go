package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ProjectID int64    `json:"project_id"`
	Names     []string `json:"names"`
}

func TestMemoryCache_RoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "snapshot:1", payload{ProjectID: 1, Names: []string{"a", "b"}}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "snapshot:1", &got))
	assert.Equal(t, payload{ProjectID: 1, Names: []string{"a", "b"}}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "raw", "plain", 0))
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "plain", s)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Zero(t, mc.Len())
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, key := range []string{"project:1:a", "project:1:b", "project:12:a", "project:2:a"} {
		require.NoError(t, mc.Set(ctx, key, "x", time.Minute))
	}

	require.NoError(t, mc.DeleteByPattern(ctx, "project:1:*"))

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "project:1:a", &s), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "project:1:b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "project:12:a", &s))
	assert.NoError(t, mc.Get(ctx, "project:2:a", &s))

	assert.Error(t, mc.DeleteByPattern(ctx, "project:["))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "a", "1", time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Hour))
	now = now.Add(time.Second)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "c", "3", time.Hour))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &s))
}

func TestMemoryCache_Lock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock:1"))
	ok, _ = mc.TryLock(ctx, "lock:1", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCache_ReadsThroughAndInvalidatesBothLayers(t *testing.T) {
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()
	ctx := context.Background()

	// written only to the shared layer, as another replica would
	require.NoError(t, remote.Set(ctx, "project:7:x", payload{ProjectID: 7}, time.Hour))

	var got payload
	require.NoError(t, lc.Get(ctx, "project:7:x", &got))
	assert.Equal(t, int64(7), got.ProjectID)
	assert.Equal(t, 1, lc.memCache.Len(), "a remote hit fills L1")

	require.NoError(t, lc.DeleteByPattern(ctx, "project:7:*"))
	assert.ErrorIs(t, lc.Get(ctx, "project:7:x", &got), ErrCacheMiss)
}

func TestMemoryCache_Counters(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(1))
	defer mc.Close()
	ctx := context.Background()

	n, err := mc.Counter(ctx, "gen:7")
	require.NoError(t, err)
	assert.Zero(t, n)

	for want := int64(1); want <= 3; want++ {
		n, err = mc.Incr(ctx, "gen:7")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// counters survive eviction and pattern deletes
	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, mc.DeleteByPattern(ctx, "gen:*"))
	n, err = mc.Counter(ctx, "gen:7")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemoryConfig_Options(t *testing.T) {
	cfg := defaultMemoryConfig()
	WithMemoryCleanup(time.Second)(&cfg)
	WithMemoryMaxSize(0)(&cfg)
	assert.Equal(t, MemoryConfig{MaxSize: 1000, CleanupInterval: time.Second}, cfg)

	WithMemoryCleanup(0)(&cfg)
	assert.Equal(t, time.Second, cfg.CleanupInterval, "zero keeps the current interval")

	mc := NewMemoryCache(WithMemoryCleanup(10 * time.Millisecond))
	defer mc.Close()
	now := time.Now()
	mc.mu.Lock()
	mc.data["old"] = &memoryItem{data: []byte("x"), expireAt: now.Add(-time.Second), lastUsed: now}
	mc.mu.Unlock()
	assert.Eventually(t, func() bool { return mc.Len() == 0 }, time.Second, 5*time.Millisecond,
		"the sweeper runs on the configured interval")
}

func TestLayeredCache_CountersSkipMemory(t *testing.T) {
	remote := NewMemoryCache()
	defer remote.Close()
	lc := NewLayeredCache(remote, WithLayeredMemory(WithMemoryMaxSize(10)))
	defer lc.Close()
	ctx := context.Background()

	n, err := lc.Incr(ctx, "gen:7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// another replica bumps the shared counter
	_, err = remote.Incr(ctx, "gen:7")
	require.NoError(t, err)

	n, err = lc.Counter(ctx, "gen:7")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, lc.memCache.Len())
}

func TestNopCache(t *testing.T) {
	var c Service = NopCache{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	var s string
	assert.ErrorIs(t, c.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "project:42:*", BuildPattern(GenerateKey("project", "42")))
	assert.Equal(t, "snapshot:42:2024-02-01", GenerateKeyWithParams("snapshot", 42, "2024-02-01"))
	assert.Len(t, HashKey("manager=Anna"), 32)
}
