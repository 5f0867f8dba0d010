package leaderboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetTopAggregatesBestPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.RecordScore(ctx, "alice", 80))
	require.NoError(t, store.RecordScore(ctx, "alice", 120))
	require.NoError(t, store.RecordScore(ctx, "bob", 100))

	top, err := store.GetTop(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Username: "alice", WPM: 120},
		{Username: "bob", WPM: 100},
	}, top)
}

func TestMemoryStore_GetTopLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.RecordScore(ctx, "a", 10))
	require.NoError(t, store.RecordScore(ctx, "b", 20))
	require.NoError(t, store.RecordScore(ctx, "c", 30))

	top, err := store.GetTop(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Username)
	assert.Equal(t, "b", top[1].Username)
}

// countingSource tracks how often reads hit the underlying store.
type countingSource struct {
	inner    Source
	getCalls atomic.Int32
}

func (c *countingSource) RecordScore(ctx context.Context, username string, wpm int) error {
	return c.inner.RecordScore(ctx, username, wpm)
}

func (c *countingSource) GetTop(ctx context.Context, n int) ([]Entry, error) {
	c.getCalls.Add(1)
	return c.inner.GetTop(ctx, n)
}

func TestCachedSource_ReadsAreCached(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{inner: NewMemoryStore()}
	require.NoError(t, src.RecordScore(ctx, "alice", 90))

	cached := NewCachedSource(src, time.Minute)

	first, err := cached.GetTop(ctx, 10)
	require.NoError(t, err)
	second, err := cached.GetTop(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.getCalls.Load(), "second read served from cache")
}

func TestCachedSource_WriteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{inner: NewMemoryStore()}
	cached := NewCachedSource(src, time.Minute)

	_, err := cached.GetTop(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, cached.RecordScore(ctx, "bob", 70))

	top, err := cached.GetTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, Entry{Username: "bob", WPM: 70}, top[0])
	assert.Equal(t, int32(2), src.getCalls.Load(), "write flushed the cached read")
}

func TestCachedSource_DistinctLimitsCachedSeparately(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{inner: NewMemoryStore()}
	require.NoError(t, src.RecordScore(ctx, "a", 10))
	require.NoError(t, src.RecordScore(ctx, "b", 20))

	cached := NewCachedSource(src, time.Minute)

	top1, err := cached.GetTop(ctx, 1)
	require.NoError(t, err)
	top2, err := cached.GetTop(ctx, 2)
	require.NoError(t, err)

	assert.Len(t, top1, 1)
	assert.Len(t, top2, 2)
	assert.Equal(t, int32(2), src.getCalls.Load())
}
