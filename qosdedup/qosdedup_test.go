package qosdedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSeenMarksDuplicate(t *testing.T) {
	c := NewCache(10, 0)
	now := time.Unix(1000, 0)

	require.False(t, c.Seen(42, now))
	require.True(t, c.Seen(42, now))
	assert.Equal(t, 1, c.Len())
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewCache(2, 0)
	now := time.Unix(1000, 0)

	require.False(t, c.Seen(1, now))
	require.False(t, c.Seen(2, now))
	require.False(t, c.Seen(3, now)) // evicts 1

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Seen(1, now), "1 was evicted, so it should look fresh again")
}

func TestCacheRemove(t *testing.T) {
	c := NewCache(10, 0)
	now := time.Unix(1000, 0)

	c.Seen(7, now)
	c.Remove(7)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Seen(7, now))
}

func TestCacheSweepRemovesExpired(t *testing.T) {
	c := NewCache(10, 30*time.Second)
	start := time.Unix(1000, 0)

	c.Seen(1, start)
	c.Seen(2, start.Add(20*time.Second))

	removed := c.Sweep(start.Add(40 * time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestCacheSweepNoopWithoutTTL(t *testing.T) {
	c := NewCache(10, 0)
	now := time.Unix(1000, 0)

	c.Seen(1, now)
	removed := c.Sweep(now.Add(time.Hour))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, c.Len())
}
