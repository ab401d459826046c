package github

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	cache, err := OpenUserCache(path, time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get("octocat")
	assert.False(t, ok)

	cache.Put(&User{Login: "Octocat", Followers: 42, FetchedAt: time.Now()})

	u, ok := cache.Get("octocat")
	require.True(t, ok, "lookup must be case-insensitive")
	assert.Equal(t, 42, u.Followers)
}

func TestUserCacheExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	cache, err := OpenUserCache(path, time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	cache.Put(&User{Login: "stale", FetchedAt: time.Now().Add(-2 * time.Minute)})

	_, ok := cache.Get("stale")
	assert.False(t, ok, "entries older than the TTL are misses")
}

func TestBackoffBounded(t *testing.T) {
	for attempt := 1; attempt <= 3; attempt++ {
		d := backoff(attempt)
		assert.GreaterOrEqual(t, d, baseBackoff/2)
		assert.Less(t, d, baseBackoff<<attempt)
	}
}
