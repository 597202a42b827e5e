package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsCache(t *testing.T) {
	cache := NewCredentialsCache(2, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	key, err := CacheKey("twitter", "acct-1", "openid", nil)
	assert.NoError(t, err)
	expiresAt := now.Add(time.Minute)
	cache.Add(key, &Credentials{AccessToken: "at", ExpiresAt: &expiresAt})

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "at", got.AccessToken)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get(key)
	assert.False(t, ok, "expired credentials must not be served")
	assert.Equal(t, 0, cache.Len())
}

func TestCredentialsCache_Eviction(t *testing.T) {
	cache := NewCredentialsCache(1, time.Hour)

	cache.Add("a", &Credentials{AccessToken: "a"})
	cache.Add("b", &Credentials{AccessToken: "b"})
	cache.Add("c", nil)

	_, ok := cache.Get("a")
	assert.False(t, ok)
	got, ok := cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "b", got.AccessToken)

	cache.Remove("b")
	assert.Equal(t, 0, cache.Len())
}

func TestCacheKey(t *testing.T) {
	key := func(connection, accountID, scope string, parameters map[string]any) string {
		t.Helper()
		k, err := CacheKey(connection, accountID, scope, parameters)
		assert.NoError(t, err)
		return k
	}

	assert.NotEqual(t, key("twitter", "a", "openid profile", nil), key("twitter", "a", "openid", nil))
	assert.NotEqual(t, key("a", "bc", "d", nil), key("ab", "c", "d", nil))
	assert.NotEqual(t,
		key("twitter", "a", "openid", map[string]any{"audience": "https://api-a"}),
		key("twitter", "a", "openid", map[string]any{"audience": "https://api-b"}),
	)
	assert.NotEqual(t, key("twitter", "a", "openid", nil), key("twitter", "a", "openid", map[string]any{"device": "cli"}))
	assert.Equal(t,
		key("twitter", "a", "openid", map[string]any{"a": 1, "b": "x"}),
		key("twitter", "a", "openid", map[string]any{"b": "x", "a": 1}),
	)
	assert.Equal(t, key("twitter", "a", "openid", nil), key("twitter", "a", "openid", map[string]any{}))

	_, err := CacheKey("twitter", "a", "openid", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}
