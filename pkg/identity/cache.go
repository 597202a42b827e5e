package identity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 100
	defaultCacheTTL  = 1 * time.Hour
)

// CredentialsCache keeps recently issued credentials. Entries leave the cache when the TTL
// elapses or when the credentials themselves expire, whichever comes first.
type CredentialsCache struct {
	lru *expirable.LRU[string, *Credentials]
	now func() time.Time
}

func NewCredentialsCache(size int, ttl time.Duration) *CredentialsCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CredentialsCache{
		lru: expirable.NewLRU[string, *Credentials](size, nil, ttl),
		now: time.Now,
	}
}

// CacheKey identifies credentials issued for one account on one connection, scope and set
// of token exchange parameters. Parameters are encoded as JSON, which orders map keys.
func CacheKey(connection, accountID, scope string, parameters map[string]any) (string, error) {
	if len(parameters) == 0 {
		parameters = nil
	}
	encoded, err := json.Marshal(parameters)
	if err != nil {
		return "", fmt.Errorf("encode cache key parameters: %w", err)
	}
	return strings.Join([]string{connection, accountID, scope, string(encoded)}, "\x00"), nil
}

func (c *CredentialsCache) Get(key string) (*Credentials, bool) {
	credentials, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if credentials.Expired(c.now()) {
		c.lru.Remove(key)
		return nil, false
	}
	return credentials, true
}

func (c *CredentialsCache) Add(key string, credentials *Credentials) {
	if credentials == nil {
		return
	}
	c.lru.Add(key, credentials)
}

func (c *CredentialsCache) Remove(key string) {
	c.lru.Remove(key)
}

func (c *CredentialsCache) Len() int {
	return c.lru.Len()
}
