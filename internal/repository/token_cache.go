package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nordhen/credgate/internal/service"
)

const tokenKeyPrefix = "token_"

type tokenCache struct {
	rdb *redis.Client
}

// NewTokenCache stores access tokens keyed by credential hash. Entries are
// JSON so the debug surface can expose expiry without a second lookup.
func NewTokenCache(rdb *redis.Client) service.TokenCache {
	return &tokenCache{rdb: rdb}
}

func tokenKey(credHash string) string {
	return tokenKeyPrefix + credHash
}

func (c *tokenCache) GetToken(ctx context.Context, credHash string) (*service.TokenCacheEntry, error) {
	raw, err := c.rdb.Get(ctx, tokenKey(credHash)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token cache: %w", err)
	}

	var entry service.TokenCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// A corrupt entry is unusable; treat it as absent so the caller
		// refreshes and overwrites it.
		return nil, nil
	}
	return &entry, nil
}

func (c *tokenCache) SetToken(ctx context.Context, credHash string, entry *service.TokenCacheEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal token cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, tokenKey(credHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set token cache: %w", err)
	}
	return nil
}

func (c *tokenCache) DeleteToken(ctx context.Context, credHash string) error {
	if err := c.rdb.Del(ctx, tokenKey(credHash)).Err(); err != nil {
		return fmt.Errorf("delete token cache: %w", err)
	}
	return nil
}
