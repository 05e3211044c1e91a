package service

import (
	"context"
	"log/slog"
	"time"
)

// TokenBufferTime is the minimum remaining validity required before a token is
// considered usable rather than stale, and the margin subtracted from the
// cache TTL so entries expire before the token does.
const TokenBufferTime = 5 * time.Minute

// TokenCacheEntry is a cached access token for one credential hash.
type TokenCacheEntry struct {
	AccessToken string `json:"access_token"`
	ExpiryDate  int64  `json:"expiry_date"` // absolute ms epoch
	CachedAt    int64  `json:"cached_at"`   // absolute ms epoch
}

// Stale reports whether the entry is within the buffer window. Stale entries
// are treated as absent by readers.
func (e *TokenCacheEntry) Stale(now time.Time) bool {
	return e.ExpiryDate-now.UnixMilli() <= TokenBufferTime.Milliseconds()
}

// TokenCache stores per-credential access tokens in the shared store.
// Implementations key by credential hash.
type TokenCache interface {
	// GetToken returns (nil, nil) when the key is absent.
	GetToken(ctx context.Context, credHash string) (*TokenCacheEntry, error)
	SetToken(ctx context.Context, credHash string, entry *TokenCacheEntry, ttl time.Duration) error
	DeleteToken(ctx context.Context, credHash string) error
}

// tokenCacheTTL derives the store TTL from the token expiry: the remaining
// lifetime minus the buffer. Non-positive means not worth caching.
func tokenCacheTTL(expiryDate int64, now time.Time) time.Duration {
	remaining := time.Duration(expiryDate-now.UnixMilli()) * time.Millisecond
	return remaining - TokenBufferTime
}

// writeTokenCache caches an access token, skipping writes for tokens already
// too close to expiry. Store failures are logged and swallowed: a token that
// is valid in memory must not be discarded just because caching it failed.
func writeTokenCache(ctx context.Context, cache TokenCache, credHash, accessToken string, expiryDate int64) {
	now := time.Now()
	ttl := tokenCacheTTL(expiryDate, now)
	if ttl <= 0 {
		return
	}

	entry := &TokenCacheEntry{
		AccessToken: accessToken,
		ExpiryDate:  expiryDate,
		CachedAt:    now.UnixMilli(),
	}
	if err := cache.SetToken(ctx, credHash, entry, ttl); err != nil {
		slog.Warn("token_cache_write_failed", "cred_hash", credHash, "error", err)
	}
}
