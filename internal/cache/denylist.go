package cache

import (
	"context"
	"time"
)

const denylistPrefix = "auth:denylist:"

// TokenDenylist records revoked access-token ids until the tokens would
// have expired anyway.
type TokenDenylist struct {
	cache *MultiLevelCache
}

func NewTokenDenylist(cache *MultiLevelCache) *TokenDenylist {
	return &TokenDenylist{cache: cache}
}

// Deny is a no-op for tokens that have already expired.
func (d *TokenDenylist) Deny(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.cache.Set(ctx, denylistPrefix+tokenID, true, ttl)
}

func (d *TokenDenylist) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	return d.cache.Exists(ctx, denylistPrefix+tokenID)
}
