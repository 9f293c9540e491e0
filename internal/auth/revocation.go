package auth

import (
	"context"
	"time"

	"atomvideo/internal/cache"

	"github.com/redis/go-redis/v9"
)

// Revocations is the Redis-backed session blacklist. Entries expire with the token.
type Revocations struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRevocations returns a blacklist over rdb. With a nil client nothing is ever revoked.
func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb, now: time.Now}
}

// Enabled reports whether revocation is backed by Redis.
func (r *Revocations) Enabled() bool {
	return r != nil && r.rdb != nil
}

// Revoke blacklists jti until expiresAt. Already-expired tokens are ignored.
func (r *Revocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if !r.Enabled() || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, cache.TokenBlacklistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti has been blacklisted.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !r.Enabled() || jti == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, cache.TokenBlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
