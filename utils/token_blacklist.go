package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked tokens until their natural expiry.
type TokenBlacklist struct {
	rc  *redis.Client
	now func() time.Time

	mu  sync.RWMutex
	mem map[string]time.Time
}

// NewTokenBlacklist creates a TokenBlacklist. rc may be nil.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, now: time.Now, mem: map[string]time.Time{}}
}

// Revoke blacklists token until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rc.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
	}
	b.mu.Lock()
	b.mem[token] = expiresAt
	b.mu.Unlock()
	return nil
}

// IsRevoked checks if a token was revoked before natural expiration.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistKeyPrefix+token).Result()
		if err != nil {
			// Fail open so a Redis outage does not log everyone out.
			Sugar.Warnf("token blacklist lookup failed: %v", err)
			return false
		}
		return n > 0
	}

	b.mu.RLock()
	exp, ok := b.mem[token]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if b.now().After(exp) {
		b.mu.Lock()
		delete(b.mem, token)
		b.mu.Unlock()
		return false
	}
	return true
}
