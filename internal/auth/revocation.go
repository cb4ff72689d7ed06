package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// NoExpiryRevocationTTL bounds how long a revoked token without an expiry
// stays on the list.
const NoExpiryRevocationTTL = 30 * 24 * time.Hour

// Revocations wraps Redis for the list of tokens revoked before expiry.
type Revocations struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb, now: time.Now}
}

func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// Revoke marks token as unusable until it would have expired anyway.
func (s *Revocations) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := NoExpiryRevocationTTL
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	return s.rdb.Set(ctx, revocationKey(token), 1, ttl).Err()
}

// IsRevoked reports whether token was revoked.
func (s *Revocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revocationKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
