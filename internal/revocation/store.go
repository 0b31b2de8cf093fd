package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blacklist:"

// Store records revoked access tokens in Redis, keyed by the exact token
// string. Each key carries a TTL equal to the token's remaining lifetime, so
// entries vanish the moment the token would have expired anyway and no sweep
// job is needed.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past natural expiry; the verifier rejects it on its own.
		return nil
	}

	return s.client.Set(ctx, keyPrefix+token, "1", ttl).Err()
}

func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
