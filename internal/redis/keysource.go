package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sequenceKey = "charge-gateway:idempotency:seq"

// KeySource synthesizes idempotency keys from a Redis-held sequence, so the
// counter component survives process restarts. Opt-in: deployments without
// Redis fall back to the in-process counter source.
type KeySource struct {
	client  *redis.Client
	timeout time.Duration
}

func NewKeySource(client *redis.Client) *KeySource {
	return &KeySource{client: client, timeout: 2 * time.Second}
}

// NextKey increments the shared sequence and stamps it with a random suffix.
func (s *KeySource) NextKey() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return "", fmt.Errorf("increment idempotency sequence: %w", err)
	}
	return fmt.Sprintf("chg_%d_%s", n, uuid.NewString()[:8]), nil
}

// Ping reports whether Redis is reachable, for the health endpoint.
func (s *KeySource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
