package admin

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zekroTJA/timedmap"
)

const revokedTokenKeyPrefix = "kiosk:admin:revoked:"

// MemoryRevocations keeps revoked token ids until the token would have expired anyway.
type MemoryRevocations struct {
	revoked *timedmap.TimedMap
}

func NewMemoryRevocations(cleanup time.Duration) *MemoryRevocations {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryRevocations{revoked: timedmap.New(cleanup)}
}

func (m *MemoryRevocations) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	m.revoked.Set(jti, true, ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return m.revoked.Contains(jti), nil
}

func (m *MemoryRevocations) Close() {
	m.revoked.StopCleaner()
}

// RedisRevocations shares the revocation list between kiosk service instances.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

// RevokeToken marks jti as revoked; the key expires with the token.
func (r *RedisRevocations) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := r.client.Get(ctx, revokedTokenKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
