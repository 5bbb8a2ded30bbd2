package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "blacklist:"

// TokenBlacklist remembers revoked tokens until they would have expired.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	return b.client.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// MemoryBlacklist serves single-process deployments without redis. Entries
// expire with the token they revoke.
type MemoryBlacklist struct {
	cache *ristretto.Cache[string, struct{}]
}

func NewMemoryBlacklist() (*MemoryBlacklist, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryBlacklist{cache: cache}, nil
}

func (b *MemoryBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if !b.cache.SetWithTTL(token, struct{}{}, 1, ttl) {
		return errors.New("token revocation dropped by cache")
	}
	b.cache.Wait()
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	_, ok := b.cache.Get(token)
	return ok, nil
}

func (b *MemoryBlacklist) Close() {
	b.cache.Close()
}
