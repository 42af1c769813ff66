package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EntryRepository remembers which contacts already entered which segment.
type EntryRepository interface {
	// SetNX stores key only if it is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisRepository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

func (r *RedisRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}
