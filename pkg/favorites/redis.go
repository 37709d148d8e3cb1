package favorites

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the sorted set holding favorite ids.
const DefaultRedisKey = "catalog:favorites"

// RedisStore keeps favorites in a sorted set scored by the added time in
// unix milliseconds.
type RedisStore struct {
	redis redis.Cmdable
	key   string
}

// NewRedisStore creates a RedisStore. An empty key uses DefaultRedisKey.
func NewRedisStore(redisClient redis.Cmdable, key string) *RedisStore {
	if redisClient == nil {
		panic("redis client must not be nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{redis: redisClient, key: key}
}

// IDs implements Store.
func (s *RedisStore) IDs(ctx context.Context) ([]int, error) {
	members, err := s.redis.ZRevRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("invalid favorite id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsFavorite implements Store.
func (s *RedisStore) IsFavorite(ctx context.Context, id int) (bool, error) {
	err := s.redis.ZScore(ctx, s.key, strconv.Itoa(id)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check favorite %d: %w", id, err)
	}
	return true, nil
}

// Add implements Store.
func (s *RedisStore) Add(ctx context.Context, id int, at time.Time) (bool, error) {
	n, err := s.redis.ZAddNX(ctx, s.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: strconv.Itoa(id),
	}).Result()
	if err != nil {
		return false, fmt.Errorf("add favorite %d: %w", id, err)
	}
	return n > 0, nil
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, id int) (bool, error) {
	n, err := s.redis.ZRem(ctx, s.key, strconv.Itoa(id)).Result()
	if err != nil {
		return false, fmt.Errorf("remove favorite %d: %w", id, err)
	}
	return n > 0, nil
}
