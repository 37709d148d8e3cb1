package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testStores() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis":  func(t *testing.T) Store { return NewRedisStore(setupTestRedis(t), "") },
	}
}

func TestStore_Contract(t *testing.T) {
	base := time.Date(2025, 10, 22, 9, 0, 0, 0, time.UTC)

	for name, newStore := range testStores() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			ids, err := store.IDs(ctx)
			require.NoError(t, err)
			assert.Empty(t, ids)

			added, err := store.Add(ctx, 278, base)
			require.NoError(t, err)
			assert.True(t, added)

			added, err = store.Add(ctx, 278, base.Add(time.Hour))
			require.NoError(t, err)
			assert.False(t, added, "re-adding must be a no-op")

			_, err = store.Add(ctx, 238, base.Add(time.Minute))
			require.NoError(t, err)
			_, err = store.Add(ctx, 424, base.Add(2*time.Minute))
			require.NoError(t, err)

			ids, err = store.IDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int{424, 238, 278}, ids, "newest first")

			fav, err := store.IsFavorite(ctx, 238)
			require.NoError(t, err)
			assert.True(t, fav)

			removed, err := store.Remove(ctx, 238)
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = store.Remove(ctx, 238)
			require.NoError(t, err)
			assert.False(t, removed)

			fav, err = store.IsFavorite(ctx, 238)
			require.NoError(t, err)
			assert.False(t, fav)
		})
	}
}

func TestNewRedisStore_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewRedisStore(nil, "") })
}
