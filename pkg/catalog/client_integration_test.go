//go:build integration

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/movie-catalog/internal/testutil"
	"github.com/Sternrassler/movie-catalog/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func newRedisClient(t *testing.T, mock *testutil.MockCatalog, rdb redis.Cmdable) *Client {
	t.Helper()

	cfg := DefaultConfig("integration-token")
	cfg.BaseURL = mock.URL()
	cfg.Redis = rdb
	cfg.Retry = fastRetry()

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// TestCachedPageRevalidates tests the flow: cache miss, store, conditional request, 304.
func TestCachedPageRevalidates(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockCatalog(testutil.GenerateMovies(30), 20)
	defer mock.Close()
	mock.EnableETag(`"v1"`)

	c := newRedisClient(t, mock, rdb)
	ctx := context.Background()

	first, err := c.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}

	second, err := c.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}

	if mock.RequestCount() != 2 {
		t.Errorf("catalog requests = %d, want 2", mock.RequestCount())
	}
	if mock.ConditionalCount() != 1 {
		t.Errorf("Conditional requests = %d, want 1", mock.ConditionalCount())
	}
	if len(second.Results) != len(first.Results) || second.Results[0].ID != first.Results[0].ID {
		t.Error("304 response should serve the cached page")
	}
}

// TestFreshCacheSkipsServer tests that fresh entries never reach the server.
func TestFreshCacheSkipsServer(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockCatalog(testutil.GenerateMovies(5), 20)
	defer mock.Close()

	c := newRedisClient(t, mock, rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.FetchDetails(ctx, 2); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	if mock.RequestCount() != 1 {
		t.Errorf("catalog requests = %d, want 1", mock.RequestCount())
	}
}

// TestRateLimitBlock tests that requests are blocked while the window is exhausted.
func TestRateLimitBlock(t *testing.T) {
	rdb := setupRedis(t)

	mock := testutil.NewMockCatalog(testutil.GenerateMovies(5), 20)
	defer mock.Close()

	ctx := context.Background()
	state := ratelimit.State{
		Limit:      40,
		Remaining:  0,
		ResetAt:    time.Now().Add(time.Minute),
		LastUpdate: time.Now(),
	}
	data, _ := json.Marshal(state)
	if err := rdb.Set(ctx, ratelimit.RedisKeyState, data, time.Minute).Err(); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	c := newRedisClient(t, mock, rdb)

	_, err := c.FetchPage(ctx, 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("catalog requests = %d, want 0 (blocked)", mock.RequestCount())
	}
}
