package main

import (
	"testing"
	"time"

	"github.com/Sternrassler/movie-catalog/internal/testutil"
	"github.com/Sternrassler/movie-catalog/pkg/catalog"
)

func newMockCatalog(t *testing.T, n int) *testutil.MockCatalog {
	t.Helper()
	mock := testutil.NewMockCatalog(testutil.GenerateMovies(n), 20)
	t.Cleanup(mock.Close)
	return mock
}

func newTestClient(t *testing.T, mock *testutil.MockCatalog) *catalog.Client {
	t.Helper()

	cfg := catalog.DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.Retry = catalog.RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 2,
	}
	cfg.Breaker.Enabled = false

	c, err := catalog.New(cfg)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
