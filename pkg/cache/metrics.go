package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks cache hits by freshness ("fresh", "stale")
	Hits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"state"},
	)

	// Misses tracks cache misses
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
	)

	// NotModified tracks successful revalidations (304 responses)
	NotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_not_modified_total",
			Help: "Total number of 304 Not Modified revalidations",
		},
	)

	// Errors tracks cache operation errors
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
