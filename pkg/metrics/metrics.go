// Package metrics exposes the Prometheus registry the module's metrics are
// registered with. Metrics are declared with promauto in the package that
// owns them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package uses via promauto.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics by package:
//
// pkg/catalog:
//   - catalog_requests_total{endpoint, status}
//   - catalog_request_duration_seconds{endpoint}
//   - catalog_errors_total{class}
//   - catalog_retries_total{error_class}
//   - catalog_retry_backoff_seconds{error_class}
//   - catalog_retry_exhausted_total{error_class}
//   - catalog_circuit_breaker_state{name}
//   - catalog_shared_requests_total
//
// pkg/cache:
//   - catalog_cache_hits_total, catalog_cache_misses_total
//   - catalog_cache_not_modified_total, catalog_cache_errors_total{operation}
//
// pkg/ratelimit:
//   - catalog_rate_limit_remaining
//   - catalog_rate_limit_blocks_total, catalog_rate_limit_throttles_total
//
// pkg/pagination:
//   - pagination_batches_total{outcome}
//   - pagination_pages_total{result}
//   - pagination_batch_duration_seconds
//   - pagination_items_appended_total, pagination_duplicates_dropped_total
//   - pagination_offline_total{operation}
//   - pagination_loader_visible_seconds
//
// pkg/search: search_requests_total{outcome}
// pkg/connectivity: connectivity_online, connectivity_transitions_total{state}
// pkg/favorites: favorites_changes_total{action}, favorites_store_errors_total{operation}
//
// Example queries:
//
//	# partial batch rate
//	sum(rate(pagination_batches_total{outcome="partial"}[5m])) / sum(rate(pagination_batches_total[5m]))
//
//	# P95 catalog latency
//	histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
