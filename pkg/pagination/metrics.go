package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pagination engine and loader coordination.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagination_batches_total",
		Help: "Completed batches by outcome (success, partial, failed, stale)",
	}, []string{"outcome"})

	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagination_pages_total",
		Help: "Page requests by result (ok, error)",
	}, []string{"result"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagination_batch_duration_seconds",
		Help:    "Time from batch start until both page requests completed",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	itemsAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_items_appended_total",
		Help: "Items appended to the accumulated list",
	})

	duplicatesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_duplicates_dropped_total",
		Help: "Items dropped because their id was already in the list",
	})

	offlineTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagination_offline_total",
		Help: "Loads skipped because the network was unreachable, by operation",
	}, []string{"operation"})

	loaderVisibleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagination_loader_visible_seconds",
		Help:    "How long the first-load indicator stayed visible",
		Buckets: []float64{1, 2, 3, 4, 5, 10, 30},
	})
)
