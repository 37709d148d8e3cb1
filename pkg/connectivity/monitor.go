package connectivity

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	onlineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "connectivity_online",
		Help: "1 when the catalog host was reachable at the last check",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connectivity_transitions_total",
		Help: "Reachability transitions by new state",
	}, []string{"state"})
)

// MonitorConfig holds Monitor configuration.
type MonitorConfig struct {
	// URL probed with HEAD requests. Any HTTP response counts as reachable.
	URL string

	// Interval between checks.
	Interval time.Duration

	// Timeout per check.
	Timeout time.Duration
}

// DefaultMonitorConfig returns the default configuration for url.
func DefaultMonitorConfig(url string) MonitorConfig {
	return MonitorConfig{
		URL:      url,
		Interval: 10 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// Monitor polls a URL in the background and caches the result.
// It reports offline until the first check completes.
type Monitor struct {
	config    MonitorConfig
	client    *http.Client
	connected atomic.Bool
	logger    zerolog.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Monitor{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.With().Str("component", "connectivity").Logger(),
	}
}

// IsConnected implements Probe.
func (m *Monitor) IsConnected() bool {
	return m.connected.Load()
}

// Start checks once synchronously, then keeps checking until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)

	go func() {
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Check probes the URL once, stores and returns the result.
func (m *Monitor) Check(ctx context.Context) bool {
	connected := m.probe(ctx)

	if prev := m.connected.Swap(connected); prev != connected {
		state := "offline"
		if connected {
			state = "online"
		}
		transitionsTotal.WithLabelValues(state).Inc()
		m.logger.Info().Str("state", state).Str("url", m.config.URL).Msg("Connectivity changed")
	}
	if connected {
		onlineGauge.Set(1)
	} else {
		onlineGauge.Set(0)
	}
	return connected
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.config.URL, nil)
	if err != nil {
		m.logger.Warn().Err(err).Str("url", m.config.URL).Msg("Invalid probe request")
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Probe failed")
		return false
	}
	resp.Body.Close()
	return true
}
