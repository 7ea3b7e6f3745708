// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Ring metrics collector. Counts every operation outcome per ring and tracks
// occupancy, exported through Prometheus and as a plain snapshot map.

package control

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/hioload-ring/api"
	"github.com/momentics/hioload-ring/core/concurrency"
)

// Ensure compile-time interface compliance.
var _ concurrency.Observer = (*RingMetrics)(nil)

// RingMetrics implements concurrency.Observer.
type RingMetrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
	length   *prometheus.GaugeVec

	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewRingMetrics creates collectors and registers them on a fresh registry.
func NewRingMetrics() (*RingMetrics, error) {
	m := &RingMetrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "ring",
			Name:      "operations_total",
			Help:      "Ring operations by outcome status.",
		}, []string{"ring", "op", "status"}),
		length: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hioload",
			Subsystem: "ring",
			Name:      "elements",
			Help:      "Elements currently stored in the ring.",
		}, []string{"ring"}),
		metrics: make(map[string]any),
	}
	for _, c := range []prometheus.Collector{m.ops, m.length} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register ring metrics: %w", err)
		}
	}
	return m, nil
}

// Observe records one operation outcome.
func (m *RingMetrics) Observe(ring string, op concurrency.Op, st api.Status, length int) {
	m.ops.WithLabelValues(ring, string(op), st.String()).Inc()
	m.length.WithLabelValues(ring).Set(float64(length))

	key := fmt.Sprintf("%s.%s.%s", ring, op, st)
	m.mu.Lock()
	n, _ := m.metrics[key].(int64)
	m.metrics[key] = n + 1
	m.metrics[ring+".len"] = length
	m.updated = time.Now()
	m.mu.Unlock()
}

// Registry exposes the underlying Prometheus registry.
func (m *RingMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *RingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GetSnapshot returns a copy of the counters keyed "<ring>.<op>.<status>"
// plus "<ring>.len".
func (m *RingMetrics) GetSnapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.metrics))
	for k, v := range m.metrics {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last observation.
func (m *RingMetrics) Updated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}
