// Package metrics provides Prometheus instruments for the playground server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat request outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Metrics holds all Prometheus instruments.
type Metrics struct {
	ChatRequestsTotal    *prometheus.CounterVec
	ChatChunksForwarded  prometheus.Counter
	ChatActiveStreams    prometheus.Gauge
	StoreOperationsTotal *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

var (
	instance *Metrics
	initOnce sync.Once
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	initOnce.Do(func() {
		instance = &Metrics{
			ChatRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "playground_chat_requests_total",
					Help: "Total chat relay requests by outcome",
				},
				[]string{"outcome"},
			),
			ChatChunksForwarded: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "playground_chat_chunks_forwarded_total",
					Help: "Total upstream chunks forwarded to clients",
				},
			),
			ChatActiveStreams: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "playground_chat_active_streams",
					Help: "Chat streams currently in flight",
				},
			),
			StoreOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "playground_store_operations_total",
					Help: "Total history store operations",
				},
				[]string{"operation", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "playground_http_request_duration_seconds",
					Help:    "Duration of HTTP requests",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})
	return instance
}

// StoreOp records one store operation result.
func (m *Metrics) StoreOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
}
