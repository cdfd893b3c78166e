package rfcserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nwbridge/rfc-server-go/rfc"
)

// Metrics instruments generic-handler dispatch. Attach one to an
// installation via WithMetrics.
type Metrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// MetricsConfig configures NewMetrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "rfcserver").
	Namespace string

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// NewMetrics registers and returns dispatch metrics.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "rfcserver"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "dispatch",
			Name:      "calls_total",
			Help:      "Inbound calls dispatched through the generic handler.",
		}, []string{"function", "outcome"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "dispatch",
			Name:      "call_duration_seconds",
			Help:      "Handler execution time per inbound call.",
			Buckets:   cfg.Buckets,
		}, []string{"function"}),
	}
}

func (m *Metrics) observe(function string, code rfc.ResultCode, elapsed time.Duration) {
	if m == nil {
		return
	}
	if function == "" {
		function = "unknown"
	}
	m.callsTotal.WithLabelValues(function, code.String()).Inc()
	m.callDuration.WithLabelValues(function).Observe(elapsed.Seconds())
}
