package lockserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the optional Prometheus surface alongside the wire-protocol
// .stats action (SPEC_FULL.md §4). It is pure observability: nothing in
// the acquire/release path reads it back. Grounded on
// ws_poc/internal/single/monitoring/metrics.go's registration style.
type Metrics struct {
	registry *prometheus.Registry

	Requests        prometheus.Counter
	LocksGranted    prometheus.Counter
	LocksRejected   prometheus.Counter
	LockCount       prometheus.GaugeFunc
	ReaperSweeps    prometheus.Counter
	ReaperEvictions prometheus.Counter
	ConnsRejected   prometheus.Counter
}

// NewMetrics registers and returns the counter/gauge set. lockCountFunc is
// called on each scrape to read the registry's current size.
func NewMetrics(lockCountFunc func() float64) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcpnetlock_requests_total",
			Help: "Total number of requests accepted.",
		}),
		LocksGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcpnetlock_locks_granted_total",
			Help: "Total number of lock acquisitions granted.",
		}),
		LocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcpnetlock_locks_rejected_total",
			Help: "Total number of lock acquisitions rejected due to contention.",
		}),
		ReaperSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcpnetlock_reaper_sweeps_total",
			Help: "Total number of reaper sweeps performed.",
		}),
		ReaperEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcpnetlock_reaper_evictions_total",
			Help: "Total number of idle lock entries evicted by the reaper.",
		}),
		ConnsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcpnetlock_connections_rejected_total",
			Help: "Total number of connections rejected by the admission rate limiter.",
		}),
	}
	m.LockCount = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tcpnetlock_lock_count",
		Help: "Current number of registered lock entries.",
	}, lockCountFunc)

	reg.MustRegister(
		m.Requests,
		m.LocksGranted,
		m.LocksRejected,
		m.LockCount,
		m.ReaperSweeps,
		m.ReaperEvictions,
		m.ConnsRejected,
	)
	return m
}

// Handler returns the HTTP handler that serves these metrics in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
