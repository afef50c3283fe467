// Package metrics exposes the daemon's Prometheus collectors. Metrics
// are entirely optional: the daemon only starts the HTTP listener that
// serves them when explicitly configured with a metrics address.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the daemon reports.
type Metrics struct {
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionsActive    prometheus.Gauge
	ClientsConnected  prometheus.Gauge

	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter

	ReplaySize prometheus.Histogram

	MessagesReceived *prometheus.CounterVec
	Errors           *prometheus.CounterVec

	Uptime    prometheus.Gauge
	startTime time.Time
}

// New registers and returns a Metrics bound to reg. Callers that don't
// want global-registry collisions across tests or multiple daemon
// instances in one process should pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_sessions_created_total",
			Help: "Total number of PTY sessions created.",
		}),
		SessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_sessions_destroyed_total",
			Help: "Total number of PTY sessions destroyed.",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sessiond_sessions_active",
			Help: "Number of sessions whose shell process is still running.",
		}),
		ClientsConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sessiond_clients_connected",
			Help: "Number of client connections currently open.",
		}),

		BytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_pty_bytes_read_total",
			Help: "Total bytes read from PTY masters across all sessions.",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessiond_pty_bytes_written_total",
			Help: "Total input bytes written to PTY masters across all sessions.",
		}),

		ReplaySize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessiond_replay_bytes",
			Help:    "Size in bytes of scrollback replayed on attach.",
			Buckets: []float64{0, 1024, 8192, 65536, 262144, 1048576, 8388608},
		}),

		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiond_messages_received_total",
			Help: "Total messages received from clients, by type.",
		}, []string{"type"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiond_errors_total",
			Help: "Total ERROR responses sent to clients, by code.",
		}, []string{"code"}),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sessiond_uptime_seconds",
			Help: "Seconds since the daemon started.",
		}),
	}

	return m
}

// RunUptimeUpdater updates the Uptime gauge once per second until stop
// is closed.
func (m *Metrics) RunUptimeUpdater(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-stop:
			return
		}
	}
}
