package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments exported at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	BacktestsStarted   prometheus.Counter
	BacktestsCompleted *prometheus.CounterVec
	BacktestDuration   prometheus.Histogram
	BreakerScale       prometheus.Gauge
	LimitUtilization   *prometheus.GaugeVec
	ConnectedClients   prometheus.Gauge
}

// NewMetrics registers the application metrics on a private registry, keeping
// the default registry's Go runtime collectors out of the scrape.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BacktestsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "macro",
			Name:      "backtests_started_total",
			Help:      "Backtest runs accepted.",
		}),
		BacktestsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macro",
			Name:      "backtests_finished_total",
			Help:      "Backtest runs finished, labelled by terminal status.",
		}, []string{"status"}),
		BacktestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "macro",
			Name:      "backtest_duration_seconds",
			Help:      "Wall-clock duration of backtest runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		BreakerScale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "macro",
			Name:      "breaker_scale",
			Help:      "Position scale currently enforced by the drawdown breaker.",
		}),
		LimitUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "macro",
			Name:      "limit_utilization",
			Help:      "Risk limit utilization fraction by limit name.",
		}, []string{"limit"}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "macro",
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients.",
		}),
	}

	m.registry.MustRegister(
		m.BacktestsStarted,
		m.BacktestsCompleted,
		m.BacktestDuration,
		m.BreakerScale,
		m.LimitUtilization,
		m.ConnectedClients,
	)
	m.BreakerScale.Set(1)
	return m
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
