// Package metrics exposes engine counters and gauges to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the engine updates. One instance per
// process, registered on a single registry.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	OrdersTotal     *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	Equity          prometheus.Gauge
	Drawdown        prometheus.Gauge
	RiskScale       prometheus.Gauge
	BreakerTripped  prometheus.Gauge
	CycleDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// New builds and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portengine_cycles_total",
			Help: "Trading cycles executed",
		}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portengine_orders_total",
			Help: "Orders by side and status",
		}, []string{"side", "status"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portengine_rejections_total",
			Help: "Order rejections by reason",
		}, []string{"reason"}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portengine_equity",
			Help: "Current total portfolio equity",
		}),
		Drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portengine_drawdown",
			Help: "Current drawdown fraction from peak equity",
		}),
		RiskScale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portengine_risk_scale",
			Help: "Exposure multiplier applied by the risk overlays",
		}),
		BreakerTripped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portengine_breaker_tripped",
			Help: "1 while the trading circuit breaker is open",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portengine_cycle_duration_seconds",
			Help:    "Wall time per trading cycle",
			Buckets: prometheus.DefBuckets,
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CyclesTotal, m.OrdersTotal, m.RejectionsTotal,
		m.Equity, m.Drawdown, m.RiskScale, m.BreakerTripped,
		m.CycleDuration,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
