package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_orders_total",
		Help: "orders sent to exchanges by result",
	}, []string{"exchange", "type", "result"})

	FallbackAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_order_fallback_attempts_total",
		Help: "order attempts inside the fallback chain",
	}, []string{"exchange", "attempt", "result"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "executor_exchange_request_seconds",
		Help:    "exchange REST latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"exchange", "endpoint"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_cache_lookups_total",
		Help: "client cache lookups by kind and outcome",
	}, []string{"exchange", "kind", "outcome"})

	MonitorIterations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_monitor_iterations_total",
		Help: "position monitor iterations per exchange",
	}, []string{"exchange", "result"})

	MonitorEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_monitor_events_total",
		Help: "events emitted by the monitor",
	}, []string{"kind"})

	TrackedPositions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "executor_tracked_positions",
		Help: "positions under supervision",
	}, []string{"exchange"})
)

func init() {
	prometheus.MustRegister(
		OrdersTotal,
		FallbackAttempts,
		RequestDuration,
		CacheLookups,
		MonitorIterations,
		MonitorEvents,
		TrackedPositions,
	)
}

// CacheHit: учёт попаданий клиента в кеш.
func CacheHit(exchange, kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheLookups.WithLabelValues(exchange, kind, outcome).Inc()
}

func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
