// Package metrics exposes Prometheus instrumentation for the agent
// pipeline and cart.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopagent_commands_total",
			Help: "Agent commands sent, by outcome (ok, fallback)",
		},
		[]string{"outcome"},
	)

	commandDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopagent_command_duration_seconds",
			Help:    "Agent command round-trip time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopagent_dispatch_total",
			Help: "Dispatched agent responses by action tag",
		},
		[]string{"action"},
	)

	staleDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopagent_dispatch_stale_dropped_total",
			Help: "Responses discarded because a newer response was already dispatched",
		},
	)

	cartAdds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopagent_cart_adds_total",
			Help: "Items added to carts",
		},
	)

	eventListeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopagent_event_listeners",
			Help: "Connected same-document handoff listeners",
		},
	)

	initOnce sync.Once
)

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			commandsTotal,
			commandDuration,
			dispatchTotal,
			staleDropped,
			cartAdds,
			eventListeners,
		)
	})
}

// Handler returns an HTTP handler for Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCommand records one agent round trip.
func RecordCommand(fallback bool, duration time.Duration) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	commandsTotal.WithLabelValues(outcome).Inc()
	commandDuration.Observe(duration.Seconds())
}

// RecordDispatch records a dispatched response.
func RecordDispatch(action string) {
	if action == "" {
		action = "none"
	}
	dispatchTotal.WithLabelValues(action).Inc()
}

// RecordStaleDropped records a discarded out-of-order response.
func RecordStaleDropped() {
	staleDropped.Inc()
}

// RecordCartAdd records an item added to a cart.
func RecordCartAdd() {
	cartAdds.Inc()
}

// SetEventListeners sets the handoff listener gauge.
func SetEventListeners(n int) {
	eventListeners.Set(float64(n))
}
