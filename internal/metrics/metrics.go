package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/i474232898/current-weather/internal/weather"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "current_weather_fetches_total",
			Help: "Total current weather fetches by addressing mode and outcome",
		},
		[]string{"provider", "mode", "outcome"},
	)

	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "current_weather_fetch_latency_seconds",
			Help:    "Current weather fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "mode"},
	)

	WatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "current_weather_watch_runs_total",
			Help: "Watch scheduler query runs by outcome",
		},
		[]string{"query", "outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "current_weather_breaker_state",
			Help: "Watch circuit breaker state per query (0 closed, 1 half-open, 2 open)",
		},
		[]string{"query"},
	)
)

// ObserveFetch records one fetch. kind is empty on success.
func ObserveFetch(provider string, mode weather.Mode, kind weather.Kind, elapsed time.Duration) {
	outcome := "ok"
	if kind != "" {
		outcome = string(kind)
	}
	FetchesTotal.WithLabelValues(provider, string(mode), outcome).Inc()
	FetchLatency.WithLabelValues(provider, string(mode)).Observe(elapsed.Seconds())
}
