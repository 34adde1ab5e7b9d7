// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SearchesPerformed prometheus.Counter
	TrendingServed    prometheus.Counter
	CallbacksHandled  prometheus.Counter
	BroadcastsSent    prometheus.Counter
	BroadcastsFailed  prometheus.Counter
	UpstreamErrors    *prometheus.CounterVec

	// Histograms (seconds)
	UpstreamDuration *prometheus.HistogramVec

	// Gauges
	KnownUsersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SearchesPerformed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_searches_total", Help: "Number of /search commands served"})
		TrendingServed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_trending_total", Help: "Number of /trending commands served"})
		CallbacksHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_callbacks_total", Help: "Number of inline button callbacks handled"})
		BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_broadcast_sent_total", Help: "Number of broadcast messages delivered"})
		BroadcastsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_broadcast_failed_total", Help: "Number of broadcast messages that failed to deliver"})
		UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_upstream_errors_total", Help: "Upstream API failures"}, []string{"upstream"})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "bot_upstream_duration_seconds", Help: "Upstream API call duration seconds", Buckets: prometheus.DefBuckets}, []string{"upstream"})
		KnownUsersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_known_users", Help: "Current number of known chat ids"})
	})
}

// SetKnownUsers records the current size of the user registry.
func SetKnownUsers(n int) {
	if KnownUsersGauge != nil {
		KnownUsersGauge.Set(float64(n))
	}
}

// ObserveUpstream records one upstream call: duration always, error counter when err != nil.
func ObserveUpstream(upstream string, start time.Time, err error) {
	if UpstreamDuration != nil {
		UpstreamDuration.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
	}
	if err != nil && UpstreamErrors != nil {
		UpstreamErrors.WithLabelValues(upstream).Inc()
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
