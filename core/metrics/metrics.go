// Package metrics holds the Prometheus collectors shared by the bot runtime.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cbrbot"

var (
	// UpdatesTotal counts inbound updates by kind (message, callback, other).
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Inbound Telegram updates by kind",
		},
		[]string{"kind"},
	)

	// LogLinesDropped counts log lines discarded because the async log queue was full.
	LogLinesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_dropped_total",
			Help:      "Log lines dropped by the async log writer",
		},
	)

	// HandlerPanicsTotal counts recovered handler panics.
	HandlerPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered by the middleware",
		},
	)

	// HandlerDuration tracks handler latency by handler name and status.
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Update handler latency",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"handler", "status"},
	)

	// MessagesSentTotal counts outbound messages by delivery status.
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages by delivery status",
		},
		[]string{"status"},
	)

	// RateFetchTotal counts upstream rate lookups by currency and status.
	RateFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_fetch_total",
			Help:      "Upstream exchange-rate lookups",
		},
		[]string{"currency", "status"},
	)

	// RateFetchDuration tracks upstream fetch latency.
	RateFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_fetch_duration_seconds",
			Help:      "Upstream exchange-rate fetch latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	// ConversionsTotal counts converter-mode requests by outcome (ok, invalid, unavailable, exit).
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Converter mode requests by outcome",
		},
		[]string{"outcome"},
	)

	// RateLimitedTotal counts updates dropped by the per-user rate limiter.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the rate limiter",
		},
		[]string{"kind"},
	)

	// ConverterTransitionsTotal counts chat mode changes by target state
	// (converter, idle). Sessions that expire in the store are not counted.
	ConverterTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "converter_transitions_total",
			Help:      "Chat mode changes by target state",
		},
		[]string{"to"},
	)
)

// ObserveHandler records a handler run.
func ObserveHandler(handler string, failed bool, took time.Duration) {
	status := "ok"
	if failed {
		status = "fail"
	}
	HandlerDuration.WithLabelValues(handler, status).Observe(took.Seconds())
}

// ObserveRateFetch records an upstream fetch.
func ObserveRateFetch(currency string, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "fail"
	}
	RateFetchTotal.WithLabelValues(currency, status).Inc()
	RateFetchDuration.Observe(took.Seconds())
}
