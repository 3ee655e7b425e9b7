// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayRequests counts relay invocations by outcome ("ok" or a failure kind)
	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cs_assistant",
		Name:      "relay_requests_total",
		Help:      "Relay requests by outcome.",
	}, []string{"outcome", "transport"})

	// RelayDuration observes end-to-end relay latency
	RelayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cs_assistant",
		Name:      "relay_duration_seconds",
		Help:      "End-to-end relay latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"transport"})

	// GeminiResponses counts upstream answers by HTTP status class
	GeminiResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cs_assistant",
		Name:      "gemini_responses_total",
		Help:      "Generative model responses by status class.",
	}, []string{"class"})

	// FAQEntries reports how many FAQ records went into the last prompt
	FAQEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cs_assistant",
		Name:      "faq_entries_in_prompt",
		Help:      "FAQ records embedded in the most recent system prompt.",
	})

	// BreakerOpen is 1 while the Gemini circuit breaker rejects calls
	BreakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cs_assistant",
		Name:      "gemini_breaker_open",
		Help:      "1 when the Gemini circuit breaker is open.",
	})

	// AuthEvents counts sign-up, sign-in, sign-out and verification outcomes
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cs_assistant",
		Name:      "auth_events_total",
		Help:      "Authentication events by type and result.",
	}, []string{"event", "result"})

	// StoredMessages counts persisted chat messages by role
	StoredMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cs_assistant",
		Name:      "stored_messages_total",
		Help:      "Chat messages written to the store.",
	}, []string{"role"})
)

// StatusClass buckets an HTTP status as "2xx", "4xx", "5xx" or "error" when no response arrived
func StatusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
