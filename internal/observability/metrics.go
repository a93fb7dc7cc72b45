// Package observability exports upstream request metrics to Prometheus.
package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"zarachat/internal/llmclient"
)

// PrometheusHooks records one observation per upstream request.
type PrometheusHooks struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// NewPrometheusHooks registers the upstream metrics on reg.
// A nil reg uses the default registerer, which is what /metrics serves.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusHooks{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zarachat",
			Name:      "upstream_requests_total",
			Help:      "Upstream provider requests by provider, mode and outcome.",
		}, []string{"provider", "stream", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zarachat",
			Name:      "upstream_request_duration_seconds",
			Help:      "Time until the upstream response headers (and, when not streaming, body) arrived.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "stream"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "zarachat",
			Name:      "upstream_requests_in_flight",
			Help:      "Upstream requests currently awaiting a response.",
		}, []string{"provider"}),
	}
}

// Hooks returns llmclient hooks bound to these metrics.
func (h *PrometheusHooks) Hooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestStart: h.onStart,
		OnRequestEnd:   h.onEnd,
	}
}

func (h *PrometheusHooks) onStart(ctx context.Context, info llmclient.RequestInfo) context.Context {
	h.inFlight.WithLabelValues(info.Provider).Inc()
	return ctx
}

func (h *PrometheusHooks) onEnd(_ context.Context, info llmclient.ResponseInfo) {
	stream := strconv.FormatBool(info.Stream)
	h.inFlight.WithLabelValues(info.Provider).Dec()
	h.requests.WithLabelValues(info.Provider, stream, statusLabel(info)).Inc()
	h.duration.WithLabelValues(info.Provider, stream).Observe(info.Duration.Seconds())
}

// statusLabel keeps cardinality low: the status code when one was received,
// otherwise "error" for transport failures.
func statusLabel(info llmclient.ResponseInfo) string {
	if info.StatusCode == 0 {
		if info.Err != nil {
			return "error"
		}
		return "unknown"
	}
	return strconv.Itoa(info.StatusCode)
}
