// Package telemetry collects provider metrics for a single commitwise run and
// optionally dumps them in the Prometheus text format.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeCircuitOpen = "circuit_open"
)

// Metrics holds all Prometheus metrics for provider calls.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	chunksTotal     *prometheus.CounterVec
	chunkFallbacks  *prometheus.CounterVec
	candidatesTotal *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	breakerChanges  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commitwise_provider_requests_total",
				Help: "Provider invocations by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commitwise_provider_request_duration_seconds",
				Help:    "Provider invocation latency including retries",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commitwise_provider_retries_total",
				Help: "Retry attempts scheduled after a failed call",
			},
			[]string{"provider"},
		),

		chunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commitwise_diff_chunks_total",
				Help: "Diff chunks sent to the provider",
			},
			[]string{"provider"},
		),

		chunkFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commitwise_chunk_fallbacks_total",
				Help: "Chunks re-split at a smaller budget after a rate limit or oversized prompt",
			},
			[]string{"provider", "reason"},
		),

		candidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commitwise_candidates_total",
				Help: "Commit message candidates returned to the caller",
			},
			[]string{"provider"},
		),

		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "commitwise_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"provider"},
		),

		breakerChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commitwise_circuit_breaker_transitions_total",
				Help: "Circuit breaker state transitions",
			},
			[]string{"provider", "from", "to"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.retriesTotal,
		m.chunksTotal,
		m.chunkFallbacks,
		m.candidatesTotal,
		m.breakerState,
		m.breakerChanges,
	)

	return m
}

// RecordRequest records one guarded provider invocation.
func (m *Metrics) RecordRequest(provider, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(provider, outcome).Inc()
	m.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRetry records a scheduled retry.
func (m *Metrics) RecordRetry(provider string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(provider).Inc()
}

// RecordChunks records how many pieces a diff was split into.
func (m *Metrics) RecordChunks(provider string, n int) {
	if m == nil {
		return
	}
	m.chunksTotal.WithLabelValues(provider).Add(float64(n))
}

// RecordChunkFallback records a piece being re-split.
func (m *Metrics) RecordChunkFallback(provider, reason string) {
	if m == nil {
		return
	}
	m.chunkFallbacks.WithLabelValues(provider, reason).Inc()
}

// RecordCandidates records the number of candidates returned.
func (m *Metrics) RecordCandidates(provider string, n int) {
	if m == nil {
		return
	}
	m.candidatesTotal.WithLabelValues(provider).Add(float64(n))
}

// RecordBreakerTransition updates the breaker gauge. States are passed as their
// numeric value and name so this package stays free of the errors package.
func (m *Metrics) RecordBreakerTransition(provider string, to int, fromName, toName string) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(provider).Set(float64(to))
	m.breakerChanges.WithLabelValues(provider, fromName, toName).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes all metrics to path in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
