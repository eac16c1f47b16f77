package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums every series of the named family.
func counterValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
	}
	return total
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("openai", OutcomeSuccess, 200*time.Millisecond)
	m.RecordRequest("openai", OutcomeFailure, time.Second)
	m.RecordRequest("ollama", OutcomeCircuitOpen, 0)

	assert.Equal(t, 3.0, counterValue(t, m, "commitwise_provider_requests_total"))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRetry("deepseek")
	m.RecordRetry("deepseek")
	m.RecordChunks("deepseek", 4)
	m.RecordChunkFallback("deepseek", "rate_limited")
	m.RecordCandidates("deepseek", 3)
	m.RecordBreakerTransition("deepseek", 1, "CLOSED", "OPEN")

	assert.Equal(t, 2.0, counterValue(t, m, "commitwise_provider_retries_total"))
	assert.Equal(t, 4.0, counterValue(t, m, "commitwise_diff_chunks_total"))
	assert.Equal(t, 1.0, counterValue(t, m, "commitwise_chunk_fallbacks_total"))
	assert.Equal(t, 3.0, counterValue(t, m, "commitwise_candidates_total"))
	assert.Equal(t, 1.0, counterValue(t, m, "commitwise_circuit_breaker_state"))
	assert.Equal(t, 1.0, counterValue(t, m, "commitwise_circuit_breaker_transitions_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRequest("openai", OutcomeSuccess, time.Second)
		m.RecordRetry("openai")
		m.RecordChunks("openai", 2)
		m.RecordChunkFallback("openai", "prompt_too_large")
		m.RecordCandidates("openai", 1)
		m.RecordBreakerTransition("openai", 0, "HALF_OPEN", "CLOSED")
	})
	assert.NoError(t, m.WriteFile(filepath.Join(t.TempDir(), "metrics.prom")))
}

func TestMetrics_WriteFile(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("anthropic", OutcomeSuccess, 50*time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.Contains(text, `commitwise_provider_requests_total{outcome="success",provider="anthropic"} 1`), text)
	assert.Contains(t, text, "commitwise_provider_request_duration_seconds_bucket")
}

func TestMetrics_WriteFileEmptyPath(t *testing.T) {
	assert.NoError(t, NewMetrics().WriteFile(""))
}
