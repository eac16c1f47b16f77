package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

const testAnthropicKey = "sk-ant-REDACTED"

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(ProviderConfig{APIKey: testAnthropicKey, Endpoint: srv.URL + "/v1"}, fastRetry(1))
	require.NoError(t, err)
	return p
}

func writeAnthropicMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       DefaultAnthropicModel,
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": 10, "output_tokens": 5},
	})
}

func writeAnthropicError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]string{"type": kind, "message": message},
	})
}

func TestNewAnthropicProvider_WithoutKey(t *testing.T) {
	p, err := NewAnthropicProvider(ProviderConfig{})
	require.NoError(t, err)

	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, DefaultAnthropicModel, p.Config().Model)

	_, err = p.GenerateCommitMessages(context.Background(), buildDiff(1, 2), GenerateOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrMissingAPIKey))
	assert.Equal(t, anthropicTraits.fallbackModels, p.AvailableModels(context.Background()))
}

func TestAnthropicProvider_GenerateCommitMessages(t *testing.T) {
	p := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, testAnthropicKey, r.Header.Get("x-api-key"))

		var body struct {
			Model    string `json:"model"`
			System   string `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultAnthropicModel, body.Model)
		assert.Equal(t, DefaultSystemPrompt, body.System)

		writeAnthropicMessage(w, "perf(db): batch inserts\nfix(db): close rows")
	})

	got, err := p.GenerateCommitMessages(context.Background(), buildDiff(1, 3), GenerateOptions{Conventional: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"perf(db): batch inserts", "fix(db): close rows"}, got)
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		kind     string
		message  string
		wantCode apperrors.ErrorCode
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, kind: "authentication_error", message: "invalid x-api-key", wantCode: apperrors.ErrAuthenticationFailed},
		{name: "forbidden", status: http.StatusForbidden, kind: "permission_error", message: "not allowed", wantCode: apperrors.ErrPermissionDenied},
		{name: "rate limited", status: http.StatusTooManyRequests, kind: "rate_limit_error", message: "slow down", wantCode: apperrors.ErrRateLimited},
		{name: "overloaded", status: 529, kind: "overloaded_error", message: "Overloaded", wantCode: apperrors.ErrServerError},
		{name: "prompt too long", status: http.StatusBadRequest, kind: "invalid_request_error", message: "prompt is too long: 210000 tokens > 200000 maximum", wantCode: apperrors.ErrPromptTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
				writeAnthropicError(w, tt.status, tt.kind, tt.message)
			})

			_, err := p.GenerateResponse(context.Background(), "hello", GenerateOptions{})
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "GenerateResponse() error = %v", err)
		})
	}
}

func TestAnthropicProvider_Test(t *testing.T) {
	p := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		writeAnthropicMessage(w, "OK")
	})

	res := p.Test(context.Background(), p.Config())
	assert.True(t, res.Success, res.Message)
}

func TestAnthropicProvider_ValidateConfig(t *testing.T) {
	p, err := NewAnthropicProvider(ProviderConfig{})
	require.NoError(t, err)

	assert.True(t, apperrors.HasCode(p.ValidateConfig(ProviderConfig{APIKey: "sk-0123456789abcdefghijkl"}), apperrors.ErrInvalidConfig))
	assert.NoError(t, p.ValidateConfig(ProviderConfig{APIKey: testAnthropicKey}))
	assert.NoError(t, p.ValidateConfig(ProviderConfig{APIKey: "proxy-token", Endpoint: "http://localhost:9000/v1"}))
}
