package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLocalProvider(t *testing.T) {
	assert.True(t, IsLocalProvider("ollama"))
	for _, name := range []string{"openai", "deepseek", "anthropic", ""} {
		assert.False(t, IsLocalProvider(name), name)
	}
}

func TestValidateAPIKeyFormat(t *testing.T) {
	long := strings.Repeat("a", 32)

	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  string
	}{
		{name: "openai", provider: "openai", apiKey: "sk-" + long},
		{name: "openai project key", provider: "openai", apiKey: "sk-proj-abc_DEF-1234567890abcdef"},
		{name: "deepseek", provider: "deepseek", apiKey: "sk-" + long},
		{name: "anthropic", provider: "anthropic", apiKey: "sk-ant-api03-" + long},
		{name: "ollama needs nothing", provider: "ollama"},
		{name: "unknown hosted provider", provider: "mistral", apiKey: "some-long-api-key-that-is-valid"},
		{name: "missing", provider: "openai", wantErr: "required"},
		{name: "too short", provider: "deepseek", apiKey: "sk-short", wantErr: "too short"},
		{name: "openai key in anthropic slot", provider: "anthropic", apiKey: "sk-" + long, wantErr: "sk-ant-"},
		{name: "deepseek rejects dashes", provider: "deepseek", apiKey: "sk-proj-abc_DEF-1234567890abcdef", wantErr: "deepseek"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKeyFormat(tt.provider, tt.apiKey)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSanitizeForLogging(t *testing.T) {
	key := "sk-1234567890abcdef1234567890abcdef"

	tests := []struct {
		input    string
		expected string
	}{
		{"401 from openai: invalid key " + key, "401 from openai: invalid key sk-****"},
		{"Authorization: Bearer abc123token", "Authorization: Bearer ****"},
		{"api_key=mysecretkey123", "api_key=****"},
		{"api_key: " + key, "api_key=****"},
		{"x-api-key=sk-ant-" + key[3:], "x-api-key=****"},
		{"password=secret123", "password=****"},
		{"ollama: model llama3.2 not found", "ollama: model llama3.2 not found"},
	}

	for _, tt := range tests {
		if got := SanitizeForLogging(tt.input); got != tt.expected {
			t.Errorf("SanitizeForLogging(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFirstUseWarning_MentionsLocalOption(t *testing.T) {
	assert.Contains(t, FirstUseWarning, "Ollama")
	assert.Contains(t, FirstUseWarning, "commitwise")
}
