package ai

import "github.com/commitwise/commitwise/internal/pkg/processor"

const (
	// DefaultDeepSeekModel is the default model for DeepSeek.
	DefaultDeepSeekModel = "deepseek-chat"

	// DefaultDeepSeekEndpoint is the default API endpoint for DeepSeek.
	DefaultDeepSeekEndpoint = "https://api.deepseek.com/v1"
)

// DeepSeek's tokenizer packs fewer characters per token than OpenAI's, so
// estimates use the strict ratio against a smaller window.
var deepSeekTraits = backendTraits{
	name:            "deepseek",
	defaultModel:    DefaultDeepSeekModel,
	defaultEndpoint: DefaultDeepSeekEndpoint,
	contextTokens:   8000,
	charsPerToken:   processor.StrictCharsPerToken,
	requiresKey:     true,
	fallbackModels: []ModelDescriptor{
		{ID: "deepseek-chat", Name: "DeepSeek Chat", OwnedBy: "deepseek"},
		{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner", OwnedBy: "deepseek"},
	},
}

// DeepSeekProvider implements the Provider interface for DeepSeek.
// DeepSeek uses an OpenAI-compatible API, so it shares the go-openai client.
type DeepSeekProvider struct {
	*OpenAIProvider
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(cfg ProviderConfig, opts ...Option) (*DeepSeekProvider, error) {
	p, err := newOpenAICompatible(deepSeekTraits, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &DeepSeekProvider{OpenAIProvider: p}, nil
}
