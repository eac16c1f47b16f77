package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/processor"
	"github.com/commitwise/commitwise/internal/pkg/security"
)

const (
	// DefaultOpenAIModel is the default model for OpenAI.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultOpenAIEndpoint is the default API endpoint for OpenAI.
	DefaultOpenAIEndpoint = "https://api.openai.com/v1"
)

var openAITraits = backendTraits{
	name:            "openai",
	defaultModel:    DefaultOpenAIModel,
	defaultEndpoint: DefaultOpenAIEndpoint,
	contextTokens:   16000,
	charsPerToken:   processor.DefaultCharsPerToken,
	requiresKey:     true,
	fallbackModels: []ModelDescriptor{
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", OwnedBy: "openai"},
		{ID: "gpt-4o", Name: "GPT-4o", OwnedBy: "openai"},
		{ID: "gpt-4.1-mini", Name: "GPT-4.1 mini", OwnedBy: "openai"},
	},
}

// OpenAIProvider implements the Provider interface for OpenAI and
// OpenAI-compatible endpoints.
type OpenAIProvider struct {
	*engine
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg ProviderConfig, opts ...Option) (*OpenAIProvider, error) {
	return newOpenAICompatible(openAITraits, cfg, opts)
}

// newOpenAICompatible builds a provider for any backend speaking the OpenAI chat API.
func newOpenAICompatible(traits backendTraits, cfg ProviderConfig, opts []Option) (*OpenAIProvider, error) {
	e := newEngine(traits, cfg, opts)

	httpClient, err := newHTTPClient(e.config.ProxyURL)
	if err != nil {
		return nil, apperrors.NewInvalidConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(e.config.APIKey)
	clientConfig.BaseURL = strings.TrimRight(e.config.Endpoint, "/")
	clientConfig.HTTPClient = httpClient

	p := &OpenAIProvider{
		engine: e,
		client: openai.NewClientWithConfig(clientConfig),
	}
	e.backend = backend{
		complete:   p.complete,
		listModels: p.listModels,
		validate:   p.validate,
	}
	return p, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, req completionRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", p.mapError(err)
	}

	// No choices is not a transport failure; the caller ends up with no candidates.
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) listModels(ctx context.Context) ([]ModelDescriptor, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, p.mapError(err)
	}

	models := make([]ModelDescriptor, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, ModelDescriptor{ID: m.ID, Name: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

// validate checks the key shape only against the vendor's own endpoint; proxies and
// compatible gateways issue keys of their own.
func (p *OpenAIProvider) validate(cfg ProviderConfig) error {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = p.traits.defaultEndpoint
	}
	if strings.TrimRight(endpoint, "/") != p.traits.defaultEndpoint {
		return nil
	}
	if err := security.ValidateAPIKeyFormat(p.traits.name, cfg.APIKey); err != nil {
		return apperrors.NewInvalidConfigError(err.Error())
	}
	return nil
}

func (p *OpenAIProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return mapStatus(p.traits.name, apiErr.HTTPStatusCode, apiErr.Message, 0, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return mapStatus(p.traits.name, reqErr.HTTPStatusCode, string(reqErr.Body), 0, err)
	}

	return mapTransportError(p.traits.name, err)
}
