package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/processor"
	"github.com/commitwise/commitwise/internal/pkg/security"
)

const (
	// DefaultAnthropicModel is the default model for Anthropic.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	// DefaultAnthropicEndpoint is the default API endpoint for Anthropic.
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1"
)

// Anthropic has no public model listing, so the static list is all there is.
var anthropicTraits = backendTraits{
	name:            "anthropic",
	defaultModel:    DefaultAnthropicModel,
	defaultEndpoint: DefaultAnthropicEndpoint,
	contextTokens:   16000,
	charsPerToken:   processor.DefaultCharsPerToken,
	requiresKey:     true,
	fallbackModels: []ModelDescriptor{
		{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", OwnedBy: "anthropic"},
		{ID: "claude-3-7-sonnet-latest", Name: "Claude 3.7 Sonnet", OwnedBy: "anthropic"},
		{ID: "claude-sonnet-4-0", Name: "Claude Sonnet 4", OwnedBy: "anthropic"},
	},
}

var anthropicStatus = regexp.MustCompile(`status code: (\d{3})`)

// AnthropicProvider implements the Provider interface on top of the
// langchaingo Anthropic client.
type AnthropicProvider struct {
	*engine
	httpClient *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider. The SDK client itself
// is created per call, once a key is known to be present.
func NewAnthropicProvider(cfg ProviderConfig, opts ...Option) (*AnthropicProvider, error) {
	e := newEngine(anthropicTraits, cfg, opts)

	httpClient, err := newHTTPClient(e.config.ProxyURL)
	if err != nil {
		return nil, apperrors.NewInvalidConfigError(err.Error())
	}

	p := &AnthropicProvider{engine: e, httpClient: httpClient}
	e.backend = backend{
		complete: p.complete,
		validate: p.validate,
	}
	return p, nil
}

func (p *AnthropicProvider) llm(model string) (*anthropic.LLM, error) {
	if p.config.APIKey == "" {
		return nil, apperrors.NewMissingAPIKeyError(p.traits.name)
	}
	return anthropic.New(
		anthropic.WithToken(p.config.APIKey),
		anthropic.WithModel(model),
		anthropic.WithBaseURL(strings.TrimRight(p.config.Endpoint, "/")),
		anthropic.WithHTTPClient(p.httpClient),
	)
}

func (p *AnthropicProvider) complete(ctx context.Context, req completionRequest) (string, error) {
	llm, err := p.llm(req.Model)
	if err != nil {
		return "", err
	}

	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	resp, err := llm.GenerateContent(ctx, messages,
		llms.WithModel(req.Model),
		llms.WithTemperature(float64(req.Temperature)),
		llms.WithMaxTokens(req.MaxTokens),
	)
	if errors.Is(err, anthropic.ErrEmptyResponse) {
		return "", nil
	}
	if err != nil {
		return "", p.mapError(err)
	}

	var sb strings.Builder
	for _, choice := range resp.Choices {
		if choice == nil || choice.Content == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(choice.Content)
	}
	return sb.String(), nil
}

func (p *AnthropicProvider) validate(cfg ProviderConfig) error {
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

// mapError prefers the HTTP status embedded in the client error and falls back
// to the SDK's own classification.
func (p *AnthropicProvider) mapError(err error) error {
	name := p.traits.name

	if m := anthropicStatus.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		return mapStatus(name, status, err.Error(), 0, err)
	}

	var netErr net.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return mapTransportError(name, err)
	}

	var llmErr *llms.Error
	if errors.As(anthropic.MapError(err), &llmErr) {
		switch llmErr.Code {
		case llms.ErrCodeAuthentication:
			return mapStatus(name, http.StatusUnauthorized, llmErr.Message, 0, err)
		case llms.ErrCodeRateLimit:
			return mapStatus(name, http.StatusTooManyRequests, llmErr.Message, 0, err)
		case llms.ErrCodeQuotaExceeded:
			return apperrors.NewAIProviderError(name, err).
				WithStatus(http.StatusPaymentRequired).
				WithSuggestion("Please check the billing status of your Anthropic account")
		case llms.ErrCodeTokenLimit:
			return apperrors.NewPromptTooLargeError(name, err)
		case llms.ErrCodeProviderUnavailable:
			return apperrors.NewServerError(name, http.StatusServiceUnavailable, err)
		case llms.ErrCodeTimeout:
			return apperrors.NewTimeoutError(err)
		case llms.ErrCodeInvalidRequest, llms.ErrCodeResourceNotFound:
			return apperrors.NewAIProviderError(name, err).WithStatus(http.StatusBadRequest)
		}
	}

	return mapTransportError(name, err)
}
