package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/processor"
)

const (
	// DefaultOllamaModel is the default model for Ollama.
	DefaultOllamaModel = "codellama"

	// DefaultOllamaEndpoint is the default API endpoint for Ollama.
	DefaultOllamaEndpoint = "http://localhost:11434"

	// OllamaAPIPath is the API path for chat completions.
	OllamaAPIPath = "/api/chat"

	// OllamaTagsPath lists locally pulled models.
	OllamaTagsPath = "/api/tags"
)

var ollamaTraits = backendTraits{
	name:            "ollama",
	defaultModel:    DefaultOllamaModel,
	defaultEndpoint: DefaultOllamaEndpoint,
	contextTokens:   4096,
	charsPerToken:   processor.StrictCharsPerToken,
	fallbackModels: []ModelDescriptor{
		{ID: "codellama", Name: "Code Llama", OwnedBy: "meta"},
		{ID: "llama3.1", Name: "Llama 3.1", OwnedBy: "meta"},
		{ID: "qwen2.5-coder", Name: "Qwen2.5 Coder", OwnedBy: "alibaba"},
	},
}

// OllamaProvider implements the Provider interface for a local Ollama server.
type OllamaProvider struct {
	*engine
	httpClient *http.Client
}

// OllamaChatRequest represents a request to the Ollama chat API.
type OllamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *OllamaOptions  `json:"options,omitempty"`
}

// OllamaMessage represents a message in the Ollama chat API.
type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaOptions represents optional parameters for Ollama requests.
type OllamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// OllamaChatResponse represents a response from the Ollama chat API.
type OllamaChatResponse struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   OllamaMessage `json:"message"`
	Done      bool          `json:"done"`
	Error     string        `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Model   string `json:"model"`
		Details struct {
			Family        string `json:"family"`
			ParameterSize string `json:"parameter_size"`
		} `json:"details"`
	} `json:"models"`
}

// OllamaAPIError represents a non-200 reply from the Ollama API.
type OllamaAPIError struct {
	StatusCode int
	Message    string
}

func (e *OllamaAPIError) Error() string {
	return fmt.Sprintf("ollama API error (status %d): %s", e.StatusCode, e.Message)
}

// NewOllamaProvider creates a new Ollama provider. No API key is needed.
func NewOllamaProvider(cfg ProviderConfig, opts ...Option) (*OllamaProvider, error) {
	e := newEngine(ollamaTraits, cfg, opts)

	httpClient, err := newHTTPClient(e.config.ProxyURL)
	if err != nil {
		return nil, apperrors.NewInvalidConfigError(err.Error())
	}

	p := &OllamaProvider{engine: e, httpClient: httpClient}
	e.backend = backend{
		complete:   p.complete,
		listModels: p.listModels,
	}
	return p, nil
}

func (p *OllamaProvider) url(path string) string {
	return strings.TrimRight(p.config.Endpoint, "/") + path
}

func (p *OllamaProvider) complete(ctx context.Context, req completionRequest) (string, error) {
	var messages []OllamaMessage
	if req.System != "" {
		messages = append(messages, OllamaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, OllamaMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(OllamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
		Options: &OllamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(OllamaAPIPath), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := p.do(httpReq)
	if err != nil {
		return "", err
	}

	var resp OllamaChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", apperrors.NewInvalidResponseError(p.traits.name, err)
	}
	if resp.Error != "" {
		return "", p.mapError(&OllamaAPIError{StatusCode: http.StatusOK, Message: resp.Error}, 0)
	}
	return resp.Message.Content, nil
}

func (p *OllamaProvider) listModels(ctx context.Context) ([]ModelDescriptor, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(OllamaTagsPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, apperrors.NewInvalidResponseError(p.traits.name, err)
	}

	models := make([]ModelDescriptor, 0, len(tags.Models))
	for _, m := range tags.Models {
		desc := strings.TrimSpace(m.Details.Family + " " + m.Details.ParameterSize)
		models = append(models, ModelDescriptor{ID: m.Name, Name: m.Name, OwnedBy: "local", Description: desc})
	}
	return models, nil
}

// do executes req and returns the body of a 200 reply; anything else is mapped.
func (p *OllamaProvider) do(req *http.Request) ([]byte, error) {
	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.mapError(err, 0)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, p.mapError(fmt.Errorf("failed to read response: %w", err), 0)
	}

	if httpResp.StatusCode != http.StatusOK {
		retryAfter := apperrors.ParseRetryAfterHeader(httpResp.Header.Get("Retry-After"))
		return nil, p.mapError(&OllamaAPIError{
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}, retryAfter)
	}
	return body, nil
}

func (p *OllamaProvider) mapError(err error, retryAfter time.Duration) error {
	var apiErr *OllamaAPIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return apperrors.NewAIProviderError(p.traits.name, err).
				WithStatus(http.StatusNotFound).
				WithSuggestion(fmt.Sprintf("Please ensure the model is pulled using 'ollama pull %s'", p.config.Model))
		case apiErr.StatusCode == http.StatusServiceUnavailable:
			return apperrors.NewServerError(p.traits.name, apiErr.StatusCode, err).
				WithSuggestion("Please ensure Ollama is running using 'ollama serve'")
		case apiErr.StatusCode == http.StatusOK:
			// Errors reported inside a 200 body, usually a model that failed to load.
			return apperrors.NewAIProviderError(p.traits.name, err)
		default:
			return mapStatus(p.traits.name, apiErr.StatusCode, apiErr.Message, retryAfter, err)
		}
	}

	mapped := mapTransportError(p.traits.name, err)
	if apperrors.HasCode(mapped, apperrors.ErrNetworkError) || apperrors.HasCode(mapped, apperrors.ErrTimeout) {
		return apperrors.GetAppError(mapped).WithSuggestion("Please ensure Ollama is running using 'ollama serve'")
	}
	return mapped
}
