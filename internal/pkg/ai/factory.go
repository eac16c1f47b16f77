package ai

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/commitwise/commitwise/internal/pkg/config"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

// ProviderName identifies a supported backend.
type ProviderName string

// ProviderName constants for supported providers.
const (
	ProviderNameOpenAI    ProviderName = "openai"
	ProviderNameDeepSeek  ProviderName = "deepseek"
	ProviderNameAnthropic ProviderName = "anthropic"
	ProviderNameOllama    ProviderName = "ollama"
)

// DefaultProvider is used when no valid provider is configured.
const DefaultProvider = ProviderNameOpenAI

type constructor func(cfg ProviderConfig, opts ...Option) (Provider, error)

var registry = map[ProviderName]constructor{
	ProviderNameOpenAI: func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		return NewOpenAIProvider(cfg, opts...)
	},
	ProviderNameDeepSeek: func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		return NewDeepSeekProvider(cfg, opts...)
	},
	ProviderNameAnthropic: func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		return NewAnthropicProvider(cfg, opts...)
	},
	ProviderNameOllama: func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		return NewOllamaProvider(cfg, opts...)
	},
}

// SupportedProviders returns the registered provider names in sorted order.
func SupportedProviders() []string {
	names := lo.Map(lo.Keys(registry), func(n ProviderName, _ int) string { return string(n) })
	slices.Sort(names)
	return names
}

// ParseProviderName resolves name case-insensitively.
func ParseProviderName(name string) (ProviderName, error) {
	n := ProviderName(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := registry[n]; !ok {
		return "", apperrors.NewUnsupportedProviderError(name, SupportedProviders())
	}
	return n, nil
}

// ConfigSource is the read side of the configuration the selector needs.
type ConfigSource interface {
	Get(key string) (string, error)
	GetProviderConfig(name string) (*config.ProviderConfig, error)
}

// Selector creates providers by name from a configuration source. Instances are
// cached so every caller of one name shares a circuit breaker.
type Selector struct {
	source ConfigSource
	opts   []Option

	mu        sync.Mutex
	providers map[ProviderName]Provider
}

// NewSelector returns a selector reading from src; opts are applied to every provider it builds.
func NewSelector(src ConfigSource, opts ...Option) *Selector {
	return &Selector{
		source:    src,
		opts:      opts,
		providers: make(map[ProviderName]Provider),
	}
}

// Create returns the provider registered under name.
func (s *Selector) Create(name string) (Provider, error) {
	pn, err := ParseProviderName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[pn]; ok {
		return p, nil
	}

	cfg := ProviderConfig{Name: string(pn)}
	if s.source != nil {
		pc, err := s.source.GetProviderConfig(string(pn))
		switch {
		case err != nil:
			apperrors.Warn("could not read configuration for %s, using defaults: %v", pn, err)
		case pc != nil:
			cfg = *pc
		}
	}

	p, err := registry[pn](cfg, s.opts...)
	if err != nil {
		return nil, err
	}
	s.providers[pn] = p
	return p, nil
}

// Default returns the configured provider name, or DefaultProvider when it is
// missing, unknown or cannot be read.
func (s *Selector) Default() ProviderName {
	if s.source == nil {
		return DefaultProvider
	}

	name, err := s.source.Get("provider.name")
	if err != nil {
		apperrors.Debug("could not read provider.name, using %s: %v", DefaultProvider, err)
		return DefaultProvider
	}
	if strings.TrimSpace(name) == "" {
		return DefaultProvider
	}

	pn, err := ParseProviderName(name)
	if err != nil {
		apperrors.Warn("configured provider %q is not supported, using %s", name, DefaultProvider)
		return DefaultProvider
	}
	return pn
}

// NewProvider creates a provider directly from a resolved configuration.
func NewProvider(cfg *config.ProviderConfig, opts ...Option) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider configuration is required")
	}

	name := cfg.Name
	if strings.TrimSpace(name) == "" {
		name = string(DefaultProvider)
	}
	pn, err := ParseProviderName(name)
	if err != nil {
		return nil, err
	}
	return registry[pn](*cfg, opts...)
}
