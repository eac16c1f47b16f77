// Package ai provides AI provider interfaces and implementations for commitwise.
package ai

import (
	"context"
	"time"

	"github.com/commitwise/commitwise/internal/pkg/config"
)

// ProviderConfig contains configuration for an AI provider.
type ProviderConfig = config.ProviderConfig

// ChunkProgress is called before each chunk of a large diff is sent.
type ChunkProgress func(index, total int)

// GenerateOptions controls a single generation call.
type GenerateOptions struct {
	// Count is the number of distinct candidates wanted.
	Count        int
	Conventional bool
	Language     string
	// Model, Temperature and MaxTokens override the provider configuration when set.
	Model       string
	Temperature *float32
	MaxTokens   int

	// ChunkIndex and TotalChunks describe the piece being sent; set by the engine.
	ChunkIndex  int
	TotalChunks int

	// SingleLine asks for subject lines only.
	SingleLine      bool
	PreviousAttempt string
	OnChunk         ChunkProgress
}

// ModelDescriptor describes a model offered by a backend.
type ModelDescriptor struct {
	ID          string
	Name        string
	OwnedBy     string
	Description string
}

// TestResult reports the outcome of a connectivity check.
type TestResult struct {
	Success bool
	Message string
	Model   string
	Latency time.Duration
}

// Provider defines the interface for AI providers.
type Provider interface {
	Name() string
	// GenerateCommitMessages returns distinct candidate messages for diff.
	GenerateCommitMessages(ctx context.Context, diff string, opts GenerateOptions) ([]string, error)
	// GenerateResponse runs one free-form completion.
	GenerateResponse(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ValidateConfig(cfg ProviderConfig) error
	// Test never fails; problems are reported in the result.
	Test(ctx context.Context, cfg ProviderConfig) TestResult
	// AvailableModels falls back to a static list when the backend cannot be queried.
	AvailableModels(ctx context.Context) []ModelDescriptor
}
