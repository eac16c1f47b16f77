package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/commitwise/commitwise/internal/pkg/config"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/processor"
	"github.com/commitwise/commitwise/internal/pkg/security"
	"github.com/commitwise/commitwise/internal/pkg/telemetry"
)

const (
	// DefaultTemperature is the default temperature for AI generation.
	DefaultTemperature = 0.2

	// DefaultMaxTokens is the default max tokens for AI generation.
	DefaultMaxTokens = 500

	// DefaultTimeout is the default deadline of a single backend call.
	DefaultTimeout = 30 * time.Second

	// DefaultCount is the number of candidates requested when none is given.
	DefaultCount = 3

	// promptReserveTokens covers the instructions wrapped around the diff.
	promptReserveTokens = 400
)

// completionRequest is one raw chat call, already rendered.
type completionRequest struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
}

// backend is what a concrete adapter plugs into the shared engine.
type backend struct {
	complete func(ctx context.Context, req completionRequest) (string, error)
	// listModels is nil for backends with a static model list.
	listModels func(ctx context.Context) ([]ModelDescriptor, error)
	validate   func(cfg ProviderConfig) error
}

// backendTraits holds the fixed traits of a backend.
type backendTraits struct {
	name            string
	defaultModel    string
	defaultEndpoint string
	contextTokens   int
	charsPerToken   int
	requiresKey     bool
	fallbackModels  []ModelDescriptor
}

type options struct {
	breaker    apperrors.CircuitBreakerConfig
	retry      apperrors.RetryConfig
	metrics    *telemetry.Metrics
	prompts    *PromptTemplate
	diffBudget int
}

// Option customizes a provider built by this package.
type Option func(*options)

// WithCircuitBreaker sets the breaker configuration of the provider instance.
func WithCircuitBreaker(cfg apperrors.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// WithRetryConfig sets the retry policy applied inside the breaker.
func WithRetryConfig(cfg apperrors.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithResilience derives breaker and retry settings from configuration.
func WithResilience(r config.ResilienceConfig) Option {
	return func(o *options) {
		if r.FailureThreshold > 0 {
			o.breaker.FailureThreshold = r.FailureThreshold
		}
		if r.ResetTimeoutMs > 0 {
			o.breaker.ResetTimeout = time.Duration(r.ResetTimeoutMs) * time.Millisecond
		}
		o.breaker.MonitoringPeriod = time.Duration(r.MonitoringPeriodMs) * time.Millisecond
		if r.RetryBaseDelayMs > 0 {
			o.retry.InitialDelay = time.Duration(r.RetryBaseDelayMs) * time.Millisecond
		}
		if r.RetryMaxDelayMs > 0 {
			o.retry.MaxDelay = time.Duration(r.RetryMaxDelayMs) * time.Millisecond
		}
	}
}

// WithMetrics records provider activity into m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPromptTemplate replaces the default prompts.
func WithPromptTemplate(pt *PromptTemplate) Option {
	return func(o *options) {
		if pt != nil {
			o.prompts = pt
		}
	}
}

// WithDiffBudget caps the diff tokens sent in one call below the backend's own limit.
func WithDiffBudget(tokens int) Option {
	return func(o *options) { o.diffBudget = tokens }
}

// engine implements the behaviour shared by every backend: chunking, the
// breaker and retry wrapping, parsing and de-duplication.
type engine struct {
	traits  backendTraits
	config  ProviderConfig
	backend backend

	estimator processor.TokenEstimator
	chunker   *processor.Chunker
	breaker   *apperrors.CircuitBreaker
	retry     apperrors.RetryConfig
	prompts   *PromptTemplate
	metrics   *telemetry.Metrics
	maxDiff   int
}

func newEngine(traits backendTraits, cfg ProviderConfig, opts []Option) *engine {
	o := options{
		breaker: apperrors.DefaultCircuitBreakerConfig(),
		retry:   apperrors.DefaultRetryConfig(),
		prompts: NewPromptTemplate(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg.Name = traits.name
	if cfg.Model == "" {
		cfg.Model = traits.defaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = traits.defaultEndpoint
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Retries > 0 {
		o.retry.MaxAttempts = cfg.Retries
	}

	metrics := o.metrics
	hook := o.breaker.OnStateChange
	o.breaker.OnStateChange = func(from, to apperrors.CircuitState) {
		metrics.RecordBreakerTransition(traits.name, int(to), from.String(), to.String())
		if hook != nil {
			hook(from, to)
		}
	}

	estimator := processor.NewTokenEstimator(traits.charsPerToken)
	return &engine{
		traits:    traits,
		config:    cfg,
		estimator: estimator,
		chunker:   processor.NewChunker(estimator),
		breaker:   apperrors.NewCircuitBreaker(o.breaker),
		retry:     o.retry,
		prompts:   o.prompts,
		metrics:   metrics,
		maxDiff:   o.diffBudget,
	}
}

// Name returns the provider name.
func (e *engine) Name() string {
	return e.traits.name
}

// Config returns the effective configuration after defaults were applied.
func (e *engine) Config() ProviderConfig {
	return e.config
}

// Breaker exposes the provider's circuit breaker.
func (e *engine) Breaker() *apperrors.CircuitBreaker {
	return e.breaker
}

func (e *engine) timeout() time.Duration {
	if e.config.TimeoutMs > 0 {
		return time.Duration(e.config.TimeoutMs) * time.Millisecond
	}
	return DefaultTimeout
}

// diffBudget is the number of diff tokens one call may carry.
func (e *engine) diffBudget(maxTokens int) int {
	budget := e.traits.contextTokens - promptReserveTokens - maxTokens
	if e.maxDiff > 0 && e.maxDiff < budget {
		budget = e.maxDiff
	}
	return max(budget, processor.MinChunkTokens)
}

func (e *engine) normalize(opts GenerateOptions) GenerateOptions {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if opts.Model == "" {
		opts.Model = e.config.Model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = e.config.MaxTokens
	}
	return opts
}

func (e *engine) temperature(opts GenerateOptions) float32 {
	if opts.Temperature != nil {
		return *opts.Temperature
	}
	return e.config.Temperature
}

// ValidateConfig checks cfg before any network call is made.
func (e *engine) ValidateConfig(cfg ProviderConfig) error {
	if e.traits.requiresKey && strings.TrimSpace(cfg.APIKey) == "" {
		return apperrors.NewMissingAPIKeyError(e.traits.name)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return apperrors.NewInvalidConfigError(fmt.Sprintf("temperature %.2f is out of range [0, 2]", cfg.Temperature))
	}
	if cfg.MaxTokens < 0 {
		return apperrors.NewInvalidConfigError("max_tokens must be positive")
	}
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.NewInvalidConfigError(fmt.Sprintf("endpoint %q must be an http:// or https:// URL", cfg.Endpoint))
		}
	}
	if e.backend.validate != nil {
		return e.backend.validate(cfg)
	}
	return nil
}

// GenerateCommitMessages returns up to opts.Count distinct candidates for diff.
// Diffs over the call budget are chunked and the pieces are sent one after another.
func (e *engine) GenerateCommitMessages(ctx context.Context, diff string, opts GenerateOptions) ([]string, error) {
	if strings.TrimSpace(diff) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidArguments, "diff is empty")
	}
	if err := e.ValidateConfig(e.config); err != nil {
		return nil, err
	}
	opts = e.normalize(opts)

	budget := e.diffBudget(opts.MaxTokens)
	pieces := []string{diff}
	if tokens := e.estimator.Estimate(diff); tokens > budget {
		pieces = e.chunker.Chunk(diff, budget)
		apperrors.LogChunking(e.traits.name, tokens, budget, len(pieces))
	}
	e.metrics.RecordChunks(e.traits.name, len(pieces))

	var all []string
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.OnChunk != nil {
			opts.OnChunk(i+1, len(pieces))
		}

		pieceOpts := opts
		pieceOpts.ChunkIndex = i
		pieceOpts.TotalChunks = len(pieces)

		got, err := e.generatePiece(ctx, piece, pieceOpts, budget)
		if err != nil {
			return nil, err
		}
		all = append(all, got...)
	}

	candidates := lo.Uniq(all)
	if len(candidates) == 0 {
		return nil, apperrors.NewNoValidMessagesError(e.traits.name)
	}
	if len(candidates) > opts.Count {
		candidates = candidates[:opts.Count]
	}
	e.metrics.RecordCandidates(e.traits.name, len(candidates))
	return candidates, nil
}

// generatePiece sends one piece. A rate limit or an oversized prompt re-splits the
// piece at half its own size until MinChunkTokens is reached. When the piece
// cannot get smaller the original error is returned instead of resending it.
func (e *engine) generatePiece(ctx context.Context, piece string, opts GenerateOptions, budget int) ([]string, error) {
	req, err := e.buildRequest(piece, opts)
	if err != nil {
		return nil, err
	}

	raw, err := e.invoke(ctx, req)
	if err == nil {
		return ParseCandidates(raw, opts.Conventional), nil
	}

	reason := shrinkReason(err)
	if reason == "" {
		return nil, err
	}
	half := min(budget, e.estimator.Estimate(piece)) / 2
	if half < processor.MinChunkTokens {
		return nil, err
	}
	sub := e.chunker.Chunk(piece, half)
	if len(sub) < 2 {
		return nil, err
	}

	apperrors.Warn("%s: %s, retrying with %d smaller chunks", e.traits.name, reason, len(sub))
	e.metrics.RecordChunkFallback(e.traits.name, reason)

	var out []string
	for _, s := range sub {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := e.generatePiece(ctx, s, opts, half)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

func shrinkReason(err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.ErrRateLimited):
		return "rate_limited"
	case apperrors.HasCode(err, apperrors.ErrPromptTooLarge):
		return "prompt_too_large"
	default:
		return ""
	}
}

func (e *engine) buildRequest(diff string, opts GenerateOptions) (completionRequest, error) {
	user, err := e.prompts.RenderUserPrompt(BuildPromptData(diff, opts))
	if err != nil {
		return completionRequest{}, fmt.Errorf("failed to render prompt: %w", err)
	}
	return completionRequest{
		System:      e.prompts.GetSystemPrompt(),
		User:        user,
		Model:       opts.Model,
		Temperature: e.temperature(opts),
		MaxTokens:   opts.MaxTokens,
	}, nil
}

// invoke runs one completion through the breaker, retrying inside it.
func (e *engine) invoke(ctx context.Context, req completionRequest) (string, error) {
	var text string
	start := time.Now()

	err := e.breaker.Execute(ctx, func(ctx context.Context) error {
		return apperrors.RetryWithNotify(ctx, e.retry, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, e.timeout())
			defer cancel()

			apperrors.LogAPIRequest(e.traits.name, e.config.Endpoint, req.Model, e.estimator.Estimate(req.System+req.User))
			callStart := time.Now()
			out, err := e.backend.complete(callCtx, req)
			apperrors.LogAPIResponse(e.traits.name, len(out), time.Since(callStart), err)
			if err != nil {
				return err
			}
			text = out
			return nil
		}, func(a apperrors.RetryAttempt) {
			e.metrics.RecordRetry(e.traits.name)
		})
	})

	outcome := telemetry.OutcomeSuccess
	switch {
	case apperrors.HasCode(err, apperrors.ErrCircuitBreakerOpen):
		outcome = telemetry.OutcomeCircuitOpen
	case err != nil:
		outcome = telemetry.OutcomeFailure
	}
	e.metrics.RecordRequest(e.traits.name, outcome, time.Since(start))

	return text, err
}

// GenerateResponse runs one free-form completion with the same resilience wrapping.
func (e *engine) GenerateResponse(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperrors.New(apperrors.ErrInvalidArguments, "prompt is empty")
	}
	if err := e.ValidateConfig(e.config); err != nil {
		return "", err
	}
	opts = e.normalize(opts)

	text, err := e.invoke(ctx, completionRequest{
		User:        prompt,
		Model:       opts.Model,
		Temperature: e.temperature(opts),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if opts.SingleLine {
		text = firstLine(text)
	}
	if text == "" {
		return "", apperrors.NewInvalidResponseError(e.traits.name, nil)
	}
	return text, nil
}

// Test makes a single small call outside the breaker and reports the outcome.
func (e *engine) Test(ctx context.Context, cfg ProviderConfig) TestResult {
	model := lo.Ternary(cfg.Model != "", cfg.Model, e.config.Model)
	result := TestResult{Model: model}

	if err := e.ValidateConfig(cfg); err != nil {
		result.Message = security.SanitizeForLogging(err.Error())
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	start := time.Now()
	text, err := e.backend.complete(ctx, completionRequest{
		System:    "You are a connectivity check.",
		User:      "Reply with the single word OK.",
		Model:     model,
		MaxTokens: 8,
	})
	result.Latency = time.Since(start)

	switch {
	case err != nil:
		result.Message = security.SanitizeForLogging(err.Error())
	case strings.TrimSpace(text) == "":
		result.Message = "invalid response format"
	default:
		result.Success = true
		result.Message = fmt.Sprintf("connected to %s in %v", e.traits.name, result.Latency.Round(time.Millisecond))
	}
	return result
}

// AvailableModels lists models from the backend, or the static list on any failure.
func (e *engine) AvailableModels(ctx context.Context) []ModelDescriptor {
	if e.backend.listModels == nil {
		return e.traits.fallbackModels
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	models, err := e.backend.listModels(ctx)
	if err != nil || len(models) == 0 {
		if err != nil {
			apperrors.Debug("%s: model listing failed, using built-in list: %v", e.traits.name, err)
		}
		return e.traits.fallbackModels
	}
	return models
}
