// Package app contains the application layer with business orchestration logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/commitwise/commitwise/internal/pkg/ai"
	"github.com/commitwise/commitwise/internal/pkg/cache"
	"github.com/commitwise/commitwise/internal/pkg/config"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/git"
	"github.com/commitwise/commitwise/internal/pkg/history"
	"github.com/commitwise/commitwise/internal/pkg/message"
	"github.com/commitwise/commitwise/internal/pkg/processor"
	"github.com/commitwise/commitwise/internal/pkg/ui"
)

// writeFile is a variable to allow mocking in tests.
var writeFile = os.WriteFile

// MaxRegenerationAttempts is the maximum number of times a user can regenerate candidates.
const MaxRegenerationAttempts = 5

// CommitOptions contains options for the commit workflow.
type CommitOptions struct {
	DryRun     bool
	OutputFile string
	NoCache    bool

	// Count, Language and Model override the generation section of the config.
	Count        int
	Conventional bool
	Language     string
	Model        string
	SingleLine   bool
}

// CommitService orchestrates the commit message generation workflow.
type CommitService struct {
	gitClient     git.Client
	provider      ai.Provider
	diffProcessor processor.DiffProcessor
	uiManager     ui.Manager
	historyMgr    history.Manager
	config        *config.Config
	cache         cache.Manager[[]string]
}

// ServiceOption customizes a CommitService.
type ServiceOption func(*CommitService)

// WithCache enables the candidate cache.
func WithCache(c cache.Manager[[]string]) ServiceOption {
	return func(s *CommitService) {
		s.cache = c
	}
}

// NewCommitService creates a new CommitService with the given dependencies.
// historyMgr may be nil when history is disabled.
func NewCommitService(
	gitClient git.Client,
	provider ai.Provider,
	diffProcessor processor.DiffProcessor,
	uiManager ui.Manager,
	historyMgr history.Manager,
	cfg *config.Config,
	opts ...ServiceOption,
) *CommitService {
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &CommitService{
		gitClient:     gitClient,
		provider:      provider,
		diffProcessor: diffProcessor,
		uiManager:     uiManager,
		historyMgr:    historyMgr,
		config:        cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generation carries the result of one generation round.
type generation struct {
	candidates []string
	chunks     int
}

// GenerateAndCommit runs the whole workflow: read the staged diff, generate
// candidates, let the user pick or edit one, then commit it or write it out.
func (s *CommitService) GenerateAndCommit(ctx context.Context, opts *CommitOptions) error {
	if opts == nil {
		opts = &CommitOptions{}
	}

	processed, err := s.stagedDiff(ctx)
	if err != nil {
		return err
	}

	var previous []string
	for attempt := 0; ; attempt++ {
		gen, err := s.generate(ctx, opts, processed, previous)
		if err != nil {
			return fmt.Errorf("failed to generate commit message: %w", err)
		}

		if err := s.uiManager.DisplayCandidates(gen.candidates); err != nil {
			return fmt.Errorf("failed to display candidates: %w", err)
		}

		idx, err := s.uiManager.SelectCandidate(gen.candidates)
		if err != nil {
			return fmt.Errorf("failed to select candidate: %w", err)
		}
		chosen := gen.candidates[idx]
		s.validateAndWarn(chosen, opts.Conventional)

		action, err := s.uiManager.PromptAction()
		if err != nil {
			return fmt.Errorf("failed to get user action: %w", err)
		}

		switch action {
		case ui.ActionAccept:
			return s.handleAccept(ctx, opts, chosen, gen, processed)

		case ui.ActionEdit:
			edited, err := s.uiManager.EditMessage(chosen)
			if err != nil {
				s.uiManager.ShowError(fmt.Errorf("failed to edit message: %w", err))
				continue
			}
			if strings.TrimSpace(edited) == "" {
				s.uiManager.ShowError(errors.New("edited message is empty, commit aborted"))
				return nil
			}
			s.validateAndWarn(edited, opts.Conventional)
			return s.handleAccept(ctx, opts, edited, gen, processed)

		case ui.ActionRegenerate:
			if attempt+1 >= MaxRegenerationAttempts {
				s.uiManager.ShowError(fmt.Errorf("maximum regeneration attempts (%d) reached", MaxRegenerationAttempts))
				return fmt.Errorf("maximum regeneration attempts reached")
			}
			previous = gen.candidates

		case ui.ActionCancel:
			s.uiManager.ShowSuccess("Commit cancelled")
			return nil
		}
	}
}

// GenerateCandidates returns candidates for the staged diff without any
// interaction. It backs the generate command.
func (s *CommitService) GenerateCandidates(ctx context.Context, opts *CommitOptions) ([]string, error) {
	if opts == nil {
		opts = &CommitOptions{}
	}

	processed, err := s.stagedDiff(ctx)
	if err != nil {
		return nil, err
	}

	gen, err := s.generate(ctx, opts, processed, nil)
	if err != nil {
		return nil, err
	}
	return gen.candidates, nil
}

// stagedDiff reads and filters the staged changes.
func (s *CommitService) stagedDiff(ctx context.Context) (*processor.ProcessedDiff, error) {
	hasChanges, err := s.gitClient.HasStagedChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check staged changes: %w", err)
	}
	if !hasChanges {
		return nil, apperrors.NewNoStagedChangesError()
	}

	spinner := s.uiManager.ShowSpinner("Retrieving staged changes...")
	spinner.Start()
	files, err := s.gitClient.GetStagedDiff(ctx)
	spinner.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to get staged diff: %w", err)
	}

	processed, err := s.diffProcessor.Process(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("failed to process diff: %w", err)
	}
	if len(processed.Files) == 0 || strings.TrimSpace(processed.Diff) == "" {
		return nil, apperrors.New(apperrors.ErrNoStagedChanges, "no changes left after filtering lock files and excluded paths").
			WithSuggestion("Check git.exclude_patterns or stage other files")
	}

	apperrors.Debug("processed diff: %d files, ~%d tokens, %d skipped",
		len(processed.Files), processed.TotalTokens, len(processed.SkippedFiles))
	return processed, nil
}

// generate asks the provider for candidates, serving from the cache on the
// first round. Regeneration always goes to the provider and refreshes the
// cached entry.
func (s *CommitService) generate(
	ctx context.Context,
	opts *CommitOptions,
	processed *processor.ProcessedDiff,
	previous []string,
) (*generation, error) {
	genOpts := s.generateOptions(opts)

	key := ""
	if s.cache != nil && !opts.NoCache {
		key = cache.Key(
			processed.Diff,
			s.provider.Name(),
			s.model(opts),
			strconv.Itoa(genOpts.Count),
			strconv.FormatBool(genOpts.Conventional),
			genOpts.Language,
			strconv.FormatBool(genOpts.SingleLine),
		)
		if previous == nil {
			if cached, ok := s.cache.Get(key); ok && len(cached) > 0 {
				apperrors.Debug("using %d cached candidates", len(cached))
				return &generation{candidates: cached}, nil
			}
		}
	}

	if len(previous) > 0 {
		genOpts.PreviousAttempt = strings.Join(previous, "\n")
	}

	progress := s.uiManager.ShowProgressSpinner("Generating commit messages...", 1)
	chunks := 1
	genOpts.OnChunk = func(index, total int) {
		chunks = total
		progress.SetTotal(total)
		progress.SetCurrent(index - 1)
		if total > 1 {
			progress.UpdateText(fmt.Sprintf("Generating commit messages (part %d of %d)...", index, total))
		}
	}

	progress.Start()
	candidates, err := s.provider.GenerateCommitMessages(ctx, processed.Diff, genOpts)
	progress.Stop()
	if err != nil {
		return nil, err
	}

	if key != "" {
		s.cache.Set(key, candidates, 0)
	}
	return &generation{candidates: candidates, chunks: chunks}, nil
}

func (s *CommitService) generateOptions(opts *CommitOptions) ai.GenerateOptions {
	gen := s.config.Generation

	count := opts.Count
	if count <= 0 {
		count = gen.Count
	}
	language := opts.Language
	if language == "" {
		language = gen.Language
	}

	return ai.GenerateOptions{
		Count:        count,
		Conventional: opts.Conventional,
		Language:     language,
		Model:        opts.Model,
		SingleLine:   opts.SingleLine,
	}
}

// model names the model used, for the cache key and history.
func (s *CommitService) model(opts *CommitOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return s.config.ProviderConfigFor(s.provider.Name()).Model
}

// validateAndWarn shows format problems without blocking the commit.
func (s *CommitService) validateAndWarn(msg string, conventional bool) {
	result := message.NewCommitMessage(msg).ValidateWithWarnings()

	for _, warning := range result.Warnings {
		s.uiManager.ShowError(fmt.Errorf("warning: %s", warning))
	}
	if conventional && !result.IsValid {
		for _, e := range result.Errors {
			s.uiManager.ShowError(fmt.Errorf("warning: not a conventional commit: %s", e.Error()))
		}
	}
}

// handleAccept records the choice, then commits or writes the message out.
func (s *CommitService) handleAccept(
	ctx context.Context,
	opts *CommitOptions,
	commitMsg string,
	gen *generation,
	processed *processor.ProcessedDiff,
) error {
	commitMsg = strings.TrimSpace(commitMsg)

	if s.historyMgr != nil && s.config.History.Enabled {
		entry := &history.Entry{
			Message:     commitMsg,
			Candidates:  gen.candidates,
			DiffSummary: processed.Summary,
			Provider:    s.provider.Name(),
			Model:       s.model(opts),
			Chunks:      gen.chunks,
			Committed:   !opts.DryRun,
		}
		if err := s.historyMgr.Save(entry); err != nil {
			s.uiManager.ShowError(fmt.Errorf("warning: failed to save to history: %w", err))
		}
	}

	if opts.DryRun {
		if opts.OutputFile != "" {
			return s.writeToFile(opts.OutputFile, commitMsg)
		}
		s.uiManager.ShowSuccess("Dry-run complete - message generated but not committed")
		return nil
	}

	spinner := s.uiManager.ShowSpinner("Committing changes...")
	spinner.Start()
	err := s.gitClient.Commit(ctx, commitMsg)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.uiManager.ShowSuccess("Successfully committed!")
	return nil
}

func (s *CommitService) writeToFile(filePath, content string) error {
	if err := writeFile(filePath, []byte(content+"\n"), 0644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, fmt.Sprintf("failed to write to file %s", filePath))
	}

	s.uiManager.ShowSuccess(fmt.Sprintf("Message written to %s", filePath))
	return nil
}
