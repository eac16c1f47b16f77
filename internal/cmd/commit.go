package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitwise/commitwise/internal/app"
	"github.com/commitwise/commitwise/internal/pkg/ai"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/git"
	"github.com/commitwise/commitwise/internal/pkg/processor"
	"github.com/commitwise/commitwise/internal/pkg/security"
	"github.com/commitwise/commitwise/internal/pkg/ui"
)

// commandTimeout bounds a whole generate or commit run.
const commandTimeout = 5 * time.Minute

// CommitFlags holds the flags for the commit command.
type CommitFlags struct {
	DryRun     bool
	Yes        bool
	OutputFile string
	NoCache    bool

	Count        int
	Conventional bool
	Language     string
	SingleLine   bool
}

// NewCommitCmd creates the commit command.
func NewCommitCmd() *cobra.Command {
	flags := &CommitFlags{}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Generate and commit with an AI-generated message",
		Long: `Generate commit message candidates from your staged changes,
then pick one, edit it or ask for new ones before committing.

Large diffs are split into pieces that fit the model's context and the
partial results are merged into one set of candidates.

Examples:
  commitwise commit                      # Interactive commit
  commitwise commit --yes                # Commit with the first candidate
  commitwise commit --dry-run            # Generate without committing
  commitwise commit -o msg.txt           # Save message to file
  commitwise commit --count 5 --language german`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(cmd, flags)
		},
	}

	addGenerationFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Generate message without committing")
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "Skip interactive prompts and commit the first candidate")
	cmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", "Write generated message to file (implies --dry-run)")

	return cmd
}

// addGenerationFlags registers the flags shared by commit and generate.
func addGenerationFlags(cmd *cobra.Command, flags *CommitFlags) {
	cmd.Flags().IntVarP(&flags.Count, "count", "n", 0, "Number of candidates to generate (default from config)")
	cmd.Flags().BoolVar(&flags.Conventional, "conventional", false, "Ask for Conventional Commits messages (default from config)")
	cmd.Flags().StringVarP(&flags.Language, "language", "l", "", "Language of the messages (default from config)")
	cmd.Flags().BoolVar(&flags.SingleLine, "single-line", false, "Generate subject lines only")
	cmd.Flags().Bool("no-cache", false, "Bypass the candidate cache")
}

// commitOptions merges the flags with the configured generation defaults.
func commitOptions(cmd *cobra.Command, flags *CommitFlags, s *session) *app.CommitOptions {
	conventional := s.cfg.Generation.Conventional
	if cmd.Flags().Changed("conventional") {
		conventional = flags.Conventional
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")
	model, _ := cmd.Flags().GetString("model")

	return &app.CommitOptions{
		DryRun:       flags.DryRun || flags.OutputFile != "",
		OutputFile:   flags.OutputFile,
		NoCache:      noCache,
		Count:        flags.Count,
		Conventional: conventional,
		Language:     flags.Language,
		Model:        model,
		SingleLine:   flags.SingleLine,
	}
}

// commandContext returns the command's context bounded by commandTimeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

// runCommit executes the commit command logic.
func runCommit(cmd *cobra.Command, flags *CommitFlags) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	opts := commitOptions(cmd, flags, s)
	uiMgr := s.uiManager(flags.Yes)

	service, provider, err := buildService(s, uiMgr)
	if err != nil {
		return err
	}

	if apperrors.IsVerbose() {
		apperrors.Info("Using provider: %s", provider.Name())
		if model := s.cfg.ProviderConfigFor(provider.Name()).Model; model != "" {
			apperrors.Info("Using model: %s", model)
		}
		if opts.DryRun {
			apperrors.Info("Dry-run mode enabled")
		}
	}

	return service.GenerateAndCommit(ctx, opts)
}

// buildService resolves the provider, runs the pre-flight checks and wires
// the commit service.
func buildService(s *session, uiMgr ui.Manager) (*app.CommitService, ai.Provider, error) {
	provider, err := s.provider("")
	if err != nil {
		return nil, nil, err
	}

	pc := s.cfg.ProviderConfigFor(provider.Name())
	if err := provider.ValidateConfig(pc); err != nil {
		return nil, nil, err
	}
	if pc.APIKey != "" {
		if err := security.ValidateAPIKeyFormat(provider.Name(), pc.APIKey); err != nil {
			apperrors.Warn("%v", err)
		}
		apperrors.Debug("API key: %s", apperrors.MaskAPIKey(pc.APIKey))
	}

	if !security.IsLocalProvider(provider.Name()) && !s.cfg.Security.WarningAcknowledged {
		if err := showSecurityWarning(s, uiMgr); err != nil {
			return nil, nil, err
		}
	}

	diffProcessor := processor.NewProcessorWithConfig(processor.ProcessorConfig{
		ExcludePatterns: s.cfg.Git.ExcludePatterns,
	})

	var opts []app.ServiceOption
	if c := s.candidateCache(); c != nil {
		opts = append(opts, app.WithCache(c))
	}

	service := app.NewCommitService(
		git.NewClient(),
		provider,
		diffProcessor,
		uiMgr,
		s.historyManager(),
		s.cfg,
		opts...,
	)
	return service, provider, nil
}

// showSecurityWarning displays the first-use notice and records the acknowledgment.
func showSecurityWarning(s *session, uiMgr ui.Manager) error {
	fmt.Fprint(errOut, security.FirstUseWarning)

	ok, err := uiMgr.PromptConfirm("Do you understand and wish to continue?")
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if !ok {
		return apperrors.New(apperrors.ErrInvalidArguments, "security warning not acknowledged - operation cancelled")
	}

	if err := s.cfgMgr.AcknowledgeSecurityWarning(); err != nil {
		apperrors.Warn("Failed to save security acknowledgment: %v", err)
	}
	s.cfg.Security.WarningAcknowledged = true

	fmt.Fprintln(errOut, security.FirstUseAcknowledgment)
	fmt.Fprintln(errOut)
	return nil
}
