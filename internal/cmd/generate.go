package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command. It never commits and never
// prompts, so its output can feed scripts and git hooks.
func NewGenerateCmd() *cobra.Command {
	flags := &CommitFlags{DryRun: true}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print commit message candidates without committing",
		Long: `Generate commit message candidates from your staged changes and
print them to stdout, one per line.

Examples:
  commitwise generate                   # Print the configured number of candidates
  commitwise generate -n 1 --single-line
  commitwise generate --provider ollama --model llama3.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags)
		},
	}

	addGenerationFlags(cmd, flags)
	return cmd
}

func runGenerate(cmd *cobra.Command, flags *CommitFlags) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	service, _, err := buildService(s, s.uiManager(true))
	if err != nil {
		return err
	}

	candidates, err := service.GenerateCandidates(ctx, commitOptions(cmd, flags, s))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range candidates {
		fmt.Fprintln(out, c)
	}
	return nil
}
