// Package cmd contains the CLI command definitions for commitwise.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitwise/commitwise/internal/pkg/ai"
)

// NewRootCmd creates the root command for the commitwise CLI.
func NewRootCmd(version, commitHash, date string) *cobra.Command {
	commitCmd := NewCommitCmd()

	rootCmd := &cobra.Command{
		Use:   "commitwise",
		Short: "AI-powered git commit message generator",
		Long: `commitwise generates Git commit messages from your staged changes.

It reads the staged diff, splits it into pieces the model can take when it
is too large, sends it to the configured AI provider (OpenAI, DeepSeek,
Anthropic or a local Ollama server) and lets you pick, edit or regenerate
a candidate before committing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand is the same as "commit".
		RunE: commitCmd.RunE,
	}

	rootCmd.SetVersionTemplate(`commitwise {{.Version}}
Commit: ` + commitHash + `
Built:  ` + date + "\n")

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: ~/.commitwise/config.yaml)")
	rootCmd.PersistentFlags().String("provider", "", "AI provider to use ("+strings.Join(ai.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().String("model", "", "AI model to use")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics for this run to a file")

	// The root command shares the commit flags for its default action.
	rootCmd.Flags().AddFlagSet(commitCmd.Flags())

	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewProvidersCmd())

	return rootCmd
}
