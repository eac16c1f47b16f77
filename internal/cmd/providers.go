package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitwise/commitwise/internal/pkg/ai"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

// NewProvidersCmd creates the providers command and its subcommands.
func NewProvidersCmd() *cobra.Command {
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect the available AI providers",
		Long: `List the supported providers, check that one is reachable with the
current configuration, or show the models it offers.

Examples:
  commitwise providers list
  commitwise providers test anthropic
  commitwise providers models ollama`,
	}

	providersCmd.AddCommand(newProvidersListCmd())
	providersCmd.AddCommand(newProvidersTestCmd())
	providersCmd.AddCommand(newProvidersModelsCmd())

	return providersCmd
}

func newProvidersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			def := string(s.selector.Default())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tNAME\tMODEL\tAPI KEY")
			for _, name := range ai.SupportedProviders() {
				marker := ""
				if name == def {
					marker = "*"
				}

				pc := s.cfg.ProviderConfigFor(name)
				model := pc.Model
				if model == "" {
					model = "(default)"
				}
				key := "-"
				if pc.APIKey != "" {
					key = displayValue("api_key", pc.APIKey)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, name, model, key)
			}
			return w.Flush()
		},
	}
}

func newProvidersTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [provider]",
		Short: "Send a tiny request to check a provider",
		Long: `Send a one-word completion request to the provider and report latency.
Without an argument the configured default provider is tested.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			provider, err := s.provider(firstArg(args))
			if err != nil {
				return err
			}

			result := provider.Test(ctx, s.cfg.ProviderConfigFor(provider.Name()))
			printTestResult(cmd.OutOrStdout(), provider.Name(), result)
			if !result.Success {
				return apperrors.New(apperrors.ErrAIProviderFailed, fmt.Sprintf("%s connectivity check failed", provider.Name()))
			}
			return nil
		},
	}
}

func newProvidersModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [provider]",
		Short: "List the models a provider offers",
		Long: `List the models reported by the provider. When the provider cannot be
queried a built-in list is shown instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			provider, err := s.provider(firstArg(args))
			if err != nil {
				return err
			}

			printModels(cmd.OutOrStdout(), provider.AvailableModels(ctx))
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printTestResult(out io.Writer, name string, result ai.TestResult) {
	status := "FAILED"
	if result.Success {
		status = "OK"
	}
	fmt.Fprintf(out, "%s: %s", name, status)
	if result.Model != "" {
		fmt.Fprintf(out, " (model %s)", result.Model)
	}
	if result.Latency > 0 {
		fmt.Fprintf(out, " in %s", result.Latency.Round(time.Millisecond))
	}
	fmt.Fprintln(out)
	if result.Message != "" {
		fmt.Fprintf(out, "  %s\n", result.Message)
	}
}

func printModels(out io.Writer, models []ai.ModelDescriptor) {
	if len(models) == 0 {
		fmt.Fprintln(out, "No models reported.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tDESCRIPTION")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.OwnedBy, m.Description)
	}
	_ = w.Flush()
}
