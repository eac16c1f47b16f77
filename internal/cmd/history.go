package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitwise/commitwise/internal/pkg/config"
	"github.com/commitwise/commitwise/internal/pkg/history"
)

const (
	// DefaultHistoryLimit is the default number of history entries to display.
	DefaultHistoryLimit = 20
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View commit message history",
		Long: `View the history of generated commit messages.

By default, displays the most recent 20 entries. Use --limit to change the number of entries shown.

Examples:
  commitwise history                      # Show last 20 entries
  commitwise history --limit 5            # Show last 5 entries
  commitwise history --for anthropic      # Only messages from one provider
  commitwise history --committed          # Skip dry runs
  commitwise history clear                # Clear all history`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}

	addHistoryListFlags(historyCmd)

	historyCmd.AddCommand(newHistoryListCmd())
	historyCmd.AddCommand(newHistoryClearCmd())

	return historyCmd
}

func addHistoryListFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "l", DefaultHistoryLimit, "Number of entries to display")
	cmd.Flags().String("for", "", "Only show entries generated by this provider")
	cmd.Flags().Bool("committed", false, "Only show messages that were committed")
}

// newHistoryListCmd creates 'history list', the explicit form of 'history'.
func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List history entries",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	addHistoryListFlags(cmd)
	return cmd
}

// loadHistoryConfig loads the configuration for the history subcommands.
func loadHistoryConfig(cmd *cobra.Command) (*config.Config, error) {
	mgr, err := configManager(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runHistoryList displays the history entries.
func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	provider, _ := cmd.Flags().GetString("for")
	committed, _ := cmd.Flags().GetBool("committed")

	cfg, err := loadHistoryConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !cfg.History.Enabled {
		fmt.Fprintln(out, "History is disabled. Enable it with: commitwise config set history.enabled true")
		return nil
	}

	historyMgr := history.NewFileManager(cfg.History.FilePath, cfg.History.MaxEntries)
	entries, err := historyMgr.List(history.ListOptions{
		Limit:         limit,
		Provider:      provider,
		CommittedOnly: committed,
	})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		return nil
	}

	fmt.Fprintf(out, "Showing %d most recent entries:\n\n", len(entries))

	// Most recent first.
	for i := len(entries) - 1; i >= 0; i-- {
		printHistoryEntry(out, entries[i], len(entries)-i)
	}
	return nil
}

// printHistoryEntry formats and prints a single history entry.
func printHistoryEntry(out io.Writer, entry *history.Entry, index int) {
	status := "not committed"
	if entry.Committed {
		status = "committed"
	}
	fmt.Fprintf(out, "[%d] %s (%s)\n", index, entry.Timestamp.Format(time.RFC3339), status)

	if entry.Provider != "" || entry.Model != "" {
		fmt.Fprintf(out, "    Provider: %s", entry.Provider)
		if entry.Model != "" {
			fmt.Fprintf(out, " (%s)", entry.Model)
		}
		if entry.Chunks > 1 {
			fmt.Fprintf(out, ", %d chunks", entry.Chunks)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "    Message:")
	for _, line := range strings.Split(entry.Message, "\n") {
		fmt.Fprintf(out, "      %s\n", line)
	}

	if others := len(entry.Candidates) - 1; others > 0 {
		fmt.Fprintf(out, "    Other candidates: %d\n", others)
	}

	if entry.DiffSummary != "" {
		fmt.Fprintln(out, "    Diff Summary:")
		for _, line := range strings.Split(entry.DiffSummary, "\n") {
			if line != "" {
				fmt.Fprintf(out, "      %s\n", strings.TrimSpace(line))
			}
		}
	}

	fmt.Fprintln(out)
}

// newHistoryClearCmd creates the 'history clear' subcommand.
func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all history entries",
		Long: `Delete all entries from the history file.

This action cannot be undone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadHistoryConfig(cmd)
			if err != nil {
				return err
			}

			historyMgr := history.NewFileManager(cfg.History.FilePath, cfg.History.MaxEntries)
			if err := historyMgr.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "History cleared successfully.")
			return nil
		},
	}
}
