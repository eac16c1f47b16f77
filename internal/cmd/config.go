package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/commitwise/commitwise/internal/pkg/config"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage commitwise configuration",
		Long: `Manage commitwise configuration settings.

Use subcommands to initialize, view, or modify configuration values.
Configuration is stored in ~/.commitwise/config.yaml by default and every
key can be overridden with a COMMITWISE_ environment variable, for example
COMMITWISE_PROVIDER_API_KEY or COMMITWISE_PROVIDERS_OLLAMA_ENDPOINT.`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigGetCmd())
	configCmd.AddCommand(newConfigListCmd())

	return configCmd
}

func configManager(cmd *cobra.Command) (*config.ViperManager, error) {
	configPath, _ := cmd.Flags().GetString("config")
	mgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	return mgr, nil
}

// newConfigInitCmd creates the 'config init' subcommand.
func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long: `Create a new configuration file at ~/.commitwise/config.yaml with default values.

The configuration file will be created with permissions 0600 (user read/write only)
for security, as it may contain API keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			if err := mgr.Init(); err != nil {
				return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to initialize config")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration file created at %s\n", mgr.GetConfigPath())
			fmt.Fprintln(out, "Edit this file to set your API key and customize settings.")
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' subcommand.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value by key.

Supports nested keys using dot notation. List values are comma separated.

Examples:
  commitwise config set provider.name anthropic
  commitwise config set providers.openai.api_key sk-xxx
  commitwise config set providers.ollama.endpoint http://gpu-box:11434
  commitwise config set generation.count 5
  commitwise config set git.exclude_patterns "*.min.js,vendor/**"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}
			if !mgr.ConfigExists() {
				return apperrors.NewInvalidConfigError("config file not found").
					WithSuggestion("Run 'commitwise config init' first")
			}

			if err := mgr.Set(key, value); err != nil {
				return apperrors.Wrap(err, apperrors.ErrInvalidConfig, fmt.Sprintf("failed to set %s", key))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, displayValue(key, value))
			return nil
		},
	}
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Long: `Print the effective value of a key after defaults, the config file and
environment overrides are applied. API keys are masked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			value, err := mgr.Get(args[0])
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrInvalidArguments, fmt.Sprintf("failed to read %s", args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], value))
			return nil
		},
	}
}

// newConfigListCmd creates the 'config list' subcommand.
func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `Display all current configuration values.

API keys are masked for security, showing only the last 4 characters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")

			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}
			settings := maskSettings(mgr.List())

			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(settings); err != nil {
					return fmt.Errorf("failed to encode settings: %w", err)
				}
				return enc.Close()
			case "plain", "":
				printSettings(out, "", settings)
				return nil
			default:
				return apperrors.New(apperrors.ErrInvalidArguments, fmt.Sprintf("unknown output format %q", format)).
					WithSuggestion("Use --output yaml or --output plain")
			}
		},
	}
	cmd.Flags().StringP("output", "o", "plain", "Output format: plain or yaml")
	return cmd
}

func isSecretKey(key string) bool {
	return strings.Contains(strings.ToLower(key), "api_key")
}

func displayValue(key, value string) string {
	if isSecretKey(key) && value != "" {
		return apperrors.MaskAPIKey(value)
	}
	return value
}

// maskSettings returns a copy of settings with every API key masked.
func maskSettings(settings map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(settings))
	for key, value := range settings {
		switch v := value.(type) {
		case map[string]interface{}:
			masked[key] = maskSettings(v)
		case string:
			masked[key] = displayValue(key, v)
		default:
			masked[key] = v
		}
	}
	return masked
}

// printSettings prints settings as dotted key = value lines in key order.
func printSettings(out io.Writer, prefix string, settings map[string]interface{}) {
	keys := lo.Keys(settings)
	slices.Sort(keys)

	for _, key := range keys {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch v := settings[key].(type) {
		case map[string]interface{}:
			printSettings(out, fullKey, v)
		default:
			fmt.Fprintf(out, "%s = %v\n", fullKey, v)
		}
	}
}
