package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

const (
	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "COMMITWISE"
	// DefaultConfigDir is the directory under $HOME holding config and state.
	DefaultConfigDir = ".commitwise"
	// DefaultConfigFileExt is the default config file extension.
	DefaultConfigFileExt = "yaml"
)

// ViperManager implements the Manager interface using Viper.
type ViperManager struct {
	v          *viper.Viper
	flags      *viper.Viper
	configPath string
}

// NewManager creates a new configuration manager.
// If configPath is empty, it uses the default path (~/.commitwise/config.yaml).
func NewManager(configPath string) (*ViperManager, error) {
	v := viper.New()
	v.SetConfigType(DefaultConfigFileExt)

	if configPath == "" {
		dir, err := StateDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}
	v.SetConfigFile(configPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults must exist before binding so nested keys resolve from env.
	setDefaults(v)
	bindEnvVars(v)

	return &ViperManager{
		v:          v,
		flags:      viper.New(),
		configPath: configPath,
	}, nil
}

// StateDir returns ~/.commitwise, where config, history and cache live.
func StateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// envName turns a dotted key into its environment variable name.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindEnvVars explicitly binds environment variables for all config keys.
// Viper's AutomaticEnv does not see nested keys that have no default.
func bindEnvVars(v *viper.Viper) {
	keys := []string{
		"provider.name", "provider.api_key", "provider.model", "provider.endpoint",
		"provider.temperature", "provider.max_tokens", "provider.timeout_ms",
		"provider.retries", "provider.proxy_url",

		"generation.count", "generation.conventional", "generation.language",
		"generation.max_diff_tokens",

		"resilience.failure_threshold", "resilience.reset_timeout_ms",
		"resilience.monitoring_period_ms", "resilience.retry_base_delay_ms",
		"resilience.retry_max_delay_ms",

		"ui.color_enabled",
		"history.enabled", "history.max_entries", "history.file_path",
		"security.warning_acknowledged",
		"cache.enabled", "cache.max_entries", "cache.ttl_minutes",
		"telemetry.metrics_file",
	}
	for _, name := range KnownProviders {
		for _, field := range []string{"api_key", "model", "endpoint", "proxy_url"} {
			keys = append(keys, "providers."+name+"."+field)
		}
	}
	for _, key := range keys {
		_ = v.BindEnv(key, envName(key))
	}
}

// setDefaults sets the default configuration values.
func setDefaults(v *viper.Viper) {
	// Provider defaults. Model and endpoint stay empty so each backend
	// falls back to its own default.
	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.endpoint", "")
	v.SetDefault("provider.temperature", 0.2)
	v.SetDefault("provider.max_tokens", 500)
	v.SetDefault("provider.timeout_ms", 30000)
	v.SetDefault("provider.retries", 3)
	v.SetDefault("provider.proxy_url", "")

	v.SetDefault("generation.count", 3)
	v.SetDefault("generation.conventional", true)
	v.SetDefault("generation.language", "en")
	v.SetDefault("generation.max_diff_tokens", 3000)

	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_ms", 60000)
	v.SetDefault("resilience.monitoring_period_ms", 0)
	v.SetDefault("resilience.retry_base_delay_ms", 1000)
	v.SetDefault("resilience.retry_max_delay_ms", 10000)

	v.SetDefault("git.exclude_patterns", []string{})

	v.SetDefault("ui.color_enabled", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.max_entries", 1000)
	if dir, err := StateDir(); err == nil {
		v.SetDefault("history.file_path", filepath.Join(dir, "history.json"))
	}

	v.SetDefault("security.warning_acknowledged", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.ttl_minutes", 60)

	v.SetDefault("telemetry.metrics_file", "")
}

// GetConfigPath returns the path to the configuration file.
func (m *ViperManager) GetConfigPath() string {
	return m.configPath
}

// readConfig merges the config file into viper. A missing file is not an
// error: defaults and environment still apply.
func (m *ViperManager) readConfig() error {
	err := m.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read config file %s: %w", m.configPath, err)
}

// Load resolves the configuration. Precedence is overrides (flags), then
// environment, then the config file, then defaults. Provider overrides are
// kept apart in Config.Overrides so the provider section keeps describing
// the backend it was written for.
func (m *ViperManager) Load() (*Config, error) {
	if err := m.readConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := m.flags.UnmarshalKey("provider", &cfg.Overrides); err != nil {
		return nil, fmt.Errorf("failed to decode overrides: %w", err)
	}
	return cfg, nil
}

// Init writes the defaults to a new config file readable only by the owner,
// since it may later hold API keys.
func (m *ViperManager) Init() error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.v.SafeWriteConfigAs(m.configPath); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return fmt.Errorf("config file already exists at %s", m.configPath)
		}
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Chmod(m.configPath, 0o600)
}

// Set stores a dotted key in the config file. The string value is converted
// to the type of the key's current value. Only the file's own contents are
// written back, so overrides and environment values never leak into it.
func (m *ViperManager) Set(key, value string) error {
	if err := m.readConfig(); err != nil {
		return err
	}

	typed, err := convertValue(value, m.v.Get(key))
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}

	file := viper.New()
	file.SetConfigType(DefaultConfigFileExt)
	file.SetConfigFile(m.configPath)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file %s: %w", m.configPath, err)
	}
	file.Set(key, typed)
	if err := file.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return m.readConfig()
}

func convertValue(value string, current interface{}) (interface{}, error) {
	switch current.(type) {
	case bool:
		return strconv.ParseBool(value)
	case int, int32, int64:
		return strconv.ParseInt(value, 10, 64)
	case float32, float64:
		return strconv.ParseFloat(value, 64)
	case []interface{}, []string:
		return lo.Compact(lo.Map(strings.Split(value, ","), func(item string, _ int) string {
			return strings.TrimSpace(item)
		})), nil
	default:
		return value, nil
	}
}

// Get returns the resolved value of a dotted key as a string.
func (m *ViperManager) Get(key string) (string, error) {
	if m.flags.IsSet(key) {
		return fmt.Sprintf("%v", m.flags.Get(key)), nil
	}
	if err := m.readConfig(); err != nil {
		return "", err
	}
	if !m.v.IsSet(key) {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return fmt.Sprintf("%v", m.v.Get(key)), nil
}

// GetProviderConfig loads the configuration and resolves the settings of the
// named provider.
func (m *ViperManager) GetProviderConfig(name string) (*ProviderConfig, error) {
	cfg, err := m.Load()
	if err != nil {
		return nil, err
	}
	pc := cfg.ProviderConfigFor(name)
	return &pc, nil
}

// List returns every resolved setting as a nested map. Read errors fall
// back to defaults and environment.
func (m *ViperManager) List() map[string]interface{} {
	if err := m.readConfig(); err != nil {
		apperrors.Warn("%v", err)
	}
	settings := m.v.AllSettings()
	if overrides := m.flags.GetStringMap("provider"); len(overrides) > 0 {
		provider, _ := settings["provider"].(map[string]interface{})
		settings["provider"] = lo.Assign(provider, overrides)
	}
	return settings
}

// SetOverride sets a value for this process only; it is never written back.
// Keys under provider. form a separate layer that Load exposes as
// Config.Overrides.
func (m *ViperManager) SetOverride(key string, value interface{}) {
	if strings.HasPrefix(strings.ToLower(key), "provider.") {
		m.flags.Set(key, value)
		return
	}
	m.v.Set(key, value)
}

// ConfigExists reports whether the config file is present.
func (m *ViperManager) ConfigExists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// AcknowledgeSecurityWarning persists that the user accepted the notice
// about sending diffs to hosted providers.
func (m *ViperManager) AcknowledgeSecurityWarning() error {
	return m.Set("security.warning_acknowledged", "true")
}
