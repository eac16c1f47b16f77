// Package config provides configuration management for commitwise.
package config

import "strings"

// KnownProviders lists the provider names that get their own env bindings
// under providers.<name>.
var KnownProviders = []string{"openai", "deepseek", "anthropic", "ollama"}

// Config represents the complete commitwise configuration.
type Config struct {
	Provider   ProviderConfig            `mapstructure:"provider"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Generation GenerationConfig          `mapstructure:"generation"`
	Resilience ResilienceConfig          `mapstructure:"resilience"`
	Git        GitConfig                 `mapstructure:"git"`
	UI         UIConfig                  `mapstructure:"ui"`
	History    HistoryConfig             `mapstructure:"history"`
	Security   SecurityConfig            `mapstructure:"security"`
	Cache      CacheConfig               `mapstructure:"cache"`
	Telemetry  TelemetryConfig           `mapstructure:"telemetry"`

	// Overrides holds the per-run provider values from command-line flags.
	// They apply to the active provider after every other layer.
	Overrides ProviderConfig `mapstructure:"-"`
}

// CacheConfig contains cache-related settings.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxEntries int  `mapstructure:"max_entries"`
	TTLMinutes int  `mapstructure:"ttl_minutes"`
}

// SecurityConfig contains security-related settings.
type SecurityConfig struct {
	// WarningAcknowledged indicates if the user has acknowledged the first-use security warning.
	WarningAcknowledged bool `mapstructure:"warning_acknowledged"`
}

// ProviderConfig contains the settings of one AI backend.
type ProviderConfig struct {
	Name        string  `mapstructure:"name"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Endpoint    string  `mapstructure:"endpoint"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutMs   int     `mapstructure:"timeout_ms"`
	Retries     int     `mapstructure:"retries"`
	ProxyURL    string  `mapstructure:"proxy_url"`
}

// GenerationConfig holds the defaults for candidate generation.
type GenerationConfig struct {
	Count         int    `mapstructure:"count"`
	Conventional  bool   `mapstructure:"conventional"`
	Language      string `mapstructure:"language"`
	MaxDiffTokens int    `mapstructure:"max_diff_tokens"`
}

// ResilienceConfig tunes the circuit breaker and retry policy shared by all providers.
type ResilienceConfig struct {
	FailureThreshold   int `mapstructure:"failure_threshold"`
	ResetTimeoutMs     int `mapstructure:"reset_timeout_ms"`
	MonitoringPeriodMs int `mapstructure:"monitoring_period_ms"`
	RetryBaseDelayMs   int `mapstructure:"retry_base_delay_ms"`
	RetryMaxDelayMs    int `mapstructure:"retry_max_delay_ms"`
}

// GitConfig contains Git-related settings.
type GitConfig struct {
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// UIConfig contains UI-related settings.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// HistoryConfig contains history-related settings.
type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MaxEntries int    `mapstructure:"max_entries"`
	FilePath   string `mapstructure:"file_path"`
}

// TelemetryConfig controls the optional metrics dump.
type TelemetryConfig struct {
	MetricsFile string `mapstructure:"metrics_file"`
}

// ActiveProvider returns the provider selected for this run: the flag
// override when present, otherwise provider.name.
func (c *Config) ActiveProvider() string {
	if name := strings.TrimSpace(c.Overrides.Name); name != "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(strings.TrimSpace(c.Provider.Name))
}

// ProviderConfigFor resolves the settings for the named provider. The
// provider section applies in full only when its own name matches; otherwise
// just its shared knobs (temperature, limits, proxy) carry over. Non-empty
// fields from providers.<name> win, and flag overrides win over both for the
// active provider.
func (c *Config) ProviderConfigFor(name string) ProviderConfig {
	name = strings.ToLower(strings.TrimSpace(name))

	pc := ProviderConfig{
		Temperature: c.Provider.Temperature,
		MaxTokens:   c.Provider.MaxTokens,
		TimeoutMs:   c.Provider.TimeoutMs,
		Retries:     c.Provider.Retries,
		ProxyURL:    c.Provider.ProxyURL,
	}
	if strings.EqualFold(strings.TrimSpace(c.Provider.Name), name) {
		pc = c.Provider
	}

	if section, ok := c.Providers[name]; ok {
		mergeProvider(&pc, section)
	}
	if name == c.ActiveProvider() {
		mergeProvider(&pc, c.Overrides)
	}
	pc.Name = name
	return pc
}

func mergeProvider(dst *ProviderConfig, src ProviderConfig) {
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxTokens != 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.TimeoutMs != 0 {
		dst.TimeoutMs = src.TimeoutMs
	}
	if src.Retries != 0 {
		dst.Retries = src.Retries
	}
	if src.ProxyURL != "" {
		dst.ProxyURL = src.ProxyURL
	}
}

// Manager defines the interface for configuration management.
type Manager interface {
	Load() (*Config, error)
	Set(key string, value string) error
	Get(key string) (string, error)
	Init() error
	List() map[string]interface{}
	GetConfigPath() string
	GetProviderConfig(name string) (*ProviderConfig, error)
}
