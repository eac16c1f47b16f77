package cmd

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/commitwise/commitwise/internal/pkg/ai"
	"github.com/commitwise/commitwise/internal/pkg/cache"
	"github.com/commitwise/commitwise/internal/pkg/config"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
	"github.com/commitwise/commitwise/internal/pkg/history"
	"github.com/commitwise/commitwise/internal/pkg/telemetry"
	"github.com/commitwise/commitwise/internal/pkg/ui"
)

// errOut receives notices that must not mix with generated output on stdout.
var errOut io.Writer = os.Stderr

// cacheFileName is the candidate cache file under the state directory.
const cacheFileName = "cache.json"

// session holds what every provider-facing command needs: the loaded
// configuration, a selector sharing one set of resilience options and the
// metrics those providers report to.
type session struct {
	cfgMgr   *config.ViperManager
	cfg      *config.Config
	selector *ai.Selector
	metrics  *telemetry.Metrics

	metricsFile string
	cache       *cache.LRUCache[[]string]
	cachePath   string
}

// newSession applies the global flags and loads the configuration. Flag
// overrides are set before Load so they win over env and file values.
func newSession(cmd *cobra.Command) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	configPath, _ := cmd.Flags().GetString("config")
	providerOverride, _ := cmd.Flags().GetString("provider")
	modelOverride, _ := cmd.Flags().GetString("model")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	apperrors.SetVerbose(verbose)

	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to create config manager")
	}
	if configPath != "" {
		apperrors.Debug("Using custom config path: %s", configPath)
	}
	if !cfgMgr.ConfigExists() {
		apperrors.Debug("No config file at %s, using defaults and environment", cfgMgr.GetConfigPath())
	}

	if providerOverride != "" {
		if _, err := ai.ParseProviderName(providerOverride); err != nil {
			return nil, err
		}
		cfgMgr.SetOverride("provider.name", providerOverride)
		apperrors.Debug("Provider overridden via flag: %s", providerOverride)
	}
	if modelOverride != "" {
		cfgMgr.SetOverride("provider.model", modelOverride)
		apperrors.Debug("Model overridden via flag: %s", modelOverride)
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigCorruption, "failed to load config")
	}

	if metricsFile == "" {
		metricsFile = cfg.Telemetry.MetricsFile
	}

	metrics := telemetry.NewMetrics()
	selector := ai.NewSelector(cfgMgr,
		ai.WithResilience(cfg.Resilience),
		ai.WithDiffBudget(cfg.Generation.MaxDiffTokens),
		ai.WithMetrics(metrics),
	)

	return &session{
		cfgMgr:      cfgMgr,
		cfg:         cfg,
		selector:    selector,
		metrics:     metrics,
		metricsFile: metricsFile,
	}, nil
}

// provider returns the named provider, or the configured default when name is empty.
func (s *session) provider(name string) (ai.Provider, error) {
	if name == "" {
		name = string(s.selector.Default())
	}
	p, err := s.selector.Create(name)
	if err != nil {
		return nil, err
	}
	apperrors.Debug("AI provider created: %s", p.Name())
	return p, nil
}

// candidateCache loads the on-disk cache when caching is enabled.
func (s *session) candidateCache() *cache.LRUCache[[]string] {
	if !s.cfg.Cache.Enabled {
		return nil
	}
	if s.cache != nil {
		return s.cache
	}

	dir, err := config.StateDir()
	if err != nil {
		apperrors.Warn("cache disabled: %v", err)
		return nil
	}

	ttl := time.Duration(s.cfg.Cache.TTLMinutes) * time.Minute
	s.cache = cache.NewLRUCache[[]string](s.cfg.Cache.MaxEntries, ttl)
	s.cachePath = filepath.Join(dir, cacheFileName)
	if err := s.cache.Load(s.cachePath); err != nil {
		apperrors.Warn("ignoring unreadable cache: %v", err)
	}
	return s.cache
}

// historyManager returns nil when history is disabled.
func (s *session) historyManager() history.Manager {
	if !s.cfg.History.Enabled {
		return nil
	}
	return history.NewFileManager(s.cfg.History.FilePath, s.cfg.History.MaxEntries)
}

// uiManager picks the interactive UI only when stdin and stdout are terminals.
func (s *session) uiManager(yes bool) ui.Manager {
	if yes || !interactive() {
		return ui.NewNonInteractiveManager(s.cfg.UI.ColorEnabled)
	}
	return ui.NewDefaultManager(s.cfg.UI.ColorEnabled, "")
}

// close persists the cache and writes the metrics dump.
// Failures are only logged.
func (s *session) close() {
	if s.cache != nil && s.cachePath != "" {
		s.cache.CleanExpired()
		if err := s.cache.Save(s.cachePath); err != nil {
			apperrors.Warn("failed to save cache: %v", err)
		}
	}
	if s.metricsFile != "" {
		if err := s.metrics.WriteFile(s.metricsFile); err != nil {
			apperrors.Warn("failed to write metrics: %v", err)
		} else {
			apperrors.Debug("metrics written to %s", s.metricsFile)
		}
	}
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}
