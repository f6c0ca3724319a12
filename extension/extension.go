// Package extension provides the Forge extension adapter for Journal.
//
// It implements the forge.Extension interface to integrate Journal
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.journal" or "journal" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/journal"
	"github.com/xraph/journal/observability"
	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/memory"
	"github.com/xraph/journal/store/mongo"
	"github.com/xraph/journal/store/postgres"
	"github.com/xraph/journal/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "journal"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Hash-chained double-entry ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Journal as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	engine      *journal.Journal
	store       store.Store
	journalOpts []journal.Option
	useGrove    bool
}

// New creates a new Journal Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Journal instance.
// This is nil until Register is called.
func (e *Extension) Engine() *journal.Journal { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// resolves the store, initializes the journal engine, and registers it in
// the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil && (e.useGrove || e.config.GroveDatabase != "") {
		s, err := e.storeFromGrove(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts := e.buildJournalOpts(fapp)

	e.engine = journal.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*journal.Journal, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension]. Unless migrations are disabled the
// store schema is brought up to date before plugins are initialized.
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("journal: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("journal: store not initialized")
	}
	return e.store.Ping(ctx)
}

// storeFromGrove resolves a grove.DB from the container and builds the
// store matching its driver.
func (e *Extension) storeFromGrove(fapp forge.App) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("journal: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}

	driver := db.Driver().Name()
	e.Logger().Debug("journal: using grove database",
		forge.F("name", e.config.GroveDatabase),
		forge.F("driver", driver),
	)

	switch driver {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("journal: unsupported grove driver %q", driver)
	}
}

// buildJournalOpts constructs journal.Option values from the resolved config.
func (e *Extension) buildJournalOpts(fapp forge.App) []journal.Option {
	opts := make([]journal.Option, 0, len(e.journalOpts)+5)

	opts = append(opts,
		journal.WithAccountCacheTTL(e.config.AccountCacheTTL),
		journal.WithVerifyPageSize(e.config.VerifyPageSize),
		journal.WithVerifyConcurrency(e.config.VerifyConcurrency),
		journal.WithRetry(e.config.RetryMaxTries, e.config.RetryMaxElapsed),
	)

	if !e.config.DisableMetrics {
		if m := fapp.Metrics(); m != nil {
			opts = append(opts, journal.WithPlugin(
				observability.NewMetricsExtension(observability.FromGoUtils(m)),
			))
		}
	}

	// Append any pass-through journal options.
	opts = append(opts, e.journalOpts...)

	return opts
}

// ──────────────────────────────────────────────────
// Config loading
// ──────────────────────────────────────────────────

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("journal: configuration is required but not found in config files; " +
				"ensure 'extensions.journal' or 'journal' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeWithDefaults(mergeConfigurations(fileConfig, programmaticConfig))
	}

	e.Logger().Debug("journal: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_metrics", e.config.DisableMetrics),
		forge.F("account_cache_ttl", e.config.AccountCacheTTL),
		forge.F("verify_page_size", e.config.VerifyPageSize),
		forge.F("verify_concurrency", e.config.VerifyConcurrency),
		forge.F("retry_max_tries", e.config.RetryMaxTries),
		forge.F("grove_database", e.config.GroveDatabase),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.journal", "journal"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("journal: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("journal: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.AccountCacheTTL == 0 {
		cfg.AccountCacheTTL = defaults.AccountCacheTTL
	}
	if cfg.VerifyPageSize == 0 {
		cfg.VerifyPageSize = defaults.VerifyPageSize
	}
	if cfg.VerifyConcurrency == 0 {
		cfg.VerifyConcurrency = defaults.VerifyConcurrency
	}
	if cfg.RetryMaxTries == 0 {
		cfg.RetryMaxTries = defaults.RetryMaxTries
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = defaults.RetryMaxElapsed
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableMetrics {
		yamlConfig.DisableMetrics = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.GroveDatabase == "" && programmaticConfig.GroveDatabase != "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.AccountCacheTTL == 0 && programmaticConfig.AccountCacheTTL != 0 {
		yamlConfig.AccountCacheTTL = programmaticConfig.AccountCacheTTL
	}
	if yamlConfig.VerifyPageSize == 0 && programmaticConfig.VerifyPageSize != 0 {
		yamlConfig.VerifyPageSize = programmaticConfig.VerifyPageSize
	}
	if yamlConfig.VerifyConcurrency == 0 && programmaticConfig.VerifyConcurrency != 0 {
		yamlConfig.VerifyConcurrency = programmaticConfig.VerifyConcurrency
	}
	if yamlConfig.RetryMaxTries == 0 && programmaticConfig.RetryMaxTries != 0 {
		yamlConfig.RetryMaxTries = programmaticConfig.RetryMaxTries
	}
	if yamlConfig.RetryMaxElapsed == 0 && programmaticConfig.RetryMaxElapsed != 0 {
		yamlConfig.RetryMaxElapsed = programmaticConfig.RetryMaxElapsed
	}

	yamlConfig.RequireConfig = programmaticConfig.RequireConfig
	return yamlConfig
}
