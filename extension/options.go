package extension

import (
	"time"

	"github.com/xraph/journal"
	"github.com/xraph/journal/plugin"
	"github.com/xraph/journal/store"
)

// Option configures the Journal Forge extension.
type Option func(*Extension)

// WithStore sets the store for the journal engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithJournalOption passes a journal.Option through to the underlying engine.
func WithJournalOption(opt journal.Option) Option {
	return func(e *Extension) {
		e.journalOpts = append(e.journalOpts, opt)
	}
}

// WithPlugin registers a journal plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.journalOpts = append(e.journalOpts, journal.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableMetrics keeps the metrics plugin off the app's collector.
func WithDisableMetrics() Option {
	return func(e *Extension) { e.config.DisableMetrics = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithAccountCacheTTL sets how long hierarchy lookups stay cached.
func WithAccountCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.AccountCacheTTL = d }
}

// WithVerifyConcurrency bounds how many ledgers VerifyAll checks at once.
func WithVerifyConcurrency(n int) Option {
	return func(e *Extension) { e.config.VerifyConcurrency = n }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
