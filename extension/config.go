package extension

import (
	"time"

	"github.com/xraph/journal"
)

// Config holds the Journal extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.journal" or "journal" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableMetrics prevents the metrics plugin from being registered
	// against the app's metrics collector.
	DisableMetrics bool `json:"disable_metrics" mapstructure:"disable_metrics" yaml:"disable_metrics"`

	// AccountCacheTTL controls how long account, ledger and chart lookups
	// are cached in-process (default: 10m).
	AccountCacheTTL time.Duration `json:"account_cache_ttl" mapstructure:"account_cache_ttl" yaml:"account_cache_ttl"`

	// VerifyPageSize is the number of postings read per page while
	// verifying a hash chain (default: 500).
	VerifyPageSize int `json:"verify_page_size" mapstructure:"verify_page_size" yaml:"verify_page_size"`

	// VerifyConcurrency bounds how many ledgers VerifyAll checks at once
	// (default: 4).
	VerifyConcurrency int `json:"verify_concurrency" mapstructure:"verify_concurrency" yaml:"verify_concurrency"`

	// RetryMaxTries is the number of attempts AppendWithRetry makes when a
	// chain conflict is reported (default: 5).
	RetryMaxTries uint `json:"retry_max_tries" mapstructure:"retry_max_tries" yaml:"retry_max_tries"`

	// RetryMaxElapsed caps the total time AppendWithRetry spends retrying
	// (default: 10s).
	RetryMaxElapsed time.Duration `json:"retry_max_elapsed" mapstructure:"retry_max_elapsed" yaml:"retry_max_elapsed"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AccountCacheTTL:   journal.DefaultAccountCacheTTL,
		VerifyPageSize:    journal.DefaultVerifyPageSize,
		VerifyConcurrency: journal.DefaultVerifyConcurrency,
		RetryMaxTries:     journal.DefaultRetryMaxTries,
		RetryMaxElapsed:   journal.DefaultRetryMaxElapsed,
	}
}
