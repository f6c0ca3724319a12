package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/xraph/journal/plugin"
	"github.com/xraph/journal/store"
	"github.com/xraph/journal/types"
)

// Defaults applied by New.
const (
	DefaultAccountCacheTTL   = 10 * time.Minute
	DefaultVerifyPageSize    = 500
	DefaultVerifyConcurrency = 4
	DefaultRetryMaxTries     = 5
	DefaultRetryMaxElapsed   = 10 * time.Second
)

// Journal is the ledger engine. It owns no data itself: every call reads
// and writes through the injected store, so any number of Journals may
// share one database.
type Journal struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Accounts, ledgers and charts are immutable once created.
	hierarchy       *cache.Cache
	accountCacheTTL time.Duration

	retryMaxTries   uint
	retryMaxElapsed time.Duration

	verifyPageSize    int
	verifyConcurrency int
}

// New creates a new Journal instance.
func New(s store.Store, opts ...Option) *Journal {
	j := &Journal{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		clock:             time.Now,
		accountCacheTTL:   DefaultAccountCacheTTL,
		retryMaxTries:     DefaultRetryMaxTries,
		retryMaxElapsed:   DefaultRetryMaxElapsed,
		verifyPageSize:    DefaultVerifyPageSize,
		verifyConcurrency: DefaultVerifyConcurrency,
	}

	for _, opt := range opts {
		opt(j)
	}

	j.hierarchy = cache.New(j.accountCacheTTL, 2*j.accountCacheTTL)
	return j
}

// Option configures a Journal instance.
type Option func(*Journal)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		j.logger = logger
		j.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(j *Journal) {
		_ = j.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock replaces time.Now as the source of record times.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.clock = now
	}
}

// WithAccountCacheTTL sets how long hierarchy lookups stay cached.
func WithAccountCacheTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		if ttl > 0 {
			j.accountCacheTTL = ttl
		}
	}
}

// WithRetry bounds AppendWithRetry. maxTries of zero means no limit on
// attempts; maxElapsed of zero means no time limit.
func WithRetry(maxTries uint, maxElapsed time.Duration) Option {
	return func(j *Journal) {
		j.retryMaxTries = maxTries
		j.retryMaxElapsed = maxElapsed
	}
}

// WithVerifyPageSize sets how many postings Verify reads per page.
func WithVerifyPageSize(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.verifyPageSize = n
		}
	}
}

// WithVerifyConcurrency bounds how many ledgers VerifyAll checks at once.
func WithVerifyConcurrency(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.verifyConcurrency = n
		}
	}
}

// Start migrates the store and initializes plugins.
func (j *Journal) Start(ctx context.Context) error {
	if err := j.store.Migrate(ctx); err != nil {
		return err
	}

	j.plugins.EmitInit(ctx, j)

	j.logger.Info("journal started",
		"plugins", j.plugins.Count(),
		"account_cache_ttl", j.accountCacheTTL,
		"verify_page_size", j.verifyPageSize,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (j *Journal) Stop() error {
	ctx := context.Background()
	j.plugins.EmitShutdown(ctx)
	j.hierarchy.Flush()

	return j.store.Close()
}

// Store returns the underlying store.
func (j *Journal) Store() store.Store { return j.store }

// Plugins returns the plugin registry.
func (j *Journal) Plugins() *plugin.Registry { return j.plugins }

// Logger returns the journal's logger.
func (j *Journal) Logger() *slog.Logger { return j.logger }

func (j *Journal) now() time.Time {
	return types.CanonicalTime(j.clock())
}
