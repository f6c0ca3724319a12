package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onChartCreated     []OnChartCreated
	onLedgerCreated    []OnLedgerCreated
	onAccountCreated   []OnAccountCreated
	onPostingAppended  []OnPostingAppended
	onPostingDiscarded []OnPostingDiscarded
	onStatementCreated []OnStatementCreated
	onStatementClosed  []OnStatementClosed
	onChainVerified    []OnChainVerified
	onChainBroken      []OnChainBroken
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnChartCreated); ok {
		r.onChartCreated = append(r.onChartCreated, v)
	}
	if v, ok := p.(OnLedgerCreated); ok {
		r.onLedgerCreated = append(r.onLedgerCreated, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnPostingAppended); ok {
		r.onPostingAppended = append(r.onPostingAppended, v)
	}
	if v, ok := p.(OnPostingDiscarded); ok {
		r.onPostingDiscarded = append(r.onPostingDiscarded, v)
	}
	if v, ok := p.(OnStatementCreated); ok {
		r.onStatementCreated = append(r.onStatementCreated, v)
	}
	if v, ok := p.(OnStatementClosed); ok {
		r.onStatementClosed = append(r.onStatementClosed, v)
	}
	if v, ok := p.(OnChainVerified); ok {
		r.onChainVerified = append(r.onChainVerified, v)
	}
	if v, ok := p.(OnChainBroken); ok {
		r.onChainBroken = append(r.onChainBroken, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnChartCreated](), "OnChartCreated"},
	{reflect.TypeFor[OnLedgerCreated](), "OnLedgerCreated"},
	{reflect.TypeFor[OnAccountCreated](), "OnAccountCreated"},
	{reflect.TypeFor[OnPostingAppended](), "OnPostingAppended"},
	{reflect.TypeFor[OnPostingDiscarded](), "OnPostingDiscarded"},
	{reflect.TypeFor[OnStatementCreated](), "OnStatementCreated"},
	{reflect.TypeFor[OnStatementClosed](), "OnStatementClosed"},
	{reflect.TypeFor[OnChainVerified](), "OnChainVerified"},
	{reflect.TypeFor[OnChainBroken](), "OnChainBroken"},
}

// implementedInterfaces returns the hooks implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs fn for every plugin in hooks, logging failures. Hook errors
// never reach the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, fn func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, j any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, j)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitChartCreated emits a chart created event.
func (r *Registry) EmitChartCreated(ctx context.Context, c *account.Chart) {
	emit(ctx, r, "OnChartCreated", snapshot(r, &r.onChartCreated), func(p OnChartCreated) error {
		return p.OnChartCreated(ctx, c)
	})
}

// EmitLedgerCreated emits a ledger created event.
func (r *Registry) EmitLedgerCreated(ctx context.Context, l *account.Ledger) {
	emit(ctx, r, "OnLedgerCreated", snapshot(r, &r.onLedgerCreated), func(p OnLedgerCreated) error {
		return p.OnLedgerCreated(ctx, l)
	})
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, a *account.Account) {
	emit(ctx, r, "OnAccountCreated", snapshot(r, &r.onAccountCreated), func(p OnAccountCreated) error {
		return p.OnAccountCreated(ctx, a)
	})
}

// EmitPostingAppended emits a posting appended event.
func (r *Registry) EmitPostingAppended(ctx context.Context, pst *posting.Posting) {
	emit(ctx, r, "OnPostingAppended", snapshot(r, &r.onPostingAppended), func(p OnPostingAppended) error {
		return p.OnPostingAppended(ctx, pst)
	})
}

// EmitPostingDiscarded emits a posting discarded event.
func (r *Registry) EmitPostingDiscarded(ctx context.Context, old, replacement *posting.Posting) {
	emit(ctx, r, "OnPostingDiscarded", snapshot(r, &r.onPostingDiscarded), func(p OnPostingDiscarded) error {
		return p.OnPostingDiscarded(ctx, old, replacement)
	})
}

// EmitStatementCreated emits a statement created event.
func (r *Registry) EmitStatementCreated(ctx context.Context, s *statement.Statement) {
	emit(ctx, r, "OnStatementCreated", snapshot(r, &r.onStatementCreated), func(p OnStatementCreated) error {
		return p.OnStatementCreated(ctx, s)
	})
}

// EmitStatementClosed emits a statement closed event.
func (r *Registry) EmitStatementClosed(ctx context.Context, s *statement.Statement) {
	emit(ctx, r, "OnStatementClosed", snapshot(r, &r.onStatementClosed), func(p OnStatementClosed) error {
		return p.OnStatementClosed(ctx, s)
	})
}

// EmitChainVerified emits a chain verified event.
func (r *Registry) EmitChainVerified(ctx context.Context, ledgerID id.LedgerID, checked int, elapsed time.Duration) {
	emit(ctx, r, "OnChainVerified", snapshot(r, &r.onChainVerified), func(p OnChainVerified) error {
		return p.OnChainVerified(ctx, ledgerID, checked, elapsed)
	})
}

// EmitChainBroken emits a chain broken event.
func (r *Registry) EmitChainBroken(ctx context.Context, ledgerID id.LedgerID, postingID id.PostingID, reason string) {
	emit(ctx, r, "OnChainBroken", snapshot(r, &r.onChainBroken), func(p OnChainBroken) error {
		return p.OnChainBroken(ctx, ledgerID, postingID, reason)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the posting pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
