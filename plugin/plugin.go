// Package plugin provides an extensible plugin system for Journal.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. j is the *journal.Journal.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, j any) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Hierarchy hooks
// ──────────────────────────────────────────────────

// OnChartCreated is called when a chart of accounts is created.
type OnChartCreated interface {
	Plugin
	OnChartCreated(ctx context.Context, c *account.Chart) error
}

// OnLedgerCreated is called when a ledger is created.
type OnLedgerCreated interface {
	Plugin
	OnLedgerCreated(ctx context.Context, l *account.Ledger) error
}

// OnAccountCreated is called when a ledger account is created.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, a *account.Account) error
}

// ──────────────────────────────────────────────────
// Posting hooks
// ──────────────────────────────────────────────────

// OnPostingAppended is called after a posting joins its ledger's chain.
type OnPostingAppended interface {
	Plugin
	OnPostingAppended(ctx context.Context, p *posting.Posting) error
}

// OnPostingDiscarded is called after a posting is superseded. old carries
// the discard markers; replacement is the posting appended in its place.
type OnPostingDiscarded interface {
	Plugin
	OnPostingDiscarded(ctx context.Context, old, replacement *posting.Posting) error
}

// ──────────────────────────────────────────────────
// Statement hooks
// ──────────────────────────────────────────────────

// OnStatementCreated is called when a checkpoint is created.
type OnStatementCreated interface {
	Plugin
	OnStatementCreated(ctx context.Context, s *statement.Statement) error
}

// OnStatementClosed is called when a checkpoint becomes CLOSED.
type OnStatementClosed interface {
	Plugin
	OnStatementClosed(ctx context.Context, s *statement.Statement) error
}

// ──────────────────────────────────────────────────
// Chain verification hooks
// ──────────────────────────────────────────────────

// OnChainVerified is called when a ledger's chain verifies cleanly.
type OnChainVerified interface {
	Plugin
	OnChainVerified(ctx context.Context, ledgerID id.LedgerID, checked int, elapsed time.Duration) error
}

// OnChainBroken is called when verification finds a broken link.
type OnChainBroken interface {
	Plugin
	OnChainBroken(ctx context.Context, ledgerID id.LedgerID, postingID id.PostingID, reason string) error
}
