package statement

import (
	"context"
	"time"

	"github.com/xraph/journal/id"
)

// Store persists statements.
//
// CreateStatement fails with an out-of-order checkpoint error when the
// owner already has a statement with the same Seq. UpdateStatement only
// rewrites SIMULATED statements; a CLOSED one yields a statement closed
// error. Status filters given as the empty string match any status.
//
// CloseStatement writes s the way UpdateStatement does, in the same unit of
// work as a check that ledgerID's chain head is still headID (the nil ID
// meaning an empty chain). It fails with a chain conflict when the head has
// moved, so a statement is never closed over totals that miss a posting
// committed after they were folded.
type Store interface {
	CreateStatement(ctx context.Context, s *Statement) error
	UpdateStatement(ctx context.Context, s *Statement) error
	CloseStatement(ctx context.Context, s *Statement, ledgerID id.LedgerID, headID id.PostingID) error
	GetStatement(ctx context.Context, statementID id.StatementID) (*Statement, error)

	// LatestStatement returns the statement with the highest Seq.
	LatestStatement(ctx context.Context, owner Owner, status Status) (*Statement, error)
	// LatestStatementBefore returns the statement with the greatest value
	// time strictly before ref, ties broken by the higher Seq.
	LatestStatementBefore(ctx context.Context, owner Owner, status Status, ref time.Time) (*Statement, error)
	// EarliestStatementAtOrAfter returns the statement with the smallest
	// value time at or after ref, ties broken by the lower Seq.
	EarliestStatementAtOrAfter(ctx context.Context, owner Owner, status Status, ref time.Time) (*Statement, error)
	// PreviousStatement returns the owner's statement with Seq-1.
	PreviousStatement(ctx context.Context, s *Statement) (*Statement, error)
	ListStatements(ctx context.Context, owner Owner, opts ListOpts) ([]*Statement, error)
}
