package journal

import (
	"context"
	"time"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
)

// ──────────────────────────────────────────────────
// Posting reads
// ──────────────────────────────────────────────────

// Posting retrieves a posting whether or not it has been discarded.
func (j *Journal) Posting(ctx context.Context, postingID id.PostingID) (*posting.Posting, error) {
	return j.store.GetPosting(ctx, postingID)
}

// ActivePosting returns the active posting for an operation id.
func (j *Journal) ActivePosting(ctx context.Context, ledgerID id.LedgerID, oprID string) (*posting.Posting, error) {
	return j.store.GetActivePostingByOprID(ctx, ledgerID, oprID)
}

// PostingsByOperation lists every posting ever made for an operation id,
// discarded ones included, in record order.
func (j *Journal) PostingsByOperation(ctx context.Context, ledgerID id.LedgerID, oprID string) ([]*posting.Posting, error) {
	return j.store.ListPostingsByOprID(ctx, ledgerID, oprID)
}

// ChainHead returns the most recently recorded posting of a ledger.
func (j *Journal) ChainHead(ctx context.Context, ledgerID id.LedgerID) (*posting.Posting, error) {
	return j.store.GetChainHead(ctx, ledgerID)
}

// Traces lists the traces left by the posting that superseded another.
func (j *Journal) Traces(ctx context.Context, postingID id.PostingID) ([]*posting.Trace, error) {
	return j.store.ListTraces(ctx, postingID)
}

// ──────────────────────────────────────────────────
// Line reads
// ──────────────────────────────────────────────────

// Lines lists an account's active lines with value time in (from, to],
// in record order. Zero bounds are open.
func (j *Journal) Lines(ctx context.Context, accountID id.AccountID, from, to time.Time) ([]*posting.Line, error) {
	return j.store.ListLines(ctx, posting.LineQuery{
		AccountID:       accountID,
		ValueAfter:      from,
		ValueAtOrBefore: to,
	})
}

// AuditLines is Lines including the lines of discarded postings.
func (j *Journal) AuditLines(ctx context.Context, accountID id.AccountID, from, to time.Time) ([]*posting.Line, error) {
	return j.store.ListLines(ctx, posting.LineQuery{
		AccountID:        accountID,
		ValueAfter:       from,
		ValueAtOrBefore:  to,
		IncludeDiscarded: true,
	})
}

// LinesByBase lists every line that corrects the given line.
func (j *Journal) LinesByBase(ctx context.Context, baseLineID id.LineID) ([]*posting.Line, error) {
	return j.store.ListLines(ctx, posting.LineQuery{
		BaseLineID:       baseLineID,
		IncludeDiscarded: true,
	})
}

// Line retrieves one line of an account.
func (j *Journal) Line(ctx context.Context, accountID id.AccountID, lineID id.LineID) (*posting.Line, error) {
	return j.store.GetLine(ctx, accountID, lineID)
}
