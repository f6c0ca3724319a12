package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/types"
)

// fold is the result of summing the lines of one statement window.
type fold struct {
	totals   types.Totals
	latest   id.PostingID
	youngest id.PostingID
	lines    int64
}

// CreateCheckpoint folds the owner's active lines with value time in
// (previous statement, asOf] into a new SIMULATED statement. asOf must be
// strictly after the owner's latest statement. Lines recorded after the
// call started are left for the next statement. Nothing is persisted when
// ctx is cancelled before the insert.
func (j *Journal) CreateCheckpoint(ctx context.Context, owner statement.Owner, asOf time.Time) (*statement.Statement, error) {
	if err := owner.Validate(); err != nil {
		return nil, ValidationError{Field: "owner", Message: err.Error()}
	}
	if asOf.IsZero() {
		return nil, ValidationError{Field: "as_of", Message: "checkpoint value time is required"}
	}
	ledgerID, err := j.ownerLedger(ctx, owner)
	if err != nil {
		return nil, err
	}

	asOf = types.CanonicalTime(asOf)
	cutoff, _, err := j.cutoff(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	prev, err := j.store.LatestStatement(ctx, owner, "")
	if err != nil && !errors.Is(err, ErrStatementNotFound) {
		return nil, err
	}
	if prev != nil && !asOf.After(prev.ValueTime) {
		return nil, &OutOfOrderCheckpointError{
			Owner: owner.String(),
			Reason: fmt.Sprintf("value time %s is not after statement %d at %s",
				asOf.Format(time.RFC3339), prev.Seq, prev.ValueTime.Format(time.RFC3339)),
		}
	}

	st := &statement.Statement{
		ID:        id.NewStatementID(),
		Owner:     owner,
		Status:    statement.StatusSimulated,
		ValueTime: asOf,
		Seq:       1,
	}
	st.Stamp(j.now())
	if prev != nil {
		st.Seq = prev.Seq + 1
	}

	if err := j.refold(ctx, st, prev, cutoff); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := j.store.CreateStatement(ctx, st); err != nil {
		return nil, fmt.Errorf("create checkpoint for %s: %w", owner, err)
	}

	j.logger.Info("checkpoint created",
		"owner", owner.String(),
		"statement_id", st.ID,
		"seq", st.Seq,
		"value_time", st.ValueTime,
		"lines", st.Lines,
	)
	j.plugins.EmitStatementCreated(ctx, st)
	return st, nil
}

// Close makes a SIMULATED statement CLOSED. Its predecessor must already be
// CLOSED; the totals are re-derived from that predecessor first so late
// lines recorded since creation are included. CLOSED is terminal.
//
// The status change commits only while the ledger's chain head is still the
// one the totals were folded against. A posting appended in between makes
// Close fail with ErrChainConflict, which is retryable; postings appended
// after it commits are rejected with ErrPeriodClosed.
func (j *Journal) Close(ctx context.Context, statementID id.StatementID) (*statement.Statement, error) {
	st, err := j.store.GetStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if st.IsClosed() {
		return nil, fmt.Errorf("%w: %s", ErrStatementClosed, statementID)
	}

	prev, err := j.previous(ctx, st)
	if err != nil {
		return nil, err
	}
	if prev != nil && !prev.IsClosed() {
		return nil, &OutOfOrderCheckpointError{
			Owner:  st.Owner.String(),
			Reason: fmt.Sprintf("statement %d must be closed before %d", prev.Seq, st.Seq),
		}
	}

	ledgerID, err := j.ownerLedger(ctx, st.Owner)
	if err != nil {
		return nil, err
	}
	cutoff, head, err := j.cutoff(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := j.refold(ctx, st, prev, cutoff); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := j.now()
	st.Status = statement.StatusClosed
	st.ClosedAt = &now

	if err := j.store.CloseStatement(ctx, st, ledgerID, head); err != nil {
		return nil, fmt.Errorf("close statement %s: %w", statementID, err)
	}

	j.logger.Info("checkpoint closed",
		"owner", st.Owner.String(),
		"statement_id", st.ID,
		"seq", st.Seq,
		"total_debit", st.TotalDebit.String(),
		"total_credit", st.TotalCredit.String(),
	)
	j.plugins.EmitStatementClosed(ctx, st)
	return st, nil
}

// Recompute refreshes a SIMULATED statement's totals from its predecessor.
func (j *Journal) Recompute(ctx context.Context, statementID id.StatementID) (*statement.Statement, error) {
	st, err := j.store.GetStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if st.IsClosed() {
		return nil, fmt.Errorf("%w: %s", ErrStatementClosed, statementID)
	}

	prev, err := j.previous(ctx, st)
	if err != nil {
		return nil, err
	}
	ledgerID, err := j.ownerLedger(ctx, st.Owner)
	if err != nil {
		return nil, err
	}
	cutoff, _, err := j.cutoff(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := j.refold(ctx, st, prev, cutoff); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := j.store.UpdateStatement(ctx, st); err != nil {
		return nil, fmt.Errorf("recompute statement %s: %w", statementID, err)
	}
	return st, nil
}

// ──────────────────────────────────────────────────
// Statement reads
// ──────────────────────────────────────────────────

// Statement retrieves a statement by ID.
func (j *Journal) Statement(ctx context.Context, statementID id.StatementID) (*statement.Statement, error) {
	return j.store.GetStatement(ctx, statementID)
}

// Statements lists an owner's statements in sequence order.
func (j *Journal) Statements(ctx context.Context, owner statement.Owner, opts statement.ListOpts) ([]*statement.Statement, error) {
	return j.store.ListStatements(ctx, owner, opts)
}

// LatestStatement returns the owner's statement with the highest sequence
// number and the given status, any status when status is empty.
func (j *Journal) LatestStatement(ctx context.Context, owner statement.Owner, status statement.Status) (*statement.Statement, error) {
	return j.store.LatestStatement(ctx, owner, status)
}

// LatestBefore returns the most recent statement with the given status and
// value time strictly before ref.
func (j *Journal) LatestBefore(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return j.store.LatestStatementBefore(ctx, owner, status, types.CanonicalTime(ref))
}

// EarliestAtOrAfter returns the nearest statement with the given status and
// value time at or after ref.
func (j *Journal) EarliestAtOrAfter(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return j.store.EarliestStatementAtOrAfter(ctx, owner, status, types.CanonicalTime(ref))
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// ownerLedger resolves the ledger a statement owner lives in, failing when
// the owner does not exist.
func (j *Journal) ownerLedger(ctx context.Context, owner statement.Owner) (id.LedgerID, error) {
	switch owner.Kind {
	case statement.OwnerAccount:
		a, err := j.Account(ctx, owner.ID)
		if err != nil {
			return id.Nil, err
		}
		return a.LedgerID, nil
	case statement.OwnerLedger:
		l, err := j.Ledger(ctx, owner.ID)
		if err != nil {
			return id.Nil, err
		}
		return l.ID, nil
	default:
		return id.Nil, ValidationError{Field: "owner", Message: fmt.Sprintf("unknown owner kind %q", owner.Kind)}
	}
}

// cutoff fixes the record time a statement scan reads up to: the later of
// now and the ledger's chain head, so every posting already in the chain is
// included even when the clock lags behind the head. It also returns the
// head it read, the nil ID for an empty chain.
func (j *Journal) cutoff(ctx context.Context, ledgerID id.LedgerID) (time.Time, id.PostingID, error) {
	now := j.now()
	head, err := j.store.GetChainHead(ctx, ledgerID)
	switch {
	case err == nil:
		if head.RecordTime.After(now) {
			return head.RecordTime, head.ID, nil
		}
		return now, head.ID, nil
	case IsNotFound(err):
		return now, id.Nil, nil
	default:
		return time.Time{}, id.Nil, err
	}
}

func (j *Journal) previous(ctx context.Context, st *statement.Statement) (*statement.Statement, error) {
	if st.Seq <= 1 {
		return nil, nil
	}
	prev, err := j.store.PreviousStatement(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("statement %s: previous: %w", st.ID, err)
	}
	return prev, nil
}

// refold sets st's totals to prev's totals plus the window (prev, st].
func (j *Journal) refold(ctx context.Context, st, prev *statement.Statement, cutoff time.Time) error {
	var (
		base types.Totals
		from time.Time
	)
	if prev != nil {
		base, from = prev.Totals(), prev.ValueTime
	}

	f, err := j.foldWindow(ctx, st.Owner, from, st.ValueTime, cutoff)
	if err != nil {
		return err
	}

	total := base.Plus(f.totals)
	st.TotalDebit, st.TotalCredit = total.Debit, total.Credit
	st.Lines = f.lines
	st.LatestPostingID, st.YoungestPostingID = f.latest, f.youngest
	if f.lines == 0 && prev != nil {
		st.LatestPostingID, st.YoungestPostingID = prev.LatestPostingID, prev.YoungestPostingID
	}
	return nil
}

// foldWindow sums the owner's active lines with value time in (from, to]
// recorded at or before cutoff. Lines are read most recently recorded
// first; the first line read names the latest posting and the first line
// with the greatest value time names the youngest.
func (j *Journal) foldWindow(ctx context.Context, owner statement.Owner, from, to, cutoff time.Time) (fold, error) {
	q := posting.LineQuery{
		ValueAfter:         from,
		ValueAtOrBefore:    to,
		RecordedAtOrBefore: cutoff,
		Order:              posting.OrderRecordDesc,
	}
	if owner.Kind == statement.OwnerLedger {
		q.LedgerID = owner.ID
	} else {
		q.AccountID = owner.ID
	}

	lines, err := j.store.ListLines(ctx, q)
	if err != nil {
		return fold{}, err
	}

	var (
		f        fold
		youngest time.Time
	)
	for i, l := range lines {
		if err := ctx.Err(); err != nil {
			return fold{}, err
		}
		if i == 0 {
			f.latest = l.PostingID
		}
		if l.ValueTime.After(youngest) {
			youngest = l.ValueTime
			f.youngest = l.PostingID
		}
		f.totals = f.totals.Add(l.Debit, l.Credit)
		f.lines++
	}
	return f, nil
}
