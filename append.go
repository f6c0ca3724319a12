package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/types"
)

// AppendInput describes a posting to append. Type defaults to BUSI_TX,
// Status to POSTED, ValueTime and OprTime to the record time.
type AppendInput struct {
	LedgerID   id.LedgerID
	OprID      string
	OprTime    time.Time
	OprType    string
	OprSrc     string
	OprDetails string
	RecordUser string
	ValueTime  time.Time
	Type       posting.Type
	Status     posting.Status
	Lines      []posting.LineInput
}

// Append validates a balanced posting and appends it to its ledger's hash
// chain. The store applies it as a compare-and-swap on the chain head, so a
// concurrent append to the same ledger surfaces ErrChainConflict; use
// AppendWithRetry to retry those.
func (j *Journal) Append(ctx context.Context, in AppendInput) (*posting.Posting, error) {
	start := time.Now()

	p, err := j.preparePosting(ctx, in, nil)
	if err != nil {
		return nil, err
	}

	if err := j.store.AppendPosting(ctx, p); err != nil {
		return nil, fmt.Errorf("append posting %q: %w", in.OprID, err)
	}

	j.logger.Debug("posting appended",
		"ledger_id", p.LedgerID,
		"posting_id", p.ID,
		"opr_id", p.OprID,
		"lines", len(p.Lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	j.plugins.EmitPostingAppended(ctx, p)
	return p, nil
}

// AppendWithRetry is Append with exponential backoff on retryable errors
// (chain conflicts and store outages). Every other error is returned as is
// on the first attempt.
func (j *Journal) AppendWithRetry(ctx context.Context, in AppendInput) (*posting.Posting, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = time.Second

	attempt := 0
	return backoff.Retry(ctx, func() (*posting.Posting, error) {
		attempt++
		p, err := j.Append(ctx, in)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return p, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(j.retryMaxTries),
		backoff.WithMaxElapsedTime(j.retryMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			j.logger.Debug("append retry",
				"ledger_id", in.LedgerID,
				"opr_id", in.OprID,
				"attempt", attempt,
				"next", next,
				"error", err,
			)
		}),
	)
}

// preparePosting runs every validation and builds a sealed posting that
// extends the current chain head. base, when set, maps account ids to the
// lines of a discarded posting so the new lines can point back at them.
func (j *Journal) preparePosting(ctx context.Context, in AppendInput, base map[id.AccountID]id.LineID) (*posting.Posting, error) {
	if strings.TrimSpace(in.OprID) == "" {
		return nil, ValidationError{Field: "opr_id", Message: "operation id is required"}
	}
	if in.Type == "" {
		in.Type = posting.TypeBusinessTx
	}
	if in.Status == "" {
		in.Status = posting.StatusPosted
	}
	if !in.Type.Valid() {
		return nil, ValidationError{Field: "type", Message: fmt.Sprintf("unknown posting type %q", in.Type)}
	}
	if !in.Status.Valid() {
		return nil, ValidationError{Field: "status", Message: fmt.Sprintf("unknown posting status %q", in.Status)}
	}

	if _, err := j.Ledger(ctx, in.LedgerID); err != nil {
		return nil, err
	}
	if err := validateLines(in.Type, in.Lines); err != nil {
		return nil, err
	}
	if err := j.checkLineAccounts(ctx, in.LedgerID, in.Lines); err != nil {
		return nil, err
	}

	active, err := j.store.GetActivePostingByOprID(ctx, in.LedgerID, in.OprID)
	switch {
	case err == nil:
		return nil, &DuplicateOperationError{LedgerID: in.LedgerID, OprID: in.OprID, PostingID: active.ID}
	case !IsNotFound(err):
		return nil, err
	}

	now := j.now()
	if in.ValueTime.IsZero() {
		in.ValueTime = now
	}
	valueTime := types.CanonicalTime(in.ValueTime)
	if err := j.checkOpenPeriod(ctx, in.LedgerID, lineAccounts(in.Lines), valueTime); err != nil {
		return nil, err
	}

	p := &posting.Posting{
		ID:         id.NewPostingID(),
		LedgerID:   in.LedgerID,
		OprID:      in.OprID,
		OprTime:    types.CanonicalTime(in.OprTime),
		OprType:    in.OprType,
		OprSrc:     in.OprSrc,
		OprDetails: in.OprDetails,
		RecordUser: in.RecordUser,
		ValueTime:  valueTime,
		Type:       in.Type,
		Status:     in.Status,
	}

	head, err := j.store.GetChainHead(ctx, in.LedgerID)
	switch {
	case err == nil:
		p.AntecedentID = head.ID
		p.AntecedentHash = head.Hash
		if floor := head.RecordTime.Add(time.Millisecond); now.Before(floor) {
			now = floor
		}
	case !IsNotFound(err):
		return nil, err
	}
	p.RecordTime = now
	if p.OprTime.IsZero() {
		p.OprTime = now
	}

	for i, li := range in.Lines {
		l := &posting.Line{
			ID:          id.NewLineID(),
			PostingID:   p.ID,
			LedgerID:    p.LedgerID,
			AccountID:   li.AccountID,
			Position:    i,
			Debit:       li.Debit,
			Credit:      li.Credit,
			ValueTime:   p.ValueTime,
			RecordTime:  p.RecordTime,
			OprID:       p.OprID,
			OprSrc:      p.OprSrc,
			Type:        p.Type,
			Status:      p.Status,
			SrcAccount:  li.SrcAccount,
			SubOprSrcID: li.SubOprSrcID,
			Details:     li.Details,
		}
		if base != nil {
			l.BaseLine = base[li.AccountID]
		}
		p.Lines = append(p.Lines, l)
	}

	if err := posting.Seal(p); err != nil {
		return nil, err
	}
	return p, nil
}

// validateLines checks line shape and balance.
func validateLines(typ posting.Type, lines []posting.LineInput) error {
	if len(lines) == 0 {
		return ValidationError{Field: "lines", Message: "a posting needs at least one line"}
	}

	debit, credit := decimal.Zero, decimal.Zero
	for i, l := range lines {
		field := fmt.Sprintf("lines[%d]", i)
		switch {
		case l.AccountID.IsNil():
			return ValidationError{Field: field, Message: "account is required"}
		case l.Debit.IsNegative() || l.Credit.IsNegative():
			return ValidationError{Field: field, Message: "amounts must not be negative"}
		case !l.Debit.IsZero() && !l.Credit.IsZero():
			return ValidationError{Field: field, Message: "a line is either a debit or a credit"}
		case l.Debit.IsZero() && l.Credit.IsZero() && !typ.IsStatement():
			return ValidationError{Field: field, Message: "zero lines are only allowed on statement postings"}
		}
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}

	if !debit.Equal(credit) {
		return &UnbalancedPostingError{Debit: debit, Credit: credit}
	}
	return nil
}

// checkLineAccounts verifies that every line account belongs to the ledger
// and that source accounts exist.
func (j *Journal) checkLineAccounts(ctx context.Context, ledgerID id.LedgerID, lines []posting.LineInput) error {
	for _, l := range lines {
		a, err := j.Account(ctx, l.AccountID)
		if err != nil {
			return fmt.Errorf("line account %s: %w", l.AccountID, err)
		}
		if a.LedgerID != ledgerID {
			return fmt.Errorf("%w: account %s is not in ledger %s", ErrAccountNotFound, l.AccountID, ledgerID)
		}
		if !l.SrcAccount.IsNil() {
			if _, err := j.Account(ctx, l.SrcAccount); err != nil {
				return fmt.Errorf("line source account %s: %w", l.SrcAccount, err)
			}
		}
	}
	return nil
}

// checkOpenPeriod rejects value times that fall inside a CLOSED statement
// of the ledger or of any of the accounts, which would make those
// statements' totals wrong.
func (j *Journal) checkOpenPeriod(ctx context.Context, ledgerID id.LedgerID, accounts []id.AccountID, valueTime time.Time) error {
	owners := make([]statement.Owner, 0, len(accounts)+1)
	owners = append(owners, statement.LedgerOwner(ledgerID))
	for _, a := range accounts {
		owners = append(owners, statement.AccountOwner(a))
	}

	for _, owner := range owners {
		st, err := j.store.LatestStatement(ctx, owner, statement.StatusClosed)
		if err != nil {
			if errors.Is(err, ErrStatementNotFound) {
				continue
			}
			return err
		}
		if !valueTime.After(st.ValueTime) {
			return fmt.Errorf("%w: %s closed through %s by statement %s",
				ErrPeriodClosed, owner, st.ValueTime.Format(time.RFC3339), st.ID)
		}
	}
	return nil
}

func lineAccounts(lines []posting.LineInput) []id.AccountID {
	seen := make(map[id.AccountID]struct{}, len(lines))
	out := make([]id.AccountID, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		out = append(out, l.AccountID)
	}
	return out
}
