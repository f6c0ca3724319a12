package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/types"
)

// Balance is an account's position as of a value time.
type Balance struct {
	AccountID   id.AccountID        `json:"account_id"`
	Side        account.BalanceSide `json:"side"`
	AsOf        time.Time           `json:"as_of"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`

	// Amount is debit minus credit for Dr accounts and credit minus debit
	// for Cr accounts. DrCr accounts are not netted: Amount stays zero and
	// Netted is false.
	Amount decimal.Decimal `json:"amount"`
	Netted bool            `json:"netted"`

	// CheckpointID is the CLOSED statement replay started from, nil when
	// replay started at genesis. Replayed counts the lines folded on top.
	CheckpointID id.StatementID `json:"checkpoint_id,omitzero"`
	Replayed     int            `json:"replayed"`
}

// Totals returns the balance's debit and credit totals.
func (b *Balance) Totals() types.Totals {
	return types.Totals{Debit: b.TotalDebit, Credit: b.TotalCredit}
}

// BalanceAsOf reconstructs an account's balance at value time asOf from the
// latest CLOSED account statement before asOf plus a replay, in record
// order, of the active lines after it. The answer does not depend on which
// statements exist, only the cost of computing it does.
func (j *Journal) BalanceAsOf(ctx context.Context, accountID id.AccountID, asOf time.Time) (*Balance, error) {
	acct, err := j.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	asOf = types.CanonicalTime(asOf)

	b := &Balance{AccountID: accountID, Side: acct.BalanceSide, AsOf: asOf}

	var (
		totals types.Totals
		from   time.Time
	)
	cp, err := j.store.LatestStatementBefore(ctx, statement.AccountOwner(accountID), statement.StatusClosed, asOf)
	switch {
	case err == nil:
		totals, from = cp.Totals(), cp.ValueTime
		b.CheckpointID = cp.ID
	case !errors.Is(err, ErrStatementNotFound):
		return nil, err
	}

	lines, err := j.store.ListLines(ctx, posting.LineQuery{
		AccountID:       accountID,
		ValueAfter:      from,
		ValueAtOrBefore: asOf,
		Order:           posting.OrderRecordAsc,
	})
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		totals = totals.Add(l.Debit, l.Credit)
	}
	b.Replayed = len(lines)
	b.TotalDebit, b.TotalCredit = totals.Debit, totals.Credit

	switch acct.BalanceSide {
	case account.SideDebit:
		b.Amount, b.Netted = totals.DebitBalance(), true
	case account.SideCredit:
		b.Amount, b.Netted = totals.CreditBalance(), true
	case account.SideBoth:
		b.Amount, b.Netted = decimal.Zero, false
	default:
		return nil, fmt.Errorf("%w: account %s has unknown balance side %q", ErrInvalidInput, accountID, acct.BalanceSide)
	}

	return b, nil
}
