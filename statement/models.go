// Package statement models checkpoints: cumulative debit and credit totals
// of an account or a whole ledger up to a value time.
package statement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/types"
)

// Status is the lifecycle state of a statement. Statements start SIMULATED
// and become CLOSED exactly once; CLOSED totals never change.
type Status string

const (
	StatusSimulated Status = "SIMULATED"
	StatusClosed    Status = "CLOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSimulated, StatusClosed:
		return true
	default:
		return false
	}
}

// OwnerKind names what a statement summarizes.
type OwnerKind string

const (
	OwnerAccount OwnerKind = "account"
	OwnerLedger  OwnerKind = "ledger"
)

// Owner identifies the account or ledger a statement belongs to.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   id.ID     `json:"id"`
}

// AccountOwner is the owner for an account statement.
func AccountOwner(accountID id.AccountID) Owner {
	return Owner{Kind: OwnerAccount, ID: accountID}
}

// LedgerOwner is the owner for a ledger statement.
func LedgerOwner(ledgerID id.LedgerID) Owner {
	return Owner{Kind: OwnerLedger, ID: ledgerID}
}

// Validate checks that the owner kind matches the id prefix.
func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerAccount:
		if o.ID.Prefix() != id.PrefixAccount {
			return fmt.Errorf("statement: owner %s is not an account", o.ID)
		}
	case OwnerLedger:
		if o.ID.Prefix() != id.PrefixLedger {
			return fmt.Errorf("statement: owner %s is not a ledger", o.ID)
		}
	default:
		return fmt.Errorf("statement: unknown owner kind %q", o.Kind)
	}
	return nil
}

func (o Owner) String() string { return string(o.Kind) + ":" + o.ID.String() }

// Statement is a checkpoint. Seq increases strictly per owner and
// ValueTime increases with it.
type Statement struct {
	types.Entity
	ID          id.StatementID  `json:"id"`
	Owner       Owner           `json:"owner"`
	Status      Status          `json:"status"`
	ValueTime   time.Time       `json:"value_time"`
	Seq         int64           `json:"seq"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`

	// LatestPostingID is the posting of the most recently recorded line
	// folded into the totals, YoungestPostingID the one with the latest
	// value time.
	LatestPostingID   id.PostingID `json:"latest_posting_id,omitzero"`
	YoungestPostingID id.PostingID `json:"youngest_posting_id,omitzero"`

	// Lines is how many lines were folded in since the previous statement.
	Lines    int64      `json:"lines"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// Totals returns the cumulative totals as a pair.
func (s *Statement) Totals() types.Totals {
	return types.Totals{Debit: s.TotalDebit, Credit: s.TotalCredit}
}

// IsClosed reports whether the statement is final.
func (s *Statement) IsClosed() bool { return s.Status == StatusClosed }

// ListOpts filters a statement listing. Zero values do not filter.
type ListOpts struct {
	Status Status
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
