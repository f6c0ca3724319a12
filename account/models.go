// Package account models the chart of accounts: charts, ledgers and the
// tree of ledger accounts whose category and balance side decide how line
// amounts are read as increases or decreases.
package account

import (
	"fmt"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/types"
)

// Category classifies a ledger account.
type Category string

const (
	CategoryRevenue             Category = "RE"
	CategoryExpense             Category = "EX"
	CategoryAsset               Category = "AS"
	CategoryLiability           Category = "LI"
	CategoryEquity              Category = "EQ"
	CategoryNonOperating        Category = "NOOP"
	CategoryNonOperatingRevenue Category = "NORE"
	CategoryNonOperatingExpense Category = "NOEX"
)

// BalanceSide tells which column increases an account.
type BalanceSide string

const (
	SideDebit  BalanceSide = "Dr"
	SideCredit BalanceSide = "Cr"
	SideBoth   BalanceSide = "DrCr"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRevenue, CategoryExpense, CategoryAsset, CategoryLiability,
		CategoryEquity, CategoryNonOperating, CategoryNonOperatingRevenue,
		CategoryNonOperatingExpense:
		return true
	default:
		return false
	}
}

// DefaultSide returns the conventional balance side for the category.
func (c Category) DefaultSide() (BalanceSide, error) {
	switch c {
	case CategoryRevenue, CategoryLiability, CategoryEquity, CategoryNonOperatingRevenue:
		return SideCredit, nil
	case CategoryExpense, CategoryAsset, CategoryNonOperatingExpense:
		return SideDebit, nil
	case CategoryNonOperating:
		return SideBoth, nil
	default:
		return "", fmt.Errorf("account: unknown category %q", c)
	}
}

// Valid reports whether s is one of the known balance sides.
func (s BalanceSide) Valid() bool {
	switch s {
	case SideDebit, SideCredit, SideBoth:
		return true
	default:
		return false
	}
}

// Chart is a chart of accounts. Its name is globally unique.
type Chart struct {
	types.Entity
	ID   id.ChartID `json:"id"`
	Name string     `json:"name"`
}

// Ledger belongs to exactly one chart and owns an account tree and a
// hash-chained sequence of postings. Its name is globally unique.
type Ledger struct {
	types.Entity
	ID      id.LedgerID `json:"id"`
	Name    string      `json:"name"`
	ChartID id.ChartID  `json:"chart_id"`
}

// Account is a ledger account. Its name is unique within its ledger and
// its parent, when set, lives in the same ledger.
type Account struct {
	types.Entity
	ID          id.AccountID `json:"id"`
	Name        string       `json:"name"`
	LedgerID    id.LedgerID  `json:"ledger_id"`
	ChartID     id.ChartID   `json:"chart_id"`
	ParentID    id.AccountID `json:"parent_id,omitzero"`
	Category    Category     `json:"category"`
	BalanceSide BalanceSide  `json:"balance_side"`
}

// IsRoot reports whether the account has no parent.
func (a *Account) IsRoot() bool { return a.ParentID.IsNil() }
