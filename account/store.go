package account

import (
	"context"

	"github.com/xraph/journal/id"
)

// Store persists the account hierarchy. Entities are created once and read
// thereafter.
type Store interface {
	CreateChart(ctx context.Context, c *Chart) error
	GetChart(ctx context.Context, chartID id.ChartID) (*Chart, error)
	GetChartByName(ctx context.Context, name string) (*Chart, error)

	CreateLedger(ctx context.Context, l *Ledger) error
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*Ledger, error)
	GetLedgerByName(ctx context.Context, name string) (*Ledger, error)
	ListLedgers(ctx context.Context, chartID id.ChartID) ([]*Ledger, error)

	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error)
	GetAccountByName(ctx context.Context, ledgerID id.LedgerID, name string) (*Account, error)
	ListChildAccounts(ctx context.Context, parentID id.AccountID) ([]*Account, error)
	ListAccounts(ctx context.Context, ledgerID id.LedgerID) ([]*Account, error)
}
