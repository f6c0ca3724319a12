package store

import (
	"context"
	"time"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// Store is the unified storage interface for all Journal entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Hierarchy methods
	CreateChart(ctx context.Context, c *account.Chart) error
	GetChart(ctx context.Context, chartID id.ChartID) (*account.Chart, error)
	GetChartByName(ctx context.Context, name string) (*account.Chart, error)
	CreateLedger(ctx context.Context, l *account.Ledger) error
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*account.Ledger, error)
	GetLedgerByName(ctx context.Context, name string) (*account.Ledger, error)
	ListLedgers(ctx context.Context, chartID id.ChartID) ([]*account.Ledger, error)
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetAccountByName(ctx context.Context, ledgerID id.LedgerID, name string) (*account.Account, error)
	ListChildAccounts(ctx context.Context, parentID id.AccountID) ([]*account.Account, error)
	ListAccounts(ctx context.Context, ledgerID id.LedgerID) ([]*account.Account, error)

	// Posting methods
	AppendPosting(ctx context.Context, p *posting.Posting) error
	DiscardAndAppend(ctx context.Context, d *posting.Discard) error
	GetPosting(ctx context.Context, postingID id.PostingID) (*posting.Posting, error)
	GetPostingByHash(ctx context.Context, ledgerID id.LedgerID, hash string) (*posting.Posting, error)
	GetChainHead(ctx context.Context, ledgerID id.LedgerID) (*posting.Posting, error)
	GetActivePostingByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) (*posting.Posting, error)
	ListPostingsByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) ([]*posting.Posting, error)
	ListChain(ctx context.Context, ledgerID id.LedgerID, q posting.ChainQuery) ([]*posting.Posting, error)
	ListLines(ctx context.Context, q posting.LineQuery) ([]*posting.Line, error)
	GetLine(ctx context.Context, accountID id.AccountID, lineID id.LineID) (*posting.Line, error)
	ListTraces(ctx context.Context, postingID id.PostingID) ([]*posting.Trace, error)

	// Statement methods
	CreateStatement(ctx context.Context, s *statement.Statement) error
	UpdateStatement(ctx context.Context, s *statement.Statement) error
	CloseStatement(ctx context.Context, s *statement.Statement, ledgerID id.LedgerID, headID id.PostingID) error
	GetStatement(ctx context.Context, statementID id.StatementID) (*statement.Statement, error)
	LatestStatement(ctx context.Context, owner statement.Owner, status statement.Status) (*statement.Statement, error)
	LatestStatementBefore(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error)
	EarliestStatementAtOrAfter(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error)
	PreviousStatement(ctx context.Context, s *statement.Statement) (*statement.Statement, error)
	ListStatements(ctx context.Context, owner statement.Owner, opts statement.ListOpts) ([]*statement.Statement, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ account.Store   = Store(nil)
	_ posting.Store   = Store(nil)
	_ statement.Store = Store(nil)
)
