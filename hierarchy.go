package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
)

// ──────────────────────────────────────────────────
// Chart of accounts
// ──────────────────────────────────────────────────

// CreateChart creates a chart of accounts. Chart names are globally unique.
func (j *Journal) CreateChart(ctx context.Context, c *account.Chart) error {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationError{Field: "name", Message: "chart name is required"}
	}
	if c.ID.IsNil() {
		c.ID = id.NewChartID()
	}
	c.Stamp(j.now())

	if err := j.store.CreateChart(ctx, c); err != nil {
		return err
	}

	j.logger.Debug("chart created", "chart_id", c.ID, "name", c.Name)
	j.plugins.EmitChartCreated(ctx, c)
	return nil
}

// Chart retrieves a chart by ID.
func (j *Journal) Chart(ctx context.Context, chartID id.ChartID) (*account.Chart, error) {
	return cached(j, "chart:"+chartID.String(), func() (*account.Chart, error) {
		return j.store.GetChart(ctx, chartID)
	})
}

// ChartByName retrieves a chart by its unique name.
func (j *Journal) ChartByName(ctx context.Context, name string) (*account.Chart, error) {
	return j.store.GetChartByName(ctx, name)
}

// ──────────────────────────────────────────────────
// Ledgers
// ──────────────────────────────────────────────────

// CreateLedger creates a ledger under an existing chart. Ledger names are
// globally unique.
func (j *Journal) CreateLedger(ctx context.Context, l *account.Ledger) error {
	if strings.TrimSpace(l.Name) == "" {
		return ValidationError{Field: "name", Message: "ledger name is required"}
	}
	if _, err := j.Chart(ctx, l.ChartID); err != nil {
		return fmt.Errorf("create ledger %q: %w", l.Name, err)
	}
	if l.ID.IsNil() {
		l.ID = id.NewLedgerID()
	}
	l.Stamp(j.now())

	if err := j.store.CreateLedger(ctx, l); err != nil {
		return err
	}

	j.logger.Debug("ledger created", "ledger_id", l.ID, "name", l.Name, "chart_id", l.ChartID)
	j.plugins.EmitLedgerCreated(ctx, l)
	return nil
}

// Ledger retrieves a ledger by ID.
func (j *Journal) Ledger(ctx context.Context, ledgerID id.LedgerID) (*account.Ledger, error) {
	return cached(j, "ledger:"+ledgerID.String(), func() (*account.Ledger, error) {
		return j.store.GetLedger(ctx, ledgerID)
	})
}

// LedgerByName retrieves a ledger by its unique name.
func (j *Journal) LedgerByName(ctx context.Context, name string) (*account.Ledger, error) {
	return j.store.GetLedgerByName(ctx, name)
}

// Ledgers lists the ledgers of a chart, or every ledger when chartID is nil.
func (j *Journal) Ledgers(ctx context.Context, chartID id.ChartID) ([]*account.Ledger, error) {
	return j.store.ListLedgers(ctx, chartID)
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// CreateAccount creates a ledger account. The ledger must exist, the parent
// (when given) must already exist in the same ledger, and the name must be
// unique within the ledger. An empty BalanceSide takes the category's
// default.
func (j *Journal) CreateAccount(ctx context.Context, a *account.Account) error {
	if strings.TrimSpace(a.Name) == "" {
		return ValidationError{Field: "name", Message: "account name is required"}
	}
	if !a.Category.Valid() {
		return ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", a.Category)}
	}
	if a.BalanceSide == "" {
		side, err := a.Category.DefaultSide()
		if err != nil {
			return ValidationError{Field: "category", Message: err.Error()}
		}
		a.BalanceSide = side
	}
	if !a.BalanceSide.Valid() {
		return ValidationError{Field: "balance_side", Message: fmt.Sprintf("unknown balance side %q", a.BalanceSide)}
	}

	l, err := j.Ledger(ctx, a.LedgerID)
	if err != nil {
		return fmt.Errorf("create account %q: %w", a.Name, err)
	}
	switch {
	case a.ChartID.IsNil():
		a.ChartID = l.ChartID
	case a.ChartID != l.ChartID:
		return ValidationError{Field: "chart_id", Message: "account chart differs from its ledger's chart"}
	}

	if !a.ParentID.IsNil() {
		parent, err := j.Account(ctx, a.ParentID)
		if err != nil {
			return fmt.Errorf("create account %q: parent: %w", a.Name, err)
		}
		if parent.LedgerID != a.LedgerID {
			return ValidationError{Field: "parent_id", Message: "parent account belongs to another ledger"}
		}
	}

	if a.ID.IsNil() {
		a.ID = id.NewAccountID()
	}
	a.Stamp(j.now())

	if err := j.store.CreateAccount(ctx, a); err != nil {
		return err
	}

	j.logger.Debug("account created",
		"account_id", a.ID,
		"ledger_id", a.LedgerID,
		"name", a.Name,
		"category", a.Category,
	)
	j.plugins.EmitAccountCreated(ctx, a)
	return nil
}

// Account retrieves an account by ID.
func (j *Journal) Account(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return cached(j, "account:"+accountID.String(), func() (*account.Account, error) {
		return j.store.GetAccount(ctx, accountID)
	})
}

// AccountByName retrieves an account by its name within a ledger.
func (j *Journal) AccountByName(ctx context.Context, ledgerID id.LedgerID, name string) (*account.Account, error) {
	return cached(j, "account-name:"+ledgerID.String()+"/"+name, func() (*account.Account, error) {
		return j.store.GetAccountByName(ctx, ledgerID, name)
	})
}

// ChildrenOf lists the direct children of an account.
func (j *Journal) ChildrenOf(ctx context.Context, parentID id.AccountID) ([]*account.Account, error) {
	return j.store.ListChildAccounts(ctx, parentID)
}

// Accounts lists every account of a ledger.
func (j *Journal) Accounts(ctx context.Context, ledgerID id.LedgerID) ([]*account.Account, error) {
	return j.store.ListAccounts(ctx, ledgerID)
}

// cached serves an immutable hierarchy entity from the in-process cache,
// loading and remembering it on a miss. Callers receive their own copy.
func cached[T any](j *Journal, key string, load func() (*T, error)) (*T, error) {
	if v, ok := j.hierarchy.Get(key); ok {
		if stored, ok := v.(*T); ok {
			cp := *stored
			return &cp, nil
		}
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	stored := *v
	j.hierarchy.Set(key, &stored, cache.DefaultExpiration)
	return v, nil
}
