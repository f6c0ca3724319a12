package journal_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/memory"
)

var (
	t0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
)

// fakeClock is a settable clock for record times.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fixture is a journal over a memory store with one ledger holding an
// asset account A, a liability account B and a non-operating account N.
type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	clock  *fakeClock
	j      *journal.Journal
	chart  *account.Chart
	ledger *account.Ledger
	a      *account.Account
	b      *account.Account
	n      *account.Account
	seq    int
}

func newFixture(t *testing.T, opts ...journal.Option) *fixture {
	t.Helper()

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		clock: &fakeClock{now: t0},
	}
	opts = append([]journal.Option{journal.WithClock(f.clock.Now)}, opts...)
	f.j = journal.New(f.store, opts...)

	if err := f.j.Start(f.ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = f.j.Stop() })

	f.chart = &account.Chart{Name: "chart-" + t.Name()}
	if err := f.j.CreateChart(f.ctx, f.chart); err != nil {
		t.Fatalf("CreateChart: %v", err)
	}
	f.ledger = f.newLedger("main")
	f.a = f.newAccount(f.ledger, "A", account.CategoryAsset)
	f.b = f.newAccount(f.ledger, "B", account.CategoryLiability)
	f.n = f.newAccount(f.ledger, "N", account.CategoryNonOperating)
	return f
}

func (f *fixture) newLedger(name string) *account.Ledger {
	f.t.Helper()
	l := &account.Ledger{Name: name + "-" + f.t.Name(), ChartID: f.chart.ID}
	if err := f.j.CreateLedger(f.ctx, l); err != nil {
		f.t.Fatalf("CreateLedger: %v", err)
	}
	return l
}

func (f *fixture) newAccount(l *account.Ledger, name string, c account.Category) *account.Account {
	f.t.Helper()
	a := &account.Account{Name: name, LedgerID: l.ID, Category: c}
	if err := f.j.CreateAccount(f.ctx, a); err != nil {
		f.t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

// accounts returns A, B and N in that order.
func (f *fixture) accounts() []*account.Account {
	return []*account.Account{f.a, f.b, f.n}
}

func (f *fixture) oprID() string {
	f.seq++
	return fmt.Sprintf("op-%d", f.seq)
}

// transfer appends a posting debiting dr and crediting cr.
func (f *fixture) transfer(dr, cr id.AccountID, amount string, valueTime time.Time) *posting.Posting {
	f.t.Helper()
	p, err := f.j.Append(f.ctx, journal.AppendInput{
		LedgerID:  f.ledger.ID,
		OprID:     f.oprID(),
		ValueTime: valueTime,
		Lines: []posting.LineInput{
			journal.Debit(dr, journal.MustAmount(amount)),
			journal.Credit(cr, journal.MustAmount(amount)),
		},
	})
	if err != nil {
		f.t.Fatalf("Append %s: %v", amount, err)
	}
	return p
}

func (f *fixture) balance(accountID id.AccountID, asOf time.Time) *journal.Balance {
	f.t.Helper()
	b, err := f.j.BalanceAsOf(f.ctx, accountID, asOf)
	if err != nil {
		f.t.Fatalf("BalanceAsOf: %v", err)
	}
	return b
}

func (f *fixture) wantAmount(accountID id.AccountID, asOf time.Time, want string) {
	f.t.Helper()
	got := f.balance(accountID, asOf).Amount
	if !got.Equal(journal.MustAmount(want)) {
		f.t.Errorf("balance as of %s = %s, want %s", asOf.Format(time.DateOnly), got, want)
	}
}

// tamperStore rewrites postings on their way out of the chain listing, as
// if the stored rows had been altered.
type tamperStore struct {
	store.Store
	mutate func(p *posting.Posting)
}

func (s *tamperStore) ListChain(ctx context.Context, ledgerID id.LedgerID, q posting.ChainQuery) ([]*posting.Posting, error) {
	ps, err := s.Store.ListChain(ctx, ledgerID, q)
	for _, p := range ps {
		s.mutate(p)
	}
	return ps, err
}
