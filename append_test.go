package journal_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/memory"
)

func TestAppendValidation(t *testing.T) {
	f := newFixture(t)
	other := f.newLedger("other")
	foreign := f.newAccount(other, "foreign", account.CategoryAsset)

	amt := journal.MustAmount("10")
	tests := []struct {
		name string
		in   journal.AppendInput
		want error
	}{
		{"missing opr id", journal.AppendInput{
			LedgerID: f.ledger.ID,
			Lines:    []posting.LineInput{journal.Debit(f.a.ID, amt), journal.Credit(f.b.ID, amt)},
		}, journal.ErrInvalidInput},
		{"unknown ledger", journal.AppendInput{
			LedgerID: id.NewLedgerID(), OprID: "x",
			Lines: []posting.LineInput{journal.Debit(f.a.ID, amt), journal.Credit(f.b.ID, amt)},
		}, journal.ErrLedgerNotFound},
		{"no lines", journal.AppendInput{LedgerID: f.ledger.ID, OprID: "x"}, journal.ErrInvalidInput},
		{"negative amount", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x",
			Lines: []posting.LineInput{journal.Debit(f.a.ID, amt.Neg()), journal.Credit(f.b.ID, amt.Neg())},
		}, journal.ErrInvalidInput},
		{"both sides on one line", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x",
			Lines: []posting.LineInput{{AccountID: f.a.ID, Debit: amt, Credit: amt}},
		}, journal.ErrInvalidInput},
		{"zero line on business posting", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x",
			Lines: []posting.LineInput{{AccountID: f.a.ID}},
		}, journal.ErrInvalidInput},
		{"unknown account", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x",
			Lines: []posting.LineInput{journal.Debit(id.NewAccountID(), amt), journal.Credit(f.b.ID, amt)},
		}, journal.ErrAccountNotFound},
		{"account of another ledger", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x",
			Lines: []posting.LineInput{journal.Debit(foreign.ID, amt), journal.Credit(f.b.ID, amt)},
		}, journal.ErrAccountNotFound},
		{"unbalanced", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x",
			Lines: []posting.LineInput{journal.Debit(f.a.ID, amt), journal.Credit(f.b.ID, journal.MustAmount("9.99"))},
		}, journal.ErrUnbalancedPosting},
		{"unknown type", journal.AppendInput{
			LedgerID: f.ledger.ID, OprID: "x", Type: "WIRE",
			Lines: []posting.LineInput{journal.Debit(f.a.ID, amt), journal.Credit(f.b.ID, amt)},
		}, journal.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.j.Append(f.ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.j.ChainHead(f.ctx, f.ledger.ID); !journal.IsNotFound(err) {
		t.Errorf("rejected postings must not reach the chain, head err = %v", err)
	}
}

func TestAppendStatementPostingAllowsZeroLines(t *testing.T) {
	f := newFixture(t)
	p, err := f.j.Append(f.ctx, journal.AppendInput{
		LedgerID: f.ledger.ID,
		OprID:    "closing",
		Type:     posting.TypeLedgerClosing,
		Lines:    []posting.LineInput{{AccountID: f.a.ID}, {AccountID: f.b.ID}},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if p.Type != posting.TypeLedgerClosing || len(p.Lines) != 2 {
		t.Errorf("unexpected posting %+v", p)
	}
}

func TestAppendChainsPostings(t *testing.T) {
	f := newFixture(t)

	p1 := f.transfer(f.a.ID, f.b.ID, "1", t1)
	p2 := f.transfer(f.a.ID, f.b.ID, "2", t1)
	p3 := f.transfer(f.a.ID, f.b.ID, "3", t0)

	if !p1.IsGenesis() || p1.AntecedentHash != "" {
		t.Errorf("first posting should be genesis, antecedent %q", p1.AntecedentID)
	}
	if p2.AntecedentID != p1.ID || p2.AntecedentHash != p1.Hash {
		t.Error("p2 does not link to p1")
	}
	if p3.AntecedentID != p2.ID || p3.AntecedentHash != p2.Hash {
		t.Error("p3 does not link to p2")
	}

	// The clock is frozen, so record times advance by the minimum step.
	if !p2.RecordTime.After(p1.RecordTime) || !p3.RecordTime.After(p2.RecordTime) {
		t.Errorf("record times not strictly increasing: %s %s %s", p1.RecordTime, p2.RecordTime, p3.RecordTime)
	}
	if got := p2.RecordTime.Sub(p1.RecordTime); got != time.Millisecond {
		t.Errorf("record step = %s, want 1ms", got)
	}

	head, err := f.j.ChainHead(f.ctx, f.ledger.ID)
	if err != nil {
		t.Fatal(err)
	}
	if head.ID != p3.ID {
		t.Errorf("head = %s, want %s", head.ID, p3.ID)
	}

	// Value time is independent of record order.
	if !p3.ValueTime.Before(p1.ValueTime) {
		t.Error("backdated posting lost its value time")
	}
}

func TestDuplicateOperation(t *testing.T) {
	f := newFixture(t)
	in := journal.AppendInput{
		LedgerID: f.ledger.ID,
		OprID:    "invoice-7",
		Lines: []posting.LineInput{
			journal.Debit(f.a.ID, journal.MustAmount("5")),
			journal.Credit(f.b.ID, journal.MustAmount("5")),
		},
	}
	first, err := f.j.Append(f.ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.j.Append(f.ctx, in)
	var dup *journal.DuplicateOperationError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateOperationError, got %v", err)
	}
	if dup.PostingID != first.ID || dup.OprID != "invoice-7" {
		t.Errorf("unexpected detail %+v", dup)
	}

	// Same operation id in another ledger is independent.
	other := f.newLedger("other")
	x := f.newAccount(other, "x", account.CategoryAsset)
	y := f.newAccount(other, "y", account.CategoryLiability)
	in.LedgerID = other.ID
	in.Lines = []posting.LineInput{
		journal.Debit(x.ID, journal.MustAmount("5")),
		journal.Credit(y.ID, journal.MustAmount("5")),
	}
	if _, err := f.j.Append(f.ctx, in); err != nil {
		t.Errorf("same opr id in another ledger: %v", err)
	}
}

// TestBalancedProperty appends random line sets: balanced sets always
// succeed and every unbalanced set is rejected with its totals.
func TestBalancedProperty(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewPCG(42, 7))
	accounts := []id.AccountID{f.a.ID, f.b.ID, f.n.ID}

	cents := func(n int64) decimal.Decimal { return decimal.New(n, -2) }

	for i := range 200 {
		debits := 1 + rng.IntN(4)
		credits := 1 + rng.IntN(4)

		var lines []posting.LineInput
		total := int64(0)
		for range debits {
			n := 1 + rng.Int64N(1_000_000)
			total += n
			lines = append(lines, journal.Debit(accounts[rng.IntN(len(accounts))], cents(n)))
		}
		remaining := total
		for c := range credits {
			n := remaining
			if c < credits-1 && remaining > int64(credits-c) {
				n = 1 + rng.Int64N(remaining-int64(credits-c))
			}
			remaining -= n
			if n == 0 {
				continue
			}
			lines = append(lines, journal.Credit(accounts[rng.IntN(len(accounts))], cents(n)))
		}

		balanced := rng.IntN(2) == 0
		if !balanced {
			k := rng.IntN(len(lines))
			delta := cents(1 + rng.Int64N(500))
			if lines[k].Debit.IsPositive() {
				lines[k].Debit = lines[k].Debit.Add(delta)
			} else {
				lines[k].Credit = lines[k].Credit.Add(delta)
			}
		}

		p, err := f.j.Append(f.ctx, journal.AppendInput{
			LedgerID: f.ledger.ID,
			OprID:    fmt.Sprintf("prop-%d", i),
			Lines:    lines,
		})
		if balanced {
			if err != nil {
				t.Fatalf("case %d: balanced set rejected: %v", i, err)
			}
			debit, credit := p.Totals()
			if !debit.Equal(credit) {
				t.Fatalf("case %d: stored posting unbalanced %s / %s", i, debit, credit)
			}
			continue
		}

		var ub *journal.UnbalancedPostingError
		if !errors.As(err, &ub) {
			t.Fatalf("case %d: unbalanced set accepted (err %v)", i, err)
		}
		if ub.Debit.Equal(ub.Credit) {
			t.Fatalf("case %d: error reports equal totals", i)
		}
	}

	if _, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{}); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

// conflictStore reports a moved chain head for the first appends.
type conflictStore struct {
	store.Store
	failures atomic.Int32
}

func (s *conflictStore) AppendPosting(ctx context.Context, p *posting.Posting) error {
	if s.failures.Add(-1) >= 0 {
		return journal.ErrChainConflict
	}
	return s.Store.AppendPosting(ctx, p)
}

func TestAppendWithRetry(t *testing.T) {
	f := newFixture(t)
	cs := &conflictStore{Store: f.store}
	cs.failures.Store(2)
	j := journal.New(cs, journal.WithRetry(5, 5*time.Second))

	in := journal.AppendInput{
		LedgerID: f.ledger.ID,
		OprID:    "retry-1",
		Lines: []posting.LineInput{
			journal.Debit(f.a.ID, journal.MustAmount("1")),
			journal.Credit(f.b.ID, journal.MustAmount("1")),
		},
	}
	if _, err := j.Append(f.ctx, in); !errors.Is(err, journal.ErrChainConflict) {
		t.Fatalf("plain Append should surface the conflict, got %v", err)
	}
	if _, err := j.AppendWithRetry(f.ctx, in); err != nil {
		t.Fatalf("AppendWithRetry: %v", err)
	}

	// Non-retryable errors come back on the first attempt, unwrapped.
	_, err := j.AppendWithRetry(f.ctx, in)
	var dup *journal.DuplicateOperationError
	if !errors.As(err, &dup) {
		t.Errorf("expected DuplicateOperationError, got %v", err)
	}
}

func TestConcurrentAppendsSerialize(t *testing.T) {
	s := memory.New()
	j := journal.New(s, journal.WithRetry(0, 30*time.Second))
	ctx := context.Background()

	chart := &account.Chart{Name: "c"}
	if err := j.CreateChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	l := &account.Ledger{Name: "l", ChartID: chart.ID}
	if err := j.CreateLedger(ctx, l); err != nil {
		t.Fatal(err)
	}
	a := &account.Account{Name: "a", LedgerID: l.ID, Category: account.CategoryAsset}
	b := &account.Account{Name: "b", LedgerID: l.ID, Category: account.CategoryLiability}
	for _, acct := range []*account.Account{a, b} {
		if err := j.CreateAccount(ctx, acct); err != nil {
			t.Fatal(err)
		}
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := j.AppendWithRetry(ctx, journal.AppendInput{
				LedgerID: l.ID,
				OprID:    fmt.Sprintf("w-%d", w),
				Lines: []posting.LineInput{
					journal.Debit(a.ID, journal.MustAmount("1")),
					journal.Credit(b.ID, journal.MustAmount("1")),
				},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("writer: %v", err)
		}
	}

	report, err := j.Verify(ctx, l.ID, journal.VerifyOptions{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Checked != writers {
		t.Errorf("checked %d postings, want %d", report.Checked, writers)
	}
	bal, err := j.BalanceAsOf(ctx, a.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !bal.Amount.Equal(decimal.NewFromInt(writers)) {
		t.Errorf("balance = %s, want %d", bal.Amount, writers)
	}
}
