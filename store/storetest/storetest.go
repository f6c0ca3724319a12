// Package storetest holds the conformance suite every store.Store backend
// runs from its own tests. Backends differ in how they enforce the chain
// compare-and-swap and uniqueness rules, but must agree on the errors they
// report and on the order of what they return.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/store"
	"github.com/xraph/journal/types"
)

// Factory returns an empty, migrated store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Hierarchy", func(t *testing.T) { testHierarchy(t, newStore(t)) })
	t.Run("AppendAndRead", func(t *testing.T) { testAppendAndRead(t, newStore(t)) })
	t.Run("ChainConflict", func(t *testing.T) { testChainConflict(t, newStore(t)) })
	t.Run("DuplicateOperation", func(t *testing.T) { testDuplicateOperation(t, newStore(t)) })
	t.Run("DiscardAndAppend", func(t *testing.T) { testDiscardAndAppend(t, newStore(t)) })
	t.Run("ListLines", func(t *testing.T) { testListLines(t, newStore(t)) })
	t.Run("Statements", func(t *testing.T) { testStatements(t, newStore(t)) })
	t.Run("ClosedPeriod", func(t *testing.T) { testClosedPeriod(t, newStore(t)) })
}

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type world struct {
	chart  *account.Chart
	ledger *account.Ledger
	cash   *account.Account
	sales  *account.Account
}

func seed(t *testing.T, s store.Store) *world {
	t.Helper()
	ctx := context.Background()

	w := &world{}
	w.chart = &account.Chart{Entity: entity("main chart"), ID: id.NewChartID(), Name: "main"}
	if err := s.CreateChart(ctx, w.chart); err != nil {
		t.Fatalf("CreateChart: %v", err)
	}
	w.ledger = &account.Ledger{Entity: entity(""), ID: id.NewLedgerID(), Name: "books", ChartID: w.chart.ID}
	if err := s.CreateLedger(ctx, w.ledger); err != nil {
		t.Fatalf("CreateLedger: %v", err)
	}
	w.cash = newAccount(w.ledger, "cash", account.CategoryAsset, account.SideDebit)
	w.sales = newAccount(w.ledger, "sales", account.CategoryRevenue, account.SideCredit)
	for _, a := range []*account.Account{w.cash, w.sales} {
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount(%s): %v", a.Name, err)
		}
	}
	return w
}

func entity(short string) types.Entity {
	return types.Entity{CreatedAt: base, UserDetails: "tester", ShortDesc: short}
}

func newAccount(l *account.Ledger, name string, cat account.Category, side account.BalanceSide) *account.Account {
	return &account.Account{
		Entity:      entity(name),
		ID:          id.NewAccountID(),
		Name:        name,
		LedgerID:    l.ID,
		ChartID:     l.ChartID,
		Category:    cat,
		BalanceSide: side,
	}
}

// build returns a sealed posting moving amount from sales to cash, chained
// after head (nil for genesis) and recorded at base+offset.
func (w *world) build(t *testing.T, head *posting.Posting, oprID string, amount string, offset time.Duration) *posting.Posting {
	t.Helper()

	recorded := base.Add(offset)
	p := &posting.Posting{
		ID:         id.NewPostingID(),
		LedgerID:   w.ledger.ID,
		OprID:      oprID,
		OprTime:    recorded,
		OprSrc:     "storetest",
		RecordUser: "tester",
		RecordTime: recorded,
		ValueTime:  recorded,
		Type:       posting.TypeBusinessTx,
		Status:     posting.StatusPosted,
	}
	if head != nil {
		p.AntecedentID = head.ID
		p.AntecedentHash = head.Hash
	}
	amt := decimal.RequireFromString(amount)
	for i, in := range []posting.LineInput{posting.Debit(w.cash.ID, amt), posting.Credit(w.sales.ID, amt)} {
		p.Lines = append(p.Lines, &posting.Line{
			ID:         id.NewLineID(),
			PostingID:  p.ID,
			LedgerID:   p.LedgerID,
			AccountID:  in.AccountID,
			Position:   i,
			Debit:      in.Debit,
			Credit:     in.Credit,
			ValueTime:  p.ValueTime,
			RecordTime: p.RecordTime,
			OprID:      p.OprID,
			OprSrc:     p.OprSrc,
			Type:       p.Type,
			Status:     p.Status,
			Details:    fmt.Sprintf("line %d", i),
		})
	}
	if err := posting.Seal(p); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return p
}

// ──────────────────────────────────────────────────
// Hierarchy
// ──────────────────────────────────────────────────

func testHierarchy(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	t.Run("charts", func(t *testing.T) {
		got, err := s.GetChart(ctx, w.chart.ID)
		if err != nil {
			t.Fatalf("GetChart: %v", err)
		}
		if got.Name != "main" || got.ShortDesc != "main chart" || !got.CreatedAt.Equal(base) {
			t.Errorf("chart = %+v", got)
		}
		if _, err := s.GetChartByName(ctx, "main"); err != nil {
			t.Errorf("GetChartByName: %v", err)
		}
		if _, err := s.GetChart(ctx, id.NewChartID()); !errors.Is(err, journal.ErrChartNotFound) {
			t.Errorf("GetChart(unknown) = %v, want ErrChartNotFound", err)
		}
		dup := &account.Chart{Entity: entity(""), ID: id.NewChartID(), Name: "main"}
		if err := s.CreateChart(ctx, dup); !errors.Is(err, journal.ErrDuplicateName) {
			t.Errorf("CreateChart(duplicate) = %v, want ErrDuplicateName", err)
		}
	})

	t.Run("ledgers", func(t *testing.T) {
		got, err := s.GetLedgerByName(ctx, "books")
		if err != nil {
			t.Fatalf("GetLedgerByName: %v", err)
		}
		if got.ID != w.ledger.ID || got.ChartID != w.chart.ID {
			t.Errorf("ledger = %+v", got)
		}
		if _, err := s.GetLedger(ctx, id.NewLedgerID()); !errors.Is(err, journal.ErrLedgerNotFound) {
			t.Errorf("GetLedger(unknown) = %v, want ErrLedgerNotFound", err)
		}
		dup := &account.Ledger{Entity: entity(""), ID: id.NewLedgerID(), Name: "books", ChartID: w.chart.ID}
		if err := s.CreateLedger(ctx, dup); !errors.Is(err, journal.ErrDuplicateName) {
			t.Errorf("CreateLedger(duplicate) = %v, want ErrDuplicateName", err)
		}

		other := &account.Chart{Entity: entity(""), ID: id.NewChartID(), Name: "other"}
		if err := s.CreateChart(ctx, other); err != nil {
			t.Fatalf("CreateChart: %v", err)
		}
		archive := &account.Ledger{Entity: entity(""), ID: id.NewLedgerID(), Name: "archive", ChartID: other.ID}
		if err := s.CreateLedger(ctx, archive); err != nil {
			t.Fatalf("CreateLedger: %v", err)
		}

		all, err := s.ListLedgers(ctx, id.Nil)
		if err != nil {
			t.Fatalf("ListLedgers: %v", err)
		}
		if len(all) != 2 || all[0].Name != "archive" || all[1].Name != "books" {
			t.Errorf("ListLedgers(all) = %v", ledgerNames(all))
		}
		byChart, err := s.ListLedgers(ctx, w.chart.ID)
		if err != nil {
			t.Fatalf("ListLedgers: %v", err)
		}
		if len(byChart) != 1 || byChart[0].Name != "books" {
			t.Errorf("ListLedgers(chart) = %v", ledgerNames(byChart))
		}
	})

	t.Run("accounts", func(t *testing.T) {
		till := newAccount(w.ledger, "till", account.CategoryAsset, account.SideDebit)
		till.ParentID = w.cash.ID
		bank := newAccount(w.ledger, "bank", account.CategoryAsset, account.SideDebit)
		bank.ParentID = w.cash.ID
		for _, a := range []*account.Account{till, bank} {
			if err := s.CreateAccount(ctx, a); err != nil {
				t.Fatalf("CreateAccount(%s): %v", a.Name, err)
			}
		}

		got, err := s.GetAccount(ctx, till.ID)
		if err != nil {
			t.Fatalf("GetAccount: %v", err)
		}
		if got.ParentID != w.cash.ID || got.Category != account.CategoryAsset || got.BalanceSide != account.SideDebit {
			t.Errorf("account = %+v", got)
		}
		if !w.cash.IsRoot() {
			t.Error("cash should be a root account")
		}

		byName, err := s.GetAccountByName(ctx, w.ledger.ID, "sales")
		if err != nil || byName.ID != w.sales.ID {
			t.Errorf("GetAccountByName = %v, %v", byName, err)
		}
		if _, err := s.GetAccountByName(ctx, id.NewLedgerID(), "sales"); !errors.Is(err, journal.ErrAccountNotFound) {
			t.Errorf("GetAccountByName(other ledger) = %v, want ErrAccountNotFound", err)
		}

		children, err := s.ListChildAccounts(ctx, w.cash.ID)
		if err != nil {
			t.Fatalf("ListChildAccounts: %v", err)
		}
		if names := accountNames(children); len(names) != 2 || names[0] != "bank" || names[1] != "till" {
			t.Errorf("children = %v", names)
		}

		all, err := s.ListAccounts(ctx, w.ledger.ID)
		if err != nil {
			t.Fatalf("ListAccounts: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("ListAccounts = %v", accountNames(all))
		}

		dup := newAccount(w.ledger, "cash", account.CategoryAsset, account.SideDebit)
		if err := s.CreateAccount(ctx, dup); !errors.Is(err, journal.ErrDuplicateName) {
			t.Errorf("CreateAccount(duplicate) = %v, want ErrDuplicateName", err)
		}
	})
}

func ledgerNames(ls []*account.Ledger) []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}

func accountNames(as []*account.Account) []string {
	names := make([]string, len(as))
	for i, a := range as {
		names[i] = a.Name
	}
	return names
}

// ──────────────────────────────────────────────────
// Postings
// ──────────────────────────────────────────────────

func testAppendAndRead(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	if _, err := s.GetChainHead(ctx, w.ledger.ID); !errors.Is(err, journal.ErrPostingNotFound) {
		t.Fatalf("GetChainHead(empty) = %v, want ErrPostingNotFound", err)
	}

	var chain []*posting.Posting
	var head *posting.Posting
	for i := range 4 {
		p := w.build(t, head, fmt.Sprintf("op-%d", i), "10.50", time.Duration(i)*time.Second)
		if err := s.AppendPosting(ctx, p); err != nil {
			t.Fatalf("AppendPosting(%d): %v", i, err)
		}
		chain = append(chain, p)
		head = p
	}

	t.Run("get posting", func(t *testing.T) {
		got, err := s.GetPosting(ctx, chain[1].ID)
		if err != nil {
			t.Fatalf("GetPosting: %v", err)
		}
		if err := posting.Check(got); err != nil {
			t.Errorf("stored posting no longer verifies: %v", err)
		}
		if got.AntecedentID != chain[0].ID || got.AntecedentHash != chain[0].Hash {
			t.Errorf("antecedent = %s/%s", got.AntecedentID, got.AntecedentHash)
		}
		if !got.IsActive() {
			t.Error("fresh posting should be active")
		}
		if len(got.Lines) != 2 || got.Lines[0].Position != 0 || got.Lines[1].Position != 1 {
			t.Fatalf("lines out of position order: %+v", got.Lines)
		}
		if !got.Lines[0].Debit.Equal(decimal.RequireFromString("10.50")) || !got.Lines[1].Credit.Equal(decimal.RequireFromString("10.50")) {
			t.Errorf("line amounts = %s/%s", got.Lines[0].Debit, got.Lines[1].Credit)
		}
		if _, err := s.GetPosting(ctx, id.NewPostingID()); !errors.Is(err, journal.ErrPostingNotFound) {
			t.Errorf("GetPosting(unknown) = %v, want ErrPostingNotFound", err)
		}
	})

	t.Run("genesis", func(t *testing.T) {
		got, err := s.GetPosting(ctx, chain[0].ID)
		if err != nil {
			t.Fatalf("GetPosting: %v", err)
		}
		if !got.IsGenesis() {
			t.Errorf("first posting antecedent = %s, want nil", got.AntecedentID)
		}
	})

	t.Run("head and hash", func(t *testing.T) {
		got, err := s.GetChainHead(ctx, w.ledger.ID)
		if err != nil || got.ID != chain[3].ID {
			t.Fatalf("GetChainHead = %v, %v", got, err)
		}
		byHash, err := s.GetPostingByHash(ctx, w.ledger.ID, chain[2].Hash)
		if err != nil || byHash.ID != chain[2].ID {
			t.Errorf("GetPostingByHash = %v, %v", byHash, err)
		}
		if _, err := s.GetPostingByHash(ctx, w.ledger.ID, "feed"); !errors.Is(err, journal.ErrPostingNotFound) {
			t.Errorf("GetPostingByHash(unknown) = %v, want ErrPostingNotFound", err)
		}
	})

	t.Run("by operation", func(t *testing.T) {
		got, err := s.GetActivePostingByOprID(ctx, w.ledger.ID, "op-2")
		if err != nil || got.ID != chain[2].ID {
			t.Errorf("GetActivePostingByOprID = %v, %v", got, err)
		}
		list, err := s.ListPostingsByOprID(ctx, w.ledger.ID, "op-2")
		if err != nil || len(list) != 1 {
			t.Errorf("ListPostingsByOprID = %d, %v", len(list), err)
		}
		if _, err := s.GetActivePostingByOprID(ctx, w.ledger.ID, "nope"); !errors.Is(err, journal.ErrPostingNotFound) {
			t.Errorf("GetActivePostingByOprID(unknown) = %v, want ErrPostingNotFound", err)
		}
	})

	t.Run("list chain", func(t *testing.T) {
		all, err := s.ListChain(ctx, w.ledger.ID, posting.ChainQuery{})
		if err != nil {
			t.Fatalf("ListChain: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("ListChain len = %d, want 4", len(all))
		}
		for i, p := range all {
			if p.ID != chain[i].ID {
				t.Errorf("chain[%d] = %s, want %s", i, p.ID, chain[i].ID)
			}
		}

		page, err := s.ListChain(ctx, w.ledger.ID, posting.ChainQuery{After: chain[1].RecordTime, Limit: 1})
		if err != nil {
			t.Fatalf("ListChain(after): %v", err)
		}
		if len(page) != 1 || page[0].ID != chain[2].ID {
			t.Errorf("ListChain(after, limit 1) = %d postings", len(page))
		}
	})

	t.Run("get line", func(t *testing.T) {
		l := chain[0].Lines[0]
		got, err := s.GetLine(ctx, w.cash.ID, l.ID)
		if err != nil {
			t.Fatalf("GetLine: %v", err)
		}
		if got.Hash != l.Hash || got.PostingID != chain[0].ID || got.Details != "line 0" {
			t.Errorf("line = %+v", got)
		}
		if _, err := s.GetLine(ctx, w.sales.ID, l.ID); !errors.Is(err, journal.ErrNotFound) {
			t.Errorf("GetLine(wrong account) = %v, want ErrNotFound", err)
		}
	})
}

func testChainConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	genesis := w.build(t, nil, "op-1", "5", 0)
	if err := s.AppendPosting(ctx, genesis); err != nil {
		t.Fatalf("AppendPosting: %v", err)
	}

	tests := []struct {
		name string
		head *posting.Posting
	}{
		{"second genesis", nil},
		{"stale antecedent", &posting.Posting{ID: id.NewPostingID(), Hash: "stale"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := w.build(t, tt.head, "op-"+tt.name, "5", time.Second)
			if err := s.AppendPosting(ctx, p); !errors.Is(err, journal.ErrChainConflict) {
				t.Errorf("AppendPosting = %v, want ErrChainConflict", err)
			}
			if _, err := s.GetPosting(ctx, p.ID); !errors.Is(err, journal.ErrPostingNotFound) {
				t.Errorf("rejected posting was stored: %v", err)
			}
		})
	}

	next := w.build(t, genesis, "op-2", "5", time.Second)
	if err := s.AppendPosting(ctx, next); err != nil {
		t.Fatalf("AppendPosting(on head): %v", err)
	}
	again := w.build(t, genesis, "op-3", "5", 2*time.Second)
	if err := s.AppendPosting(ctx, again); !errors.Is(err, journal.ErrChainConflict) {
		t.Errorf("AppendPosting(on old head) = %v, want ErrChainConflict", err)
	}
}

func testDuplicateOperation(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	first := w.build(t, nil, "invoice-7", "12", 0)
	if err := s.AppendPosting(ctx, first); err != nil {
		t.Fatalf("AppendPosting: %v", err)
	}
	dup := w.build(t, first, "invoice-7", "12", time.Second)
	err := s.AppendPosting(ctx, dup)
	if !errors.Is(err, journal.ErrDuplicateOperation) {
		t.Fatalf("AppendPosting(duplicate opr) = %v, want ErrDuplicateOperation", err)
	}
	var dupErr *journal.DuplicateOperationError
	if errors.As(err, &dupErr) && dupErr.OprID != "invoice-7" {
		t.Errorf("DuplicateOperationError.OprID = %q", dupErr.OprID)
	}
	head, err := s.GetChainHead(ctx, w.ledger.ID)
	if err != nil || head.ID != first.ID {
		t.Errorf("head moved after rejected append: %v, %v", head, err)
	}
}

func testDiscardAndAppend(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	old := w.build(t, nil, "op-1", "40", 0)
	if err := s.AppendPosting(ctx, old); err != nil {
		t.Fatalf("AppendPosting: %v", err)
	}

	// The replacement reuses the opr id, which the discard releases.
	replacement := w.build(t, old, "op-1", "45", time.Second)
	for i, l := range replacement.Lines {
		l.BaseLine = old.Lines[i].ID
	}
	if err := posting.Seal(replacement); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	discardedAt := base.Add(time.Second)
	traces := make([]*posting.Trace, 0, len(old.Lines))
	for _, l := range old.Lines {
		traces = append(traces, &posting.Trace{
			ID:                id.NewTraceID(),
			TargetPostingID:   replacement.ID,
			SourcePostingID:   old.ID,
			SourcePostingTime: old.RecordTime,
			SourceOprID:       old.OprID,
			SourcePostingHash: old.Hash,
			AccountID:         l.AccountID,
			Debit:             l.Debit,
			Credit:            l.Credit,
		})
	}

	err := s.DiscardAndAppend(ctx, &posting.Discard{
		PostingID:     old.ID,
		DiscardedTime: discardedAt,
		Replacement:   replacement,
		Traces:        traces,
	})
	if err != nil {
		t.Fatalf("DiscardAndAppend: %v", err)
	}

	t.Run("markers", func(t *testing.T) {
		got, err := s.GetPosting(ctx, old.ID)
		if err != nil {
			t.Fatalf("GetPosting: %v", err)
		}
		if got.IsActive() || got.DiscardedID != replacement.ID || got.DiscardedTime == nil || !got.DiscardedTime.Equal(discardedAt) {
			t.Errorf("discard markers = %s/%v", got.DiscardedID, got.DiscardedTime)
		}
		for _, l := range got.Lines {
			if l.IsActive() {
				t.Errorf("line %s of discarded posting still active", l.ID)
			}
		}
		if err := posting.Check(got); err != nil {
			t.Errorf("discard markers changed the hash: %v", err)
		}
	})

	t.Run("operation released", func(t *testing.T) {
		active, err := s.GetActivePostingByOprID(ctx, w.ledger.ID, "op-1")
		if err != nil || active.ID != replacement.ID {
			t.Errorf("GetActivePostingByOprID = %v, %v", active, err)
		}
		all, err := s.ListPostingsByOprID(ctx, w.ledger.ID, "op-1")
		if err != nil || len(all) != 2 {
			t.Errorf("ListPostingsByOprID = %d, %v", len(all), err)
		}
	})

	t.Run("traces", func(t *testing.T) {
		got, err := s.ListTraces(ctx, replacement.ID)
		if err != nil {
			t.Fatalf("ListTraces: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListTraces len = %d, want 2", len(got))
		}
		for _, tr := range got {
			if tr.SourcePostingID != old.ID || tr.SourcePostingHash != old.Hash || tr.SourceOprID != "op-1" {
				t.Errorf("trace = %+v", tr)
			}
		}
		none, err := s.ListTraces(ctx, old.ID)
		if err != nil || len(none) != 0 {
			t.Errorf("ListTraces(old) = %d, %v", len(none), err)
		}
	})

	t.Run("base lines", func(t *testing.T) {
		got, err := s.ListLines(ctx, posting.LineQuery{BaseLineID: old.Lines[0].ID})
		if err != nil {
			t.Fatalf("ListLines: %v", err)
		}
		if len(got) != 1 || got[0].ID != replacement.Lines[0].ID {
			t.Errorf("corrections = %d lines", len(got))
		}
	})

	t.Run("discard twice", func(t *testing.T) {
		again := w.build(t, replacement, "op-1", "50", 2*time.Second)
		err := s.DiscardAndAppend(ctx, &posting.Discard{PostingID: old.ID, DiscardedTime: base.Add(2 * time.Second), Replacement: again})
		if !errors.Is(err, journal.ErrPostingNotFound) {
			t.Errorf("DiscardAndAppend(discarded) = %v, want ErrPostingNotFound", err)
		}
		head, err := s.GetChainHead(ctx, w.ledger.ID)
		if err != nil || head.ID != replacement.ID {
			t.Errorf("head after failed discard = %v, %v", head, err)
		}
	})

	t.Run("stale replacement", func(t *testing.T) {
		stale := w.build(t, old, "op-9", "1", 3*time.Second)
		err := s.DiscardAndAppend(ctx, &posting.Discard{PostingID: replacement.ID, DiscardedTime: base.Add(3 * time.Second), Replacement: stale})
		if !errors.Is(err, journal.ErrChainConflict) {
			t.Errorf("DiscardAndAppend(stale) = %v, want ErrChainConflict", err)
		}
		got, err := s.GetPosting(ctx, replacement.ID)
		if err != nil || !got.IsActive() {
			t.Errorf("failed discard left markers behind: %v, %v", got, err)
		}
	})
}

func testListLines(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	var head *posting.Posting
	var chain []*posting.Posting
	for i := range 3 {
		p := w.build(t, head, fmt.Sprintf("op-%d", i), fmt.Sprintf("%d", (i+1)*10), time.Duration(i)*time.Hour)
		if err := s.AppendPosting(ctx, p); err != nil {
			t.Fatalf("AppendPosting: %v", err)
		}
		chain = append(chain, p)
		head = p
	}
	replacement := w.build(t, head, "op-2b", "35", 3*time.Hour)
	err := s.DiscardAndAppend(ctx, &posting.Discard{PostingID: chain[2].ID, DiscardedTime: base.Add(3 * time.Hour), Replacement: replacement})
	if err != nil {
		t.Fatalf("DiscardAndAppend: %v", err)
	}

	tests := []struct {
		name string
		q    posting.LineQuery
		want []string
	}{
		{"account active", posting.LineQuery{AccountID: w.cash.ID}, []string{"10", "20", "35"}},
		{"with discarded", posting.LineQuery{AccountID: w.cash.ID, IncludeDiscarded: true}, []string{"10", "20", "30", "35"}},
		{"descending", posting.LineQuery{AccountID: w.cash.ID, Order: posting.OrderRecordDesc}, []string{"35", "20", "10"}},
		{"value window", posting.LineQuery{AccountID: w.cash.ID, ValueAfter: base, ValueAtOrBefore: base.Add(time.Hour)}, []string{"20"}},
		{"recorded by", posting.LineQuery{AccountID: w.cash.ID, RecordedAtOrBefore: base.Add(time.Hour)}, []string{"10", "20"}},
		{"paged", posting.LineQuery{AccountID: w.cash.ID, Limit: 1, Offset: 1}, []string{"20"}},
		{"other ledger", posting.LineQuery{LedgerID: id.NewLedgerID()}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListLines(ctx, tt.q)
			if err != nil {
				t.Fatalf("ListLines: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListLines len = %d, want %d", len(got), len(tt.want))
			}
			for i, l := range got {
				if !l.Debit.Equal(decimal.RequireFromString(tt.want[i])) {
					t.Errorf("line[%d] debit = %s, want %s", i, l.Debit, tt.want[i])
				}
			}
		})
	}

	t.Run("ledger", func(t *testing.T) {
		got, err := s.ListLines(ctx, posting.LineQuery{LedgerID: w.ledger.ID})
		if err != nil {
			t.Fatalf("ListLines: %v", err)
		}
		if len(got) != 6 {
			t.Errorf("ListLines(ledger) len = %d, want 6", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].RecordTime.Before(got[i-1].RecordTime) {
				t.Errorf("line %d recorded before line %d", i, i-1)
			}
		}
	})
}

// ──────────────────────────────────────────────────
// Statements
// ──────────────────────────────────────────────────

func testStatements(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)
	owner := statement.AccountOwner(w.cash.ID)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }

	mk := func(seq int64, valueDay int, status statement.Status, total string) *statement.Statement {
		st := &statement.Statement{
			Entity:      entity(""),
			ID:          id.NewStatementID(),
			Owner:       owner,
			Status:      status,
			ValueTime:   day(valueDay),
			Seq:         seq,
			TotalDebit:  decimal.RequireFromString(total),
			TotalCredit: decimal.Zero,
			Lines:       seq,
		}
		if status == statement.StatusClosed {
			at := day(valueDay)
			st.ClosedAt = &at
		}
		return st
	}

	s1 := mk(1, 10, statement.StatusClosed, "100")
	s2 := mk(2, 20, statement.StatusClosed, "150.25")
	s3 := mk(3, 30, statement.StatusSimulated, "175")
	for _, st := range []*statement.Statement{s1, s2, s3} {
		if err := s.CreateStatement(ctx, st); err != nil {
			t.Fatalf("CreateStatement(%d): %v", st.Seq, err)
		}
	}

	t.Run("sequence clash", func(t *testing.T) {
		err := s.CreateStatement(ctx, mk(2, 40, statement.StatusSimulated, "0"))
		if !errors.Is(err, journal.ErrOutOfOrderCheckpoint) {
			t.Errorf("CreateStatement(seq 2) = %v, want ErrOutOfOrderCheckpoint", err)
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := s.GetStatement(ctx, s2.ID)
		if err != nil {
			t.Fatalf("GetStatement: %v", err)
		}
		if got.Owner != owner || !got.TotalDebit.Equal(s2.TotalDebit) || !got.ValueTime.Equal(s2.ValueTime) || got.ClosedAt == nil {
			t.Errorf("statement = %+v", got)
		}
		if _, err := s.GetStatement(ctx, id.NewStatementID()); !errors.Is(err, journal.ErrStatementNotFound) {
			t.Errorf("GetStatement(unknown) = %v, want ErrStatementNotFound", err)
		}
	})

	t.Run("lookups", func(t *testing.T) {
		tests := []struct {
			name   string
			lookup func() (*statement.Statement, error)
			want   *statement.Statement
		}{
			{"latest any", func() (*statement.Statement, error) { return s.LatestStatement(ctx, owner, "") }, s3},
			{"latest closed", func() (*statement.Statement, error) { return s.LatestStatement(ctx, owner, statement.StatusClosed) }, s2},
			{"before day 20", func() (*statement.Statement, error) {
				return s.LatestStatementBefore(ctx, owner, "", day(20))
			}, s1},
			{"before day 21", func() (*statement.Statement, error) {
				return s.LatestStatementBefore(ctx, owner, statement.StatusClosed, day(21))
			}, s2},
			{"at or after day 20", func() (*statement.Statement, error) {
				return s.EarliestStatementAtOrAfter(ctx, owner, "", day(20))
			}, s2},
			{"closed at or after day 21", func() (*statement.Statement, error) {
				return s.EarliestStatementAtOrAfter(ctx, owner, statement.StatusClosed, day(21))
			}, nil},
			{"previous of 3", func() (*statement.Statement, error) { return s.PreviousStatement(ctx, s3) }, s2},
			{"previous of 1", func() (*statement.Statement, error) { return s.PreviousStatement(ctx, s1) }, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := tt.lookup()
				if tt.want == nil {
					if !errors.Is(err, journal.ErrStatementNotFound) {
						t.Errorf("got %v, %v; want ErrStatementNotFound", got, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("lookup: %v", err)
				}
				if got.ID != tt.want.ID {
					t.Errorf("got seq %d, want seq %d", got.Seq, tt.want.Seq)
				}
			})
		}
	})

	t.Run("list", func(t *testing.T) {
		all, err := s.ListStatements(ctx, owner, statement.ListOpts{})
		if err != nil {
			t.Fatalf("ListStatements: %v", err)
		}
		if len(all) != 3 || all[0].Seq != 1 || all[2].Seq != 3 {
			t.Errorf("ListStatements = %d", len(all))
		}
		closed, err := s.ListStatements(ctx, owner, statement.ListOpts{Status: statement.StatusClosed, Start: day(15)})
		if err != nil || len(closed) != 1 || closed[0].ID != s2.ID {
			t.Errorf("ListStatements(closed from day 15) = %d, %v", len(closed), err)
		}
		paged, err := s.ListStatements(ctx, owner, statement.ListOpts{Limit: 1, Offset: 2})
		if err != nil || len(paged) != 1 || paged[0].ID != s3.ID {
			t.Errorf("ListStatements(paged) = %d, %v", len(paged), err)
		}
		other, err := s.ListStatements(ctx, statement.LedgerOwner(w.ledger.ID), statement.ListOpts{})
		if err != nil || len(other) != 0 {
			t.Errorf("ListStatements(ledger) = %d, %v", len(other), err)
		}
	})

	t.Run("update", func(t *testing.T) {
		s3.TotalDebit = decimal.RequireFromString("180")
		s3.Lines = 9
		s3.Status = statement.StatusClosed
		closedAt := day(31)
		s3.ClosedAt = &closedAt
		s3.LatestPostingID = id.NewPostingID()
		if err := s.UpdateStatement(ctx, s3); err != nil {
			t.Fatalf("UpdateStatement: %v", err)
		}
		got, err := s.GetStatement(ctx, s3.ID)
		if err != nil {
			t.Fatalf("GetStatement: %v", err)
		}
		if !got.IsClosed() || !got.TotalDebit.Equal(s3.TotalDebit) || got.Lines != 9 || got.LatestPostingID != s3.LatestPostingID {
			t.Errorf("updated statement = %+v", got)
		}

		s3.TotalDebit = decimal.RequireFromString("1")
		if err := s.UpdateStatement(ctx, s3); !errors.Is(err, journal.ErrStatementClosed) {
			t.Errorf("UpdateStatement(closed) = %v, want ErrStatementClosed", err)
		}
		missing := mk(9, 90, statement.StatusSimulated, "0")
		if err := s.UpdateStatement(ctx, missing); !errors.Is(err, journal.ErrStatementNotFound) {
			t.Errorf("UpdateStatement(unknown) = %v, want ErrStatementNotFound", err)
		}
	})
}

// ──────────────────────────────────────────────────
// Closed periods
// ──────────────────────────────────────────────────

func testClosedPeriod(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := seed(t, s)

	genesis := w.build(t, nil, "op-1", "10", 0)
	if err := s.AppendPosting(ctx, genesis); err != nil {
		t.Fatalf("AppendPosting: %v", err)
	}

	simulated := func(t *testing.T, owner statement.Owner, valueTime time.Time) *statement.Statement {
		t.Helper()
		st := &statement.Statement{
			Entity:      entity(""),
			ID:          id.NewStatementID(),
			Owner:       owner,
			Status:      statement.StatusSimulated,
			ValueTime:   valueTime,
			Seq:         1,
			TotalDebit:  decimal.RequireFromString("10"),
			TotalCredit: decimal.Zero,
			Lines:       1,
		}
		if err := s.CreateStatement(ctx, st); err != nil {
			t.Fatalf("CreateStatement: %v", err)
		}
		st.Status = statement.StatusClosed
		at := valueTime
		st.ClosedAt = &at
		return st
	}
	assertHead := func(t *testing.T, want *posting.Posting) {
		t.Helper()
		head, err := s.GetChainHead(ctx, w.ledger.ID)
		if err != nil || head.ID != want.ID {
			t.Errorf("head = %v, %v; want %s", head, err, want.ID)
		}
	}

	cashStmt := simulated(t, statement.AccountOwner(w.cash.ID), base.Add(time.Hour))

	t.Run("close on moved head", func(t *testing.T) {
		err := s.CloseStatement(ctx, cashStmt, w.ledger.ID, id.Nil)
		if !errors.Is(err, journal.ErrChainConflict) {
			t.Fatalf("CloseStatement(stale head) = %v, want ErrChainConflict", err)
		}
		got, err := s.GetStatement(ctx, cashStmt.ID)
		if err != nil || got.IsClosed() {
			t.Errorf("statement after rejected close = %v, %v", got, err)
		}
	})

	if err := s.CloseStatement(ctx, cashStmt, w.ledger.ID, genesis.ID); err != nil {
		t.Fatalf("CloseStatement: %v", err)
	}

	t.Run("close twice", func(t *testing.T) {
		err := s.CloseStatement(ctx, cashStmt, w.ledger.ID, genesis.ID)
		if !errors.Is(err, journal.ErrStatementClosed) {
			t.Errorf("CloseStatement(closed) = %v, want ErrStatementClosed", err)
		}
	})

	rejected := []struct {
		name   string
		offset time.Duration
	}{
		{"inside account period", 30 * time.Minute},
		{"on account boundary", time.Hour},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			p := w.build(t, genesis, "op-"+tt.name, "5", tt.offset)
			if err := s.AppendPosting(ctx, p); !errors.Is(err, journal.ErrPeriodClosed) {
				t.Errorf("AppendPosting = %v, want ErrPeriodClosed", err)
			}
			assertHead(t, genesis)
		})
	}

	after := w.build(t, genesis, "op-2", "5", 2*time.Hour)
	if err := s.AppendPosting(ctx, after); err != nil {
		t.Fatalf("AppendPosting(after period): %v", err)
	}

	t.Run("discard inside account period", func(t *testing.T) {
		replacement := w.build(t, after, "op-3", "12", 3*time.Hour)
		err := s.DiscardAndAppend(ctx, &posting.Discard{PostingID: genesis.ID, DiscardedTime: base.Add(3 * time.Hour), Replacement: replacement})
		if !errors.Is(err, journal.ErrPeriodClosed) {
			t.Errorf("DiscardAndAppend = %v, want ErrPeriodClosed", err)
		}
		got, err := s.GetPosting(ctx, genesis.ID)
		if err != nil || !got.IsActive() {
			t.Errorf("closed posting after rejected discard = %v, %v", got, err)
		}
		assertHead(t, after)
	})

	t.Run("inside ledger period", func(t *testing.T) {
		ledgerStmt := simulated(t, statement.LedgerOwner(w.ledger.ID), base.Add(4*time.Hour))
		if err := s.CloseStatement(ctx, ledgerStmt, w.ledger.ID, after.ID); err != nil {
			t.Fatalf("CloseStatement(ledger): %v", err)
		}
		p := w.build(t, after, "op-4", "5", 3*time.Hour)
		if err := s.AppendPosting(ctx, p); !errors.Is(err, journal.ErrPeriodClosed) {
			t.Errorf("AppendPosting = %v, want ErrPeriodClosed", err)
		}
		assertHead(t, after)
	})
}
