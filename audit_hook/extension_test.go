package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	audithook "github.com/xraph/journal/audit_hook"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/store/memory"
)

type captured struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (c *captured) Record(_ context.Context, evt *audithook.AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *captured) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

func TestExtensionRecordsJournalLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := &captured{}
	j := journal.New(memory.New(), journal.WithPlugin(audithook.New(rec)))
	if err := j.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer j.Stop() //nolint:errcheck // test cleanup

	chart := &account.Chart{Name: "main"}
	if err := j.CreateChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	ledger := &account.Ledger{Name: "books", ChartID: chart.ID}
	if err := j.CreateLedger(ctx, ledger); err != nil {
		t.Fatal(err)
	}
	cash := &account.Account{Name: "cash", LedgerID: ledger.ID, Category: account.CategoryAsset}
	sales := &account.Account{Name: "sales", LedgerID: ledger.ID, Category: account.CategoryRevenue}
	for _, a := range []*account.Account{cash, sales} {
		if err := j.CreateAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	p, err := j.Append(ctx, journal.AppendInput{
		LedgerID:  ledger.ID,
		OprID:     "inv-1",
		ValueTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []posting.LineInput{
			journal.Debit(cash.ID, journal.MustAmount("42.50")),
			journal.Credit(sales.ID, journal.MustAmount("42.50")),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		audithook.ActionChartCreated,
		audithook.ActionLedgerCreated,
		audithook.ActionAccountCreated,
		audithook.ActionAccountCreated,
		audithook.ActionPostingAppended,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	last := rec.events[len(rec.events)-1]
	if last.ResourceID != p.ID.String() {
		t.Errorf("ResourceID = %q, want %q", last.ResourceID, p.ID)
	}
	if last.Metadata["amount"] != "42.5" {
		t.Errorf("amount = %v, want 42.5", last.Metadata["amount"])
	}
	if last.Metadata["opr_id"] != "inv-1" {
		t.Errorf("opr_id = %v, want inv-1", last.Metadata["opr_id"])
	}
}

func TestChainBrokenIsCritical(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec)

	ledgerID := id.NewLedgerID()
	postingID := id.NewPostingID()
	if err := ext.OnChainBroken(context.Background(), ledgerID, postingID, "hash mismatch"); err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Severity != audithook.SeverityCritical || evt.Outcome != audithook.OutcomeFailure {
		t.Errorf("severity/outcome = %s/%s", evt.Severity, evt.Outcome)
	}
	if evt.Reason != "hash mismatch" {
		t.Errorf("Reason = %q", evt.Reason)
	}
	if evt.Metadata["posting_id"] != postingID.String() {
		t.Errorf("posting_id = %v", evt.Metadata["posting_id"])
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	ledger := &account.Ledger{ID: id.NewLedgerID(), Name: "books"}
	chart := &account.Chart{ID: id.NewChartID(), Name: "main"}

	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"all enabled", nil, 2},
		{"only ledgers", []audithook.Option{audithook.WithEnabledActions(audithook.ActionLedgerCreated)}, 1},
		{"charts disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionChartCreated)}, 1},
		{"both disabled", []audithook.Option{audithook.WithDisabledActions(
			audithook.ActionChartCreated, audithook.ActionLedgerCreated)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captured{}
			ext := audithook.New(rec, tt.opts...)
			_ = ext.OnChartCreated(ctx, chart)   //nolint:errcheck // always nil
			_ = ext.OnLedgerCreated(ctx, ledger) //nolint:errcheck // always nil
			if got := len(rec.events); got != tt.want {
				t.Errorf("events = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	err := ext.OnChartCreated(context.Background(), &account.Chart{ID: id.NewChartID(), Name: "main"})
	if err != nil {
		t.Fatalf("OnChartCreated = %v, want nil", err)
	}
}
