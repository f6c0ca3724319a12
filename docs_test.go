package journal_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/store/memory"
)

// TestDocumentationExamples runs the walkthrough from the package docs.
func TestDocumentationExamples(t *testing.T) {
	ctx := context.Background()

	j := journal.New(memory.New(), journal.WithLogger(slog.Default()))
	if err := j.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer j.Stop() //nolint:errcheck // test cleanup

	chart := &account.Chart{Name: "acme"}
	if err := j.CreateChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	ledger := &account.Ledger{Name: "acme-eur", ChartID: chart.ID}
	if err := j.CreateLedger(ctx, ledger); err != nil {
		t.Fatal(err)
	}
	cash := &account.Account{Name: "cash", LedgerID: ledger.ID, Category: account.CategoryAsset}
	revenue := &account.Account{Name: "revenue", LedgerID: ledger.ID, Category: account.CategoryRevenue}
	for _, a := range []*account.Account{cash, revenue} {
		if err := j.CreateAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	valueTime := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	t.Run("AppendAndDiscard", func(t *testing.T) {
		p, err := j.Append(ctx, journal.AppendInput{
			LedgerID:  ledger.ID,
			OprID:     "invoice-1042",
			ValueTime: valueTime,
			Lines: []posting.LineInput{
				journal.Debit(cash.ID, journal.MustAmount("100.00")),
				journal.Credit(revenue.ID, journal.MustAmount("100.00")),
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		corrected := []posting.LineInput{
			journal.Debit(cash.ID, journal.MustAmount("110.00")),
			journal.Credit(revenue.ID, journal.MustAmount("110.00")),
		}
		fixed, err := j.DiscardAndReplace(ctx, p.ID, journal.ReplaceInput{Lines: corrected})
		if err != nil {
			t.Fatal(err)
		}
		if fixed.ID == p.ID {
			t.Error("replacement reused the discarded posting id")
		}
	})

	t.Run("BalanceAsOf", func(t *testing.T) {
		b, err := j.BalanceAsOf(ctx, cash.ID, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if !b.Amount.Equal(journal.MustAmount("110")) {
			t.Errorf("cash balance = %s, want 110", b.Amount)
		}
	})

	t.Run("Verify", func(t *testing.T) {
		report, err := j.Verify(ctx, ledger.ID, journal.VerifyOptions{})
		if journal.IsFatal(err) {
			t.Fatalf("stored history was altered: %v", err)
		}
		if err != nil {
			t.Fatal(err)
		}
		if report.Checked != 2 {
			t.Errorf("checked = %d, want 2 (discarded postings stay on the chain)", report.Checked)
		}
	})
}
