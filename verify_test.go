package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
)

func TestVerifyRoundTrip(t *testing.T) {
	f := newFixture(t, journal.WithVerifyPageSize(2))

	var last *posting.Posting
	for range 5 {
		last = f.transfer(f.a.ID, f.b.ID, "10", t1)
	}

	report, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Checked != 5 {
		t.Errorf("checked %d, want 5 across pages", report.Checked)
	}
	if report.HeadID != last.ID || report.HeadHash != last.Hash {
		t.Errorf("head = %s, want %s", report.HeadID, last.ID)
	}
}

func TestVerifyResumesFromHash(t *testing.T) {
	f := newFixture(t)

	first := f.transfer(f.a.ID, f.b.ID, "10", t1)
	report, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	f.transfer(f.a.ID, f.b.ID, "20", t1)
	f.transfer(f.a.ID, f.b.ID, "30", t1)

	resumed, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{FromHash: report.HeadHash})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Checked != 2 {
		t.Errorf("resume checked %d, want only the 2 new postings", resumed.Checked)
	}
	if report.HeadID != first.ID {
		t.Errorf("first run head = %s, want %s", report.HeadID, first.ID)
	}

	if _, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{FromHash: "deadbeef"}); !journal.IsNotFound(err) {
		t.Errorf("unknown hash: got %v, want not found", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *posting.Posting)
	}{
		{"amount changed", func(p *posting.Posting) {
			p.Lines[0].Debit = p.Lines[0].Debit.Add(decimal.NewFromInt(1))
		}},
		{"value time changed", func(p *posting.Posting) { p.ValueTime = p.ValueTime.Add(time.Hour) }},
		{"antecedent relinked", func(p *posting.Posting) { p.AntecedentID = id.NewPostingID() }},
		{"hash rewritten", func(p *posting.Posting) { p.Hash = "00" }},
		{"record time moved back", func(p *posting.Posting) { p.RecordTime = p.RecordTime.Add(-time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.transfer(f.a.ID, f.b.ID, "10", t1)
			target := f.transfer(f.a.ID, f.b.ID, "20", t1)
			f.transfer(f.a.ID, f.b.ID, "30", t1)

			ts := &tamperStore{Store: f.store, mutate: func(p *posting.Posting) {
				if p.ID == target.ID {
					tt.mutate(p)
				}
			}}
			j := journal.New(ts)

			report, err := j.Verify(context.Background(), f.ledger.ID, journal.VerifyOptions{})
			var integrity *journal.ChainIntegrityError
			if !errors.As(err, &integrity) {
				t.Fatalf("expected ChainIntegrityError, got %v", err)
			}
			if integrity.PostingID != target.ID || integrity.LedgerID != f.ledger.ID {
				t.Errorf("reported %s, want %s", integrity.PostingID, target.ID)
			}
			if !journal.IsFatal(err) || journal.IsRetryable(err) {
				t.Error("integrity errors are fatal and never retryable")
			}
			if report == nil || report.Checked != 1 {
				t.Errorf("report = %+v, want 1 posting checked before the break", report)
			}
		})
	}
}

func TestVerifyHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	f.transfer(f.a.ID, f.b.ID, "10", t1)

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	if _, err := f.j.Verify(ctx, f.ledger.ID, journal.VerifyOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestVerifyAll(t *testing.T) {
	f := newFixture(t, journal.WithVerifyConcurrency(2))
	f.transfer(f.a.ID, f.b.ID, "10", t1)

	second := f.newLedger("second")
	x := f.newAccount(second, "x", account.CategoryAsset)
	y := f.newAccount(second, "y", account.CategoryLiability)
	bad, err := f.j.Append(f.ctx, journal.AppendInput{
		LedgerID: second.ID,
		OprID:    "x-1",
		Lines: []posting.LineInput{
			journal.Debit(x.ID, journal.MustAmount("3")),
			journal.Credit(y.ID, journal.MustAmount("3")),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	reports, err := f.j.VerifyAll(f.ctx, nil, journal.VerifyOptions{})
	if err != nil {
		t.Fatalf("clean VerifyAll: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}

	ts := &tamperStore{Store: f.store, mutate: func(p *posting.Posting) {
		if p.ID == bad.ID {
			p.OprID = "forged"
		}
	}}
	j := journal.New(ts)
	reports, err = j.VerifyAll(f.ctx, []id.LedgerID{f.ledger.ID, second.ID}, journal.VerifyOptions{})
	if !errors.Is(err, journal.ErrChainIntegrity) {
		t.Fatalf("got %v, want chain integrity", err)
	}
	if reports[0] == nil || reports[0].Checked != 1 {
		t.Errorf("healthy ledger should still be verified, report %+v", reports[0])
	}
}
