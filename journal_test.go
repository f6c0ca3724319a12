package journal_test

import (
	"errors"
	"testing"

	"github.com/xraph/journal"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// TestScenario walks the reference scenario: P1 100 from B to A, a
// checkpoint for A, a partial reversal P2 of 30, then P2 replaced by P3
// of 20.
func TestScenario(t *testing.T) {
	f := newFixture(t)

	p1 := f.transfer(f.a.ID, f.b.ID, "100.00", t1)
	f.wantAmount(f.a.ID, t1, "100.00")
	f.wantAmount(f.b.ID, t1, "100.00")

	cp, err := f.j.CreateCheckpoint(f.ctx, journal.AccountOwner(f.a.ID), t1)
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if !cp.TotalDebit.Equal(journal.MustAmount("100")) || !cp.TotalCredit.IsZero() {
		t.Errorf("checkpoint totals = %s / %s, want 100 / 0", cp.TotalDebit, cp.TotalCredit)
	}
	if cp.Status != statement.StatusSimulated || cp.Seq != 1 {
		t.Errorf("checkpoint = %s seq %d, want SIMULATED seq 1", cp.Status, cp.Seq)
	}
	if cp.LatestPostingID != p1.ID || cp.YoungestPostingID != p1.ID {
		t.Errorf("checkpoint pointers = %s / %s, want %s", cp.LatestPostingID, cp.YoungestPostingID, p1.ID)
	}
	if _, err := f.j.Close(f.ctx, cp.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2 := f.transfer(f.b.ID, f.a.ID, "30.00", t2)
	b := f.balance(f.a.ID, t2)
	if !b.Amount.Equal(journal.MustAmount("70")) {
		t.Errorf("balance A at t2 = %s, want 70", b.Amount)
	}
	if b.CheckpointID != cp.ID || b.Replayed != 1 {
		t.Errorf("replay = checkpoint %s + %d lines, want %s + 1", b.CheckpointID, b.Replayed, cp.ID)
	}

	p3, err := f.j.DiscardAndReplace(f.ctx, p2.ID, journal.ReplaceInput{
		Lines: []posting.LineInput{
			journal.Debit(f.b.ID, journal.MustAmount("20.00")),
			journal.Credit(f.a.ID, journal.MustAmount("20.00")),
		},
	})
	if err != nil {
		t.Fatalf("DiscardAndReplace: %v", err)
	}
	f.wantAmount(f.a.ID, t2, "80.00")
	f.wantAmount(f.b.ID, t2, "80.00")

	active, err := f.j.IsActive(f.ctx, p2.ID)
	if err != nil || active {
		t.Errorf("IsActive(P2) = %v, %v; want false", active, err)
	}

	audit, err := f.j.AuditLines(f.ctx, f.a.ID, t1, t2)
	if err != nil {
		t.Fatalf("AuditLines: %v", err)
	}
	var sawP2, sawP3 bool
	for _, l := range audit {
		sawP2 = sawP2 || l.PostingID == p2.ID
		sawP3 = sawP3 || l.PostingID == p3.ID
	}
	if !sawP2 || !sawP3 {
		t.Errorf("audit lines: P2 seen %v, P3 seen %v; want both", sawP2, sawP3)
	}

	normal, err := f.j.Lines(f.ctx, f.a.ID, t1, t2)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	for _, l := range normal {
		if l.PostingID == p2.ID {
			t.Error("discarded posting's line returned by a normal read")
		}
	}

	if _, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{}); err != nil {
		t.Errorf("Verify after scenario: %v", err)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		retryable bool
		fatal     bool
	}{
		{"ledger not found", journal.ErrLedgerNotFound, true, false, false},
		{"wrapped posting not found", errors.Join(errors.New("ctx"), journal.ErrPostingNotFound), true, false, false},
		{"chain conflict", journal.ErrChainConflict, false, true, false},
		{"store unavailable", journal.ErrStoreUnavailable, false, true, false},
		{"chain integrity", &journal.ChainIntegrityError{Reason: "x"}, false, false, true},
		{"unbalanced", &journal.UnbalancedPostingError{}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := journal.IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v", got)
			}
			if got := journal.IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v", got)
			}
			if got := journal.IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal = %v", got)
			}
		})
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{&journal.UnbalancedPostingError{}, journal.ErrUnbalancedPosting},
		{&journal.DuplicateOperationError{OprID: "x"}, journal.ErrDuplicateOperation},
		{&journal.DuplicateNameError{Kind: "ledger", Name: "x"}, journal.ErrDuplicateName},
		{&journal.ChainIntegrityError{}, journal.ErrChainIntegrity},
		{&journal.OutOfOrderCheckpointError{}, journal.ErrOutOfOrderCheckpoint},
		{journal.ValidationError{Field: "f"}, journal.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.sentinel.Error(), func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%T does not match %v", tt.err, tt.sentinel)
			}
		})
	}
}
