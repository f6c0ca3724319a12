package posting_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
)

func TestTypeIsStatement(t *testing.T) {
	tests := []struct {
		typ  posting.Type
		want bool
	}{
		{posting.TypeBusinessTx, false},
		{posting.TypeAdjustmentTx, false},
		{posting.TypeBalanceStatement, true},
		{posting.TypePnLStatement, true},
		{posting.TypeBalanceSheet, true},
		{posting.TypeLedgerClosing, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if !tt.typ.Valid() {
				t.Fatalf("%q should be valid", tt.typ)
			}
			if got := tt.typ.IsStatement(); got != tt.want {
				t.Errorf("IsStatement() = %v, want %v", got, tt.want)
			}
		})
	}
	if posting.Type("WIRE").Valid() {
		t.Error("unknown type reported valid")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []posting.Status{
		posting.StatusDeferred, posting.StatusPosted, posting.StatusProposed,
		posting.StatusSimulated, posting.StatusTax, posting.StatusUnposted,
		posting.StatusCancelled, posting.StatusOther,
	} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if posting.Status("posted").Valid() {
		t.Error("statuses are case sensitive")
	}
}

func samplePosting(antecedentHash string) *posting.Posting {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &posting.Posting{
		ID:             id.NewPostingID(),
		LedgerID:       id.NewLedgerID(),
		OprID:          "op-1",
		OprTime:        now,
		RecordTime:     now,
		ValueTime:      now,
		Type:           posting.TypeBusinessTx,
		Status:         posting.StatusPosted,
		AntecedentHash: antecedentHash,
	}
	for i, in := range []posting.LineInput{
		posting.Debit(id.NewAccountID(), decimal.RequireFromString("100.00")),
		posting.Credit(id.NewAccountID(), decimal.RequireFromString("100")),
	} {
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
			Type:       p.Type,
			Status:     p.Status,
		})
	}
	return p
}

func TestSealAndCheck(t *testing.T) {
	p := samplePosting("")
	if err := posting.Seal(p); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if p.HashAlg != posting.HashAlgSHA256 {
		t.Errorf("HashAlg = %q", p.HashAlg)
	}
	if len(p.Hash) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(p.Hash))
	}
	for _, l := range p.Lines {
		if l.Hash == "" {
			t.Errorf("line %s not hashed", l.ID)
		}
	}
	if err := posting.Check(p); err != nil {
		t.Fatalf("Check on sealed posting: %v", err)
	}
}

func TestHashIgnoresRepresentation(t *testing.T) {
	p := samplePosting("")
	if err := posting.Seal(p); err != nil {
		t.Fatal(err)
	}

	// Same amounts and instants as a store might return them.
	p.Lines[0].Debit = decimal.RequireFromString("100")
	p.Lines[1].Credit = decimal.RequireFromString("100.000")
	loc := time.FixedZone("X", 3600)
	p.RecordTime = p.RecordTime.In(loc)
	p.ValueTime = p.ValueTime.Add(300 * time.Microsecond)

	if err := posting.Check(p); err != nil {
		t.Errorf("equivalent content should re-hash identically: %v", err)
	}
}

func TestCheckDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *posting.Posting)
		reason string
	}{
		{"line amount", func(p *posting.Posting) {
			p.Lines[0].Debit = decimal.RequireFromString("1000")
		}, "line"},
		{"line account", func(p *posting.Posting) {
			p.Lines[1].AccountID = id.NewAccountID()
		}, "line"},
		{"opr id", func(p *posting.Posting) { p.OprID = "op-2" }, "posting hash"},
		{"value time", func(p *posting.Posting) {
			p.ValueTime = p.ValueTime.Add(time.Hour)
		}, "posting hash"},
		{"antecedent hash", func(p *posting.Posting) { p.AntecedentHash = "beef" }, "posting hash"},
		{"line order", func(p *posting.Posting) {
			p.Lines[0], p.Lines[1] = p.Lines[1], p.Lines[0]
		}, "posting hash"},
		{"hash alg", func(p *posting.Posting) { p.HashAlg = "MD5" }, "algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePosting("")
			if err := posting.Seal(p); err != nil {
				t.Fatal(err)
			}
			tt.mutate(p)
			err := posting.Check(p)
			if err == nil {
				t.Fatal("expected mismatch")
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q does not mention %q", err, tt.reason)
			}
		})
	}
}

func TestDiscardMarkersNotHashed(t *testing.T) {
	p := samplePosting("")
	if err := posting.Seal(p); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	p.DiscardedID = id.NewPostingID()
	p.DiscardedTime = &now
	for _, l := range p.Lines {
		l.DiscardedTime = &now
	}
	if err := posting.Check(p); err != nil {
		t.Errorf("discarding must not break the chain: %v", err)
	}
	if p.IsActive() {
		t.Error("discarded posting reported active")
	}
}

func TestAntecedentChangesHash(t *testing.T) {
	a := samplePosting("")
	b := samplePosting("")
	b.ID, b.LedgerID, b.Lines = a.ID, a.LedgerID, a.Lines
	b.AntecedentHash = "00ff"
	if err := posting.Seal(a); err != nil {
		t.Fatal(err)
	}
	hashA := a.Hash
	if err := posting.Seal(b); err != nil {
		t.Fatal(err)
	}
	if hashA == b.Hash {
		t.Error("antecedent hash must feed the posting hash")
	}
}

func TestTotals(t *testing.T) {
	p := samplePosting("")
	debit, credit := p.Totals()
	if !debit.Equal(credit) {
		t.Errorf("expected balanced totals, got %s / %s", debit, credit)
	}
	if !debit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("debit = %s", debit)
	}
}
