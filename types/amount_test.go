package types

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"Integer", "100", "100", false},
		{"Trailing zeros", "100.00", "100", false},
		{"Fraction", "0.35", "0.35", false},
		{"Empty is zero", "", "0", false},
		{"Garbage", "ten", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestTotals(t *testing.T) {
	tot := Totals{}.
		Add(MustAmount("100"), MustAmount("0")).
		Add(MustAmount("0"), MustAmount("30.50"))

	if got := tot.DebitBalance().String(); got != "69.5" {
		t.Errorf("DebitBalance: got %s, want 69.5", got)
	}
	if got := tot.CreditBalance().String(); got != "-69.5" {
		t.Errorf("CreditBalance: got %s, want -69.5", got)
	}
	if tot.Balanced() {
		t.Error("expected unbalanced totals")
	}

	sum := tot.Plus(Totals{Debit: MustAmount("0"), Credit: MustAmount("69.50")})
	if !sum.Balanced() {
		t.Errorf("expected balanced totals, got %s", sum)
	}
	if !sum.Equal(Totals{Debit: MustAmount("100.00"), Credit: MustAmount("100")}) {
		t.Errorf("expected numeric equality, got %s", sum)
	}
	if sum.String() != "Dr 100.00 / Cr 100.00" {
		t.Errorf("String: got %q", sum.String())
	}
}

func TestCanonicalTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 3, 1, 12, 0, 0, 123456789, loc)

	got := CanonicalTime(in)
	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %s", got.Location())
	}
	if got.Nanosecond() != 123000000 {
		t.Errorf("expected millisecond truncation, got %d ns", got.Nanosecond())
	}
	if !got.Equal(in.Truncate(time.Millisecond)) {
		t.Errorf("instant changed: %s vs %s", got, in)
	}
	if !CanonicalTime(time.Time{}).IsZero() {
		t.Error("zero time must stay zero")
	}
}

func TestEntityStamp(t *testing.T) {
	var e Entity
	now := time.Date(2024, 1, 1, 0, 0, 0, 999999, time.UTC)
	e.Stamp(now)
	if !e.CreatedAt.Equal(now.Truncate(time.Millisecond)) {
		t.Errorf("CreatedAt: got %s", e.CreatedAt)
	}

	later := now.Add(time.Hour)
	e.Stamp(later)
	if e.CreatedAt.Equal(later) {
		t.Error("Stamp must not overwrite an existing CreatedAt")
	}
}
