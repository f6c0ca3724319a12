package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/journal/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ChartID", id.NewChartID, "coa_"},
		{"LedgerID", id.NewLedgerID, "ldg_"},
		{"AccountID", id.NewAccountID, "lacc_"},
		{"PostingID", id.NewPostingID, "pst_"},
		{"LineID", id.NewLineID, "pln_"},
		{"StatementID", id.NewStatementID, "stmt_"},
		{"TraceID", id.NewTraceID, "trc_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixPosting)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixPosting {
		t.Errorf("expected prefix %q, got %q", id.PrefixPosting, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"ChartID", id.NewChartID, id.ParseChartID},
		{"LedgerID", id.NewLedgerID, id.ParseLedgerID},
		{"AccountID", id.NewAccountID, id.ParseAccountID},
		{"PostingID", id.NewPostingID, id.ParsePostingID},
		{"LineID", id.NewLineID, id.ParseLineID},
		{"StatementID", id.NewStatementID, id.ParseStatementID},
		{"TraceID", id.NewTraceID, id.ParseTraceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseChartID rejects ldg_", id.NewLedgerID().String(), id.ParseChartID},
		{"ParseLedgerID rejects lacc_", id.NewAccountID().String(), id.ParseLedgerID},
		{"ParseAccountID rejects pst_", id.NewPostingID().String(), id.ParseAccountID},
		{"ParsePostingID rejects pln_", id.NewLineID().String(), id.ParsePostingID},
		{"ParseLineID rejects stmt_", id.NewStatementID().String(), id.ParseLineID},
		{"ParseStatementID rejects trc_", id.NewTraceID().String(), id.ParseStatementID},
		{"ParseTraceID rejects coa_", id.NewChartID().String(), id.ParseTraceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	i := id.NewPostingID()
	parsed, err := id.ParseWithPrefix(i.String(), id.PrefixPosting)
	if err != nil {
		t.Fatalf("ParseWithPrefix failed: %v", err)
	}
	if parsed.String() != i.String() {
		t.Errorf("mismatch: %q != %q", parsed.String(), i.String())
	}

	_, err = id.ParseWithPrefix(i.String(), id.PrefixLine)
	if err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestFromString(t *testing.T) {
	got, err := id.FromString("")
	if err != nil {
		t.Fatalf("FromString(\"\") failed: %v", err)
	}
	if !got.IsNil() {
		t.Error("expected Nil for empty string")
	}

	want := id.NewAccountID()
	got, err = id.FromString(want.String())
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	if got != want {
		t.Errorf("mismatch: %q != %q", got, want)
	}

	if _, err := id.FromString("not an id"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewStatementID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewLedgerID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewPostingID()
	b := id.NewPostingID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewPostingID() calls returned the same ID: %q", a.String())
	}
}
