package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EndOfTime is a reference time later than any value or record time the
// journal will hold. Finders use it to mean "no upper bound".
var EndOfTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// CanonicalTime normalizes t to UTC with millisecond precision, the
// coarsest precision among the supported stores. Every timestamp that takes
// part in a hash goes through it so stored content re-hashes identically.
func CanonicalTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}

// ParseAmount parses a decimal amount such as "100.00".
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustAmount is like ParseAmount but panics on error. Use for literals.
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Totals is a cumulative pair of debit and credit sums.
type Totals struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Add folds one debit/credit pair into the totals.
func (t Totals) Add(debit, credit decimal.Decimal) Totals {
	return Totals{
		Debit:  t.Debit.Add(debit),
		Credit: t.Credit.Add(credit),
	}
}

// Plus returns the component-wise sum of two totals.
func (t Totals) Plus(other Totals) Totals {
	return t.Add(other.Debit, other.Credit)
}

// DebitBalance is debit minus credit.
func (t Totals) DebitBalance() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// CreditBalance is credit minus debit.
func (t Totals) CreditBalance() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// Balanced reports whether debits equal credits.
func (t Totals) Balanced() bool {
	return t.Debit.Equal(t.Credit)
}

// Equal compares amounts numerically, so "100" equals "100.00".
func (t Totals) Equal(other Totals) bool {
	return t.Debit.Equal(other.Debit) && t.Credit.Equal(other.Credit)
}

// String renders the totals as "Dr <debit> / Cr <credit>".
func (t Totals) String() string {
	return fmt.Sprintf("Dr %s / Cr %s", t.Debit.StringFixed(2), t.Credit.StringFixed(2))
}
