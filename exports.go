package journal

import (
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/types"
)

// Re-export common types for convenience so users don't have to import the
// domain packages for everyday calls.

// Entity is re-exported from types package.
type Entity = types.Entity

// Totals is re-exported from types package.
type Totals = types.Totals

// LineInput is re-exported from posting package.
type LineInput = posting.LineInput

// Owner is re-exported from statement package.
type Owner = statement.Owner

// Re-export line and owner constructors
var (
	Debit        = posting.Debit
	Credit       = posting.Credit
	AccountOwner = statement.AccountOwner
	LedgerOwner  = statement.LedgerOwner
)

// Re-export amount helpers
var (
	ParseAmount = types.ParseAmount
	MustAmount  = types.MustAmount
)
