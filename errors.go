package journal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal/id"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("journal: not found")
	ErrInvalidInput = errors.New("journal: invalid input")

	// Hierarchy errors
	ErrChartNotFound   = errors.New("journal: chart of accounts not found")
	ErrLedgerNotFound  = errors.New("journal: ledger not found")
	ErrAccountNotFound = errors.New("journal: account not found")
	ErrDuplicateName   = errors.New("journal: duplicate name")

	// Posting errors
	ErrPostingNotFound    = errors.New("journal: posting not found")
	ErrUnbalancedPosting  = errors.New("journal: unbalanced posting")
	ErrDuplicateOperation = errors.New("journal: duplicate operation")
	ErrChainConflict      = errors.New("journal: chain head moved")
	ErrChainIntegrity     = errors.New("journal: chain integrity violated")
	ErrPeriodClosed       = errors.New("journal: period is closed")

	// Statement errors
	ErrStatementNotFound    = errors.New("journal: statement not found")
	ErrOutOfOrderCheckpoint = errors.New("journal: out of order checkpoint")
	ErrStatementClosed      = errors.New("journal: statement is closed")

	// Store errors
	ErrStoreUnavailable = errors.New("journal: store unavailable")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("journal: validation failed for %s: %s", e.Field, e.Message)
}

// Is matches ErrInvalidInput.
func (e ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// UnbalancedPostingError reports the totals of a posting whose debits and
// credits differ.
type UnbalancedPostingError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedPostingError) Error() string {
	return fmt.Sprintf("journal: unbalanced posting: debit %s != credit %s", e.Debit, e.Credit)
}

// Is matches ErrUnbalancedPosting.
func (e *UnbalancedPostingError) Is(target error) bool { return target == ErrUnbalancedPosting }

// DuplicateOperationError reports the active posting that already carries
// an operation id.
type DuplicateOperationError struct {
	LedgerID  id.LedgerID
	OprID     string
	PostingID id.PostingID
}

func (e *DuplicateOperationError) Error() string {
	if e.PostingID.IsNil() {
		return fmt.Sprintf("journal: operation %q already posted in ledger %s", e.OprID, e.LedgerID)
	}
	return fmt.Sprintf("journal: operation %q already posted in ledger %s as %s", e.OprID, e.LedgerID, e.PostingID)
}

// Is matches ErrDuplicateOperation.
func (e *DuplicateOperationError) Is(target error) bool { return target == ErrDuplicateOperation }

// DuplicateNameError reports a name clash in the hierarchy.
type DuplicateNameError struct {
	Kind  string
	Name  string
	Scope string
}

func (e *DuplicateNameError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("journal: %s %q already exists in %s", e.Kind, e.Name, e.Scope)
	}
	return fmt.Sprintf("journal: %s %q already exists", e.Kind, e.Name)
}

// Is matches ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// ChainIntegrityError identifies the first posting at which a ledger's hash
// chain fails to verify. It is never retryable.
type ChainIntegrityError struct {
	LedgerID  id.LedgerID
	PostingID id.PostingID
	Reason    string
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("journal: chain integrity violated in ledger %s at posting %s: %s", e.LedgerID, e.PostingID, e.Reason)
}

// Is matches ErrChainIntegrity.
func (e *ChainIntegrityError) Is(target error) bool { return target == ErrChainIntegrity }

// OutOfOrderCheckpointError reports a checkpoint that would not extend the
// owner's statement sequence.
type OutOfOrderCheckpointError struct {
	Owner  string
	Reason string
}

func (e *OutOfOrderCheckpointError) Error() string {
	return fmt.Sprintf("journal: out of order checkpoint for %s: %s", e.Owner, e.Reason)
}

// Is matches ErrOutOfOrderCheckpoint.
func (e *OutOfOrderCheckpointError) Is(target error) bool { return target == ErrOutOfOrderCheckpoint }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "journal: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("journal: %d errors occurred (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrChartNotFound) ||
		errors.Is(err, ErrLedgerNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrPostingNotFound) ||
		errors.Is(err, ErrStatementNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrChainConflict) ||
		errors.Is(err, ErrStoreUnavailable)
}

// IsFatal returns true if the error means stored data can no longer be
// trusted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrChainIntegrity)
}
