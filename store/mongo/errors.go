package mongo

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/journal"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// labelTransient marks transaction aborts caused by a concurrent writer.
const labelTransient = "TransientTransactionError"

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// duplicateIndex returns the index named by a duplicate key error. The server
// reports it as "... index: <name> dup key: ...".
func duplicateIndex(err error) (string, bool) {
	if !mongo.IsDuplicateKeyError(err) {
		return "", false
	}
	msg := err.Error()
	i := strings.Index(msg, "index: ")
	if i < 0 {
		return "", true
	}
	name := msg[i+len("index: "):]
	if j := strings.IndexByte(name, ' '); j >= 0 {
		name = name[:j]
	}
	return name, true
}

// unavailable marks network failures and timeouts so callers can retry.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %w", journal.ErrStoreUnavailable, err)
	}
	return err
}

func hierarchyError(err error, kind, name, scope string) error {
	if err == nil {
		return nil
	}
	index, ok := duplicateIndex(err)
	switch {
	case !ok:
		return fmt.Errorf("journal/mongo: create %s: %w", kind, unavailable(err))
	case index == idxChartName, index == idxLedgerName, index == idxAccountName:
		return &journal.DuplicateNameError{Kind: kind, Name: name, Scope: scope}
	default:
		return fmt.Errorf("%w: %s %q already stored", journal.ErrInvalidInput, kind, name)
	}
}

func postingError(err error, p *posting.Posting) error {
	index, ok := duplicateIndex(err)
	switch {
	case !ok:
		return err
	case index == idxPostingChain:
		return journal.ErrChainConflict
	case index == idxPostingOpr:
		return &journal.DuplicateOperationError{LedgerID: p.LedgerID, OprID: p.OprID}
	default:
		return fmt.Errorf("%w: posting %s already stored", journal.ErrInvalidInput, p.ID)
	}
}

func statementError(err error, st *statement.Statement) error {
	if err == nil {
		return nil
	}
	index, ok := duplicateIndex(err)
	switch {
	case !ok:
		return fmt.Errorf("journal/mongo: create statement: %w", unavailable(err))
	case index == idxStatementSeq:
		return &journal.OutOfOrderCheckpointError{
			Owner:  st.Owner.String(),
			Reason: fmt.Sprintf("sequence %d already taken", st.Seq),
		}
	default:
		return fmt.Errorf("%w: statement %s already stored", journal.ErrInvalidInput, st.ID)
	}
}

// txError maps failures surfacing at any point of a write transaction.
// A write conflict aborts the loser with a transient label; the chain index
// rejects the loser when the winner committed first.
func txError(err error) error {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && srvErr.HasErrorLabel(labelTransient) {
		return fmt.Errorf("%w: %v", journal.ErrChainConflict, err)
	}
	if index, ok := duplicateIndex(err); ok && index == idxPostingChain {
		return journal.ErrChainConflict
	}
	return unavailable(err)
}
