package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/journal"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// isNoRows checks for every no-rows sentinel the driver stack can surface.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, grove.ErrNoRows)
}

// uniqueViolation returns the columns named by a UNIQUE constraint failure,
// for example "journal_charts.name".
func uniqueViolation(err error) (string, bool) {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) || sqlErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", false
	}
	msg := sqlErr.Error()
	if i := strings.Index(msg, "constraint failed: "); i >= 0 {
		msg = msg[i+len("constraint failed: "):]
	}
	return msg, true
}

// unavailable marks a locked or busy database so callers can retry.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", journal.ErrStoreUnavailable, err)
		}
	}
	return err
}

func hierarchyError(err error, kind, name, scope string) error {
	if err == nil {
		return nil
	}
	columns, ok := uniqueViolation(err)
	switch {
	case !ok:
		return alreadyStored(err, kind, name)
	case strings.Contains(columns, ".name"):
		return &journal.DuplicateNameError{Kind: kind, Name: name, Scope: scope}
	default:
		return fmt.Errorf("%w: %s %q already stored", journal.ErrInvalidInput, kind, name)
	}
}

// alreadyStored reports a primary key clash as invalid input.
func alreadyStored(err error, kind, name string) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return fmt.Errorf("%w: %s %q already stored", journal.ErrInvalidInput, kind, name)
	}
	return unavailable(err)
}

func postingError(err error, p *posting.Posting) error {
	columns, ok := uniqueViolation(err)
	switch {
	case !ok:
		return alreadyStored(err, "posting", p.ID.String())
	case strings.Contains(columns, "antecedent_id"):
		return journal.ErrChainConflict
	case strings.Contains(columns, "opr_id"):
		return &journal.DuplicateOperationError{LedgerID: p.LedgerID, OprID: p.OprID}
	default:
		return fmt.Errorf("%w: posting %s already stored", journal.ErrInvalidInput, p.ID)
	}
}

func statementError(err error, st *statement.Statement) error {
	if err == nil {
		return nil
	}
	columns, ok := uniqueViolation(err)
	switch {
	case !ok:
		return alreadyStored(err, "statement", st.ID.String())
	case strings.Contains(columns, ".seq"):
		return &journal.OutOfOrderCheckpointError{
			Owner:  st.Owner.String(),
			Reason: fmt.Sprintf("sequence %d already taken", st.Seq),
		}
	default:
		return fmt.Errorf("%w: statement %s already stored", journal.ErrInvalidInput, st.ID)
	}
}

// txError maps failures surfacing at any point of a write transaction.
func txError(err error) error {
	if columns, ok := uniqueViolation(err); ok && strings.Contains(columns, "antecedent_id") {
		return journal.ErrChainConflict
	}
	return unavailable(err)
}
