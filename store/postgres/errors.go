package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"

	"github.com/xraph/journal"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// PostgreSQL error codes the store translates.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// isNoRows checks for every no-rows sentinel the driver stack can surface.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) || errors.Is(err, grove.ErrNoRows)
}

// uniqueViolation returns the violated constraint when err is a unique
// violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// unavailable marks connection failures and timeouts so callers can tell
// them apart from rejected writes.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", journal.ErrStoreUnavailable, err)
	}
	return err
}

func hierarchyError(err error, kind, name, scope string) error {
	if err == nil {
		return nil
	}
	constraint, ok := uniqueViolation(err)
	switch {
	case !ok:
		return unavailable(err)
	case constraint == "idx_journal_charts_name",
		constraint == "idx_journal_ledgers_name",
		constraint == "idx_journal_accounts_ledger_name":
		return &journal.DuplicateNameError{Kind: kind, Name: name, Scope: scope}
	default:
		return fmt.Errorf("%w: %s %q already stored", journal.ErrInvalidInput, kind, name)
	}
}

func postingError(err error, p *posting.Posting) error {
	constraint, ok := uniqueViolation(err)
	switch {
	case !ok:
		return err
	case constraint == "idx_journal_postings_chain":
		return journal.ErrChainConflict
	case constraint == "idx_journal_postings_active_opr":
		return &journal.DuplicateOperationError{LedgerID: p.LedgerID, OprID: p.OprID}
	default:
		return fmt.Errorf("%w: posting %s already stored", journal.ErrInvalidInput, p.ID)
	}
}

func statementError(err error, st *statement.Statement) error {
	if err == nil {
		return nil
	}
	constraint, ok := uniqueViolation(err)
	switch {
	case !ok:
		return unavailable(err)
	case constraint == "idx_journal_statements_seq":
		return &journal.OutOfOrderCheckpointError{
			Owner:  st.Owner.String(),
			Reason: fmt.Sprintf("sequence %d already taken", st.Seq),
		}
	default:
		return fmt.Errorf("%w: statement %s already stored", journal.ErrInvalidInput, st.ID)
	}
}

// txError maps failures surfacing at any point of a write transaction.
// Serialization failures and deadlocks mean another writer won the head.
func txError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", journal.ErrChainConflict, pgErr.Message)
		case codeUniqueViolation:
			if pgErr.ConstraintName == "idx_journal_postings_chain" {
				return journal.ErrChainConflict
			}
		}
	}
	return unavailable(err)
}
