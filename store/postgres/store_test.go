package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/postgres"
	"github.com/xraph/journal/store/storetest"
)

// TestStore runs the conformance suite against the database named by
// JOURNAL_TEST_POSTGRES_DSN. Every subtest starts from empty tables.
func TestStore(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JOURNAL_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.Open(ctx, dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })

		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		_, err = pgdriver.Unwrap(s.DB()).NewRaw(`TRUNCATE journal_traces, journal_lines, journal_postings,
journal_statements, journal_accounts, journal_ledgers, journal_charts`).Exec(ctx)
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}
