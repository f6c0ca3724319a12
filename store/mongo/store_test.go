package mongo_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/mongo"
	"github.com/xraph/journal/store/storetest"
)

// TestStore runs the conformance suite against the replica set named by
// JOURNAL_TEST_MONGO_URI. Every subtest gets its own database, dropped on
// cleanup.
func TestStore(t *testing.T) {
	uri := os.Getenv("JOURNAL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("JOURNAL_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		name := "journal_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

		s, err := mongo.Open(ctx, uri, mongodriver.WithDatabase(name))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() {
			_ = mongodriver.Unwrap(s.DB()).Database().Drop(context.Background())
			_ = s.Close()
		})

		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		return s
	})
}
