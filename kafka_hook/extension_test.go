package kafkahook_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	kafkahook "github.com/xraph/journal/kafka_hook"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/store/memory"
)

// memWriter collects messages instead of sending them.
type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
	fail   error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) events(t *testing.T) []kafkahook.Event {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]kafkahook.Event, len(w.msgs))
	for i, m := range w.msgs {
		if err := json.Unmarshal(m.Value, &out[i]); err != nil {
			t.Fatalf("decode message %d: %v", i, err)
		}
		if string(m.Key) != out[i].LedgerID {
			t.Errorf("message %d key = %q, want ledger id %q", i, m.Key, out[i].LedgerID)
		}
	}
	return out
}

var stamp = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func TestPublishesJournalEvents(t *testing.T) {
	ctx := context.Background()
	w := &memWriter{}
	ext := kafkahook.New(w, kafkahook.WithClock(func() time.Time { return stamp }))

	j := journal.New(memory.New(), journal.WithPlugin(ext))
	if err := j.Start(ctx); err != nil {
		t.Fatal(err)
	}

	chart := &account.Chart{Name: "main"}
	if err := j.CreateChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	ledger := &account.Ledger{Name: "books", ChartID: chart.ID}
	if err := j.CreateLedger(ctx, ledger); err != nil {
		t.Fatal(err)
	}
	cash := &account.Account{Name: "cash", LedgerID: ledger.ID, Category: account.CategoryAsset}
	loan := &account.Account{Name: "loan", LedgerID: ledger.ID, Category: account.CategoryLiability}
	for _, a := range []*account.Account{cash, loan} {
		if err := j.CreateAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	p, err := j.Append(ctx, journal.AppendInput{
		LedgerID:  ledger.ID,
		OprID:     "loan-1",
		ValueTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []posting.LineInput{
			journal.Debit(cash.ID, journal.MustAmount("500")),
			journal.Credit(loan.ID, journal.MustAmount("500")),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.CreateCheckpoint(ctx, journal.AccountOwner(cash.ID), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if err := j.Stop(); err != nil {
		t.Fatal(err)
	}

	events := w.events(t)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	appended := events[0]
	if appended.Type != kafkahook.EventPostingAppended || appended.ResourceID != p.ID.String() {
		t.Errorf("first event = %s %s, want %s %s", appended.Type, appended.ResourceID, kafkahook.EventPostingAppended, p.ID)
	}
	if !appended.OccurredAt.Equal(stamp) {
		t.Errorf("OccurredAt = %v, want %v", appended.OccurredAt, stamp)
	}

	// The account statement is keyed by the account's ledger.
	created := events[1]
	if created.Type != kafkahook.EventStatementCreated {
		t.Errorf("second event type = %s", created.Type)
	}
	if created.LedgerID != ledger.ID.String() {
		t.Errorf("statement ledger = %s, want %s", created.LedgerID, ledger.ID)
	}

	if !w.closed {
		t.Error("writer not closed on shutdown")
	}
}

func TestEventTypeFilter(t *testing.T) {
	w := &memWriter{}
	ext := kafkahook.New(w, kafkahook.WithEventTypes(kafkahook.EventChainBroken))
	ctx := context.Background()
	ledgerID := id.NewLedgerID()

	if err := ext.OnChainVerified(ctx, ledgerID, 3, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnChainBroken(ctx, ledgerID, id.NewPostingID(), "hash mismatch"); err != nil {
		t.Fatal(err)
	}

	events := w.events(t)
	if len(events) != 1 || events[0].Type != kafkahook.EventChainBroken {
		t.Fatalf("events = %+v, want one chain.broken", events)
	}
	data, ok := events[0].Data.(map[string]any)
	if !ok || data["reason"] != "hash mismatch" {
		t.Errorf("data = %v", events[0].Data)
	}
}

func TestPublishFailureIsReturned(t *testing.T) {
	w := &memWriter{fail: errors.New("broker down")}
	ext := kafkahook.New(w)

	err := ext.OnChainVerified(context.Background(), id.NewLedgerID(), 1, time.Millisecond)
	if err == nil || !errors.Is(err, w.fail) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}
