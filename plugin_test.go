package journal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// recorder counts the hooks it receives.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) OnInit(context.Context, any) error { return r.add("init") }
func (r *recorder) OnShutdown(context.Context) error { return r.add("shutdown") }
func (r *recorder) OnAccountCreated(context.Context, *account.Account) error {
	return r.add("account")
}
func (r *recorder) OnPostingAppended(context.Context, *posting.Posting) error {
	return r.add("appended")
}
func (r *recorder) OnPostingDiscarded(_ context.Context, old, replacement *posting.Posting) error {
	if old.DiscardedID != replacement.ID {
		return r.add("bad-discard")
	}
	return r.add("discarded")
}
func (r *recorder) OnStatementCreated(context.Context, *statement.Statement) error {
	return r.add("statement")
}
func (r *recorder) OnStatementClosed(context.Context, *statement.Statement) error {
	return r.add("closed")
}
func (r *recorder) OnChainVerified(context.Context, id.LedgerID, int, time.Duration) error {
	return r.add("verified")
}

func TestPluginHooks(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, journal.WithPlugin(rec))

	p := f.transfer(f.a.ID, f.b.ID, "10", t1)
	if _, err := f.j.DiscardAndReplace(f.ctx, p.ID, journal.ReplaceInput{
		Lines: []posting.LineInput{
			journal.Debit(f.a.ID, journal.MustAmount("9")),
			journal.Credit(f.b.ID, journal.MustAmount("9")),
		},
	}); err != nil {
		t.Fatal(err)
	}
	st, err := f.j.CreateCheckpoint(f.ctx, journal.AccountOwner(f.a.ID), t2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.j.Close(f.ctx, st.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{}); err != nil {
		t.Fatal(err)
	}

	want := map[string]int{
		"init":        1,
		"account":     3,
		"appended":    1,
		"discarded":   1,
		"bad-discard": 0,
		"statement":   1,
		"closed":      1,
		"verified":    1,
	}
	for event, n := range want {
		if got := rec.count(event); got != n {
			t.Errorf("%s fired %d times, want %d", event, got, n)
		}
	}
}

// failing returns an error from every hook it implements.
type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) OnPostingAppended(context.Context, *posting.Posting) error {
	return context.DeadlineExceeded
}

func TestPluginErrorsDoNotFailOperations(t *testing.T) {
	f := newFixture(t, journal.WithPlugin(failing{}))
	p := f.transfer(f.a.ID, f.b.ID, "10", t1)
	if p == nil {
		t.Fatal("append failed because of a plugin")
	}
}
