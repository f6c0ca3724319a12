package journal_test

import (
	"errors"
	"testing"

	"github.com/xraph/journal"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
)

func TestDiscardAndReplace(t *testing.T) {
	f := newFixture(t)

	old := f.transfer(f.a.ID, f.b.ID, "50", t1)
	repl, err := f.j.DiscardAndReplace(f.ctx, old.ID, journal.ReplaceInput{
		Lines: []posting.LineInput{
			journal.Debit(f.a.ID, journal.MustAmount("45")),
			journal.Credit(f.b.ID, journal.MustAmount("45")),
		},
		OprDetails: "price corrected",
	})
	if err != nil {
		t.Fatalf("DiscardAndReplace: %v", err)
	}

	t.Run("replacement", func(t *testing.T) {
		if repl.OprID == old.OprID || repl.OprID == "" {
			t.Errorf("replacement needs a fresh opr id, got %q", repl.OprID)
		}
		if repl.OprSrc != old.OprID {
			t.Errorf("OprSrc = %q, want %q", repl.OprSrc, old.OprID)
		}
		if !repl.ValueTime.Equal(old.ValueTime) {
			t.Errorf("value time = %s, want the discarded posting's %s", repl.ValueTime, old.ValueTime)
		}
		if repl.AntecedentID != old.ID {
			t.Errorf("replacement should extend the chain from %s", old.ID)
		}
		for i, l := range repl.Lines {
			if l.BaseLine != old.Lines[i].ID {
				t.Errorf("line %d base = %s, want %s", i, l.BaseLine, old.Lines[i].ID)
			}
		}
	})

	t.Run("old posting kept", func(t *testing.T) {
		stored, err := f.j.Posting(f.ctx, old.ID)
		if err != nil {
			t.Fatalf("discarded posting must stay readable: %v", err)
		}
		if stored.IsActive() || stored.DiscardedID != repl.ID || stored.DiscardedTime == nil {
			t.Errorf("discard markers not set: %+v", stored)
		}
		for _, l := range stored.Lines {
			if l.DiscardedTime == nil {
				t.Errorf("line %s not marked discarded", l.ID)
			}
		}
		all, err := f.j.PostingsByOperation(f.ctx, f.ledger.ID, old.OprID)
		if err != nil || len(all) != 1 {
			t.Errorf("PostingsByOperation = %d postings, %v", len(all), err)
		}
		if _, err := f.j.ActivePosting(f.ctx, f.ledger.ID, old.OprID); !journal.IsNotFound(err) {
			t.Errorf("old opr id should have no active posting, got %v", err)
		}
	})

	t.Run("traces", func(t *testing.T) {
		traces, err := f.j.Traces(f.ctx, repl.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(traces) != len(old.Lines) {
			t.Fatalf("got %d traces, want %d", len(traces), len(old.Lines))
		}
		for _, tr := range traces {
			if tr.SourcePostingID != old.ID || tr.SourceOprID != old.OprID || tr.SourcePostingHash != old.Hash {
				t.Errorf("trace does not point at the discarded posting: %+v", tr)
			}
		}
	})

	t.Run("corrections by base line", func(t *testing.T) {
		lines, err := f.j.LinesByBase(f.ctx, old.Lines[0].ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(lines) != 1 || lines[0].PostingID != repl.ID {
			t.Errorf("LinesByBase = %+v", lines)
		}
		line, err := f.j.Line(f.ctx, f.a.ID, old.Lines[0].ID)
		if err != nil || line.IsActive() {
			t.Errorf("Line = %+v, %v; want discarded line", line, err)
		}
	})

	t.Run("discard twice", func(t *testing.T) {
		_, err := f.j.DiscardAndReplace(f.ctx, old.ID, journal.ReplaceInput{
			Lines: []posting.LineInput{
				journal.Debit(f.a.ID, journal.MustAmount("1")),
				journal.Credit(f.b.ID, journal.MustAmount("1")),
			},
		})
		if !errors.Is(err, journal.ErrPostingNotFound) {
			t.Errorf("got %v, want ErrPostingNotFound", err)
		}
	})

	t.Run("unknown posting", func(t *testing.T) {
		_, err := f.j.DiscardAndReplace(f.ctx, id.NewPostingID(), journal.ReplaceInput{})
		if !journal.IsNotFound(err) {
			t.Errorf("got %v, want not found", err)
		}
	})

	t.Run("chain still verifies", func(t *testing.T) {
		if _, err := f.j.Verify(f.ctx, f.ledger.ID, journal.VerifyOptions{}); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})
}

func TestDiscardIsAtomic(t *testing.T) {
	f := newFixture(t)
	old := f.transfer(f.a.ID, f.b.ID, "50", t1)

	// An unbalanced replacement is rejected and the old posting stays active.
	_, err := f.j.DiscardAndReplace(f.ctx, old.ID, journal.ReplaceInput{
		Lines: []posting.LineInput{
			journal.Debit(f.a.ID, journal.MustAmount("45")),
			journal.Credit(f.b.ID, journal.MustAmount("40")),
		},
	})
	if !errors.Is(err, journal.ErrUnbalancedPosting) {
		t.Fatalf("got %v, want ErrUnbalancedPosting", err)
	}
	active, err := f.j.IsActive(f.ctx, old.ID)
	if err != nil || !active {
		t.Errorf("IsActive = %v, %v; want true", active, err)
	}
	f.wantAmount(f.a.ID, t1, "50")
}
