package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/plugin"
	"github.com/xraph/journal/posting"
)

type appendCounter struct {
	name  string
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (p *appendCounter) Name() string { return p.name }

func (p *appendCounter) OnPostingAppended(ctx context.Context, _ *posting.Posting) error {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
		}
	}
	return p.err
}

type chartOnly struct{}

func (chartOnly) Name() string { return "charts" }
func (chartOnly) OnChartCreated(context.Context, *account.Chart) error { return nil }

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegister(t *testing.T) {
	r := quietRegistry()

	if err := r.Register(&appendCounter{name: "counter"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(chartOnly{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&appendCounter{name: "counter"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	if r.Count() != 2 {
		t.Errorf("Count = %d, want 2", r.Count())
	}
	if r.Get("charts") == nil || r.Get("missing") != nil {
		t.Error("Get returned the wrong plugin")
	}
	if names := len(r.List()); names != 2 {
		t.Errorf("List = %d plugins, want 2", names)
	}
}

func TestEmitDispatchesByHook(t *testing.T) {
	r := quietRegistry()
	first := &appendCounter{name: "first"}
	second := &appendCounter{name: "second", err: errors.New("boom")}
	for _, p := range []plugin.Plugin{first, second, chartOnly{}} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	r.EmitPostingAppended(ctx, &posting.Posting{ID: id.NewPostingID()})
	r.EmitPostingAppended(ctx, &posting.Posting{ID: id.NewPostingID()})
	r.EmitChartCreated(ctx, &account.Chart{Name: "c"})

	if first.calls.Load() != 2 {
		t.Errorf("first called %d times, want 2", first.calls.Load())
	}
	if second.calls.Load() != 2 {
		t.Errorf("a failing hook must not stop dispatch, called %d times", second.calls.Load())
	}
}

func TestEmitTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	slow := &appendCounter{name: "slow", delay: time.Second}
	if err := r.Register(slow); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitPostingAppended(context.Background(), &posting.Posting{})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("emit blocked for %s despite the hook timeout", elapsed)
	}
}
