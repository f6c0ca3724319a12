package observability_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/observability"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/store/memory"
)

// fakeFactory hands out in-memory metrics keyed by name.
type fakeFactory struct {
	mu         sync.Mutex
	counters   map[string]*fakeMetric
	histograms map[string]*fakeMetric
}

type fakeMetric struct {
	mu     sync.Mutex
	total  float64
	values []float64
}

func (m *fakeMetric) Inc() { m.Add(1) }
func (m *fakeMetric) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += v
}
func (m *fakeMetric) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, v)
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{counters: map[string]*fakeMetric{}, histograms: map[string]*fakeMetric{}}
}

func (f *fakeFactory) Counter(name string) observability.Counter {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &fakeMetric{}
	f.counters[name] = m
	return m
}

func (f *fakeFactory) Histogram(name string) observability.Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &fakeMetric{}
	f.histograms[name] = m
	return m
}

func TestMetricsExtensionCountsLifecycle(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	j := journal.New(memory.New(), journal.WithPlugin(observability.NewMetricsExtension(factory)))
	if err := j.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer j.Stop() //nolint:errcheck // test cleanup

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
	for i, amount := range []string{"10", "25"} {
		_, err := j.Append(ctx, journal.AppendInput{
			LedgerID:  ledger.ID,
			OprID:     "op-" + amount,
			ValueTime: time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC),
			Lines: []posting.LineInput{
				journal.Debit(cash.ID, journal.MustAmount(amount)),
				journal.Credit(loan.ID, journal.MustAmount(amount)),
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := j.Verify(ctx, ledger.ID, journal.VerifyOptions{}); err != nil {
		t.Fatal(err)
	}

	counters := []struct {
		name string
		want float64
	}{
		{"journal.chart.created", 1},
		{"journal.ledger.created", 1},
		{"journal.account.created", 2},
		{"journal.posting.appended", 2},
		{"journal.posting.discarded", 0},
		{"journal.chain.verified", 1},
		{"journal.chain.broken", 0},
	}
	for _, tt := range counters {
		t.Run(tt.name, func(t *testing.T) {
			if got := factory.counters[tt.name].total; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	amounts := factory.histograms["journal.posting.amount"].values
	if len(amounts) != 2 || amounts[0] != 10 || amounts[1] != 25 {
		t.Errorf("posting amounts = %v, want [10 25]", amounts)
	}
	checked := factory.histograms["journal.chain.postings_checked"].values
	if len(checked) != 1 || checked[0] != 2 {
		t.Errorf("postings checked = %v, want [2]", checked)
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	ledgerID := id.NewLedgerID()
	_ = m.OnChainBroken(context.Background(), ledgerID, id.NewPostingID(), "hash mismatch") //nolint:errcheck // always nil
	_ = m.OnChainBroken(context.Background(), ledgerID, id.NewPostingID(), "hash mismatch") //nolint:errcheck // always nil

	broken, ok := m.ChainsBroken.(prometheus.Counter)
	if !ok {
		t.Fatalf("ChainsBroken is %T, want prometheus.Counter", m.ChainsBroken)
	}
	if got := testutil.ToFloat64(broken); got != 2 {
		t.Errorf("journal_chain_broken = %v, want 2", got)
	}

	// A second extension over the same registry shares the collectors.
	again := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	again.ChainsBroken.Inc()
	if got := testutil.ToFloat64(broken); got != 3 {
		t.Errorf("shared journal_chain_broken = %v, want 3", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"journal_chain_broken", "journal_posting_appended", "journal_chain_verify_latency_ms"} {
		if !names[want] {
			t.Errorf("registry missing %s", want)
		}
	}
}
