// Package observability provides a metrics extension for Journal that records
// lifecycle event counts via a MetricFactory. Factories are provided for the
// go-utils metrics collector that Forge exposes as app.Metrics() and for a
// Prometheus registry.
package observability

import (
	"context"
	"time"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/plugin"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnChartCreated     = (*MetricsExtension)(nil)
	_ plugin.OnLedgerCreated    = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated   = (*MetricsExtension)(nil)
	_ plugin.OnPostingAppended  = (*MetricsExtension)(nil)
	_ plugin.OnPostingDiscarded = (*MetricsExtension)(nil)
	_ plugin.OnStatementCreated = (*MetricsExtension)(nil)
	_ plugin.OnStatementClosed  = (*MetricsExtension)(nil)
	_ plugin.OnChainVerified    = (*MetricsExtension)(nil)
	_ plugin.OnChainBroken      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Journal plugin to automatically track journal metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Hierarchy metrics
	ChartsCreated   Counter
	LedgersCreated  Counter
	AccountsCreated Counter

	// Posting metrics
	PostingsAppended  Counter
	PostingsDiscarded Counter
	PostingLines      Histogram
	PostingAmount     Histogram

	// Statement metrics
	StatementsCreated Counter
	StatementsClosed  Counter

	// Chain metrics
	ChainsVerified  Counter
	ChainsBroken    Counter
	PostingsChecked Histogram
	VerifyLatency   Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use FromGoUtils(app.Metrics()) in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Hierarchy metrics
		ChartsCreated:   factory.Counter("journal.chart.created"),
		LedgersCreated:  factory.Counter("journal.ledger.created"),
		AccountsCreated: factory.Counter("journal.account.created"),

		// Posting metrics
		PostingsAppended:  factory.Counter("journal.posting.appended"),
		PostingsDiscarded: factory.Counter("journal.posting.discarded"),
		PostingLines:      factory.Histogram("journal.posting.lines"),
		PostingAmount:     factory.Histogram("journal.posting.amount"),

		// Statement metrics
		StatementsCreated: factory.Counter("journal.statement.created"),
		StatementsClosed:  factory.Counter("journal.statement.closed"),

		// Chain metrics
		ChainsVerified:  factory.Counter("journal.chain.verified"),
		ChainsBroken:    factory.Counter("journal.chain.broken"),
		PostingsChecked: factory.Histogram("journal.chain.postings_checked"),
		VerifyLatency:   factory.Histogram("journal.chain.verify.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Hierarchy hooks
// ──────────────────────────────────────────────────

// OnChartCreated implements plugin.OnChartCreated.
func (m *MetricsExtension) OnChartCreated(_ context.Context, _ *account.Chart) error {
	m.ChartsCreated.Inc()
	return nil
}

// OnLedgerCreated implements plugin.OnLedgerCreated.
func (m *MetricsExtension) OnLedgerCreated(_ context.Context, _ *account.Ledger) error {
	m.LedgersCreated.Inc()
	return nil
}

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ *account.Account) error {
	m.AccountsCreated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Posting hooks
// ──────────────────────────────────────────────────

// OnPostingAppended implements plugin.OnPostingAppended.
func (m *MetricsExtension) OnPostingAppended(_ context.Context, p *posting.Posting) error {
	m.PostingsAppended.Inc()
	m.PostingLines.Observe(float64(len(p.Lines)))
	debit, _ := p.Totals()
	m.PostingAmount.Observe(debit.InexactFloat64())
	return nil
}

// OnPostingDiscarded implements plugin.OnPostingDiscarded.
func (m *MetricsExtension) OnPostingDiscarded(_ context.Context, _, _ *posting.Posting) error {
	m.PostingsDiscarded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Statement hooks
// ──────────────────────────────────────────────────

// OnStatementCreated implements plugin.OnStatementCreated.
func (m *MetricsExtension) OnStatementCreated(_ context.Context, _ *statement.Statement) error {
	m.StatementsCreated.Inc()
	return nil
}

// OnStatementClosed implements plugin.OnStatementClosed.
func (m *MetricsExtension) OnStatementClosed(_ context.Context, _ *statement.Statement) error {
	m.StatementsClosed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Chain hooks
// ──────────────────────────────────────────────────

// OnChainVerified implements plugin.OnChainVerified.
func (m *MetricsExtension) OnChainVerified(_ context.Context, _ id.LedgerID, checked int, elapsed time.Duration) error {
	m.ChainsVerified.Inc()
	m.PostingsChecked.Observe(float64(checked))
	m.VerifyLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnChainBroken implements plugin.OnChainBroken.
func (m *MetricsExtension) OnChainBroken(_ context.Context, _ id.LedgerID, _ id.PostingID, _ string) error {
	m.ChainsBroken.Inc()
	return nil
}
