// Package audithook bridges Journal lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/plugin"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnChartCreated     = (*Extension)(nil)
	_ plugin.OnLedgerCreated    = (*Extension)(nil)
	_ plugin.OnAccountCreated   = (*Extension)(nil)
	_ plugin.OnPostingAppended  = (*Extension)(nil)
	_ plugin.OnPostingDiscarded = (*Extension)(nil)
	_ plugin.OnStatementCreated = (*Extension)(nil)
	_ plugin.OnStatementClosed  = (*Extension)(nil)
	_ plugin.OnChainVerified    = (*Extension)(nil)
	_ plugin.OnChainBroken      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Journal lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Hierarchy hooks
// ──────────────────────────────────────────────────

// OnChartCreated implements plugin.OnChartCreated.
func (e *Extension) OnChartCreated(ctx context.Context, c *account.Chart) error {
	return e.record(ctx, ActionChartCreated, SeverityInfo, OutcomeSuccess,
		ResourceChart, c.ID.String(), CategoryHierarchy, nil,
		"name", c.Name,
	)
}

// OnLedgerCreated implements plugin.OnLedgerCreated.
func (e *Extension) OnLedgerCreated(ctx context.Context, l *account.Ledger) error {
	return e.record(ctx, ActionLedgerCreated, SeverityInfo, OutcomeSuccess,
		ResourceLedger, l.ID.String(), CategoryHierarchy, nil,
		"name", l.Name,
		"chart_id", l.ChartID.String(),
	)
}

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, a *account.Account) error {
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryHierarchy, nil,
		"name", a.Name,
		"ledger_id", a.LedgerID.String(),
		"category", string(a.Category),
		"balance_side", string(a.BalanceSide),
	)
}

// ──────────────────────────────────────────────────
// Posting hooks
// ──────────────────────────────────────────────────

// OnPostingAppended implements plugin.OnPostingAppended.
func (e *Extension) OnPostingAppended(ctx context.Context, p *posting.Posting) error {
	debit, _ := p.Totals()
	return e.record(ctx, ActionPostingAppended, SeverityInfo, OutcomeSuccess,
		ResourcePosting, p.ID.String(), CategoryJournal, nil,
		"ledger_id", p.LedgerID.String(),
		"opr_id", p.OprID,
		"type", string(p.Type),
		"status", string(p.Status),
		"lines", len(p.Lines),
		"amount", debit.String(),
		"hash", p.Hash,
	)
}

// OnPostingDiscarded implements plugin.OnPostingDiscarded. A discard rewrites
// history, so it is recorded as a warning.
func (e *Extension) OnPostingDiscarded(ctx context.Context, old, replacement *posting.Posting) error {
	return e.record(ctx, ActionPostingDiscarded, SeverityWarning, OutcomeSuccess,
		ResourcePosting, old.ID.String(), CategoryJournal, nil,
		"ledger_id", old.LedgerID.String(),
		"opr_id", old.OprID,
		"replacement_id", replacement.ID.String(),
		"replacement_opr_id", replacement.OprID,
	)
}

// ──────────────────────────────────────────────────
// Statement hooks
// ──────────────────────────────────────────────────

// OnStatementCreated implements plugin.OnStatementCreated.
func (e *Extension) OnStatementCreated(ctx context.Context, s *statement.Statement) error {
	return e.record(ctx, ActionStatementCreated, SeverityInfo, OutcomeSuccess,
		ResourceStatement, s.ID.String(), CategoryPeriod, nil,
		"owner", s.Owner.String(),
		"seq", s.Seq,
		"value_time", s.ValueTime.Format(time.RFC3339),
		"status", string(s.Status),
	)
}

// OnStatementClosed implements plugin.OnStatementClosed.
func (e *Extension) OnStatementClosed(ctx context.Context, s *statement.Statement) error {
	return e.record(ctx, ActionStatementClosed, SeverityInfo, OutcomeSuccess,
		ResourceStatement, s.ID.String(), CategoryPeriod, nil,
		"owner", s.Owner.String(),
		"seq", s.Seq,
		"total_debit", s.TotalDebit.String(),
		"total_credit", s.TotalCredit.String(),
	)
}

// ──────────────────────────────────────────────────
// Chain hooks
// ──────────────────────────────────────────────────

// OnChainVerified implements plugin.OnChainVerified.
func (e *Extension) OnChainVerified(ctx context.Context, ledgerID id.LedgerID, checked int, elapsed time.Duration) error {
	return e.record(ctx, ActionChainVerified, SeverityInfo, OutcomeSuccess,
		ResourceLedger, ledgerID.String(), CategoryIntegrity, nil,
		"checked", checked,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnChainBroken implements plugin.OnChainBroken.
func (e *Extension) OnChainBroken(ctx context.Context, ledgerID id.LedgerID, postingID id.PostingID, reason string) error {
	return e.record(ctx, ActionChainBroken, SeverityCritical, OutcomeFailure,
		ResourceLedger, ledgerID.String(), CategoryIntegrity, fmt.Errorf("%s", reason),
		"posting_id", postingID.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
