// Package kafkahook publishes Journal lifecycle events to Kafka.
//
// Every event is a JSON Event keyed by its ledger id, so a hash balancer
// keeps the events of one ledger on one partition and in append order.
package kafkahook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/plugin"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
)

// Event types.
const (
	EventPostingAppended  = "posting.appended"
	EventPostingDiscarded = "posting.discarded"
	EventStatementCreated = "statement.created"
	EventStatementClosed  = "statement.closed"
	EventChainVerified    = "chain.verified"
	EventChainBroken      = "chain.broken"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnInit             = (*Extension)(nil)
	_ plugin.OnShutdown         = (*Extension)(nil)
	_ plugin.OnPostingAppended  = (*Extension)(nil)
	_ plugin.OnPostingDiscarded = (*Extension)(nil)
	_ plugin.OnStatementCreated = (*Extension)(nil)
	_ plugin.OnStatementClosed  = (*Extension)(nil)
	_ plugin.OnChainVerified    = (*Extension)(nil)
	_ plugin.OnChainBroken      = (*Extension)(nil)
)

// MessageWriter is the subset of *kafka.Writer the extension uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON message value.
type Event struct {
	Type       string    `json:"type"`
	LedgerID   string    `json:"ledger_id"`
	ResourceID string    `json:"resource_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// DiscardData is the payload of a posting.discarded event.
type DiscardData struct {
	Discarded   *posting.Posting `json:"discarded"`
	Replacement *posting.Posting `json:"replacement"`
}

// VerifyData is the payload of the chain events.
type VerifyData struct {
	Checked   int    `json:"checked,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	PostingID string `json:"posting_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// accountResolver finds the ledger of an account-owned statement.
// *journal.Journal satisfies it.
type accountResolver interface {
	Account(ctx context.Context, accountID id.AccountID) (*account.Account, error)
}

// Extension publishes Journal lifecycle events to Kafka.
type Extension struct {
	writer   MessageWriter
	accounts accountResolver
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Extension that publishes through w.
func New(w MessageWriter, opts ...Option) *Extension {
	e := &Extension{
		writer: w,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewWriter returns a writer for topic that hashes message keys, so events
// of one ledger land on one partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "kafka-hook" }

// OnInit implements plugin.OnInit. It keeps the journal to resolve the
// ledger of account statements.
func (e *Extension) OnInit(_ context.Context, j any) error {
	if r, ok := j.(accountResolver); ok {
		e.accounts = r
	}
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(_ context.Context) error {
	return e.writer.Close()
}

// OnPostingAppended implements plugin.OnPostingAppended.
func (e *Extension) OnPostingAppended(ctx context.Context, p *posting.Posting) error {
	return e.publish(ctx, EventPostingAppended, p.LedgerID.String(), p.ID.String(), p)
}

// OnPostingDiscarded implements plugin.OnPostingDiscarded.
func (e *Extension) OnPostingDiscarded(ctx context.Context, old, replacement *posting.Posting) error {
	return e.publish(ctx, EventPostingDiscarded, old.LedgerID.String(), old.ID.String(),
		DiscardData{Discarded: old, Replacement: replacement})
}

// OnStatementCreated implements plugin.OnStatementCreated.
func (e *Extension) OnStatementCreated(ctx context.Context, s *statement.Statement) error {
	return e.publish(ctx, EventStatementCreated, e.statementLedger(ctx, s), s.ID.String(), s)
}

// OnStatementClosed implements plugin.OnStatementClosed.
func (e *Extension) OnStatementClosed(ctx context.Context, s *statement.Statement) error {
	return e.publish(ctx, EventStatementClosed, e.statementLedger(ctx, s), s.ID.String(), s)
}

// OnChainVerified implements plugin.OnChainVerified.
func (e *Extension) OnChainVerified(ctx context.Context, ledgerID id.LedgerID, checked int, elapsed time.Duration) error {
	return e.publish(ctx, EventChainVerified, ledgerID.String(), ledgerID.String(),
		VerifyData{Checked: checked, ElapsedMS: elapsed.Milliseconds()})
}

// OnChainBroken implements plugin.OnChainBroken.
func (e *Extension) OnChainBroken(ctx context.Context, ledgerID id.LedgerID, postingID id.PostingID, reason string) error {
	return e.publish(ctx, EventChainBroken, ledgerID.String(), ledgerID.String(),
		VerifyData{PostingID: postingID.String(), Reason: reason})
}

// statementLedger returns the ledger id a statement's events are keyed by.
// An account owner whose ledger cannot be resolved keys by the owner itself.
func (e *Extension) statementLedger(ctx context.Context, s *statement.Statement) string {
	if s.Owner.Kind == statement.OwnerLedger {
		return s.Owner.ID.String()
	}
	if e.accounts != nil {
		a, err := e.accounts.Account(ctx, s.Owner.ID)
		if err == nil {
			return a.LedgerID.String()
		}
		e.logger.Warn("kafka_hook: resolve statement ledger",
			"statement_id", s.ID,
			"error", err,
		)
	}
	return s.Owner.String()
}

func (e *Extension) publish(ctx context.Context, eventType, ledgerID, resourceID string, data any) error {
	if e.enabled != nil && !e.enabled[eventType] {
		return nil
	}

	value, err := json.Marshal(Event{
		Type:       eventType,
		LedgerID:   ledgerID,
		ResourceID: resourceID,
		OccurredAt: e.now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("kafka_hook: encode %s: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(ledgerID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka_hook: publish %s %s: %w", eventType, resourceID, err)
	}
	return nil
}
