package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
)

// ReplaceInput describes the posting that supersedes a discarded one.
// ValueTime defaults to the discarded posting's value time and OprDetails
// to its details.
type ReplaceInput struct {
	Lines      []posting.LineInput
	ValueTime  time.Time
	OprDetails string
	RecordUser string
}

// DiscardAndReplace supersedes an active posting with a corrected one. The
// replacement gets a fresh operation id, records the old operation id as
// its source, points each line at the old line of the same account and
// leaves one trace per old line. Marking the old posting and appending the
// replacement commit together or not at all.
func (j *Journal) DiscardAndReplace(ctx context.Context, oldID id.PostingID, in ReplaceInput) (*posting.Posting, error) {
	old, err := j.store.GetPosting(ctx, oldID)
	if err != nil {
		return nil, err
	}
	if !old.IsActive() {
		return nil, fmt.Errorf("%w: posting %s is already discarded", ErrPostingNotFound, oldID)
	}

	oldAccounts := make([]id.AccountID, 0, len(old.Lines))
	base := make(map[id.AccountID]id.LineID, len(old.Lines))
	for _, l := range old.Lines {
		if _, ok := base[l.AccountID]; !ok {
			base[l.AccountID] = l.ID
			oldAccounts = append(oldAccounts, l.AccountID)
		}
	}
	if err := j.checkOpenPeriod(ctx, old.LedgerID, oldAccounts, old.ValueTime); err != nil {
		return nil, err
	}

	valueTime := in.ValueTime
	if valueTime.IsZero() {
		valueTime = old.ValueTime
	}
	details := in.OprDetails
	if details == "" {
		details = old.OprDetails
	}

	p, err := j.preparePosting(ctx, AppendInput{
		LedgerID:   old.LedgerID,
		OprID:      uuid.NewString(),
		OprType:    old.OprType,
		OprSrc:     old.OprID,
		OprDetails: details,
		RecordUser: in.RecordUser,
		ValueTime:  valueTime,
		Type:       old.Type,
		Status:     old.Status,
		Lines:      in.Lines,
	}, base)
	if err != nil {
		return nil, err
	}

	traces := make([]*posting.Trace, 0, len(old.Lines))
	for _, l := range old.Lines {
		traces = append(traces, &posting.Trace{
			ID:                id.NewTraceID(),
			TargetPostingID:   p.ID,
			SourcePostingID:   old.ID,
			SourcePostingTime: old.RecordTime,
			SourceOprID:       old.OprID,
			SourcePostingHash: old.Hash,
			AccountID:         l.AccountID,
			Debit:             l.Debit,
			Credit:            l.Credit,
		})
	}

	discardedAt := p.RecordTime
	if err := j.store.DiscardAndAppend(ctx, &posting.Discard{
		PostingID:     old.ID,
		DiscardedTime: discardedAt,
		Replacement:   p,
		Traces:        traces,
	}); err != nil {
		return nil, fmt.Errorf("discard posting %s: %w", oldID, err)
	}

	old.DiscardedID = p.ID
	old.DiscardedTime = &discardedAt
	for _, l := range old.Lines {
		l.DiscardedTime = &discardedAt
	}

	j.logger.Info("posting discarded",
		"ledger_id", old.LedgerID,
		"posting_id", old.ID,
		"replacement_id", p.ID,
		"opr_id", p.OprID,
	)
	j.plugins.EmitPostingDiscarded(ctx, old, p)
	return p, nil
}

// IsActive reports whether a posting has not been discarded.
func (j *Journal) IsActive(ctx context.Context, postingID id.PostingID) (bool, error) {
	p, err := j.store.GetPosting(ctx, postingID)
	if err != nil {
		return false, err
	}
	return p.IsActive(), nil
}
