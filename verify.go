package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
)

// VerifyOptions controls a chain verification.
type VerifyOptions struct {
	// FromHash resumes verification after the posting with this hash, a
	// point verified earlier. Empty verifies from genesis.
	FromHash string
}

// VerifyReport summarizes a verification run.
type VerifyReport struct {
	LedgerID id.LedgerID   `json:"ledger_id"`
	Checked  int           `json:"checked"`
	HeadID   id.PostingID  `json:"head_id,omitzero"`
	HeadHash string        `json:"head_hash,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Verify walks a ledger's postings in record order, recomputing every line
// hash and posting hash and checking each antecedent link. It stops at the
// first broken link with a *ChainIntegrityError and persists nothing.
func (j *Journal) Verify(ctx context.Context, ledgerID id.LedgerID, opts VerifyOptions) (*VerifyReport, error) {
	start := time.Now()
	report := &VerifyReport{LedgerID: ledgerID}

	if _, err := j.Ledger(ctx, ledgerID); err != nil {
		return nil, err
	}

	var (
		prevID     id.PostingID
		prevHash   string
		prevRecord time.Time
	)
	if opts.FromHash != "" {
		anchor, err := j.store.GetPostingByHash(ctx, ledgerID, opts.FromHash)
		if err != nil {
			return nil, fmt.Errorf("verify ledger %s from %s: %w", ledgerID, opts.FromHash, err)
		}
		prevID, prevHash, prevRecord = anchor.ID, anchor.Hash, anchor.RecordTime
		report.HeadID, report.HeadHash = anchor.ID, anchor.Hash
	}

	q := posting.ChainQuery{After: prevRecord, Limit: j.verifyPageSize}
	for {
		page, err := j.store.ListChain(ctx, ledgerID, q)
		if err != nil {
			return nil, err
		}

		for _, p := range page {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if reason := checkLink(p, prevID, prevHash, prevRecord); reason != "" {
				report.Elapsed = time.Since(start)
				return report, j.chainBroken(ctx, ledgerID, p.ID, reason)
			}

			prevID, prevHash, prevRecord = p.ID, p.Hash, p.RecordTime
			report.Checked++
			report.HeadID, report.HeadHash = p.ID, p.Hash
		}

		if len(page) < q.Limit {
			break
		}
		q.After = prevRecord
	}

	report.Elapsed = time.Since(start)
	j.logger.Info("chain verified",
		"ledger_id", ledgerID,
		"checked", report.Checked,
		"head_id", report.HeadID,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	j.plugins.EmitChainVerified(ctx, ledgerID, report.Checked, report.Elapsed)
	return report, nil
}

// checkLink returns why p does not follow the previous posting, or "".
func checkLink(p *posting.Posting, prevID id.PostingID, prevHash string, prevRecord time.Time) string {
	switch {
	case p.AntecedentID != prevID:
		return fmt.Sprintf("antecedent id %q, expected %q", p.AntecedentID, prevID)
	case p.AntecedentHash != prevHash:
		return fmt.Sprintf("antecedent hash %q, expected %q", p.AntecedentHash, prevHash)
	case !prevRecord.IsZero() && !p.RecordTime.After(prevRecord):
		return "record time does not increase"
	}
	if err := posting.Check(p); err != nil {
		return err.Error()
	}
	return ""
}

func (j *Journal) chainBroken(ctx context.Context, ledgerID id.LedgerID, postingID id.PostingID, reason string) error {
	j.logger.Error("chain integrity violated",
		"ledger_id", ledgerID,
		"posting_id", postingID,
		"reason", reason,
	)
	j.plugins.EmitChainBroken(ctx, ledgerID, postingID, reason)
	return &ChainIntegrityError{LedgerID: ledgerID, PostingID: postingID, Reason: reason}
}

// VerifyAll verifies several ledgers concurrently, every ledger when
// ledgerIDs is empty. Reports come back in input order. Broken chains do
// not stop the other ledgers: they are collected into a MultiError. Any
// other failure cancels the run.
func (j *Journal) VerifyAll(ctx context.Context, ledgerIDs []id.LedgerID, opts VerifyOptions) ([]*VerifyReport, error) {
	if len(ledgerIDs) == 0 {
		ledgers, err := j.store.ListLedgers(ctx, id.Nil)
		if err != nil {
			return nil, err
		}
		for _, l := range ledgers {
			ledgerIDs = append(ledgerIDs, l.ID)
		}
	}

	reports := make([]*VerifyReport, len(ledgerIDs))
	var (
		mu     sync.Mutex
		broken MultiError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.verifyConcurrency)
	for i, ledgerID := range ledgerIDs {
		g.Go(func() error {
			report, err := j.Verify(gctx, ledgerID, opts)
			reports[i] = report
			if errors.Is(err, ErrChainIntegrity) {
				mu.Lock()
				broken.Add(err)
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	if broken.HasErrors() {
		return reports, broken
	}
	return reports, nil
}
