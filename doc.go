// Package journal provides a hash-chained double-entry ledger engine for Go
// applications.
//
// Journal is designed as a library, not a service. Import it directly into
// your Go application and hand it a store. It provides:
//
//   - Balanced postings appended to a per-ledger SHA-256 hash chain
//   - Corrections by supersession: a discarded posting stays on record
//   - Chain verification that can resume from a known-good hash
//   - Statements (checkpoints) of cumulative debit and credit totals
//   - Point-in-time balances from the nearest CLOSED statement plus replay
//   - Plugins for audit trails, metrics and event publishing
//
// # Quick Start
//
// Create a journal with your preferred store:
//
//	import (
//	    "github.com/xraph/journal"
//	    "github.com/xraph/journal/store/memory"
//	)
//
//	j := journal.New(memory.New())
//	if err := j.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Stop()
//
// # Core Concepts
//
// A chart of accounts owns ledgers, and a ledger owns a tree of accounts:
//
//	chart := &account.Chart{Name: "acme"}
//	_ = j.CreateChart(ctx, chart)
//
//	ledger := &account.Ledger{Name: "acme-eur", ChartID: chart.ID}
//	_ = j.CreateLedger(ctx, ledger)
//
//	cash := &account.Account{Name: "cash", LedgerID: ledger.ID, Category: account.CategoryAsset}
//	_ = j.CreateAccount(ctx, cash)
//
// Postings move amounts between accounts and must balance:
//
//	p, err := j.Append(ctx, journal.AppendInput{
//	    LedgerID:  ledger.ID,
//	    OprID:     "invoice-1042",
//	    ValueTime: valueTime,
//	    Lines: []posting.LineInput{
//	        journal.Debit(cash.ID, journal.MustAmount("100.00")),
//	        journal.Credit(revenue.ID, journal.MustAmount("100.00")),
//	    },
//	})
//
// A wrong posting is never edited. It is discarded and replaced:
//
//	fixed, err := j.DiscardAndReplace(ctx, p.ID, journal.ReplaceInput{Lines: corrected})
//
// Balances are answered as of a value time:
//
//	b, err := j.BalanceAsOf(ctx, cash.ID, time.Now())
//
// # Integrity
//
// Every posting hashes its content together with the hash of the posting
// recorded before it. Verify recomputes the chain and reports the first
// posting that does not match:
//
//	report, err := j.Verify(ctx, ledger.ID, journal.VerifyOptions{})
//	if journal.IsFatal(err) {
//	    // stored history was altered
//	}
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	ldg_01h2xcejqtf2nbrexx3vqjhp41   // Ledger ID
//	pst_01h2xcejqtf2nbrexx3vqjhp41   // Posting ID
//	stmt_01h455vb4pex5vsknk084sn02q  // Statement ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package journal
