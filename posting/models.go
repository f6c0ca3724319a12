// Package posting models balanced postings, their lines and the traces that
// link a superseding posting to the one it discarded.
package posting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/journal/id"
)

// Status is the booking status of a posting.
type Status string

const (
	StatusDeferred  Status = "DEFERRED"
	StatusPosted    Status = "POSTED"
	StatusProposed  Status = "PROPOSED"
	StatusSimulated Status = "SIMULATED"
	StatusTax       Status = "TAX"
	StatusUnposted  Status = "UNPOSTED"
	StatusCancelled Status = "CANCELLED"
	StatusOther     Status = "OTHER"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDeferred, StatusPosted, StatusProposed, StatusSimulated,
		StatusTax, StatusUnposted, StatusCancelled, StatusOther:
		return true
	default:
		return false
	}
}

// Type classifies what a posting records.
type Type string

const (
	TypeBusinessTx       Type = "BUSI_TX"
	TypeAdjustmentTx     Type = "ADJ_TX"
	TypeBalanceStatement Type = "BAL_STMT"
	TypePnLStatement     Type = "PnL_STMT"
	TypeBalanceSheet     Type = "BS_STMT"
	TypeLedgerClosing    Type = "LDG_CLSNG"
)

// Valid reports whether t is one of the known posting types.
func (t Type) Valid() bool {
	switch t {
	case TypeBusinessTx, TypeAdjustmentTx, TypeBalanceStatement,
		TypePnLStatement, TypeBalanceSheet, TypeLedgerClosing:
		return true
	default:
		return false
	}
}

// IsStatement reports whether the posting type records a statement rather
// than a business movement. Statement postings may carry zero lines.
func (t Type) IsStatement() bool {
	switch t {
	case TypeBalanceStatement, TypePnLStatement, TypeBalanceSheet, TypeLedgerClosing:
		return true
	case TypeBusinessTx, TypeAdjustmentTx:
		return false
	default:
		return false
	}
}

// Posting is one balanced, hash-chained entry in a ledger. Postings are
// never deleted: a correction discards the posting by appending a
// replacement, which sets DiscardedID and DiscardedTime here.
type Posting struct {
	ID       id.PostingID `json:"id"`
	LedgerID id.LedgerID  `json:"ledger_id"`

	OprID      string    `json:"opr_id"`
	OprTime    time.Time `json:"opr_time"`
	OprType    string    `json:"opr_type,omitempty"`
	OprSrc     string    `json:"opr_src,omitempty"`
	OprDetails string    `json:"opr_details,omitempty"`

	RecordUser string    `json:"record_user,omitempty"`
	RecordTime time.Time `json:"record_time"`
	ValueTime  time.Time `json:"value_time"`

	Type   Type   `json:"type"`
	Status Status `json:"status"`

	AntecedentID   id.PostingID `json:"antecedent_id,omitzero"`
	AntecedentHash string       `json:"antecedent_hash,omitempty"`
	Hash           string       `json:"hash"`
	HashAlg        string       `json:"hash_alg"`

	DiscardedID   id.PostingID `json:"discarded_id,omitzero"`
	DiscardedTime *time.Time   `json:"discarded_time,omitempty"`

	Lines []*Line `json:"lines"`
}

// IsActive reports whether the posting has not been superseded.
func (p *Posting) IsActive() bool {
	return p.DiscardedID.IsNil() && p.DiscardedTime == nil
}

// IsGenesis reports whether the posting starts its ledger's chain.
func (p *Posting) IsGenesis() bool { return p.AntecedentID.IsNil() }

// Totals sums the posting's debit and credit columns.
func (p *Posting) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range p.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Line is one debit or credit movement against a single account.
// Position fixes the line's place inside its posting, which the hash
// depends on.
type Line struct {
	ID        id.LineID    `json:"id"`
	PostingID id.PostingID `json:"posting_id"`
	LedgerID  id.LedgerID  `json:"ledger_id"`
	AccountID id.AccountID `json:"account_id"`
	Position  int          `json:"position"`

	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`

	ValueTime  time.Time `json:"value_time"`
	RecordTime time.Time `json:"record_time"`
	OprID      string    `json:"opr_id"`
	OprSrc     string    `json:"opr_src,omitempty"`
	Type       Type      `json:"type"`
	Status     Status    `json:"status"`

	BaseLine    id.LineID    `json:"base_line,omitempty"`
	SrcAccount  id.AccountID `json:"src_account,omitempty"`
	SubOprSrcID string       `json:"sub_opr_src_id,omitempty"`
	Details     string       `json:"details,omitempty"`

	Hash          string     `json:"hash"`
	DiscardedTime *time.Time `json:"discarded_time,omitempty"`
}

// IsActive reports whether the line's posting has not been superseded.
func (l *Line) IsActive() bool { return l.DiscardedTime == nil }

// LineInput is the caller-supplied part of a line.
type LineInput struct {
	AccountID   id.AccountID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	SrcAccount  id.AccountID
	SubOprSrcID string
	Details     string
}

// Debit builds a debit line input.
func Debit(accountID id.AccountID, amount decimal.Decimal) LineInput {
	return LineInput{AccountID: accountID, Debit: amount}
}

// Credit builds a credit line input.
func Credit(accountID id.AccountID, amount decimal.Decimal) LineInput {
	return LineInput{AccountID: accountID, Credit: amount}
}

// Trace links a line of a discarded posting to the posting that replaced it.
type Trace struct {
	ID                id.TraceID      `json:"id"`
	TargetPostingID   id.PostingID    `json:"target_posting_id"`
	SourcePostingID   id.PostingID    `json:"source_posting_id"`
	SourcePostingTime time.Time       `json:"source_posting_time"`
	SourceOprID       string          `json:"source_opr_id"`
	SourcePostingHash string          `json:"source_posting_hash"`
	AccountID         id.AccountID    `json:"account_id"`
	Debit             decimal.Decimal `json:"debit"`
	Credit            decimal.Decimal `json:"credit"`
}

// Discard is the unit of work that supersedes one posting with another.
// Stores apply it atomically.
type Discard struct {
	PostingID     id.PostingID
	DiscardedTime time.Time
	Replacement   *Posting
	Traces        []*Trace
}

// ChainQuery pages through a ledger's chain in record time order.
type ChainQuery struct {
	// After excludes postings recorded at or before this time. Zero starts
	// at genesis.
	After time.Time
	Limit int
}

// LineOrder selects the order of a line listing.
type LineOrder int

const (
	// OrderRecordAsc sorts by record time, then line id, ascending.
	OrderRecordAsc LineOrder = iota
	// OrderRecordDesc sorts by record time, then line id, descending.
	OrderRecordDesc
)

// LineQuery filters posting lines. Zero-valued fields do not filter.
type LineQuery struct {
	AccountID  id.AccountID
	LedgerID   id.LedgerID
	BaseLineID id.LineID

	// ValueAfter is exclusive, ValueAtOrBefore inclusive.
	ValueAfter      time.Time
	ValueAtOrBefore time.Time

	RecordedAtOrBefore time.Time
	IncludeDiscarded   bool

	Order  LineOrder
	Limit  int
	Offset int
}
