package posting

import (
	"context"

	"github.com/xraph/journal/id"
)

// Store persists postings, their lines and traces.
//
// AppendPosting and DiscardAndAppend are compare-and-swap operations on the
// ledger's chain head: they fail with a chain conflict when the posting's
// AntecedentID is no longer the head (the nil ID meaning an empty chain),
// and with a duplicate operation when another active posting in the ledger
// already carries the OprID. Both write everything or nothing.
//
// Within the same unit of work they fail with a period closed error when
// the posting's value time is at or before the value time of a CLOSED
// statement of its ledger or of one of its line accounts. DiscardAndAppend
// applies that check to the discarded posting as well as the replacement.
//
// Reads return postings with their lines in Position order.
type Store interface {
	AppendPosting(ctx context.Context, p *Posting) error
	DiscardAndAppend(ctx context.Context, d *Discard) error

	GetPosting(ctx context.Context, postingID id.PostingID) (*Posting, error)
	GetPostingByHash(ctx context.Context, ledgerID id.LedgerID, hash string) (*Posting, error)
	GetChainHead(ctx context.Context, ledgerID id.LedgerID) (*Posting, error)
	GetActivePostingByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) (*Posting, error)
	ListPostingsByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) ([]*Posting, error)
	ListChain(ctx context.Context, ledgerID id.LedgerID, q ChainQuery) ([]*Posting, error)

	ListLines(ctx context.Context, q LineQuery) ([]*Line, error)
	GetLine(ctx context.Context, accountID id.AccountID, lineID id.LineID) (*Line, error)
	ListTraces(ctx context.Context, postingID id.PostingID) ([]*Trace, error)
}
