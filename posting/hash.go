package posting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/journal/types"
)

// HashAlgSHA256 is the only hash algorithm postings are sealed with.
const HashAlgSHA256 = "SHA-256"

const canonicalTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// lineContent is the hashed projection of a line. Field order is fixed by
// the struct, amounts are normalized decimal strings and times are UTC with
// millisecond precision, so a line read back from any store re-hashes to
// the same value.
type lineContent struct {
	ID          string `json:"id"`
	PostingID   string `json:"posting_id"`
	LedgerID    string `json:"ledger_id"`
	AccountID   string `json:"account_id"`
	Position    int    `json:"position"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	ValueTime   string `json:"value_time"`
	RecordTime  string `json:"record_time"`
	OprID       string `json:"opr_id"`
	OprSrc      string `json:"opr_src"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	BaseLine    string `json:"base_line"`
	SrcAccount  string `json:"src_account"`
	SubOprSrcID string `json:"sub_opr_src_id"`
	Details     string `json:"details"`
}

// postingContent is the hashed projection of a posting. Discard markers are
// left out: they are written after the fact by the superseding posting.
type postingContent struct {
	ID           string   `json:"id"`
	LedgerID     string   `json:"ledger_id"`
	OprID        string   `json:"opr_id"`
	OprTime      string   `json:"opr_time"`
	OprType      string   `json:"opr_type"`
	OprSrc       string   `json:"opr_src"`
	OprDetails   string   `json:"opr_details"`
	RecordUser   string   `json:"record_user"`
	RecordTime   string   `json:"record_time"`
	ValueTime    string   `json:"value_time"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	AntecedentID string   `json:"antecedent_id"`
	LineHashes   []string `json:"lines"`
}

func canonicalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return types.CanonicalTime(t).Format(canonicalTimeLayout)
}

func digest(prefix string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prefix))
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LineHash computes the content hash of a single line.
func LineHash(l *Line) (string, error) {
	c := lineContent{
		ID:          l.ID.String(),
		PostingID:   l.PostingID.String(),
		LedgerID:    l.LedgerID.String(),
		AccountID:   l.AccountID.String(),
		Position:    l.Position,
		Debit:       l.Debit.String(),
		Credit:      l.Credit.String(),
		ValueTime:   canonicalTime(l.ValueTime),
		RecordTime:  canonicalTime(l.RecordTime),
		OprID:       l.OprID,
		OprSrc:      l.OprSrc,
		Type:        string(l.Type),
		Status:      string(l.Status),
		BaseLine:    l.BaseLine.String(),
		SrcAccount:  l.SrcAccount.String(),
		SubOprSrcID: l.SubOprSrcID,
		Details:     l.Details,
	}
	h, err := digest("", c)
	if err != nil {
		return "", fmt.Errorf("posting: hash line %s: %w", l.ID, err)
	}
	return h, nil
}

// ComputeHash returns hex(SHA-256(antecedent hash ‖ canonical content)).
// The content covers the hashes already stored on the posting's lines.
func ComputeHash(p *Posting) (string, error) {
	c := postingContent{
		ID:           p.ID.String(),
		LedgerID:     p.LedgerID.String(),
		OprID:        p.OprID,
		OprTime:      canonicalTime(p.OprTime),
		OprType:      p.OprType,
		OprSrc:       p.OprSrc,
		OprDetails:   p.OprDetails,
		RecordUser:   p.RecordUser,
		RecordTime:   canonicalTime(p.RecordTime),
		ValueTime:    canonicalTime(p.ValueTime),
		Type:         string(p.Type),
		Status:       string(p.Status),
		AntecedentID: p.AntecedentID.String(),
		LineHashes:   make([]string, len(p.Lines)),
	}
	for i, l := range p.Lines {
		c.LineHashes[i] = l.Hash
	}
	h, err := digest(p.AntecedentHash, c)
	if err != nil {
		return "", fmt.Errorf("posting: hash posting %s: %w", p.ID, err)
	}
	return h, nil
}

// Seal hashes every line and then the posting itself.
func Seal(p *Posting) error {
	for _, l := range p.Lines {
		h, err := LineHash(l)
		if err != nil {
			return err
		}
		l.Hash = h
	}
	h, err := ComputeHash(p)
	if err != nil {
		return err
	}
	p.HashAlg = HashAlgSHA256
	p.Hash = h
	return nil
}

// Check recomputes every line hash and the posting hash and reports the
// first mismatch.
func Check(p *Posting) error {
	if p.HashAlg != HashAlgSHA256 {
		return fmt.Errorf("unsupported hash algorithm %q", p.HashAlg)
	}
	for _, l := range p.Lines {
		h, err := LineHash(l)
		if err != nil {
			return err
		}
		if h != l.Hash {
			return fmt.Errorf("line %s hash mismatch: stored %s, computed %s", l.ID, l.Hash, h)
		}
	}
	h, err := ComputeHash(p)
	if err != nil {
		return err
	}
	if h != p.Hash {
		return fmt.Errorf("posting hash mismatch: stored %s, computed %s", p.Hash, h)
	}
	return nil
}
