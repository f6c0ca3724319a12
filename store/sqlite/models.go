package sqlite

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/types"
)

// ==================== Hierarchy models ====================

type chartModel struct {
	grove.BaseModel `grove:"table:journal_charts"`

	ID          string `grove:"id,pk"`
	Name        string `grove:"name"`
	CreatedAt   int64  `grove:"created_at"`
	UserDetails string `grove:"user_details"`
	ShortDesc   string `grove:"short_desc"`
	LongDesc    string `grove:"long_desc"`
}

func toChartModel(c *account.Chart) *chartModel {
	return &chartModel{
		ID:          c.ID.String(),
		Name:        c.Name,
		CreatedAt:   millis(c.CreatedAt),
		UserDetails: c.UserDetails,
		ShortDesc:   c.ShortDesc,
		LongDesc:    c.LongDesc,
	}
}

func fromChartModel(m *chartModel) (*account.Chart, error) {
	chartID, err := id.ParseChartID(m.ID)
	if err != nil {
		return nil, err
	}
	return &account.Chart{
		Entity: entity(m.CreatedAt, m.UserDetails, m.ShortDesc, m.LongDesc),
		ID:     chartID,
		Name:   m.Name,
	}, nil
}

type ledgerModel struct {
	grove.BaseModel `grove:"table:journal_ledgers"`

	ID          string `grove:"id,pk"`
	Name        string `grove:"name"`
	ChartID     string `grove:"chart_id"`
	CreatedAt   int64  `grove:"created_at"`
	UserDetails string `grove:"user_details"`
	ShortDesc   string `grove:"short_desc"`
	LongDesc    string `grove:"long_desc"`
}

func toLedgerModel(l *account.Ledger) *ledgerModel {
	return &ledgerModel{
		ID:          l.ID.String(),
		Name:        l.Name,
		ChartID:     l.ChartID.String(),
		CreatedAt:   millis(l.CreatedAt),
		UserDetails: l.UserDetails,
		ShortDesc:   l.ShortDesc,
		LongDesc:    l.LongDesc,
	}
}

func fromLedgerModel(m *ledgerModel) (*account.Ledger, error) {
	ledgerID, err := id.ParseLedgerID(m.ID)
	if err != nil {
		return nil, err
	}
	chartID, err := id.ParseChartID(m.ChartID)
	if err != nil {
		return nil, err
	}
	return &account.Ledger{
		Entity:  entity(m.CreatedAt, m.UserDetails, m.ShortDesc, m.LongDesc),
		ID:      ledgerID,
		Name:    m.Name,
		ChartID: chartID,
	}, nil
}

type accountModel struct {
	grove.BaseModel `grove:"table:journal_accounts"`

	ID          string `grove:"id,pk"`
	Name        string `grove:"name"`
	LedgerID    string `grove:"ledger_id"`
	ChartID     string `grove:"chart_id"`
	ParentID    string `grove:"parent_id"`
	Category    string `grove:"category"`
	BalanceSide string `grove:"balance_side"`
	CreatedAt   int64  `grove:"created_at"`
	UserDetails string `grove:"user_details"`
	ShortDesc   string `grove:"short_desc"`
	LongDesc    string `grove:"long_desc"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:          a.ID.String(),
		Name:        a.Name,
		LedgerID:    a.LedgerID.String(),
		ChartID:     a.ChartID.String(),
		ParentID:    a.ParentID.String(),
		Category:    string(a.Category),
		BalanceSide: string(a.BalanceSide),
		CreatedAt:   millis(a.CreatedAt),
		UserDetails: a.UserDetails,
		ShortDesc:   a.ShortDesc,
		LongDesc:    a.LongDesc,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	chartID, err := id.ParseChartID(m.ChartID)
	if err != nil {
		return nil, err
	}
	parentID, err := id.FromString(m.ParentID)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		Entity:      entity(m.CreatedAt, m.UserDetails, m.ShortDesc, m.LongDesc),
		ID:          accountID,
		Name:        m.Name,
		LedgerID:    ledgerID,
		ChartID:     chartID,
		ParentID:    parentID,
		Category:    account.Category(m.Category),
		BalanceSide: account.BalanceSide(m.BalanceSide),
	}, nil
}

// ==================== Posting models ====================

// postingModel stores the nil antecedent and discarded ids as the empty
// string so the chain and active-operation unique indexes can see them.
type postingModel struct {
	grove.BaseModel `grove:"table:journal_postings"`

	ID             string `grove:"id,pk"`
	LedgerID       string `grove:"ledger_id"`
	AntecedentID   string `grove:"antecedent_id"`
	AntecedentHash string `grove:"antecedent_hash"`
	Hash           string `grove:"hash"`
	HashAlg        string `grove:"hash_alg"`
	OprID          string `grove:"opr_id"`
	OprTime        int64  `grove:"opr_time"`
	OprType        string `grove:"opr_type"`
	OprSrc         string `grove:"opr_src"`
	OprDetails     string `grove:"opr_details"`
	RecordUser     string `grove:"record_user"`
	RecordTime     int64  `grove:"record_time"`
	ValueTime      int64  `grove:"value_time"`
	Type           string `grove:"type"`
	Status         string `grove:"status"`
	DiscardedID    string `grove:"discarded_id"`
	DiscardedTime  *int64 `grove:"discarded_time"`
}

func toPostingModel(p *posting.Posting) *postingModel {
	return &postingModel{
		ID:             p.ID.String(),
		LedgerID:       p.LedgerID.String(),
		AntecedentID:   p.AntecedentID.String(),
		AntecedentHash: p.AntecedentHash,
		Hash:           p.Hash,
		HashAlg:        p.HashAlg,
		OprID:          p.OprID,
		OprTime:        millis(p.OprTime),
		OprType:        p.OprType,
		OprSrc:         p.OprSrc,
		OprDetails:     p.OprDetails,
		RecordUser:     p.RecordUser,
		RecordTime:     millis(p.RecordTime),
		ValueTime:      millis(p.ValueTime),
		Type:           string(p.Type),
		Status:         string(p.Status),
		DiscardedID:    p.DiscardedID.String(),
		DiscardedTime:  millisPtr(p.DiscardedTime),
	}
}

func fromPostingModel(m *postingModel) (*posting.Posting, error) {
	postingID, err := id.ParsePostingID(m.ID)
	if err != nil {
		return nil, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	antecedentID, err := id.FromString(m.AntecedentID)
	if err != nil {
		return nil, err
	}
	discardedID, err := id.FromString(m.DiscardedID)
	if err != nil {
		return nil, err
	}
	return &posting.Posting{
		ID:             postingID,
		LedgerID:       ledgerID,
		OprID:          m.OprID,
		OprTime:        fromMillis(m.OprTime),
		OprType:        m.OprType,
		OprSrc:         m.OprSrc,
		OprDetails:     m.OprDetails,
		RecordUser:     m.RecordUser,
		RecordTime:     fromMillis(m.RecordTime),
		ValueTime:      fromMillis(m.ValueTime),
		Type:           posting.Type(m.Type),
		Status:         posting.Status(m.Status),
		AntecedentID:   antecedentID,
		AntecedentHash: m.AntecedentHash,
		Hash:           m.Hash,
		HashAlg:        m.HashAlg,
		DiscardedID:    discardedID,
		DiscardedTime:  fromMillisPtr(m.DiscardedTime),
	}, nil
}

type lineModel struct {
	grove.BaseModel `grove:"table:journal_lines"`

	ID            string `grove:"id,pk"`
	PostingID     string `grove:"posting_id"`
	LedgerID      string `grove:"ledger_id"`
	AccountID     string `grove:"account_id"`
	Position      int    `grove:"position"`
	Debit         string `grove:"debit"`
	Credit        string `grove:"credit"`
	ValueTime     int64  `grove:"value_time"`
	RecordTime    int64  `grove:"record_time"`
	OprID         string `grove:"opr_id"`
	OprSrc        string `grove:"opr_src"`
	Type          string `grove:"type"`
	Status        string `grove:"status"`
	BaseLine      string `grove:"base_line"`
	SrcAccount    string `grove:"src_account"`
	SubOprSrcID   string `grove:"sub_opr_src_id"`
	Details       string `grove:"details"`
	Hash          string `grove:"hash"`
	DiscardedTime *int64 `grove:"discarded_time"`
}

func toLineModels(lines []*posting.Line) []lineModel {
	models := make([]lineModel, len(lines))
	for i, l := range lines {
		models[i] = lineModel{
			ID:            l.ID.String(),
			PostingID:     l.PostingID.String(),
			LedgerID:      l.LedgerID.String(),
			AccountID:     l.AccountID.String(),
			Position:      l.Position,
			Debit:         l.Debit.String(),
			Credit:        l.Credit.String(),
			ValueTime:     millis(l.ValueTime),
			RecordTime:    millis(l.RecordTime),
			OprID:         l.OprID,
			OprSrc:        l.OprSrc,
			Type:          string(l.Type),
			Status:        string(l.Status),
			BaseLine:      l.BaseLine.String(),
			SrcAccount:    l.SrcAccount.String(),
			SubOprSrcID:   l.SubOprSrcID,
			Details:       l.Details,
			Hash:          l.Hash,
			DiscardedTime: millisPtr(l.DiscardedTime),
		}
	}
	return models
}

func fromLineModel(m *lineModel) (*posting.Line, error) {
	lineID, err := id.ParseLineID(m.ID)
	if err != nil {
		return nil, err
	}
	postingID, err := id.ParsePostingID(m.PostingID)
	if err != nil {
		return nil, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	baseLine, err := id.FromString(m.BaseLine)
	if err != nil {
		return nil, err
	}
	srcAccount, err := id.FromString(m.SrcAccount)
	if err != nil {
		return nil, err
	}
	debit, err := decimal.NewFromString(m.Debit)
	if err != nil {
		return nil, err
	}
	credit, err := decimal.NewFromString(m.Credit)
	if err != nil {
		return nil, err
	}
	return &posting.Line{
		ID:            lineID,
		PostingID:     postingID,
		LedgerID:      ledgerID,
		AccountID:     accountID,
		Position:      m.Position,
		Debit:         debit,
		Credit:        credit,
		ValueTime:     fromMillis(m.ValueTime),
		RecordTime:    fromMillis(m.RecordTime),
		OprID:         m.OprID,
		OprSrc:        m.OprSrc,
		Type:          posting.Type(m.Type),
		Status:        posting.Status(m.Status),
		BaseLine:      baseLine,
		SrcAccount:    srcAccount,
		SubOprSrcID:   m.SubOprSrcID,
		Details:       m.Details,
		Hash:          m.Hash,
		DiscardedTime: fromMillisPtr(m.DiscardedTime),
	}, nil
}

type traceModel struct {
	grove.BaseModel `grove:"table:journal_traces"`

	ID                string `grove:"id,pk"`
	TargetPostingID   string `grove:"target_posting_id"`
	SourcePostingID   string `grove:"source_posting_id"`
	SourcePostingTime int64  `grove:"source_posting_time"`
	SourceOprID       string `grove:"source_opr_id"`
	SourcePostingHash string `grove:"source_posting_hash"`
	AccountID         string `grove:"account_id"`
	Debit             string `grove:"debit"`
	Credit            string `grove:"credit"`
}

func toTraceModels(traces []*posting.Trace) []traceModel {
	models := make([]traceModel, len(traces))
	for i, t := range traces {
		models[i] = traceModel{
			ID:                t.ID.String(),
			TargetPostingID:   t.TargetPostingID.String(),
			SourcePostingID:   t.SourcePostingID.String(),
			SourcePostingTime: millis(t.SourcePostingTime),
			SourceOprID:       t.SourceOprID,
			SourcePostingHash: t.SourcePostingHash,
			AccountID:         t.AccountID.String(),
			Debit:             t.Debit.String(),
			Credit:            t.Credit.String(),
		}
	}
	return models
}

func fromTraceModel(m *traceModel) (*posting.Trace, error) {
	traceID, err := id.ParseTraceID(m.ID)
	if err != nil {
		return nil, err
	}
	targetID, err := id.ParsePostingID(m.TargetPostingID)
	if err != nil {
		return nil, err
	}
	sourceID, err := id.ParsePostingID(m.SourcePostingID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	debit, err := decimal.NewFromString(m.Debit)
	if err != nil {
		return nil, err
	}
	credit, err := decimal.NewFromString(m.Credit)
	if err != nil {
		return nil, err
	}
	return &posting.Trace{
		ID:                traceID,
		TargetPostingID:   targetID,
		SourcePostingID:   sourceID,
		SourcePostingTime: fromMillis(m.SourcePostingTime),
		SourceOprID:       m.SourceOprID,
		SourcePostingHash: m.SourcePostingHash,
		AccountID:         accountID,
		Debit:             debit,
		Credit:            credit,
	}, nil
}

// ==================== Statement models ====================

type statementModel struct {
	grove.BaseModel `grove:"table:journal_statements"`

	ID                string `grove:"id,pk"`
	OwnerKind         string `grove:"owner_kind"`
	OwnerID           string `grove:"owner_id"`
	Status            string `grove:"status"`
	ValueTime         int64  `grove:"value_time"`
	Seq               int64  `grove:"seq"`
	TotalDebit        string `grove:"total_debit"`
	TotalCredit       string `grove:"total_credit"`
	LatestPostingID   string `grove:"latest_posting_id"`
	YoungestPostingID string `grove:"youngest_posting_id"`
	Lines             int64  `grove:"lines"`
	ClosedAt          *int64 `grove:"closed_at"`
	CreatedAt         int64  `grove:"created_at"`
	UserDetails       string `grove:"user_details"`
	ShortDesc         string `grove:"short_desc"`
	LongDesc          string `grove:"long_desc"`
}

func toStatementModel(s *statement.Statement) *statementModel {
	return &statementModel{
		ID:                s.ID.String(),
		OwnerKind:         string(s.Owner.Kind),
		OwnerID:           s.Owner.ID.String(),
		Status:            string(s.Status),
		ValueTime:         millis(s.ValueTime),
		Seq:               s.Seq,
		TotalDebit:        s.TotalDebit.String(),
		TotalCredit:       s.TotalCredit.String(),
		LatestPostingID:   s.LatestPostingID.String(),
		YoungestPostingID: s.YoungestPostingID.String(),
		Lines:             s.Lines,
		ClosedAt:          millisPtr(s.ClosedAt),
		CreatedAt:         millis(s.CreatedAt),
		UserDetails:       s.UserDetails,
		ShortDesc:         s.ShortDesc,
		LongDesc:          s.LongDesc,
	}
}

func fromStatementModel(m *statementModel) (*statement.Statement, error) {
	statementID, err := id.ParseStatementID(m.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := id.Parse(m.OwnerID)
	if err != nil {
		return nil, err
	}
	latest, err := id.FromString(m.LatestPostingID)
	if err != nil {
		return nil, err
	}
	youngest, err := id.FromString(m.YoungestPostingID)
	if err != nil {
		return nil, err
	}
	debit, err := decimal.NewFromString(m.TotalDebit)
	if err != nil {
		return nil, err
	}
	credit, err := decimal.NewFromString(m.TotalCredit)
	if err != nil {
		return nil, err
	}
	return &statement.Statement{
		Entity:            entity(m.CreatedAt, m.UserDetails, m.ShortDesc, m.LongDesc),
		ID:                statementID,
		Owner:             statement.Owner{Kind: statement.OwnerKind(m.OwnerKind), ID: ownerID},
		Status:            statement.Status(m.Status),
		ValueTime:         fromMillis(m.ValueTime),
		Seq:               m.Seq,
		TotalDebit:        debit,
		TotalCredit:       credit,
		LatestPostingID:   latest,
		YoungestPostingID: youngest,
		Lines:             m.Lines,
		ClosedAt:          fromMillisPtr(m.ClosedAt),
	}, nil
}

// ==================== Helpers ====================

func entity(createdAt int64, userDetails, shortDesc, longDesc string) types.Entity {
	return types.Entity{
		CreatedAt:   fromMillis(createdAt),
		UserDetails: userDetails,
		ShortDesc:   shortDesc,
		LongDesc:    longDesc,
	}
}

// millis stores t as unix milliseconds, the precision every stored time
// is canonicalized to.
func millis(t time.Time) int64 { return t.UnixMilli() }

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}
