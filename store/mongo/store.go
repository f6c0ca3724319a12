package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	journalstore "github.com/xraph/journal/store"
)

// Collection name constants.
const (
	colCharts     = "journal_charts"
	colLedgers    = "journal_ledgers"
	colAccounts   = "journal_accounts"
	colPostings   = "journal_postings"
	colLines      = "journal_lines"
	colTraces     = "journal_traces"
	colStatements = "journal_statements"
)

// Index names the error mapping keys on.
const (
	idxChartName    = "idx_journal_charts_name"
	idxLedgerName   = "idx_journal_ledgers_name"
	idxAccountName  = "idx_journal_accounts_ledger_name"
	idxPostingChain = "idx_journal_postings_chain"
	idxPostingOpr   = "idx_journal_postings_active_opr"
	idxStatementSeq = "idx_journal_statements_seq"
)

// compile-time interface check
var _ journalstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Posting writes run in a multi-document transaction, so the server must be a
// replica set or a sharded cluster. The unique index on
// (ledger_id, antecedent_id) rejects a second successor of the same head.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Open connects to uri and returns a store over the new client.
func Open(ctx context.Context, uri string, opts ...mongodriver.MongoOption) (*Store, error) {
	drv := mongodriver.New()
	if err := drv.Open(ctx, uri, opts...); err != nil {
		return nil, fmt.Errorf("journal/mongo: open: %w", unavailable(err))
	}
	db, err := grove.Open(drv)
	if err != nil {
		return nil, fmt.Errorf("journal/mongo: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all journal collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("journal/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// finder is satisfied by both the client and a transaction.
type finder interface {
	NewFind(model ...any) *mongodriver.FindQuery
	NewInsert(model any) *mongodriver.InsertQuery
}

var (
	_ finder = (*mongodriver.MongoDB)(nil)
	_ finder = (*mongodriver.MongoTx)(nil)
)

// ==================== Hierarchy ====================

func (s *Store) CreateChart(ctx context.Context, c *account.Chart) error {
	_, err := s.mdb.NewInsert(toChartModel(c)).Exec(ctx)
	return hierarchyError(err, "chart", c.Name, "")
}

func (s *Store) GetChart(ctx context.Context, chartID id.ChartID) (*account.Chart, error) {
	var m chartModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": chartID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrChartNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get chart: %w", unavailable(err))
	}
	return fromChartModel(&m)
}

func (s *Store) GetChartByName(ctx context.Context, name string) (*account.Chart, error) {
	var m chartModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"name": name}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrChartNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get chart by name: %w", unavailable(err))
	}
	return fromChartModel(&m)
}

func (s *Store) CreateLedger(ctx context.Context, l *account.Ledger) error {
	_, err := s.mdb.NewInsert(toLedgerModel(l)).Exec(ctx)
	return hierarchyError(err, "ledger", l.Name, "")
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*account.Ledger, error) {
	var m ledgerModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": ledgerID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get ledger: %w", unavailable(err))
	}
	return fromLedgerModel(&m)
}

func (s *Store) GetLedgerByName(ctx context.Context, name string) (*account.Ledger, error) {
	var m ledgerModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"name": name}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get ledger by name: %w", unavailable(err))
	}
	return fromLedgerModel(&m)
}

func (s *Store) ListLedgers(ctx context.Context, chartID id.ChartID) ([]*account.Ledger, error) {
	var models []ledgerModel

	filter := bson.M{}
	if !chartID.IsNil() {
		filter["chart_id"] = chartID.String()
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "name", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal/mongo: list ledgers: %w", unavailable(err))
	}

	result := make([]*account.Ledger, len(models))
	for i := range models {
		l, err := fromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	_, err := s.mdb.NewInsert(toAccountModel(a)).Exec(ctx)
	return hierarchyError(err, "account", a.Name, a.LedgerID.String())
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": accountID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrAccountNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get account: %w", unavailable(err))
	}
	return fromAccountModel(&m)
}

func (s *Store) GetAccountByName(ctx context.Context, ledgerID id.LedgerID, name string) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"ledger_id": ledgerID.String(), "name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrAccountNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get account by name: %w", unavailable(err))
	}
	return fromAccountModel(&m)
}

func (s *Store) ListChildAccounts(ctx context.Context, parentID id.AccountID) ([]*account.Account, error) {
	return s.listAccounts(ctx, bson.M{"parent_id": parentID.String()})
}

func (s *Store) ListAccounts(ctx context.Context, ledgerID id.LedgerID) ([]*account.Account, error) {
	return s.listAccounts(ctx, bson.M{"ledger_id": ledgerID.String()})
}

func (s *Store) listAccounts(ctx context.Context, filter bson.M) ([]*account.Account, error) {
	var models []accountModel
	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "name", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal/mongo: list accounts: %w", unavailable(err))
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Postings ====================

func (s *Store) AppendPosting(ctx context.Context, p *posting.Posting) error {
	return s.inTx(ctx, func(tx *mongodriver.MongoTx) error {
		if err := bumpChainVersion(ctx, tx, p.LedgerID); err != nil {
			return err
		}
		if err := checkOpen(ctx, tx, p.LedgerID.String(), lineOwners(p.Lines), p.ValueTime); err != nil {
			return err
		}
		return insertPosting(ctx, tx, p)
	})
}

func (s *Store) DiscardAndAppend(ctx context.Context, d *posting.Discard) error {
	return s.inTx(ctx, func(tx *mongodriver.MongoTx) error {
		r := d.Replacement
		if err := bumpChainVersion(ctx, tx, r.LedgerID); err != nil {
			return err
		}
		if err := checkOpenDiscarded(ctx, tx, d.PostingID); err != nil {
			return err
		}
		if err := checkOpen(ctx, tx, r.LedgerID.String(), lineOwners(r.Lines), r.ValueTime); err != nil {
			return err
		}

		res, err := tx.NewUpdate((*postingModel)(nil)).
			Filter(bson.M{"_id": d.PostingID.String(), "discarded_id": ""}).
			SetUpdate(bson.M{"$set": bson.M{
				"discarded_id":   d.Replacement.ID.String(),
				"discarded_time": d.DiscardedTime,
			}}).
			Exec(ctx)
		if err != nil {
			return err
		}
		if res.MatchedCount() == 0 {
			return journal.ErrPostingNotFound
		}

		_, err = tx.NewUpdate((*lineModel)(nil)).
			Filter(bson.M{"posting_id": d.PostingID.String()}).
			Set("discarded_time", d.DiscardedTime).
			Many().
			Exec(ctx)
		if err != nil {
			return err
		}

		if err := insertPosting(ctx, tx, d.Replacement); err != nil {
			return err
		}
		if len(d.Traces) > 0 {
			traces := toTraceModels(d.Traces)
			if _, err := tx.NewInsert(&traces).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// bumpChainVersion increments the ledger's chain_version inside the
// transaction. Posting writes and statement closes on one ledger all write
// that document, so two of them running concurrently end in a write
// conflict instead of one missing the other.
func bumpChainVersion(ctx context.Context, tx *mongodriver.MongoTx, ledgerID id.LedgerID) error {
	res, err := tx.NewUpdate((*ledgerModel)(nil)).
		Filter(bson.M{"_id": ledgerID.String()}).
		SetUpdate(bson.M{"$inc": bson.M{"chain_version": 1}}).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		return journal.ErrLedgerNotFound
	}
	return nil
}

// checkOpen fails with a period closed error when a CLOSED statement of the
// ledger or of one of the accounts reaches valueTime.
func checkOpen(ctx context.Context, q finder, ledgerID string, accounts []string, valueTime time.Time) error {
	var m statementModel
	err := q.NewFind(&m).
		Filter(bson.M{
			"status":     string(statement.StatusClosed),
			"owner_id":   bson.M{"$in": append([]string{ledgerID}, accounts...)},
			"value_time": bson.M{"$gte": valueTime},
		}).
		Sort(bson.D{{Key: "value_time", Value: -1}}).
		Scan(ctx)
	switch {
	case isNoDocuments(err):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: %s:%s closed through %s by statement %s",
		journal.ErrPeriodClosed, m.OwnerKind, m.OwnerID, m.ValueTime.Format(time.RFC3339), m.ID)
}

// checkOpenDiscarded applies checkOpen to a stored posting about to be
// discarded.
func checkOpenDiscarded(ctx context.Context, q finder, postingID id.PostingID) error {
	var old postingModel
	err := q.NewFind(&old).Filter(bson.M{"_id": postingID.String()}).Scan(ctx)
	switch {
	case isNoDocuments(err):
		return journal.ErrPostingNotFound
	case err != nil:
		return err
	}
	var lines []lineModel
	if err := q.NewFind(&lines).Filter(bson.M{"posting_id": old.ID}).Scan(ctx); err != nil {
		return err
	}
	accounts := make([]string, len(lines))
	for i := range lines {
		accounts[i] = lines[i].AccountID
	}
	return checkOpen(ctx, q, old.LedgerID, accounts, old.ValueTime)
}

func lineOwners(lines []*posting.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.AccountID.String()
	}
	return out
}

// headSort orders a ledger's postings newest first.
var headSort = bson.D{{Key: "record_time", Value: -1}, {Key: "_id", Value: -1}}

// insertPosting checks the chain head and the operation id, then writes the
// posting and its lines.
func insertPosting(ctx context.Context, q finder, p *posting.Posting) error {
	var head postingModel
	err := q.NewFind(&head).
		Filter(bson.M{"ledger_id": p.LedgerID.String()}).
		Sort(headSort).
		Scan(ctx)
	switch {
	case isNoDocuments(err):
		head.ID = ""
	case err != nil:
		return err
	}
	if head.ID != p.AntecedentID.String() {
		return journal.ErrChainConflict
	}

	var active postingModel
	err = q.NewFind(&active).
		Filter(bson.M{"ledger_id": p.LedgerID.String(), "opr_id": p.OprID, "discarded_id": ""}).
		Scan(ctx)
	if err == nil {
		existing, _ := id.FromString(active.ID) //nolint:errcheck // informational
		return &journal.DuplicateOperationError{LedgerID: p.LedgerID, OprID: p.OprID, PostingID: existing}
	}
	if !isNoDocuments(err) {
		return err
	}

	if _, err := q.NewInsert(toPostingModel(p)).Exec(ctx); err != nil {
		return postingError(err, p)
	}
	if len(p.Lines) > 0 {
		lines := toLineModels(p.Lines)
		if _, err := q.NewInsert(&lines).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetPosting(ctx context.Context, postingID id.PostingID) (*posting.Posting, error) {
	return s.getPosting(ctx, bson.M{"_id": postingID.String()})
}

func (s *Store) GetPostingByHash(ctx context.Context, ledgerID id.LedgerID, hash string) (*posting.Posting, error) {
	return s.getPosting(ctx, bson.M{"ledger_id": ledgerID.String(), "hash": hash})
}

func (s *Store) GetChainHead(ctx context.Context, ledgerID id.LedgerID) (*posting.Posting, error) {
	var m postingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"ledger_id": ledgerID.String()}).
		Sort(headSort).
		Scan(ctx)
	return s.withLines(ctx, &m, err)
}

func (s *Store) GetActivePostingByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) (*posting.Posting, error) {
	return s.getPosting(ctx, bson.M{"ledger_id": ledgerID.String(), "opr_id": oprID, "discarded_id": ""})
}

func (s *Store) getPosting(ctx context.Context, filter bson.M) (*posting.Posting, error) {
	var m postingModel
	err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx)
	return s.withLines(ctx, &m, err)
}

func (s *Store) withLines(ctx context.Context, m *postingModel, err error) (*posting.Posting, error) {
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrPostingNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get posting: %w", unavailable(err))
	}
	p, err := fromPostingModel(m)
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, []*posting.Posting{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPostingsByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) ([]*posting.Posting, error) {
	var models []postingModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String(), "opr_id": oprID}).
		Sort(bson.D{{Key: "record_time", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal/mongo: list postings by opr: %w", unavailable(err))
	}
	return s.postings(ctx, models)
}

func (s *Store) ListChain(ctx context.Context, ledgerID id.LedgerID, q posting.ChainQuery) ([]*posting.Posting, error) {
	var models []postingModel

	filter := bson.M{"ledger_id": ledgerID.String()}
	if !q.After.IsZero() {
		filter["record_time"] = bson.M{"$gt": q.After}
	}

	find := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "record_time", Value: 1}})
	if q.Limit > 0 {
		find = find.Limit(int64(q.Limit))
	}
	if err := find.Scan(ctx); err != nil {
		return nil, fmt.Errorf("journal/mongo: list chain: %w", unavailable(err))
	}
	return s.postings(ctx, models)
}

func (s *Store) postings(ctx context.Context, models []postingModel) ([]*posting.Posting, error) {
	result := make([]*posting.Posting, len(models))
	for i := range models {
		p, err := fromPostingModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	if err := s.attachLines(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachLines loads the lines of every posting with one query.
func (s *Store) attachLines(ctx context.Context, postings []*posting.Posting) error {
	if len(postings) == 0 {
		return nil
	}
	ids := make([]string, len(postings))
	byID := make(map[string]*posting.Posting, len(postings))
	for i, p := range postings {
		ids[i] = p.ID.String()
		byID[ids[i]] = p
		p.Lines = make([]*posting.Line, 0)
	}

	var models []lineModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"posting_id": bson.M{"$in": ids}}).
		Sort(bson.D{{Key: "posting_id", Value: 1}, {Key: "position", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("journal/mongo: load lines: %w", unavailable(err))
	}
	for i := range models {
		l, err := fromLineModel(&models[i])
		if err != nil {
			return err
		}
		p := byID[models[i].PostingID]
		p.Lines = append(p.Lines, l)
	}
	return nil
}

func (s *Store) ListLines(ctx context.Context, q posting.LineQuery) ([]*posting.Line, error) {
	var models []lineModel

	filter := bson.M{}
	if !q.AccountID.IsNil() {
		filter["account_id"] = q.AccountID.String()
	}
	if !q.LedgerID.IsNil() {
		filter["ledger_id"] = q.LedgerID.String()
	}
	if !q.BaseLineID.IsNil() {
		filter["base_line"] = q.BaseLineID.String()
	}
	valueRange := bson.M{}
	if !q.ValueAfter.IsZero() {
		valueRange["$gt"] = q.ValueAfter
	}
	if !q.ValueAtOrBefore.IsZero() {
		valueRange["$lte"] = q.ValueAtOrBefore
	}
	if len(valueRange) > 0 {
		filter["value_time"] = valueRange
	}
	if !q.RecordedAtOrBefore.IsZero() {
		filter["record_time"] = bson.M{"$lte": q.RecordedAtOrBefore}
	}
	if !q.IncludeDiscarded {
		filter["discarded_time"] = nil
	}

	dir := 1
	if q.Order == posting.OrderRecordDesc {
		dir = -1
	}
	find := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "record_time", Value: dir}, {Key: "_id", Value: dir}})
	if q.Limit > 0 {
		find = find.Limit(int64(q.Limit))
	}
	if q.Offset > 0 {
		find = find.Skip(int64(q.Offset))
	}

	if err := find.Scan(ctx); err != nil {
		return nil, fmt.Errorf("journal/mongo: list lines: %w", unavailable(err))
	}
	result := make([]*posting.Line, len(models))
	for i := range models {
		l, err := fromLineModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) GetLine(ctx context.Context, accountID id.AccountID, lineID id.LineID) (*posting.Line, error) {
	var m lineModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": lineID.String(), "account_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: line %s", journal.ErrNotFound, lineID)
		}
		return nil, fmt.Errorf("journal/mongo: get line: %w", unavailable(err))
	}
	return fromLineModel(&m)
}

func (s *Store) ListTraces(ctx context.Context, postingID id.PostingID) ([]*posting.Trace, error) {
	var models []traceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"target_posting_id": postingID.String()}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal/mongo: list traces: %w", unavailable(err))
	}

	result := make([]*posting.Trace, len(models))
	for i := range models {
		t, err := fromTraceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Statements ====================

func (s *Store) CreateStatement(ctx context.Context, st *statement.Statement) error {
	_, err := s.mdb.NewInsert(toStatementModel(st)).Exec(ctx)
	return statementError(err, st)
}

func (s *Store) UpdateStatement(ctx context.Context, st *statement.Statement) error {
	return s.updateStatement(ctx, s.mdb.NewUpdate, st)
}

func (s *Store) CloseStatement(ctx context.Context, st *statement.Statement, ledgerID id.LedgerID, headID id.PostingID) error {
	return s.inTx(ctx, func(tx *mongodriver.MongoTx) error {
		if err := bumpChainVersion(ctx, tx, ledgerID); err != nil {
			return err
		}
		var head postingModel
		err := tx.NewFind(&head).
			Filter(bson.M{"ledger_id": ledgerID.String()}).
			Sort(headSort).
			Scan(ctx)
		if err != nil && !isNoDocuments(err) {
			return err
		}
		if head.ID != headID.String() {
			return journal.ErrChainConflict
		}
		return s.updateStatement(ctx, tx.NewUpdate, st)
	})
}

// updateStatement rewrites a statement that is not CLOSED yet through
// newUpdate, which is bound to the database or to a transaction.
func (s *Store) updateStatement(ctx context.Context, newUpdate func(any) *mongodriver.UpdateQuery, st *statement.Statement) error {
	m := toStatementModel(st)
	res, err := newUpdate((*statementModel)(nil)).
		Filter(bson.M{"_id": m.ID, "status": bson.M{"$ne": string(statement.StatusClosed)}}).
		SetUpdate(bson.M{"$set": bson.M{
			"status":              m.Status,
			"value_time":          m.ValueTime,
			"total_debit":         m.TotalDebit,
			"total_credit":        m.TotalCredit,
			"latest_posting_id":   m.LatestPostingID,
			"youngest_posting_id": m.YoungestPostingID,
			"lines":               m.Lines,
			"closed_at":           m.ClosedAt,
			"short_desc":          m.ShortDesc,
			"long_desc":           m.LongDesc,
		}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("journal/mongo: update statement: %w", unavailable(err))
	}
	if res.MatchedCount() > 0 {
		return nil
	}
	if _, err := s.GetStatement(ctx, st.ID); err != nil {
		return err
	}
	return journal.ErrStatementClosed
}

func (s *Store) GetStatement(ctx context.Context, statementID id.StatementID) (*statement.Statement, error) {
	var m statementModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": statementID.String()}).Scan(ctx)
	return statementResult(&m, err)
}

func (s *Store) LatestStatement(ctx context.Context, owner statement.Owner, status statement.Status) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, nil, bson.D{{Key: "seq", Value: -1}})
}

func (s *Store) LatestStatementBefore(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, bson.M{"$lt": ref},
		bson.D{{Key: "value_time", Value: -1}, {Key: "seq", Value: -1}})
}

func (s *Store) EarliestStatementAtOrAfter(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, bson.M{"$gte": ref},
		bson.D{{Key: "value_time", Value: 1}, {Key: "seq", Value: 1}})
}

// pickStatement returns the first of the owner's statements under sort,
// optionally filtered by status and a value time bound.
func (s *Store) pickStatement(
	ctx context.Context,
	owner statement.Owner,
	status statement.Status,
	bound bson.M,
	sort bson.D,
) (*statement.Statement, error) {
	filter := ownerFilter(owner)
	if status != "" {
		filter["status"] = string(status)
	}
	if bound != nil {
		filter["value_time"] = bound
	}

	var m statementModel
	err := s.mdb.NewFind(&m).Filter(filter).Sort(sort).Scan(ctx)
	return statementResult(&m, err)
}

func (s *Store) PreviousStatement(ctx context.Context, st *statement.Statement) (*statement.Statement, error) {
	filter := ownerFilter(st.Owner)
	filter["seq"] = st.Seq - 1

	var m statementModel
	err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx)
	return statementResult(&m, err)
}

func (s *Store) ListStatements(ctx context.Context, owner statement.Owner, opts statement.ListOpts) ([]*statement.Statement, error) {
	var models []statementModel

	filter := ownerFilter(owner)
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	valueRange := bson.M{}
	if !opts.Start.IsZero() {
		valueRange["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		valueRange["$lte"] = opts.End
	}
	if len(valueRange) > 0 {
		filter["value_time"] = valueRange
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("journal/mongo: list statements: %w", unavailable(err))
	}

	result := make([]*statement.Statement, len(models))
	for i := range models {
		st, err := fromStatementModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

func ownerFilter(owner statement.Owner) bson.M {
	return bson.M{"owner_kind": string(owner.Kind), "owner_id": owner.ID.String()}
}

func statementResult(m *statementModel, err error) (*statement.Statement, error) {
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrStatementNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get statement: %w", unavailable(err))
	}
	return fromStatementModel(m)
}

// ==================== Helpers ====================

// inTx runs fn in a session transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *mongodriver.MongoTx) error) error {
	raw, err := s.mdb.GroveTx(ctx, 0, false)
	if err != nil {
		return unavailable(err)
	}
	tx, ok := raw.(*mongodriver.MongoTx)
	if !ok {
		return fmt.Errorf("journal/mongo: unexpected transaction type %T", raw)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // best-effort abort
		return txError(err)
	}
	if err := tx.Commit(); err != nil {
		return txError(err)
	}
	return nil
}

// migrationIndexes returns the index definitions for all journal collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCharts: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxChartName),
			},
		},
		colLedgers: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxLedgerName),
			},
			{Keys: bson.D{{Key: "chart_id", Value: 1}}},
		},
		colAccounts: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxAccountName),
			},
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		colPostings: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "antecedent_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxPostingChain),
			},
			{
				Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "opr_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName(idxPostingOpr).
					SetPartialFilterExpression(bson.M{"discarded_id": ""}),
			},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "record_time", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "hash", Value: 1}}},
		},
		colLines: {
			{Keys: bson.D{{Key: "posting_id", Value: 1}, {Key: "position", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "value_time", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "value_time", Value: 1}}},
			{Keys: bson.D{{Key: "base_line", Value: 1}}},
		},
		colTraces: {
			{Keys: bson.D{{Key: "target_posting_id", Value: 1}}},
		},
		colStatements: {
			{
				Keys:    bson.D{{Key: "owner_kind", Value: 1}, {Key: "owner_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxStatementSeq),
			},
			{Keys: bson.D{{Key: "owner_kind", Value: 1}, {Key: "owner_id", Value: 1}, {Key: "value_time", Value: 1}}},
		},
	}
}
