package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	journalstore "github.com/xraph/journal/store"
)

// compile-time interface check
var _ journalstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
//
// SQLite admits one writer at a time, so posting writes are serialized
// in-process by writeMu. The unique index on (ledger_id, antecedent_id)
// still guards the chain against writers in other processes.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB

	writeMu sync.Mutex
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Open opens the database file named by dsn. Pass driver.WithPoolSize(1)
// for in-memory databases, which are private to each connection.
func Open(ctx context.Context, dsn string, opts ...driver.Option) (*Store, error) {
	drv := sqlitedriver.New()
	if err := drv.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("journal/sqlite: open: %w", unavailable(err))
	}
	db, err := grove.Open(drv)
	if err != nil {
		return nil, fmt.Errorf("journal/sqlite: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("journal/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("journal/sqlite: migration failed: %w", err)
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

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewRaw(query string, args ...any) *sqlitedriver.RawQuery
}

var (
	_ queryer = (*sqlitedriver.SqliteDB)(nil)
	_ queryer = (*sqlitedriver.SqliteTx)(nil)
)

// ==================== Hierarchy ====================

func (s *Store) CreateChart(ctx context.Context, c *account.Chart) error {
	_, err := s.sdb.NewInsert(toChartModel(c)).Exec(ctx)
	return hierarchyError(err, "chart", c.Name, "")
}

func (s *Store) GetChart(ctx context.Context, chartID id.ChartID) (*account.Chart, error) {
	m := new(chartModel)
	err := s.sdb.NewSelect(m).Where("id = ?", chartID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrChartNotFound
		}
		return nil, unavailable(err)
	}
	return fromChartModel(m)
}

func (s *Store) GetChartByName(ctx context.Context, name string) (*account.Chart, error) {
	m := new(chartModel)
	err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrChartNotFound
		}
		return nil, unavailable(err)
	}
	return fromChartModel(m)
}

func (s *Store) CreateLedger(ctx context.Context, l *account.Ledger) error {
	_, err := s.sdb.NewInsert(toLedgerModel(l)).Exec(ctx)
	return hierarchyError(err, "ledger", l.Name, "")
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*account.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).Where("id = ?", ledgerID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrLedgerNotFound
		}
		return nil, unavailable(err)
	}
	return fromLedgerModel(m)
}

func (s *Store) GetLedgerByName(ctx context.Context, name string) (*account.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrLedgerNotFound
		}
		return nil, unavailable(err)
	}
	return fromLedgerModel(m)
}

func (s *Store) ListLedgers(ctx context.Context, chartID id.ChartID) ([]*account.Ledger, error) {
	var models []ledgerModel
	q := s.sdb.NewSelect(&models)
	if !chartID.IsNil() {
		q = q.Where("chart_id = ?", chartID.String())
	}
	if err := q.OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, unavailable(err)
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
	_, err := s.sdb.NewInsert(toAccountModel(a)).Exec(ctx)
	return hierarchyError(err, "account", a.Name, a.LedgerID.String())
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).Where("id = ?", accountID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrAccountNotFound
		}
		return nil, unavailable(err)
	}
	return fromAccountModel(m)
}

func (s *Store) GetAccountByName(ctx context.Context, ledgerID id.LedgerID, name string) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("ledger_id = ?", ledgerID.String()).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrAccountNotFound
		}
		return nil, unavailable(err)
	}
	return fromAccountModel(m)
}

func (s *Store) ListChildAccounts(ctx context.Context, parentID id.AccountID) ([]*account.Account, error) {
	return s.listAccounts(ctx, "parent_id = ?", parentID.String())
}

func (s *Store) ListAccounts(ctx context.Context, ledgerID id.LedgerID) ([]*account.Account, error) {
	return s.listAccounts(ctx, "ledger_id = ?", ledgerID.String())
}

func (s *Store) listAccounts(ctx context.Context, where string, arg string) ([]*account.Account, error) {
	var models []accountModel
	err := s.sdb.NewSelect(&models).
		Where(where, arg).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err)
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
	return s.inTx(ctx, func(tx *sqlitedriver.SqliteTx) error {
		if err := checkOpen(ctx, tx, p.LedgerID.String(), lineOwners(p.Lines), millis(p.ValueTime)); err != nil {
			return err
		}
		return insertPosting(ctx, tx, p)
	})
}

func (s *Store) DiscardAndAppend(ctx context.Context, d *posting.Discard) error {
	return s.inTx(ctx, func(tx *sqlitedriver.SqliteTx) error {
		if err := checkOpenDiscarded(ctx, tx, d.PostingID); err != nil {
			return err
		}
		r := d.Replacement
		if err := checkOpen(ctx, tx, r.LedgerID.String(), lineOwners(r.Lines), millis(r.ValueTime)); err != nil {
			return err
		}

		res, err := tx.NewRaw(`
UPDATE journal_postings SET discarded_id = ?, discarded_time = ?
WHERE id = ? AND discarded_id = ''`,
			d.Replacement.ID.String(), millis(d.DiscardedTime), d.PostingID.String()).Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return journal.ErrPostingNotFound
		}

		_, err = tx.NewRaw(`UPDATE journal_lines SET discarded_time = ? WHERE posting_id = ?`,
			millis(d.DiscardedTime), d.PostingID.String()).Exec(ctx)
		if err != nil {
			return err
		}

		if err := insertPosting(ctx, tx, d.Replacement); err != nil {
			return err
		}
		if len(d.Traces) > 0 {
			traces := toTraceModels(d.Traces)
			if _, err := tx.NewInsert(&traces).MultiRow().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// checkOpen fails with a period closed error when a CLOSED statement of the
// ledger or of one of the accounts reaches valueTime.
func checkOpen(ctx context.Context, q queryer, ledgerID string, accounts []string, valueTime int64) error {
	owners := append([]any{ledgerID}, toAny(accounts)...)
	m := new(statementModel)
	err := q.NewSelect(m).
		Where("status = ?", string(statement.StatusClosed)).
		Where("owner_id IN (?"+strings.Repeat(", ?", len(owners)-1)+")", owners...).
		Where("value_time >= ?", valueTime).
		OrderExpr("value_time DESC").
		Limit(1).
		Scan(ctx)
	switch {
	case isNoRows(err):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: %s:%s closed through %s by statement %s",
		journal.ErrPeriodClosed, m.OwnerKind, m.OwnerID, fromMillis(m.ValueTime).Format(time.RFC3339), m.ID)
}

// checkOpenDiscarded applies checkOpen to a stored posting about to be
// discarded.
func checkOpenDiscarded(ctx context.Context, q queryer, postingID id.PostingID) error {
	old := new(postingModel)
	err := q.NewSelect(old).Where("id = ?", postingID.String()).Scan(ctx)
	switch {
	case isNoRows(err):
		return journal.ErrPostingNotFound
	case err != nil:
		return err
	}
	var lines []lineModel
	if err := q.NewSelect(&lines).Where("posting_id = ?", old.ID).Scan(ctx); err != nil {
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

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// insertPosting checks the chain head and the operation id, then writes the
// posting and its lines.
func insertPosting(ctx context.Context, q queryer, p *posting.Posting) error {
	head := new(postingModel)
	err := q.NewSelect(head).
		Where("ledger_id = ?", p.LedgerID.String()).
		OrderExpr("record_time DESC, id DESC").
		Limit(1).
		Scan(ctx)
	switch {
	case isNoRows(err):
		head.ID = ""
	case err != nil:
		return err
	}
	if head.ID != p.AntecedentID.String() {
		return journal.ErrChainConflict
	}

	active := new(postingModel)
	err = q.NewSelect(active).
		Where("ledger_id = ?", p.LedgerID.String()).
		Where("opr_id = ?", p.OprID).
		Where("discarded_id = ''").
		Scan(ctx)
	if err == nil {
		existing, _ := id.FromString(active.ID) //nolint:errcheck // informational
		return &journal.DuplicateOperationError{LedgerID: p.LedgerID, OprID: p.OprID, PostingID: existing}
	}
	if !isNoRows(err) {
		return err
	}

	if _, err := q.NewInsert(toPostingModel(p)).Exec(ctx); err != nil {
		return postingError(err, p)
	}
	if len(p.Lines) > 0 {
		lines := toLineModels(p.Lines)
		if _, err := q.NewInsert(&lines).MultiRow().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetPosting(ctx context.Context, postingID id.PostingID) (*posting.Posting, error) {
	return s.getPosting(ctx, "id = ?", postingID.String())
}

func (s *Store) GetPostingByHash(ctx context.Context, ledgerID id.LedgerID, hash string) (*posting.Posting, error) {
	return s.getPosting(ctx, "ledger_id = ? AND hash = ?", ledgerID.String(), hash)
}

func (s *Store) GetChainHead(ctx context.Context, ledgerID id.LedgerID) (*posting.Posting, error) {
	m := new(postingModel)
	err := s.sdb.NewSelect(m).
		Where("ledger_id = ?", ledgerID.String()).
		OrderExpr("record_time DESC, id DESC").
		Limit(1).
		Scan(ctx)
	return s.withLines(ctx, m, err)
}

func (s *Store) GetActivePostingByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) (*posting.Posting, error) {
	return s.getPosting(ctx, "ledger_id = ? AND opr_id = ? AND discarded_id = ''", ledgerID.String(), oprID)
}

func (s *Store) getPosting(ctx context.Context, where string, args ...any) (*posting.Posting, error) {
	m := new(postingModel)
	err := s.sdb.NewSelect(m).Where(where, args...).Limit(1).Scan(ctx)
	return s.withLines(ctx, m, err)
}

func (s *Store) withLines(ctx context.Context, m *postingModel, err error) (*posting.Posting, error) {
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrPostingNotFound
		}
		return nil, unavailable(err)
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
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		Where("opr_id = ?", oprID).
		OrderExpr("record_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return s.postings(ctx, models)
}

func (s *Store) ListChain(ctx context.Context, ledgerID id.LedgerID, q posting.ChainQuery) ([]*posting.Posting, error) {
	var models []postingModel
	sel := s.sdb.NewSelect(&models).Where("ledger_id = ?", ledgerID.String())
	if !q.After.IsZero() {
		sel = sel.Where("record_time > ?", millis(q.After))
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if err := sel.OrderExpr("record_time ASC").Scan(ctx); err != nil {
		return nil, unavailable(err)
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

	args := make([]any, len(ids))
	for i, pid := range ids {
		args[i] = pid
	}
	var models []lineModel
	err := s.sdb.NewSelect(&models).
		Where("posting_id IN (?"+strings.Repeat(", ?", len(ids)-1)+")", args...).
		OrderExpr("posting_id ASC, position ASC").
		Scan(ctx)
	if err != nil {
		return unavailable(err)
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
	sel := s.sdb.NewSelect(&models)

	where := func(clause string, arg any) { sel = sel.Where(clause, arg) }
	if !q.AccountID.IsNil() {
		where("account_id = ?", q.AccountID.String())
	}
	if !q.LedgerID.IsNil() {
		where("ledger_id = ?", q.LedgerID.String())
	}
	if !q.BaseLineID.IsNil() {
		where("base_line = ?", q.BaseLineID.String())
	}
	if !q.ValueAfter.IsZero() {
		where("value_time > ?", millis(q.ValueAfter))
	}
	if !q.ValueAtOrBefore.IsZero() {
		where("value_time <= ?", millis(q.ValueAtOrBefore))
	}
	if !q.RecordedAtOrBefore.IsZero() {
		where("record_time <= ?", millis(q.RecordedAtOrBefore))
	}
	if !q.IncludeDiscarded {
		sel = sel.Where("discarded_time IS NULL")
	}

	if q.Order == posting.OrderRecordDesc {
		sel = sel.OrderExpr("record_time DESC, id DESC")
	} else {
		sel = sel.OrderExpr("record_time ASC, id ASC")
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, unavailable(err)
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
	m := new(lineModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", lineID.String()).
		Where("account_id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: line %s", journal.ErrNotFound, lineID)
		}
		return nil, unavailable(err)
	}
	return fromLineModel(m)
}

func (s *Store) ListTraces(ctx context.Context, postingID id.PostingID) ([]*posting.Trace, error) {
	var models []traceModel
	err := s.sdb.NewSelect(&models).
		Where("target_posting_id = ?", postingID.String()).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err)
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
	_, err := s.sdb.NewInsert(toStatementModel(st)).Exec(ctx)
	return statementError(err, st)
}

func (s *Store) UpdateStatement(ctx context.Context, st *statement.Statement) error {
	return updateStatement(ctx, s.sdb, st)
}

func (s *Store) CloseStatement(ctx context.Context, st *statement.Statement, ledgerID id.LedgerID, headID id.PostingID) error {
	return s.inTx(ctx, func(tx *sqlitedriver.SqliteTx) error {
		var head string
		err := tx.NewRaw(`
SELECT id FROM journal_postings WHERE ledger_id = ?
ORDER BY record_time DESC, id DESC LIMIT 1`, ledgerID.String()).Scan(ctx, &head)
		if err != nil && !isNoRows(err) {
			return err
		}
		if head != headID.String() {
			return journal.ErrChainConflict
		}
		return updateStatement(ctx, tx, st)
	})
}

// updateStatement rewrites a statement that is not CLOSED yet.
func updateStatement(ctx context.Context, q queryer, st *statement.Statement) error {
	m := toStatementModel(st)
	res, err := q.NewRaw(`
UPDATE journal_statements SET
    status = ?, value_time = ?, total_debit = ?, total_credit = ?,
    latest_posting_id = ?, youngest_posting_id = ?, lines = ?, closed_at = ?,
    short_desc = ?, long_desc = ?
WHERE id = ? AND status <> 'CLOSED'`,
		m.Status, m.ValueTime, m.TotalDebit, m.TotalCredit,
		m.LatestPostingID, m.YoungestPostingID, m.Lines, m.ClosedAt,
		m.ShortDesc, m.LongDesc, m.ID).Exec(ctx)
	if err != nil {
		return unavailable(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	var found string
	err = q.NewRaw(`SELECT id FROM journal_statements WHERE id = ?`, m.ID).Scan(ctx, &found)
	switch {
	case isNoRows(err):
		return journal.ErrStatementNotFound
	case err != nil:
		return unavailable(err)
	}
	return journal.ErrStatementClosed
}

func (s *Store) GetStatement(ctx context.Context, statementID id.StatementID) (*statement.Statement, error) {
	m := new(statementModel)
	err := s.sdb.NewSelect(m).Where("id = ?", statementID.String()).Scan(ctx)
	return statementResult(m, err)
}

func (s *Store) LatestStatement(ctx context.Context, owner statement.Owner, status statement.Status) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, "", time.Time{}, "seq DESC")
}

func (s *Store) LatestStatementBefore(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, "value_time < ?", ref, "value_time DESC, seq DESC")
}

func (s *Store) EarliestStatementAtOrAfter(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, "value_time >= ?", ref, "value_time ASC, seq ASC")
}

// pickStatement returns the first of the owner's statements under order,
// optionally filtered by status and a value time bound.
func (s *Store) pickStatement(
	ctx context.Context,
	owner statement.Owner,
	status statement.Status,
	bound string,
	ref time.Time,
	order string,
) (*statement.Statement, error) {
	m := new(statementModel)
	q := s.sdb.NewSelect(m).
		Where("owner_kind = ?", string(owner.Kind)).
		Where("owner_id = ?", owner.ID.String())

	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if bound != "" {
		q = q.Where(bound, millis(ref))
	}
	err := q.OrderExpr(order).Limit(1).Scan(ctx)
	return statementResult(m, err)
}

func (s *Store) PreviousStatement(ctx context.Context, st *statement.Statement) (*statement.Statement, error) {
	m := new(statementModel)
	err := s.sdb.NewSelect(m).
		Where("owner_kind = ?", string(st.Owner.Kind)).
		Where("owner_id = ?", st.Owner.ID.String()).
		Where("seq = ?", st.Seq-1).
		Scan(ctx)
	return statementResult(m, err)
}

func (s *Store) ListStatements(ctx context.Context, owner statement.Owner, opts statement.ListOpts) ([]*statement.Statement, error) {
	var models []statementModel
	q := s.sdb.NewSelect(&models).
		Where("owner_kind = ?", string(owner.Kind)).
		Where("owner_id = ?", owner.ID.String())

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.Start.IsZero() {
		q = q.Where("value_time >= ?", millis(opts.Start))
	}
	if !opts.End.IsZero() {
		q = q.Where("value_time <= ?", millis(opts.End))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, unavailable(err)
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

func statementResult(m *statementModel, err error) (*statement.Statement, error) {
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrStatementNotFound
		}
		return nil, unavailable(err)
	}
	return fromStatementModel(m)
}

// ==================== Helpers ====================

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlitedriver.SqliteTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return txError(err)
	}
	if err := tx.Commit(); err != nil {
		return txError(err)
	}
	return nil
}
