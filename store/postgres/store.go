package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
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

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// The chain compare-and-swap runs inside a transaction and is backed by the
// unique index on (ledger_id, antecedent_id): two writers that read the same
// head cannot both insert a successor.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// Open connects to dsn and returns a store over the new pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	drv := pgdriver.New()
	if err := drv.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("journal/postgres: open: %w", unavailable(err))
	}
	db, err := grove.Open(drv)
	if err != nil {
		return nil, fmt.Errorf("journal/postgres: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("journal/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("journal/postgres: migration failed: %w", err)
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
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewRaw(query string, args ...any) *pgdriver.RawQuery
}

var (
	_ queryer = (*pgdriver.PgDB)(nil)
	_ queryer = (*pgdriver.PgTx)(nil)
)

// ==================== Hierarchy ====================

func (s *Store) CreateChart(ctx context.Context, c *account.Chart) error {
	_, err := s.pg.NewInsert(toChartModel(c)).Exec(ctx)
	return hierarchyError(err, "chart", c.Name, "")
}

func (s *Store) GetChart(ctx context.Context, chartID id.ChartID) (*account.Chart, error) {
	m := new(chartModel)
	err := s.pg.NewSelect(m).Where("id = $1", chartID.String()).Scan(ctx)
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
	err := s.pg.NewSelect(m).Where("name = $1", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrChartNotFound
		}
		return nil, unavailable(err)
	}
	return fromChartModel(m)
}

func (s *Store) CreateLedger(ctx context.Context, l *account.Ledger) error {
	_, err := s.pg.NewInsert(toLedgerModel(l)).Exec(ctx)
	return hierarchyError(err, "ledger", l.Name, "")
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*account.Ledger, error) {
	m := new(ledgerModel)
	err := s.pg.NewSelect(m).Where("id = $1", ledgerID.String()).Scan(ctx)
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
	err := s.pg.NewSelect(m).Where("name = $1", name).Scan(ctx)
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
	q := s.pg.NewSelect(&models)
	if !chartID.IsNil() {
		q = q.Where("chart_id = $1", chartID.String())
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
	_, err := s.pg.NewInsert(toAccountModel(a)).Exec(ctx)
	return hierarchyError(err, "account", a.Name, a.LedgerID.String())
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).Where("id = $1", accountID.String()).Scan(ctx)
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
	err := s.pg.NewSelect(m).
		Where("ledger_id = $1", ledgerID.String()).
		Where("name = $2", name).
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
	return s.listAccounts(ctx, "parent_id = $1", parentID.String())
}

func (s *Store) ListAccounts(ctx context.Context, ledgerID id.LedgerID) ([]*account.Account, error) {
	return s.listAccounts(ctx, "ledger_id = $1", ledgerID.String())
}

func (s *Store) listAccounts(ctx context.Context, where string, arg string) ([]*account.Account, error) {
	var models []accountModel
	err := s.pg.NewSelect(&models).
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
	return s.inTx(ctx, func(tx *pgdriver.PgTx) error {
		if err := lockLedger(ctx, tx, p.LedgerID, "SHARE"); err != nil {
			return err
		}
		if err := checkOpen(ctx, tx, p.LedgerID, lineOwners(p.Lines), p.ValueTime); err != nil {
			return err
		}
		return insertPosting(ctx, tx, p)
	})
}

func (s *Store) DiscardAndAppend(ctx context.Context, d *posting.Discard) error {
	return s.inTx(ctx, func(tx *pgdriver.PgTx) error {
		if err := lockLedger(ctx, tx, d.Replacement.LedgerID, "SHARE"); err != nil {
			return err
		}
		if err := checkOpenDiscarded(ctx, tx, d.PostingID); err != nil {
			return err
		}
		if err := checkOpen(ctx, tx, d.Replacement.LedgerID, lineOwners(d.Replacement.Lines), d.Replacement.ValueTime); err != nil {
			return err
		}

		res, err := tx.NewRaw(`
UPDATE journal_postings SET discarded_id = $1, discarded_time = $2
WHERE id = $3 AND discarded_id = ''`,
			d.Replacement.ID.String(), d.DiscardedTime, d.PostingID.String()).Exec(ctx)
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

		_, err = tx.NewRaw(`UPDATE journal_lines SET discarded_time = $1 WHERE posting_id = $2`,
			d.DiscardedTime, d.PostingID.String()).Exec(ctx)
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

// lockLedger takes a row lock on the ledger. Appends hold it in SHARE mode
// and statement closes in UPDATE mode, so a close waits for in-flight
// appends to commit and later appends see the CLOSED status.
func lockLedger(ctx context.Context, q queryer, ledgerID id.LedgerID, mode string) error {
	var locked string
	err := q.NewRaw(`SELECT id FROM journal_ledgers WHERE id = $1 FOR `+mode, ledgerID.String()).
		Scan(ctx, &locked)
	if isNoRows(err) {
		return journal.ErrLedgerNotFound
	}
	return err
}

// checkOpen fails with a period closed error when a CLOSED statement of the
// ledger or of one of the accounts reaches valueTime.
func checkOpen(ctx context.Context, q queryer, ledgerID id.LedgerID, accounts []string, valueTime time.Time) error {
	owners := append([]string{ledgerID.String()}, accounts...)
	m := new(statementModel)
	err := q.NewSelect(m).
		Where("status = $1", string(statement.StatusClosed)).
		Where("owner_id = ANY($2)", owners).
		Where("value_time >= $3", valueTime).
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
		journal.ErrPeriodClosed, m.OwnerKind, m.OwnerID, m.ValueTime.Format(time.RFC3339), m.ID)
}

// checkOpenDiscarded applies checkOpen to a stored posting about to be
// discarded.
func checkOpenDiscarded(ctx context.Context, q queryer, postingID id.PostingID) error {
	old := new(postingModel)
	err := q.NewSelect(old).Where("id = $1", postingID.String()).Scan(ctx)
	switch {
	case isNoRows(err):
		return journal.ErrPostingNotFound
	case err != nil:
		return err
	}
	var lines []lineModel
	if err := q.NewSelect(&lines).Where("posting_id = $1", old.ID).Scan(ctx); err != nil {
		return err
	}
	accounts := make([]string, len(lines))
	for i := range lines {
		accounts[i] = lines[i].AccountID
	}
	ledgerID, err := id.ParseLedgerID(old.LedgerID)
	if err != nil {
		return err
	}
	return checkOpen(ctx, q, ledgerID, accounts, old.ValueTime)
}

func lineOwners(lines []*posting.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.AccountID.String()
	}
	return out
}

// insertPosting checks the chain head and the operation id, then writes the
// posting and its lines.
func insertPosting(ctx context.Context, q queryer, p *posting.Posting) error {
	head := new(postingModel)
	err := q.NewSelect(head).
		Where("ledger_id = $1", p.LedgerID.String()).
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
		Where("ledger_id = $1", p.LedgerID.String()).
		Where("opr_id = $2", p.OprID).
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
	return s.getPosting(ctx, "id = $1", postingID.String())
}

func (s *Store) GetPostingByHash(ctx context.Context, ledgerID id.LedgerID, hash string) (*posting.Posting, error) {
	return s.getPosting(ctx, "ledger_id = $1 AND hash = $2", ledgerID.String(), hash)
}

func (s *Store) GetChainHead(ctx context.Context, ledgerID id.LedgerID) (*posting.Posting, error) {
	m := new(postingModel)
	err := s.pg.NewSelect(m).
		Where("ledger_id = $1", ledgerID.String()).
		OrderExpr("record_time DESC, id DESC").
		Limit(1).
		Scan(ctx)
	return s.withLines(ctx, m, err)
}

func (s *Store) GetActivePostingByOprID(ctx context.Context, ledgerID id.LedgerID, oprID string) (*posting.Posting, error) {
	return s.getPosting(ctx, "ledger_id = $1 AND opr_id = $2 AND discarded_id = ''", ledgerID.String(), oprID)
}

func (s *Store) getPosting(ctx context.Context, where string, args ...any) (*posting.Posting, error) {
	m := new(postingModel)
	err := s.pg.NewSelect(m).Where(where, args...).Limit(1).Scan(ctx)
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
	err := s.pg.NewSelect(&models).
		Where("ledger_id = $1", ledgerID.String()).
		Where("opr_id = $2", oprID).
		OrderExpr("record_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return s.postings(ctx, models)
}

func (s *Store) ListChain(ctx context.Context, ledgerID id.LedgerID, q posting.ChainQuery) ([]*posting.Posting, error) {
	var models []postingModel
	sel := s.pg.NewSelect(&models).Where("ledger_id = $1", ledgerID.String())
	if !q.After.IsZero() {
		sel = sel.Where("record_time > $2", q.After)
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

	var models []lineModel
	err := s.pg.NewSelect(&models).
		WhereArray("posting_id", "= ANY", ids).
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
	sel := s.pg.NewSelect(&models)

	argIdx := 0
	where := func(clause string, arg any) {
		argIdx++
		sel = sel.Where(fmt.Sprintf(clause, argIdx), arg)
	}
	if !q.AccountID.IsNil() {
		where("account_id = $%d", q.AccountID.String())
	}
	if !q.LedgerID.IsNil() {
		where("ledger_id = $%d", q.LedgerID.String())
	}
	if !q.BaseLineID.IsNil() {
		where("base_line = $%d", q.BaseLineID.String())
	}
	if !q.ValueAfter.IsZero() {
		where("value_time > $%d", q.ValueAfter)
	}
	if !q.ValueAtOrBefore.IsZero() {
		where("value_time <= $%d", q.ValueAtOrBefore)
	}
	if !q.RecordedAtOrBefore.IsZero() {
		where("record_time <= $%d", q.RecordedAtOrBefore)
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
	err := s.pg.NewSelect(m).
		Where("id = $1", lineID.String()).
		Where("account_id = $2", accountID.String()).
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
	err := s.pg.NewSelect(&models).
		Where("target_posting_id = $1", postingID.String()).
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
	_, err := s.pg.NewInsert(toStatementModel(st)).Exec(ctx)
	return statementError(err, st)
}

func (s *Store) UpdateStatement(ctx context.Context, st *statement.Statement) error {
	return updateStatement(ctx, s.pg, st)
}

func (s *Store) CloseStatement(ctx context.Context, st *statement.Statement, ledgerID id.LedgerID, headID id.PostingID) error {
	return s.inTx(ctx, func(tx *pgdriver.PgTx) error {
		if err := lockLedger(ctx, tx, ledgerID, "UPDATE"); err != nil {
			return err
		}
		var head string
		err := tx.NewRaw(`
SELECT id FROM journal_postings WHERE ledger_id = $1
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
    status = $1, value_time = $2, total_debit = $3, total_credit = $4,
    latest_posting_id = $5, youngest_posting_id = $6, lines = $7, closed_at = $8,
    short_desc = $9, long_desc = $10
WHERE id = $11 AND status <> 'CLOSED'`,
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
	err = q.NewRaw(`SELECT id FROM journal_statements WHERE id = $1`, m.ID).Scan(ctx, &found)
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
	err := s.pg.NewSelect(m).Where("id = $1", statementID.String()).Scan(ctx)
	return statementResult(m, err)
}

func (s *Store) LatestStatement(ctx context.Context, owner statement.Owner, status statement.Status) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, "", time.Time{}, "seq DESC")
}

func (s *Store) LatestStatementBefore(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, "value_time < $%d", ref, "value_time DESC, seq DESC")
}

func (s *Store) EarliestStatementAtOrAfter(ctx context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	return s.pickStatement(ctx, owner, status, "value_time >= $%d", ref, "value_time ASC, seq ASC")
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
	q := s.pg.NewSelect(m).
		Where("owner_kind = $1", string(owner.Kind)).
		Where("owner_id = $2", owner.ID.String())

	argIdx := 2
	if status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(status))
	}
	if bound != "" {
		argIdx++
		q = q.Where(fmt.Sprintf(bound, argIdx), ref)
	}
	err := q.OrderExpr(order).Limit(1).Scan(ctx)
	return statementResult(m, err)
}

func (s *Store) PreviousStatement(ctx context.Context, st *statement.Statement) (*statement.Statement, error) {
	m := new(statementModel)
	err := s.pg.NewSelect(m).
		Where("owner_kind = $1", string(st.Owner.Kind)).
		Where("owner_id = $2", st.Owner.ID.String()).
		Where("seq = $3", st.Seq-1).
		Scan(ctx)
	return statementResult(m, err)
}

func (s *Store) ListStatements(ctx context.Context, owner statement.Owner, opts statement.ListOpts) ([]*statement.Statement, error) {
	var models []statementModel
	q := s.pg.NewSelect(&models).
		Where("owner_kind = $1", string(owner.Kind)).
		Where("owner_id = $2", owner.ID.String())

	argIdx := 2
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("value_time >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("value_time <= $%d", argIdx), opts.End)
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
func (s *Store) inTx(ctx context.Context, fn func(tx *pgdriver.PgTx) error) error {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
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
