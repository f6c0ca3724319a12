// Package memory implements store.Store in process memory. It is the
// default backend for tests and for the Forge extension when no database
// is configured.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xraph/journal"
	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
	"github.com/xraph/journal/posting"
	"github.com/xraph/journal/statement"
	"github.com/xraph/journal/store"
)

// Store keeps every entity in maps guarded by a single RWMutex. Values are
// copied on the way in and on the way out so callers never share memory
// with the store.
type Store struct {
	mu sync.RWMutex

	// Hierarchy storage
	charts   map[string]*account.Chart
	ledgers  map[string]*account.Ledger
	accounts map[string]*account.Account

	// Posting storage. chains holds each ledger's posting ids in record
	// order; lines indexes every stored line by id.
	postings map[string]*posting.Posting
	chains   map[string][]string
	lines    map[string]*posting.Line
	traces   map[string][]*posting.Trace

	// Statement storage
	statements map[string]*statement.Statement
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		charts:     make(map[string]*account.Chart),
		ledgers:    make(map[string]*account.Ledger),
		accounts:   make(map[string]*account.Account),
		postings:   make(map[string]*posting.Posting),
		chains:     make(map[string][]string),
		lines:      make(map[string]*posting.Line),
		traces:     make(map[string][]*posting.Trace),
		statements: make(map[string]*statement.Statement),
	}
}

// ──────────────────────────────────────────────────
// Hierarchy
// ──────────────────────────────────────────────────

func (s *Store) CreateChart(_ context.Context, c *account.Chart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.charts[c.ID.String()]; exists {
		return fmt.Errorf("%w: chart %s already stored", journal.ErrInvalidInput, c.ID)
	}
	for _, existing := range s.charts {
		if existing.Name == c.Name {
			return &journal.DuplicateNameError{Kind: "chart", Name: c.Name}
		}
	}
	cp := *c
	s.charts[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetChart(_ context.Context, chartID id.ChartID) (*account.Chart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.charts[chartID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, journal.ErrChartNotFound
}

func (s *Store) GetChartByName(_ context.Context, name string) (*account.Chart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.charts {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, journal.ErrChartNotFound
}

func (s *Store) CreateLedger(_ context.Context, l *account.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgers[l.ID.String()]; exists {
		return fmt.Errorf("%w: ledger %s already stored", journal.ErrInvalidInput, l.ID)
	}
	for _, existing := range s.ledgers {
		if existing.Name == l.Name {
			return &journal.DuplicateNameError{Kind: "ledger", Name: l.Name}
		}
	}
	cp := *l
	s.ledgers[l.ID.String()] = &cp
	return nil
}

func (s *Store) GetLedger(_ context.Context, ledgerID id.LedgerID) (*account.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.ledgers[ledgerID.String()]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, journal.ErrLedgerNotFound
}

func (s *Store) GetLedgerByName(_ context.Context, name string) (*account.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.ledgers {
		if l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	return nil, journal.ErrLedgerNotFound
}

func (s *Store) ListLedgers(_ context.Context, chartID id.ChartID) ([]*account.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Ledger, 0)
	for _, l := range s.ledgers {
		if chartID.IsNil() || l.ChartID == chartID {
			cp := *l
			result = append(result, &cp)
		}
	}
	slices.SortFunc(result, func(a, b *account.Ledger) int { return cmp.Compare(a.Name, b.Name) })
	return result, nil
}

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return fmt.Errorf("%w: account %s already stored", journal.ErrInvalidInput, a.ID)
	}
	for _, existing := range s.accounts {
		if existing.LedgerID == a.LedgerID && existing.Name == a.Name {
			return &journal.DuplicateNameError{Kind: "account", Name: a.Name, Scope: a.LedgerID.String()}
		}
	}
	cp := *a
	s.accounts[a.ID.String()] = &cp
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, journal.ErrAccountNotFound
}

func (s *Store) GetAccountByName(_ context.Context, ledgerID id.LedgerID, name string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.LedgerID == ledgerID && a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, journal.ErrAccountNotFound
}

func (s *Store) ListChildAccounts(_ context.Context, parentID id.AccountID) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAccounts(func(a *account.Account) bool { return a.ParentID == parentID }), nil
}

func (s *Store) ListAccounts(_ context.Context, ledgerID id.LedgerID) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAccounts(func(a *account.Account) bool { return a.LedgerID == ledgerID }), nil
}

func (s *Store) collectAccounts(match func(*account.Account) bool) []*account.Account {
	result := make([]*account.Account, 0)
	for _, a := range s.accounts {
		if match(a) {
			cp := *a
			result = append(result, &cp)
		}
	}
	slices.SortFunc(result, func(a, b *account.Account) int { return cmp.Compare(a.Name, b.Name) })
	return result
}

// ──────────────────────────────────────────────────
// Postings
// ──────────────────────────────────────────────────

func (s *Store) AppendPosting(_ context.Context, p *posting.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAppend(p, ""); err != nil {
		return err
	}
	if err := s.checkOpen(p); err != nil {
		return err
	}
	s.insertPosting(p)
	return nil
}

func (s *Store) DiscardAndAppend(_ context.Context, d *posting.Discard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.postings[d.PostingID.String()]
	if !ok || !old.IsActive() {
		return journal.ErrPostingNotFound
	}
	// The discarded posting's opr id is released by the same unit of work.
	if err := s.checkAppend(d.Replacement, old.ID.String()); err != nil {
		return err
	}
	if err := s.checkOpen(old); err != nil {
		return err
	}
	if err := s.checkOpen(d.Replacement); err != nil {
		return err
	}

	at := d.DiscardedTime
	old.DiscardedID = d.Replacement.ID
	old.DiscardedTime = &at
	for _, l := range old.Lines {
		lt := at
		l.DiscardedTime = &lt
	}
	s.insertPosting(d.Replacement)
	for _, t := range d.Traces {
		cp := *t
		s.traces[t.TargetPostingID.String()] = append(s.traces[t.TargetPostingID.String()], &cp)
	}
	return nil
}

// checkAppend enforces the chain head compare-and-swap and the single
// active posting per operation id. releasing names a posting about to be
// discarded whose opr id does not count as active.
func (s *Store) checkAppend(p *posting.Posting, releasing string) error {
	if _, exists := s.postings[p.ID.String()]; exists {
		return fmt.Errorf("%w: posting %s already stored", journal.ErrInvalidInput, p.ID)
	}

	chain := s.chains[p.LedgerID.String()]
	var head string
	if len(chain) > 0 {
		head = chain[len(chain)-1]
	}
	if p.AntecedentID.String() != head {
		return journal.ErrChainConflict
	}

	for _, pid := range chain {
		existing := s.postings[pid]
		if existing.OprID == p.OprID && existing.IsActive() && pid != releasing {
			return &journal.DuplicateOperationError{LedgerID: p.LedgerID, OprID: p.OprID, PostingID: existing.ID}
		}
	}
	return nil
}

// checkOpen rejects a posting whose value time is covered by a CLOSED
// statement of its ledger or of one of its line accounts.
func (s *Store) checkOpen(p *posting.Posting) error {
	owners := map[string]struct{}{p.LedgerID.String(): {}}
	for _, l := range p.Lines {
		owners[l.AccountID.String()] = struct{}{}
	}
	for _, st := range s.statements {
		if _, ok := owners[st.Owner.ID.String()]; !ok || !st.IsClosed() {
			continue
		}
		if !p.ValueTime.After(st.ValueTime) {
			return fmt.Errorf("%w: %s closed through %s by statement %s",
				journal.ErrPeriodClosed, st.Owner, st.ValueTime.Format(time.RFC3339), st.ID)
		}
	}
	return nil
}

func (s *Store) insertPosting(p *posting.Posting) {
	cp := clonePosting(p)
	s.postings[cp.ID.String()] = cp
	s.chains[cp.LedgerID.String()] = append(s.chains[cp.LedgerID.String()], cp.ID.String())
	for _, l := range cp.Lines {
		s.lines[l.ID.String()] = l
	}
}

func (s *Store) GetPosting(_ context.Context, postingID id.PostingID) (*posting.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.postings[postingID.String()]; ok {
		return clonePosting(p), nil
	}
	return nil, journal.ErrPostingNotFound
}

func (s *Store) GetPostingByHash(_ context.Context, ledgerID id.LedgerID, hash string) (*posting.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pid := range s.chains[ledgerID.String()] {
		if p := s.postings[pid]; p.Hash == hash {
			return clonePosting(p), nil
		}
	}
	return nil, journal.ErrPostingNotFound
}

func (s *Store) GetChainHead(_ context.Context, ledgerID id.LedgerID) (*posting.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[ledgerID.String()]
	if len(chain) == 0 {
		return nil, journal.ErrPostingNotFound
	}
	return clonePosting(s.postings[chain[len(chain)-1]]), nil
}

func (s *Store) GetActivePostingByOprID(_ context.Context, ledgerID id.LedgerID, oprID string) (*posting.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pid := range s.chains[ledgerID.String()] {
		if p := s.postings[pid]; p.OprID == oprID && p.IsActive() {
			return clonePosting(p), nil
		}
	}
	return nil, journal.ErrPostingNotFound
}

func (s *Store) ListPostingsByOprID(_ context.Context, ledgerID id.LedgerID, oprID string) ([]*posting.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*posting.Posting, 0)
	for _, pid := range s.chains[ledgerID.String()] {
		if p := s.postings[pid]; p.OprID == oprID {
			result = append(result, clonePosting(p))
		}
	}
	return result, nil
}

func (s *Store) ListChain(_ context.Context, ledgerID id.LedgerID, q posting.ChainQuery) ([]*posting.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*posting.Posting, 0)
	for _, pid := range s.chains[ledgerID.String()] {
		p := s.postings[pid]
		if !q.After.IsZero() && !p.RecordTime.After(q.After) {
			continue
		}
		result = append(result, clonePosting(p))
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListLines(_ context.Context, q posting.LineQuery) ([]*posting.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*posting.Line, 0)
	for _, l := range s.lines {
		if matchLine(l, q) {
			result = append(result, cloneLine(l))
		}
	}
	slices.SortFunc(result, func(a, b *posting.Line) int {
		c := a.RecordTime.Compare(b.RecordTime)
		if c == 0 {
			c = cmp.Compare(a.ID.String(), b.ID.String())
		}
		if q.Order == posting.OrderRecordDesc {
			return -c
		}
		return c
	})
	return page(result, q.Limit, q.Offset), nil
}

func matchLine(l *posting.Line, q posting.LineQuery) bool {
	switch {
	case !q.AccountID.IsNil() && l.AccountID != q.AccountID:
		return false
	case !q.LedgerID.IsNil() && l.LedgerID != q.LedgerID:
		return false
	case !q.BaseLineID.IsNil() && l.BaseLine != q.BaseLineID:
		return false
	case !q.ValueAfter.IsZero() && !l.ValueTime.After(q.ValueAfter):
		return false
	case !q.ValueAtOrBefore.IsZero() && l.ValueTime.After(q.ValueAtOrBefore):
		return false
	case !q.RecordedAtOrBefore.IsZero() && l.RecordTime.After(q.RecordedAtOrBefore):
		return false
	case !q.IncludeDiscarded && !l.IsActive():
		return false
	default:
		return true
	}
}

func (s *Store) GetLine(_ context.Context, accountID id.AccountID, lineID id.LineID) (*posting.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.lines[lineID.String()]; ok && l.AccountID == accountID {
		return cloneLine(l), nil
	}
	return nil, fmt.Errorf("%w: line %s", journal.ErrNotFound, lineID)
}

func (s *Store) ListTraces(_ context.Context, postingID id.PostingID) ([]*posting.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.traces[postingID.String()]
	result := make([]*posting.Trace, 0, len(stored))
	for _, t := range stored {
		cp := *t
		result = append(result, &cp)
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Statements
// ──────────────────────────────────────────────────

func (s *Store) CreateStatement(_ context.Context, st *statement.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.statements[st.ID.String()]; exists {
		return fmt.Errorf("%w: statement %s already stored", journal.ErrInvalidInput, st.ID)
	}
	for _, existing := range s.statements {
		if existing.Owner == st.Owner && existing.Seq == st.Seq {
			return &journal.OutOfOrderCheckpointError{
				Owner:  st.Owner.String(),
				Reason: fmt.Sprintf("sequence %d already taken", st.Seq),
			}
		}
	}
	s.statements[st.ID.String()] = cloneStatement(st)
	return nil
}

func (s *Store) UpdateStatement(_ context.Context, st *statement.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateStatement(st)
}

func (s *Store) CloseStatement(_ context.Context, st *statement.Statement, ledgerID id.LedgerID, headID id.PostingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[ledgerID.String()]
	var head string
	if len(chain) > 0 {
		head = chain[len(chain)-1]
	}
	if head != headID.String() {
		return journal.ErrChainConflict
	}
	return s.updateStatement(st)
}

func (s *Store) updateStatement(st *statement.Statement) error {
	existing, ok := s.statements[st.ID.String()]
	if !ok {
		return journal.ErrStatementNotFound
	}
	if existing.IsClosed() {
		return journal.ErrStatementClosed
	}
	s.statements[st.ID.String()] = cloneStatement(st)
	return nil
}

func (s *Store) GetStatement(_ context.Context, statementID id.StatementID) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.statements[statementID.String()]; ok {
		return cloneStatement(st), nil
	}
	return nil, journal.ErrStatementNotFound
}

func (s *Store) LatestStatement(_ context.Context, owner statement.Owner, status statement.Status) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pickStatement(owner, status, nil, func(a, b *statement.Statement) bool {
		return a.Seq > b.Seq
	})
}

func (s *Store) LatestStatementBefore(_ context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pickStatement(owner, status,
		func(st *statement.Statement) bool { return st.ValueTime.Before(ref) },
		func(a, b *statement.Statement) bool {
			if c := a.ValueTime.Compare(b.ValueTime); c != 0 {
				return c > 0
			}
			return a.Seq > b.Seq
		})
}

func (s *Store) EarliestStatementAtOrAfter(_ context.Context, owner statement.Owner, status statement.Status, ref time.Time) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pickStatement(owner, status,
		func(st *statement.Statement) bool { return !st.ValueTime.Before(ref) },
		func(a, b *statement.Statement) bool {
			if c := a.ValueTime.Compare(b.ValueTime); c != 0 {
				return c < 0
			}
			return a.Seq < b.Seq
		})
}

// pickStatement returns the owner's statement matching status and filter
// that ranks first under better.
func (s *Store) pickStatement(
	owner statement.Owner,
	status statement.Status,
	filter func(*statement.Statement) bool,
	better func(a, b *statement.Statement) bool,
) (*statement.Statement, error) {
	var best *statement.Statement
	for _, st := range s.statements {
		if st.Owner != owner || (status != "" && st.Status != status) {
			continue
		}
		if filter != nil && !filter(st) {
			continue
		}
		if best == nil || better(st, best) {
			best = st
		}
	}
	if best == nil {
		return nil, journal.ErrStatementNotFound
	}
	return cloneStatement(best), nil
}

func (s *Store) PreviousStatement(_ context.Context, st *statement.Statement) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.statements {
		if existing.Owner == st.Owner && existing.Seq == st.Seq-1 {
			return cloneStatement(existing), nil
		}
	}
	return nil, journal.ErrStatementNotFound
}

func (s *Store) ListStatements(_ context.Context, owner statement.Owner, opts statement.ListOpts) ([]*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*statement.Statement, 0)
	for _, st := range s.statements {
		if st.Owner != owner {
			continue
		}
		if opts.Status != "" && st.Status != opts.Status {
			continue
		}
		if !opts.Start.IsZero() && st.ValueTime.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && st.ValueTime.After(opts.End) {
			continue
		}
		result = append(result, cloneStatement(st))
	}
	slices.SortFunc(result, func(a, b *statement.Statement) int { return cmp.Compare(a.Seq, b.Seq) })
	return page(result, opts.Limit, opts.Offset), nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func page[T any](items []T, limit, offset int) []T {
	start := min(offset, len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

func clonePosting(p *posting.Posting) *posting.Posting {
	cp := *p
	if p.DiscardedTime != nil {
		t := *p.DiscardedTime
		cp.DiscardedTime = &t
	}
	cp.Lines = make([]*posting.Line, len(p.Lines))
	for i, l := range p.Lines {
		cp.Lines[i] = cloneLine(l)
	}
	return &cp
}

func cloneLine(l *posting.Line) *posting.Line {
	cp := *l
	if l.DiscardedTime != nil {
		t := *l.DiscardedTime
		cp.DiscardedTime = &t
	}
	return &cp
}

func cloneStatement(st *statement.Statement) *statement.Statement {
	cp := *st
	if st.ClosedAt != nil {
		t := *st.ClosedAt
		cp.ClosedAt = &t
	}
	return &cp
}
