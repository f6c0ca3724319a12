package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Journal store (SQLite).
// Times are stored as unix milliseconds.
var Migrations = migrate.NewGroup("journal")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_journal_hierarchy",
			Version: "20240301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS journal_charts (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    created_at   INTEGER NOT NULL DEFAULT 0,
    user_details TEXT NOT NULL DEFAULT '',
    short_desc   TEXT NOT NULL DEFAULT '',
    long_desc    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_charts_name ON journal_charts (name);

CREATE TABLE IF NOT EXISTS journal_ledgers (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    chart_id     TEXT NOT NULL REFERENCES journal_charts (id),
    created_at   INTEGER NOT NULL DEFAULT 0,
    user_details TEXT NOT NULL DEFAULT '',
    short_desc   TEXT NOT NULL DEFAULT '',
    long_desc    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_ledgers_name ON journal_ledgers (name);
CREATE INDEX IF NOT EXISTS idx_journal_ledgers_chart ON journal_ledgers (chart_id);

CREATE TABLE IF NOT EXISTS journal_accounts (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    ledger_id    TEXT NOT NULL REFERENCES journal_ledgers (id),
    chart_id     TEXT NOT NULL,
    parent_id    TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL,
    balance_side TEXT NOT NULL,
    created_at   INTEGER NOT NULL DEFAULT 0,
    user_details TEXT NOT NULL DEFAULT '',
    short_desc   TEXT NOT NULL DEFAULT '',
    long_desc    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_accounts_ledger_name ON journal_accounts (ledger_id, name);
CREATE INDEX IF NOT EXISTS idx_journal_accounts_parent ON journal_accounts (parent_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS journal_accounts;
DROP TABLE IF EXISTS journal_ledgers;
DROP TABLE IF EXISTS journal_charts;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_journal_postings",
			Version: "20240301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS journal_postings (
    id              TEXT PRIMARY KEY,
    ledger_id       TEXT NOT NULL REFERENCES journal_ledgers (id),
    antecedent_id   TEXT NOT NULL DEFAULT '',
    antecedent_hash TEXT NOT NULL DEFAULT '',
    hash            TEXT NOT NULL,
    hash_alg        TEXT NOT NULL,
    opr_id          TEXT NOT NULL,
    opr_time        INTEGER NOT NULL,
    opr_type        TEXT NOT NULL DEFAULT '',
    opr_src         TEXT NOT NULL DEFAULT '',
    opr_details     TEXT NOT NULL DEFAULT '',
    record_user     TEXT NOT NULL DEFAULT '',
    record_time     INTEGER NOT NULL,
    value_time      INTEGER NOT NULL,
    type            TEXT NOT NULL,
    status          TEXT NOT NULL,
    discarded_id    TEXT NOT NULL DEFAULT '',
    discarded_time  INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_postings_chain ON journal_postings (ledger_id, antecedent_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_postings_active_opr ON journal_postings (ledger_id, opr_id) WHERE discarded_id = '';
CREATE INDEX IF NOT EXISTS idx_journal_postings_record ON journal_postings (ledger_id, record_time);
CREATE INDEX IF NOT EXISTS idx_journal_postings_hash ON journal_postings (ledger_id, hash);

CREATE TABLE IF NOT EXISTS journal_lines (
    id             TEXT PRIMARY KEY,
    posting_id     TEXT NOT NULL REFERENCES journal_postings (id),
    ledger_id      TEXT NOT NULL,
    account_id     TEXT NOT NULL REFERENCES journal_accounts (id),
    position       INTEGER NOT NULL,
    debit          TEXT NOT NULL DEFAULT '0',
    credit         TEXT NOT NULL DEFAULT '0',
    value_time     INTEGER NOT NULL,
    record_time    INTEGER NOT NULL,
    opr_id         TEXT NOT NULL,
    opr_src        TEXT NOT NULL DEFAULT '',
    type           TEXT NOT NULL,
    status         TEXT NOT NULL,
    base_line      TEXT NOT NULL DEFAULT '',
    src_account    TEXT NOT NULL DEFAULT '',
    sub_opr_src_id TEXT NOT NULL DEFAULT '',
    details        TEXT NOT NULL DEFAULT '',
    hash           TEXT NOT NULL,
    discarded_time INTEGER
);

CREATE INDEX IF NOT EXISTS idx_journal_lines_posting ON journal_lines (posting_id, position);
CREATE INDEX IF NOT EXISTS idx_journal_lines_account_value ON journal_lines (account_id, value_time);
CREATE INDEX IF NOT EXISTS idx_journal_lines_ledger_value ON journal_lines (ledger_id, value_time);
CREATE INDEX IF NOT EXISTS idx_journal_lines_base ON journal_lines (base_line) WHERE base_line <> '';

CREATE TABLE IF NOT EXISTS journal_traces (
    id                  TEXT PRIMARY KEY,
    target_posting_id   TEXT NOT NULL REFERENCES journal_postings (id),
    source_posting_id   TEXT NOT NULL REFERENCES journal_postings (id),
    source_posting_time INTEGER NOT NULL,
    source_opr_id       TEXT NOT NULL,
    source_posting_hash TEXT NOT NULL,
    account_id          TEXT NOT NULL,
    debit               TEXT NOT NULL DEFAULT '0',
    credit              TEXT NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_journal_traces_target ON journal_traces (target_posting_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS journal_traces;
DROP TABLE IF EXISTS journal_lines;
DROP TABLE IF EXISTS journal_postings;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_journal_statements",
			Version: "20240301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS journal_statements (
    id                  TEXT PRIMARY KEY,
    owner_kind          TEXT NOT NULL,
    owner_id            TEXT NOT NULL,
    status              TEXT NOT NULL DEFAULT 'SIMULATED',
    value_time          INTEGER NOT NULL,
    seq                 INTEGER NOT NULL,
    total_debit         TEXT NOT NULL DEFAULT '0',
    total_credit        TEXT NOT NULL DEFAULT '0',
    latest_posting_id   TEXT NOT NULL DEFAULT '',
    youngest_posting_id TEXT NOT NULL DEFAULT '',
    lines               INTEGER NOT NULL DEFAULT 0,
    closed_at           INTEGER,
    created_at          INTEGER NOT NULL DEFAULT 0,
    user_details        TEXT NOT NULL DEFAULT '',
    short_desc          TEXT NOT NULL DEFAULT '',
    long_desc           TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_statements_seq ON journal_statements (owner_kind, owner_id, seq);
CREATE INDEX IF NOT EXISTS idx_journal_statements_value ON journal_statements (owner_kind, owner_id, value_time);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS journal_statements`)
				return err
			},
		},
	)
}
