package audithook

// Action constants for audit events.
const (
	// Hierarchy actions
	ActionChartCreated   = "chart.created"
	ActionLedgerCreated  = "ledger.created"
	ActionAccountCreated = "account.created"

	// Posting actions
	ActionPostingAppended  = "posting.appended"
	ActionPostingDiscarded = "posting.discarded"

	// Statement actions
	ActionStatementCreated = "statement.created"
	ActionStatementClosed  = "statement.closed"

	// Chain actions
	ActionChainVerified = "chain.verified"
	ActionChainBroken   = "chain.broken"
)

// Resource constants for audit events.
const (
	ResourceChart     = "chart"
	ResourceLedger    = "ledger"
	ResourceAccount   = "account"
	ResourcePosting   = "posting"
	ResourceStatement = "statement"
)

// Category constants for audit events.
const (
	CategoryHierarchy = "hierarchy"
	CategoryJournal   = "journal"
	CategoryPeriod    = "period"
	CategoryIntegrity = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
