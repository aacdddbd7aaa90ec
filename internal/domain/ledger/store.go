package ledger

import (
	"context"
	"time"
)

// Store is the durable ledger behind the engine. Implementations must make
// StoreStatement all-or-nothing: a failed write leaves no partial statement
// visible to any reader.
type Store interface {
	// StoreStatement atomically persists a statement and its transactions.
	StoreStatement(ctx context.Context, stmt *Statement, txs []Transaction) error

	// TransactionsByUserAndRange returns ledger entries whose transaction
	// date falls within [from, to] (inclusive; nil bound = unbounded),
	// ordered by transaction date descending with ties broken by insertion
	// order.
	TransactionsByUserAndRange(ctx context.Context, userID string, from, to *time.Time) ([]Transaction, error)

	// StatementsByUser returns a user's statements, most recent upload first.
	StatementsByUser(ctx context.Context, userID string) ([]Statement, error)

	// StatementByID returns a statement or nil when absent.
	StatementByID(ctx context.Context, id string) (*Statement, error)

	// TransactionsByStatement returns a statement's transactions in
	// insertion order.
	TransactionsByStatement(ctx context.Context, statementID string) ([]Transaction, error)

	// StatementCovering returns a statement of the user whose declared range
	// contains [start, end], or nil when none does.
	StatementCovering(ctx context.Context, userID string, start, end time.Time) (*Statement, error)
}
