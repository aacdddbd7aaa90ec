package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the aggregated view of a user's ledger over an optional range.
// CurrentBalance is the running balance of the most recent transaction by
// transaction date (ties: posting date, then insertion order).
type Summary struct {
	TotalIncome    decimal.Decimal
	TotalExpenses  decimal.Decimal
	CurrentBalance decimal.Decimal
}

// Query answers read-only ledger questions. It takes no locks: readers may
// observe the ledger before or after an in-flight reconciliation, never a
// partially written statement (the store's atomicity guarantee).
type Query struct {
	store Store
}

// NewQuery creates a query service over a ledger store.
func NewQuery(store Store) *Query {
	return &Query{store: store}
}

// ListTransactions returns the user's ledger entries within the optional
// [from, to] range, transaction date descending, stable on insertion order.
func (q *Query) ListTransactions(ctx context.Context, userID string, from, to *time.Time) ([]Transaction, error) {
	return q.store.TransactionsByUserAndRange(ctx, userID, from, to)
}

// ListStatements returns the user's statements, most recent upload first.
func (q *Query) ListStatements(ctx context.Context, userID string) ([]Statement, error) {
	return q.store.StatementsByUser(ctx, userID)
}

// StatementByID returns one statement, or nil when absent.
func (q *Query) StatementByID(ctx context.Context, id string) (*Statement, error) {
	return q.store.StatementByID(ctx, id)
}

// StatementTransactions returns one statement's transactions in insertion
// order.
func (q *Query) StatementTransactions(ctx context.Context, statementID string) ([]Transaction, error) {
	return q.store.TransactionsByStatement(ctx, statementID)
}

// Summarize aggregates the user's ledger over the optional [from, to] range.
func (q *Query) Summarize(ctx context.Context, userID string, from, to *time.Time) (*Summary, error) {
	txs, err := q.store.TransactionsByUserAndRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	var s Summary
	var latest *Transaction
	for i := range txs {
		tx := &txs[i]
		s.TotalIncome = s.TotalIncome.Add(tx.MoneyIn)
		s.TotalExpenses = s.TotalExpenses.Add(tx.MoneyOut)
		if latest == nil || moreRecent(tx, latest) {
			latest = tx
		}
	}
	if latest != nil {
		s.CurrentBalance = latest.Balance
	}
	return &s, nil
}

// moreRecent orders by transaction date, then posting date, then insertion
// order, so the "current" balance is well-defined even on busy days.
func moreRecent(a, b *Transaction) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.After(b.TransactionDate)
	}
	if !a.PostingDate.Equal(b.PostingDate) {
		return a.PostingDate.After(b.PostingDate)
	}
	return a.Seq > b.Seq
}
