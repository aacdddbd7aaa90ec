package ledger

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// OverlapGuard widens the existing-ledger fetch window around the declared
// period so duplicates sitting exactly on an export boundary are still seen.
const OverlapGuard = 24 * time.Hour

// ReconcileStatus reports the outcome class of a reconciliation pass.
type ReconcileStatus string

const (
	// StatusInserted: a new statement record was created with at least one
	// net-new transaction.
	StatusInserted ReconcileStatus = "inserted"
	// StatusNoNewTransactions: every transaction was already in the ledger,
	// but no single prior statement covers the declared period.
	StatusNoNewTransactions ReconcileStatus = "no_new_transactions"
	// StatusFullyDuplicate: the declared range is covered by an existing
	// statement and nothing is net-new; informational, not an error.
	StatusFullyDuplicate ReconcileStatus = "fully_duplicate_statement"
)

// Result reports the counts of a reconciliation pass. StatementID is empty
// unless Status is StatusInserted.
type Result struct {
	StatementID string
	Inserted    int
	Duplicates  int
	Status      ReconcileStatus
}

// Engine merges normalized batches into a user's ledger.
//
// Reconcile reads the existing ledger and then writes based on that read, so
// calls for the same user must be serialized by the caller (the ingest
// service holds a per-user lock). Different users are independent.
type Engine struct {
	store Store
}

// NewEngine creates a reconciliation engine over a ledger store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Reconcile merges batch into userID's ledger under the declared period.
// Batch intra-statement balance continuity is the normalizer's job and is
// assumed here. Storage failures surface as *StorageError with the ledger
// unchanged.
func (e *Engine) Reconcile(ctx context.Context, userID string, batch []Transaction, period Period, fileName, sourceFormat string) (*Result, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	from := period.Start.Add(-OverlapGuard)
	to := period.End.Add(OverlapGuard)
	existing, err := e.store.TransactionsByUserAndRange(ctx, userID, &from, &to)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[existing[i].DedupKey()] = struct{}{}
	}

	var staged []Transaction
	duplicates := 0
	for _, tx := range batch {
		if _, dup := seen[tx.DedupKey()]; dup {
			duplicates++
			continue
		}
		staged = append(staged, tx)
	}

	if len(staged) == 0 {
		// Nothing net-new: never create an empty statement record. Report
		// a full duplicate when a prior statement already covers the range.
		covering, err := e.store.StatementCovering(ctx, userID, period.Start, period.End)
		if err != nil {
			return nil, &StorageError{Err: err}
		}
		status := StatusNoNewTransactions
		if covering != nil {
			status = StatusFullyDuplicate
		}
		log.Printf("Reconciliation for user %s: 0 inserted, %d duplicates (%s)", userID, duplicates, status)
		return &Result{Duplicates: duplicates, Status: status}, nil
	}

	stmt, err := NewStatement(uuid.NewString(), userID, fileName, sourceFormat, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	for i := range staged {
		staged[i].ID = uuid.NewString()
		staged[i].StatementID = stmt.ID
	}

	// Last cancellation point: once the atomic write starts it runs to
	// completion or fails entirely.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.store.StoreStatement(ctx, stmt, staged); err != nil {
		return nil, &StorageError{Err: err}
	}

	log.Printf("Reconciliation for user %s: %d inserted, %d duplicates (statement %s)",
		userID, len(staged), duplicates, stmt.ID)

	return &Result{
		StatementID: stmt.ID,
		Inserted:    len(staged),
		Duplicates:  duplicates,
		Status:      StatusInserted,
	}, nil
}
