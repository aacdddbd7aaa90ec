package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the ISO calendar-date layout used at every boundary.
const DateFormat = "2006-01-02"

// Statement is one ingested document covering a declared date range.
// Statements are created when a reconciliation pass succeeds and are never
// mutated afterwards.
type Statement struct {
	ID           string
	UserID       string
	FileName     string
	SourceFormat string
	StartDate    time.Time
	EndDate      time.Time
	UploadedAt   time.Time
}

// NewStatement builds a Statement, enforcing start ≤ end.
func NewStatement(id, userID, fileName, sourceFormat string, start, end time.Time) (*Statement, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("statement start date %s after end date %s",
			start.Format(DateFormat), end.Format(DateFormat))
	}
	return &Statement{
		ID:           id,
		UserID:       userID,
		FileName:     fileName,
		SourceFormat: sourceFormat,
		StartDate:    start,
		EndDate:      end,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

// Covers reports whether the statement's declared range contains [start, end].
func (s *Statement) Covers(start, end time.Time) bool {
	return !s.StartDate.After(start) && !s.EndDate.Before(end)
}

// Transaction is a canonical ledger entry. Exactly one of MoneyIn and
// MoneyOut is non-zero. Transactions are immutable once accepted into the
// ledger; corrections come in as a new statement, never as an edit.
type Transaction struct {
	ID          string
	StatementID string

	PostingDate     time.Time
	TransactionDate time.Time
	Description     string
	MoneyIn         decimal.Decimal
	MoneyOut        decimal.Decimal
	Balance         decimal.Decimal
	Category        *string
	Type            string

	// Seq is the insertion order within the ledger, assigned by the store.
	// Query ordering uses it to break transaction-date ties stably.
	Seq int64
}

// Amount is the signed effect of the transaction on the balance.
func (t *Transaction) Amount() decimal.Decimal {
	return t.MoneyIn.Sub(t.MoneyOut)
}

// DedupKey renders the tuple that identifies a real-world event: both dates,
// the normalized description, both amounts and the running balance. Two
// records sharing this key are the same transaction seen through two
// overlapping exports.
func (t *Transaction) DedupKey() string {
	return strings.Join([]string{
		t.PostingDate.Format(DateFormat),
		t.TransactionDate.Format(DateFormat),
		NormalizeDescription(t.Description),
		t.MoneyIn.StringFixed(2),
		t.MoneyOut.StringFixed(2),
		t.Balance.StringFixed(2),
	}, "|")
}

// NormalizeDescription lowercases and collapses whitespace so that
// "Salary  Payment" and "salary payment" dedupe together.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// StatementSummary aggregates a normalized batch in document order.
type StatementSummary struct {
	TotalIncome    decimal.Decimal
	TotalExpenses  decimal.Decimal
	ClosingBalance decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
}

// Period is a declared statement date range, inclusive on both ends.
type Period struct {
	Start time.Time
	End   time.Time
}

// Validate enforces start ≤ end.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("period start %s after end %s",
			p.Start.Format(DateFormat), p.End.Format(DateFormat))
	}
	return nil
}
