package http

import (
	"net/http"
	"time"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/parser"
)

// transactionJSON is the wire shape of a ledger entry. Dates are ISO
// calendar dates; amounts are decimal strings with two fractional digits.
type transactionJSON struct {
	ID              string  `json:"id,omitempty"`
	StatementID     string  `json:"statementId,omitempty"`
	PostingDate     string  `json:"postingDate"`
	TransactionDate string  `json:"transactionDate"`
	Description     string  `json:"description"`
	MoneyIn         *string `json:"moneyIn"`
	MoneyOut        *string `json:"moneyOut"`
	Balance         string  `json:"balance"`
	Category        *string `json:"category"`
	Type            string  `json:"type"`
}

type summaryJSON struct {
	TotalIncome    string `json:"totalIncome"`
	TotalExpenses  string `json:"totalExpenses"`
	ClosingBalance string `json:"closingBalance"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

type statementJSON struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	FileName     string `json:"fileName"`
	SourceFormat string `json:"sourceFormat"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	UploadedAt   string `json:"uploadedAt"`
}

func toTransactionJSON(tx ledger.Transaction) transactionJSON {
	out := transactionJSON{
		ID:              tx.ID,
		StatementID:     tx.StatementID,
		PostingDate:     tx.PostingDate.Format(ledger.DateFormat),
		TransactionDate: tx.TransactionDate.Format(ledger.DateFormat),
		Description:     tx.Description,
		Balance:         tx.Balance.StringFixed(2),
		Category:        tx.Category,
		Type:            tx.Type,
	}
	if !tx.MoneyIn.IsZero() {
		v := tx.MoneyIn.StringFixed(2)
		out.MoneyIn = &v
	}
	if !tx.MoneyOut.IsZero() {
		v := tx.MoneyOut.StringFixed(2)
		out.MoneyOut = &v
	}
	return out
}

func toTransactionListJSON(txs []ledger.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

func toSummaryJSON(s ledger.StatementSummary) summaryJSON {
	return summaryJSON{
		TotalIncome:    s.TotalIncome.StringFixed(2),
		TotalExpenses:  s.TotalExpenses.StringFixed(2),
		ClosingBalance: s.ClosingBalance.StringFixed(2),
		StartDate:      s.StartDate.Format(ledger.DateFormat),
		EndDate:        s.EndDate.Format(ledger.DateFormat),
	}
}

func toStatementJSON(s ledger.Statement) statementJSON {
	return statementJSON{
		ID:           s.ID,
		UserID:       s.UserID,
		FileName:     s.FileName,
		SourceFormat: s.SourceFormat,
		StartDate:    s.StartDate.Format(ledger.DateFormat),
		EndDate:      s.EndDate.Format(ledger.DateFormat),
		UploadedAt:   s.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// toRawRecords turns submitted transactions back into raw records so the
// store path re-runs full normalization. Client payloads are not trusted to
// uphold ledger invariants just because the process step once did.
func toRawRecords(txs []transactionJSON) []parser.RawRecord {
	records := make([]parser.RawRecord, 0, len(txs))
	for i, tx := range txs {
		rec := parser.RawRecord{
			PostingDate:     tx.PostingDate,
			TransactionDate: tx.TransactionDate,
			Description:     tx.Description,
			Balance:         tx.Balance,
			Type:            tx.Type,
			Line:            i,
		}
		if tx.MoneyIn != nil {
			rec.MoneyIn = *tx.MoneyIn
		}
		if tx.MoneyOut != nil {
			rec.MoneyOut = *tx.MoneyOut
		}
		records = append(records, rec)
	}
	return records
}

// parseDateParam reads an optional ISO date query parameter.
func parseDateParam(r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(ledger.DateFormat, raw)
	if err != nil {
		return nil, false
	}
	t = t.UTC()
	return &t, true
}
