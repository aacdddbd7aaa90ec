package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJSteenberg/xfinance/internal/parser"
)

// Accepted calendar-date layouts. Two-digit years are deliberately absent:
// 01/02/03 cannot be read unambiguously across bank exports.
var dateLayouts = []string{"02/01/2006", "2006-01-02"}

// Normalize converts raw records into canonical transactions and computes
// the statement summary. It fails atomically on the first invalid record:
// an invalid statement must not pollute the ledger with a partial batch.
func Normalize(records []parser.RawRecord) ([]Transaction, StatementSummary, error) {
	if len(records) == 0 {
		return nil, StatementSummary{}, newNormalizationError(MissingAmount, 0, "statement contains no records")
	}

	txs := make([]Transaction, 0, len(records))
	var summary StatementSummary

	for i, rec := range records {
		postingDate, ok := parseDate(rec.PostingDate)
		if !ok {
			return nil, StatementSummary{}, newNormalizationError(AmbiguousDate, i,
				"unparseable posting date %q", rec.PostingDate)
		}
		transactionDate, ok := parseDate(rec.TransactionDate)
		if !ok {
			return nil, StatementSummary{}, newNormalizationError(AmbiguousDate, i,
				"unparseable transaction date %q", rec.TransactionDate)
		}

		description := strings.TrimSpace(rec.Description)
		if description == "" {
			return nil, StatementSummary{}, newNormalizationError(EmptyDescription, i,
				"record has no description")
		}

		moneyIn, ok := parseAmount(rec.MoneyIn)
		if !ok {
			return nil, StatementSummary{}, newNormalizationError(AmbiguousAmount, i,
				"unparseable money in %q", rec.MoneyIn)
		}
		moneyOut, ok := parseAmount(rec.MoneyOut)
		if !ok {
			return nil, StatementSummary{}, newNormalizationError(AmbiguousAmount, i,
				"unparseable money out %q", rec.MoneyOut)
		}
		balance, ok := parseAmount(rec.Balance)
		if !ok || strings.TrimSpace(rec.Balance) == "" {
			return nil, StatementSummary{}, newNormalizationError(AmbiguousAmount, i,
				"unparseable balance %q", rec.Balance)
		}

		switch {
		case !moneyIn.IsZero() && !moneyOut.IsZero():
			return nil, StatementSummary{}, newNormalizationError(AmbiguousAmount, i,
				"record has both money in (%s) and money out (%s)", moneyIn, moneyOut)
		case moneyIn.IsZero() && moneyOut.IsZero():
			// Zero-amount markers are rejected, not silently kept.
			return nil, StatementSummary{}, newNormalizationError(MissingAmount, i,
				"record has neither money in nor money out")
		}

		tx := Transaction{
			PostingDate:     postingDate,
			TransactionDate: transactionDate,
			Description:     description,
			MoneyIn:         moneyIn.Round(2),
			MoneyOut:        moneyOut.Round(2),
			Balance:         balance.Round(2),
			Type:            rec.Type,
			Seq:             int64(i),
		}

		// Intra-statement balance continuity, in document order. Opening
		// balances differ between sources, so the first record anchors the
		// trace rather than being checked.
		if len(txs) > 0 {
			prev := txs[len(txs)-1]
			expected := prev.Balance.Add(tx.Amount())
			if !expected.Equal(tx.Balance) {
				return nil, StatementSummary{}, newNormalizationError(BalanceDiscontinuity, i,
					"balance %s does not follow from %s %s %s",
					tx.Balance.StringFixed(2), prev.Balance.StringFixed(2),
					signOf(tx.Amount()), tx.Amount().Abs().StringFixed(2))
			}
		}

		summary.TotalIncome = summary.TotalIncome.Add(tx.MoneyIn)
		summary.TotalExpenses = summary.TotalExpenses.Add(tx.MoneyOut)
		if summary.StartDate.IsZero() || tx.TransactionDate.Before(summary.StartDate) {
			summary.StartDate = tx.TransactionDate
		}
		if tx.TransactionDate.After(summary.EndDate) {
			summary.EndDate = tx.TransactionDate
		}

		txs = append(txs, tx)
	}

	// Closing balance is the last record in document order, not the latest
	// by date: statements print the trace in their own order.
	summary.ClosingBalance = txs[len(txs)-1].Balance

	return txs, summary, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseAmount reads a decimal money field. Blank means zero (absent);
// thousands separators are tolerated.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func signOf(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-"
	}
	return "+"
}
