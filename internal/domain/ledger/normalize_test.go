package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJSteenberg/xfinance/internal/parser"
)

func rawRecords() []parser.RawRecord {
	return []parser.RawRecord{
		{
			PostingDate:     "01/02/2025",
			TransactionDate: "01/02/2025",
			Description:     "Salary Payment",
			MoneyIn:         "5000.00",
			Balance:         "12000.00",
			Type:            "CREDIT",
			Line:            0,
		},
		{
			PostingDate:     "03/02/2025",
			TransactionDate: "02/02/2025",
			Description:     "Rent",
			MoneyOut:        "1200.00",
			Balance:         "10800.00",
			Type:            "DEBIT",
			Line:            1,
		},
	}
}

func TestNormalize(t *testing.T) {
	txs, summary, err := Normalize(rawRecords())
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, date("2025-02-01"), txs[0].PostingDate)
	assert.Equal(t, "Salary Payment", txs[0].Description)
	assert.True(t, txs[0].MoneyIn.Equal(dec("5000.00")))
	assert.True(t, txs[0].MoneyOut.IsZero())
	assert.Equal(t, int64(0), txs[0].Seq)

	// Posting and transaction dates are independent fields.
	assert.Equal(t, date("2025-02-03"), txs[1].PostingDate)
	assert.Equal(t, date("2025-02-02"), txs[1].TransactionDate)
	assert.Equal(t, int64(1), txs[1].Seq)

	assert.True(t, summary.TotalIncome.Equal(dec("5000.00")))
	assert.True(t, summary.TotalExpenses.Equal(dec("1200.00")))
	assert.True(t, summary.ClosingBalance.Equal(dec("10800.00")))
	assert.Equal(t, date("2025-02-01"), summary.StartDate)
	assert.Equal(t, date("2025-02-02"), summary.EndDate)
}

func TestNormalize_ISODates(t *testing.T) {
	records := rawRecords()
	records[0].PostingDate = "2025-02-01"
	records[0].TransactionDate = "2025-02-01"

	txs, _, err := Normalize(records)
	require.NoError(t, err)
	assert.Equal(t, date("2025-02-01"), txs[0].PostingDate)
}

func TestNormalize_ThousandsSeparators(t *testing.T) {
	records := rawRecords()
	records[0].MoneyIn = "5,000.00"
	records[0].Balance = "12 000.00"

	txs, _, err := Normalize(records)
	require.NoError(t, err)
	assert.True(t, txs[0].MoneyIn.Equal(dec("5000.00")))
	assert.True(t, txs[0].Balance.Equal(dec("12000.00")))
}

func TestNormalize_EmptyBatch(t *testing.T) {
	_, _, err := Normalize(nil)
	assertNormalizationError(t, err, MissingAmount, 0)
}

func TestNormalize_UnparseableDate(t *testing.T) {
	records := rawRecords()
	records[1].TransactionDate = "02/13/2025" // month 13: not DD/MM/YYYY

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, AmbiguousDate, 1)
}

func TestNormalize_TwoDigitYearRejected(t *testing.T) {
	records := rawRecords()
	records[0].PostingDate = "01/02/25"

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, AmbiguousDate, 0)
}

func TestNormalize_EmptyDescription(t *testing.T) {
	records := rawRecords()
	records[0].Description = "   "

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, EmptyDescription, 0)
}

func TestNormalize_BothAmounts(t *testing.T) {
	records := rawRecords()
	records[0].MoneyOut = "10.00"

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, AmbiguousAmount, 0)
}

func TestNormalize_NeitherAmount(t *testing.T) {
	records := rawRecords()
	records[0].MoneyIn = ""

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, MissingAmount, 0)
}

func TestNormalize_MissingBalance(t *testing.T) {
	records := rawRecords()
	records[1].Balance = ""

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, AmbiguousAmount, 1)
}

func TestNormalize_BalanceDiscontinuity(t *testing.T) {
	records := rawRecords()
	records[1].Balance = "10000.00" // expected 12000 - 1200 = 10800

	_, _, err := Normalize(records)
	assertNormalizationError(t, err, BalanceDiscontinuity, 1)
}

func TestNormalize_FirstRecordAnchorsBalance(t *testing.T) {
	// The first record's balance is taken as the statement's opening trace;
	// only subsequent records are checked against it.
	records := rawRecords()[:1]
	records[0].Balance = "999999.99"

	_, summary, err := Normalize(records)
	require.NoError(t, err)
	assert.True(t, summary.ClosingBalance.Equal(dec("999999.99")))
}

func assertNormalizationError(t *testing.T, err error, kind NormalizationErrorKind, index int) {
	t.Helper()
	require.Error(t, err)

	var normErr *NormalizationError
	require.True(t, errors.As(err, &normErr), "expected *NormalizationError, got %T", err)
	assert.Equal(t, kind, normErr.Kind)
	assert.Equal(t, index, normErr.Index)
}
