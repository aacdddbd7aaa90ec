package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJSteenberg/xfinance/internal/domain/category"
	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/parser"
)

// slowStore is a minimal ledger.Store that tracks write concurrency.
type slowStore struct {
	writeDelay time.Duration

	mu         sync.Mutex
	statements []ledger.Statement
	txs        []ledger.Transaction

	active    atomic.Int32
	maxActive atomic.Int32
}

func (s *slowStore) StoreStatement(ctx context.Context, stmt *ledger.Statement, txs []ledger.Transaction) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		max := s.maxActive.Load()
		if n <= max || s.maxActive.CompareAndSwap(max, n) {
			break
		}
	}

	if s.writeDelay > 0 {
		time.Sleep(s.writeDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, *stmt)
	s.txs = append(s.txs, txs...)
	return nil
}

func (s *slowStore) TransactionsByUserAndRange(ctx context.Context, userID string, from, to *time.Time) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.txs...), nil
}

func (s *slowStore) StatementsByUser(ctx context.Context, userID string) ([]ledger.Statement, error) {
	return nil, nil
}

func (s *slowStore) StatementByID(ctx context.Context, id string) (*ledger.Statement, error) {
	return nil, nil
}

func (s *slowStore) TransactionsByStatement(ctx context.Context, statementID string) ([]ledger.Transaction, error) {
	return nil, nil
}

func (s *slowStore) StatementCovering(ctx context.Context, userID string, start, end time.Time) (*ledger.Statement, error) {
	return nil, nil
}

func newTestService(store ledger.Store) *Service {
	parsers := parser.NewService(parser.DefaultRegistry(), time.Second)
	return NewService(parsers, category.NewRuleBased(category.DefaultRules()), ledger.NewEngine(store))
}

const testCSV = `Posting Date,Transaction Date,Description,Money In,Money Out,Balance
01/02/2025,01/02/2025,Salary Payment,5000.00,,12000.00
03/02/2025,02/02/2025,Rent,,1200.00,10800.00
`

func TestService_ProcessStatement(t *testing.T) {
	svc := newTestService(&slowStore{})

	result, err := svc.ProcessStatement(context.Background(), []byte(testCSV), "feb.csv")
	require.NoError(t, err)

	assert.Equal(t, parser.FormatCSV, result.Format)
	require.Len(t, result.Transactions, 2)

	// Categories are filled in during processing.
	require.NotNil(t, result.Transactions[0].Category)
	assert.Equal(t, "Income", *result.Transactions[0].Category)
	require.NotNil(t, result.Transactions[1].Category)
	assert.Equal(t, "Housing", *result.Transactions[1].Category)

	assert.True(t, result.Summary.TotalIncome.Equal(decimal.RequireFromString("5000.00")))

	// CSV carries no declared period; the observed range stands in.
	assert.Equal(t, result.Summary.StartDate, result.DeclaredPeriod.Start)
	assert.Equal(t, result.Summary.EndDate, result.DeclaredPeriod.End)
}

func TestService_ProcessStatement_UnsupportedExtension(t *testing.T) {
	svc := newTestService(&slowStore{})

	_, err := svc.ProcessStatement(context.Background(), []byte(testCSV), "feb.xlsx")
	require.Error(t, err)

	var parseErr *parser.Error
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, parser.UnrecognizedLayout, parseErr.Kind)
}

func TestService_ProcessStatement_NormalizationFailure(t *testing.T) {
	svc := newTestService(&slowStore{})
	badCSV := `Posting Date,Transaction Date,Description,Money In,Money Out,Balance
01/02/2025,01/02/2025,Salary,5000.00,,12000.00
02/02/2025,02/02/2025,Rent,,1200.00,9999.00
`

	_, err := svc.ProcessStatement(context.Background(), []byte(badCSV), "feb.csv")
	require.Error(t, err)

	var normErr *ledger.NormalizationError
	require.True(t, errors.As(err, &normErr))
	assert.Equal(t, ledger.BalanceDiscontinuity, normErr.Kind)
	assert.Equal(t, 1, normErr.Index)
}

func TestService_StoreStatement(t *testing.T) {
	store := &slowStore{}
	svc := newTestService(store)

	result, err := svc.ProcessStatement(context.Background(), []byte(testCSV), "feb.csv")
	require.NoError(t, err)

	stored, err := svc.StoreStatement(context.Background(), "user-1", "feb.csv", result.Format,
		result.DeclaredPeriod, result.Transactions)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusInserted, stored.Status)
	assert.Equal(t, 2, stored.Inserted)
	assert.Len(t, store.txs, 2)
}

func TestService_StoreStatement_Cancelled(t *testing.T) {
	svc := newTestService(&slowStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.StoreStatement(ctx, "user-1", "feb.csv", "csv",
		ledger.Period{Start: time.Now(), End: time.Now()}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_StoreStatement_SerializesPerUser(t *testing.T) {
	store := &slowStore{writeDelay: 30 * time.Millisecond}
	svc := newTestService(store)

	period := ledger.Period{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	batchFor := func(day int, desc string) []ledger.Transaction {
		return []ledger.Transaction{{
			PostingDate:     time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
			TransactionDate: time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
			Description:     desc,
			MoneyOut:        decimal.RequireFromString("10.00"),
			Balance:         decimal.RequireFromString("100.00"),
			Type:            "DEBIT",
		}}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.StoreStatement(context.Background(), "user-1", "feb.csv", "csv",
				period, batchFor(i+1, "purchase "+string(rune('a'+i))))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// The per-user lock admits one write at a time.
	assert.Equal(t, int32(1), store.maxActive.Load())
	assert.Len(t, store.statements, 4)
}
