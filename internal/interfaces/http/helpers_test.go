package http

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/MJSteenberg/xfinance/internal/domain/category"
	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/ingest"
	"github.com/MJSteenberg/xfinance/internal/parser"
	"github.com/MJSteenberg/xfinance/internal/shared/middleware"
)

// fakeStore is an in-memory ledger.Store for handler tests.
type fakeStore struct {
	statements []ledger.Statement
	txs        []ledger.Transaction
	nextSeq    int64
}

func (f *fakeStore) StoreStatement(ctx context.Context, stmt *ledger.Statement, txs []ledger.Transaction) error {
	f.statements = append(f.statements, *stmt)
	for _, tx := range txs {
		f.nextSeq++
		tx.Seq = f.nextSeq
		f.txs = append(f.txs, tx)
	}
	return nil
}

func (f *fakeStore) TransactionsByUserAndRange(ctx context.Context, userID string, from, to *time.Time) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range f.txs {
		if f.ownerOf(tx.StatementID) != userID {
			continue
		}
		if from != nil && tx.TransactionDate.Before(*from) {
			continue
		}
		if to != nil && tx.TransactionDate.After(*to) {
			continue
		}
		out = append(out, tx)
	}
	// Same ordering contract as the postgres store.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.After(out[j].TransactionDate)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (f *fakeStore) StatementsByUser(ctx context.Context, userID string) ([]ledger.Statement, error) {
	var out []ledger.Statement
	for _, s := range f.statements {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) StatementByID(ctx context.Context, id string) (*ledger.Statement, error) {
	for i := range f.statements {
		if f.statements[i].ID == id {
			return &f.statements[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) TransactionsByStatement(ctx context.Context, statementID string) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range f.txs {
		if tx.StatementID == statementID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) StatementCovering(ctx context.Context, userID string, start, end time.Time) (*ledger.Statement, error) {
	for i := range f.statements {
		s := &f.statements[i]
		if s.UserID == userID && s.Covers(start, end) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ownerOf(statementID string) string {
	for _, s := range f.statements {
		if s.ID == statementID {
			return s.UserID
		}
	}
	return ""
}

func newTestIngest(store ledger.Store) *ingest.Service {
	parsers := parser.NewService(parser.DefaultRegistry(), time.Second)
	return ingest.NewService(parsers, category.NewRuleBased(category.DefaultRules()), ledger.NewEngine(store))
}

// asUser attaches a verified user id the way the identity middleware does.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
}

const testStatementCSV = `Posting Date,Transaction Date,Description,Money In,Money Out,Balance
01/02/2025,01/02/2025,Salary Payment,5000.00,,12000.00
03/02/2025,02/02/2025,Rent,,1200.00,10800.00
`

// seedLedger stores the test statement for userID and returns its id.
func seedLedger(t *testing.T, svc *ingest.Service, userID string) string {
	t.Helper()

	result, err := svc.ProcessStatement(context.Background(), []byte(testStatementCSV), "feb.csv")
	if err != nil {
		t.Fatalf("processing seed statement: %v", err)
	}
	stored, err := svc.StoreStatement(context.Background(), userID, "feb.csv", result.Format,
		result.DeclaredPeriod, result.Transactions)
	if err != nil {
		t.Fatalf("storing seed statement: %v", err)
	}
	return stored.StatementID
}
