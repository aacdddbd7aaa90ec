package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
)

// LedgerRepository implements ledger.Store on PostgreSQL.
type LedgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const transactionColumns = `t.id, t.statement_id, t.seq, t.posting_date, t.transaction_date,
       t.description, t.money_in, t.money_out, t.balance, t.category, t.type`

// StoreStatement persists a statement and its transactions in one SQL
// transaction. A failure anywhere rolls back everything; readers never see
// a statement without its transactions.
func (r *LedgerRepository) StoreStatement(ctx context.Context, stmt *ledger.Statement, txs []ledger.Transaction) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO statements (id, user_id, file_name, source_format, start_date, end_date, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, stmt.ID, stmt.UserID, stmt.FileName, stmt.SourceFormat, stmt.StartDate, stmt.EndDate, stmt.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	insert, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO transactions (id, statement_id, posting_date, transaction_date,
		                          description, money_in, money_out, balance, category, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer insert.Close()

	for i := range txs {
		tx := &txs[i]
		err := insert.QueryRowContext(ctx,
			tx.ID, tx.StatementID, tx.PostingDate, tx.TransactionDate,
			tx.Description, nullDecimal(tx.MoneyIn), nullDecimal(tx.MoneyOut),
			tx.Balance, tx.Category, tx.Type,
		).Scan(&tx.Seq)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", i, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statement: %w", err)
	}
	return nil
}

func (r *LedgerRepository) TransactionsByUserAndRange(ctx context.Context, userID string, from, to *time.Time) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN statements s ON t.statement_id = s.id
		WHERE s.user_id = $1`
	args := []any{userID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND t.transaction_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND t.transaction_date <= $%d", len(args))
	}
	query += " ORDER BY t.transaction_date DESC, t.seq ASC"

	return r.queryTransactions(ctx, query, args...)
}

func (r *LedgerRepository) TransactionsByStatement(ctx context.Context, statementID string) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.statement_id = $1
		ORDER BY t.seq ASC`
	return r.queryTransactions(ctx, query, statementID)
}

func (r *LedgerRepository) StatementsByUser(ctx context.Context, userID string) ([]ledger.Statement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, file_name, source_format, start_date, end_date, uploaded_at
		FROM statements
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer rows.Close()

	var statements []ledger.Statement
	for rows.Next() {
		var s ledger.Statement
		if err := rows.Scan(&s.ID, &s.UserID, &s.FileName, &s.SourceFormat,
			&s.StartDate, &s.EndDate, &s.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statements: %w", err)
	}
	return statements, nil
}

func (r *LedgerRepository) StatementByID(ctx context.Context, id string) (*ledger.Statement, error) {
	var s ledger.Statement
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_name, source_format, start_date, end_date, uploaded_at
		FROM statements
		WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.FileName, &s.SourceFormat, &s.StartDate, &s.EndDate, &s.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	return &s, nil
}

func (r *LedgerRepository) StatementCovering(ctx context.Context, userID string, start, end time.Time) (*ledger.Statement, error) {
	var s ledger.Statement
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_name, source_format, start_date, end_date, uploaded_at
		FROM statements
		WHERE user_id = $1 AND start_date <= $2 AND end_date >= $3
		ORDER BY uploaded_at DESC
		LIMIT 1
	`, userID, start, end).Scan(&s.ID, &s.UserID, &s.FileName, &s.SourceFormat,
		&s.StartDate, &s.EndDate, &s.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find covering statement: %w", err)
	}
	return &s, nil
}

func (r *LedgerRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var moneyIn, moneyOut decimal.NullDecimal
		err := rows.Scan(
			&tx.ID, &tx.StatementID, &tx.Seq, &tx.PostingDate, &tx.TransactionDate,
			&tx.Description, &moneyIn, &moneyOut, &tx.Balance, &tx.Category, &tx.Type,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if moneyIn.Valid {
			tx.MoneyIn = moneyIn.Decimal
		}
		if moneyOut.Valid {
			tx.MoneyOut = moneyOut.Decimal
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// nullDecimal stores absent amounts as NULL, matching the "exactly one of
// money_in/money_out" model.
func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: !d.IsZero()}
}
