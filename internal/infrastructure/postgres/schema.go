package postgres

import (
	"context"
	"fmt"
)

// Schema mirrors the ledger data model: users own statements, statements own
// transactions. seq is a global serial so insertion order survives queries
// that join across statements.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS statements (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES users(id),
		file_name     TEXT NOT NULL,
		source_format TEXT NOT NULL,
		start_date    DATE NOT NULL,
		end_date      DATE NOT NULL,
		uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (start_date <= end_date)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id               TEXT PRIMARY KEY,
		statement_id     TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
		seq              BIGSERIAL UNIQUE,
		posting_date     DATE NOT NULL,
		transaction_date DATE NOT NULL,
		description      TEXT NOT NULL,
		money_in         NUMERIC(14,2),
		money_out        NUMERIC(14,2),
		balance          NUMERIC(14,2) NOT NULL,
		category         TEXT,
		type             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_statements_user ON statements(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_statement ON transactions(statement_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(transaction_date)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
