package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx. Repositories are built on
// it so the same query code runs standalone or inside a ledger transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite allows a single writer; one pooled connection keeps every
	// statement on the same connection and makes ":memory:" safe.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

// Monetary columns are TEXT holding canonical decimal strings; sums that must
// be exact are computed in Go over decimals, never in SQL.
func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT 'standard',
			two_factor_enabled INTEGER NOT NULL DEFAULT 0,
			balance TEXT NOT NULL DEFAULT '0',
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS quotas (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			share_value TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			purchase_date DATETIME NOT NULL,
			liquidated_at DATETIME,
			liquidation_reason TEXT,
			installment_id TEXT,
			FOREIGN KEY (owner_id) REFERENCES members(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotas_owner_status ON quotas(owner_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_quotas_purchase_date ON quotas(purchase_date)`,

		`CREATE TABLE IF NOT EXISTS loans (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			principal TEXT NOT NULL,
			interest_paid TEXT NOT NULL DEFAULT '0',
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (owner_id) REFERENCES members(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_owner_status ON loans(owner_id, status)`,

		`CREATE TABLE IF NOT EXISTS installments (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			expected_amount TEXT NOT NULL,
			due_date DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			paid_amount TEXT,
			use_balance INTEGER NOT NULL DEFAULT 0,
			paid_at DATETIME,
			FOREIGN KEY (loan_id) REFERENCES loans(id),
			FOREIGN KEY (owner_id) REFERENCES members(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_installments_status_due ON installments(status, due_date)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			status TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (owner_id) REFERENCES members(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_owner ON ledger_entries(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_type ON ledger_entries(type)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at)`,

		`CREATE TABLE IF NOT EXISTS system_reserves (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			profit_pool TEXT NOT NULL DEFAULT '0',
			tax_reserve TEXT NOT NULL DEFAULT '0',
			operational_reserve TEXT NOT NULL DEFAULT '0',
			owner_reserve TEXT NOT NULL DEFAULT '0',
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS fund_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			share_value TEXT NOT NULL,
			user_share_pct TEXT NOT NULL,
			tax_pct TEXT NOT NULL,
			operational_pct TEXT NOT NULL,
			owner_pct TEXT NOT NULL,
			liquidation_after_days INTEGER NOT NULL,
			scoring TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS discrepancies (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			owner_id TEXT,
			entity_id TEXT,
			expected TEXT NOT NULL,
			actual TEXT NOT NULL,
			difference TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			detected_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_type ON discrepancies(type)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_severity ON discrepancies(severity)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
