package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

type LedgerRepo struct {
	db DBTX
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) WithTx(tx *sql.Tx) *LedgerRepo {
	return &LedgerRepo{db: tx}
}

// Insert appends an immutable ledger entry. ID and CreatedAt are assigned
// here when unset.
func (r *LedgerRepo) Insert(ctx context.Context, e *domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, owner_id, type, amount, status, metadata, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.OwnerID, string(e.Type), e.Amount.String(), string(e.Status),
		string(meta), e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

type EntryFilter struct {
	OwnerID string
	Type    string
	Page    int
	Limit   int
}

func (r *LedgerRepo) List(ctx context.Context, f EntryFilter) ([]domain.LedgerEntry, int, error) {
	var clauses []string
	var args []any
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, f.Type)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, type, amount, status, metadata, created_at
		 FROM ledger_entries`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAll streams every entry oldest-first, for the conservation audit.
func (r *LedgerRepo) ListAll(ctx context.Context) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, type, amount, status, metadata, created_at
		 FROM ledger_entries ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ByType returns every entry of the given type oldest-first.
func (r *LedgerRepo) ByType(ctx context.Context, t domain.EntryType) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, type, amount, status, metadata, created_at
		 FROM ledger_entries WHERE type = ? ORDER BY created_at ASC`, string(t))
	if err != nil {
		return nil, fmt.Errorf("query entries by type: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *LedgerRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&count)
	return count, err
}

func collectEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			typ     string
			amount  string
			status  string
			meta    string
			created string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &typ, &amount, &status, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = domain.EntryType(typ)
		e.Status = domain.EntryStatus(status)
		var err error
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", e.ID, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
