package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

type QuotaRepo struct {
	db DBTX
}

func NewQuotaRepo(db *sql.DB) *QuotaRepo {
	return &QuotaRepo{db: db}
}

func (r *QuotaRepo) WithTx(tx *sql.Tx) *QuotaRepo {
	return &QuotaRepo{db: tx}
}

func (r *QuotaRepo) Insert(ctx context.Context, q *domain.Quota) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO quotas (id, owner_id, share_value, status, purchase_date)
		 VALUES (?,?,?,?,?)`,
		q.ID, q.OwnerID, q.ShareValue.String(), string(q.Status),
		q.PurchaseDate.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert quota: %w", err)
	}
	return nil
}

// ActiveByOwner returns the owner's ACTIVE quotas oldest-first, the order the
// redemption selector consumes them in.
func (r *QuotaRepo) ActiveByOwner(ctx context.Context, ownerID string) ([]domain.Quota, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, share_value, status, purchase_date
		 FROM quotas
		 WHERE owner_id = ? AND status = 'ACTIVE'
		 ORDER BY purchase_date ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query active quotas: %w", err)
	}
	defer rows.Close()
	return collectQuotas(rows)
}

// MarkLiquidated flips the given quotas to LIQUIDATED with provenance. The
// status guard in the WHERE clause means the returned count falls short if a
// concurrent run already seized one; callers must treat that as a
// transactional failure.
func (r *QuotaRepo) MarkLiquidated(ctx context.Context, ids []string, installmentID, reason string, at time.Time) (int, error) {
	affected := 0
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx,
			`UPDATE quotas
			 SET status = 'LIQUIDATED', liquidated_at = ?, liquidation_reason = ?, installment_id = ?
			 WHERE id = ? AND status = 'ACTIVE'`,
			at.Format(time.RFC3339), reason, installmentID, id)
		if err != nil {
			return affected, fmt.Errorf("liquidate quota %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		affected += int(n)
	}
	return affected, nil
}

// ActiveValue sums the share value of all ACTIVE quotas, in Go over decimals
// so the result is exact.
func (r *QuotaRepo) ActiveValue(ctx context.Context) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT share_value FROM quotas WHERE status = 'ACTIVE'")
	if err != nil {
		return decimal.Zero, fmt.Errorf("query active quotas: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan share value: %w", err)
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse share value %q: %w", raw, err)
		}
		total = total.Add(v)
	}
	return total, rows.Err()
}

// Liquidated returns all LIQUIDATED quotas with their provenance, for the
// conservation audit.
func (r *QuotaRepo) Liquidated(ctx context.Context) ([]domain.Quota, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, share_value, status, purchase_date,
		        liquidated_at, liquidation_reason, installment_id
		 FROM quotas WHERE status = 'LIQUIDATED'
		 ORDER BY liquidated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query liquidated quotas: %w", err)
	}
	defer rows.Close()

	var quotas []domain.Quota
	for rows.Next() {
		var (
			q         domain.Quota
			status    string
			share     string
			purchased string
			liqAt     sql.NullString
			reason    sql.NullString
			instID    sql.NullString
		)
		err := rows.Scan(&q.ID, &q.OwnerID, &share, &status, &purchased,
			&liqAt, &reason, &instID)
		if err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		q.Status = domain.QuotaStatus(status)
		q.ShareValue, err = decimal.NewFromString(share)
		if err != nil {
			return nil, fmt.Errorf("parse share value %q: %w", share, err)
		}
		q.PurchaseDate, _ = time.Parse(time.RFC3339, purchased)
		if liqAt.Valid {
			t, _ := time.Parse(time.RFC3339, liqAt.String)
			q.LiquidatedAt = &t
		}
		q.LiquidationReason = reason.String
		q.InstallmentID = instID.String
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}

func (r *QuotaRepo) ByOwner(ctx context.Context, ownerID string) ([]domain.Quota, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, share_value, status, purchase_date
		 FROM quotas WHERE owner_id = ?
		 ORDER BY purchase_date ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query quotas: %w", err)
	}
	defer rows.Close()
	return collectQuotas(rows)
}

func (r *QuotaRepo) CountByStatus(ctx context.Context, status domain.QuotaStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quotas WHERE status = ?", string(status)).Scan(&count)
	return count, err
}

func collectQuotas(rows *sql.Rows) ([]domain.Quota, error) {
	var quotas []domain.Quota
	for rows.Next() {
		var (
			q         domain.Quota
			share     string
			status    string
			purchased string
		)
		if err := rows.Scan(&q.ID, &q.OwnerID, &share, &status, &purchased); err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		var err error
		q.ShareValue, err = decimal.NewFromString(share)
		if err != nil {
			return nil, fmt.Errorf("parse share value %q: %w", share, err)
		}
		q.Status = domain.QuotaStatus(status)
		q.PurchaseDate, _ = time.Parse(time.RFC3339, purchased)
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}
