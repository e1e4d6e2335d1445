package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

// ErrNegativeReserve is returned when a reserve mutation would leave any
// reserve field negative. The enclosing transaction must roll back.
var ErrNegativeReserve = errors.New("reserve would go negative")

type ReservesRepo struct {
	db DBTX
}

func NewReservesRepo(db *sql.DB) *ReservesRepo {
	return &ReservesRepo{db: db}
}

func (r *ReservesRepo) WithTx(tx *sql.Tx) *ReservesRepo {
	return &ReservesRepo{db: tx}
}

// EnsureRow creates the singleton record with zeroed reserves if missing.
func (r *ReservesRepo) EnsureRow(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO system_reserves (id, updated_at) VALUES (1, ?)`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ensure reserves row: %w", err)
	}
	return nil
}

func (r *ReservesRepo) Get(ctx context.Context) (*domain.SystemReserves, error) {
	var (
		res     domain.SystemReserves
		pool    string
		tax     string
		op      string
		owner   string
		updated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT profit_pool, tax_reserve, operational_reserve, owner_reserve, updated_at
		 FROM system_reserves WHERE id = 1`).
		Scan(&pool, &tax, &op, &owner, &updated)
	if err != nil {
		return nil, fmt.Errorf("read reserves: %w", err)
	}

	for _, p := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{pool, &res.ProfitPool},
		{tax, &res.TaxReserve},
		{op, &res.OperationalReserve},
		{owner, &res.OwnerReserve},
	} {
		v, err := decimal.NewFromString(p.raw)
		if err != nil {
			return nil, fmt.Errorf("parse reserve %q: %w", p.raw, err)
		}
		*p.dst = v
	}
	res.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &res, nil
}

// Set overwrites the singleton record. Negative values are rejected before
// any write; the caller computes the new totals under the executor's
// exclusive unit.
func (r *ReservesRepo) Set(ctx context.Context, res *domain.SystemReserves) error {
	for _, v := range []decimal.Decimal{
		res.ProfitPool, res.TaxReserve, res.OperationalReserve, res.OwnerReserve,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeReserve, v)
		}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE system_reserves
		 SET profit_pool = ?, tax_reserve = ?, operational_reserve = ?,
		     owner_reserve = ?, updated_at = ?
		 WHERE id = 1`,
		res.ProfitPool.String(), res.TaxReserve.String(),
		res.OperationalReserve.String(), res.OwnerReserve.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update reserves: %w", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		return fmt.Errorf("update reserves: expected 1 row, got %d", n)
	}
	return nil
}

// AddToProfitPool accrues surplus into the pool, the inflow side of the
// distribution cycle.
func (r *ReservesRepo) AddToProfitPool(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("profit accrual must be positive, got %s", amount)
	}
	res, err := r.Get(ctx)
	if err != nil {
		return err
	}
	res.ProfitPool = res.ProfitPool.Add(amount)
	return r.Set(ctx, res)
}
