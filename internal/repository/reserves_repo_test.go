package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coopfund/ledger/internal/domain"
)

func TestReservesEnsureRowIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReservesRepo(db)

	require.NoError(t, repo.EnsureRow(ctx))
	require.NoError(t, repo.AddToProfitPool(ctx, dec("100")))
	require.NoError(t, repo.EnsureRow(ctx))

	res, err := repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, res.ProfitPool.Equal(dec("100")), "pool %s", res.ProfitPool)
}

func TestReservesSetRejectsNegativeValues(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReservesRepo(db)
	require.NoError(t, repo.EnsureRow(ctx))

	err := repo.Set(ctx, &domain.SystemReserves{
		ProfitPool:         dec("-1"),
		TaxReserve:         decimal.Zero,
		OperationalReserve: decimal.Zero,
		OwnerReserve:       decimal.Zero,
	})
	require.ErrorIs(t, err, ErrNegativeReserve)

	res, err := repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, res.ProfitPool.IsZero())
}

func TestAddToProfitPoolAccumulates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReservesRepo(db)
	require.NoError(t, repo.EnsureRow(ctx))

	require.NoError(t, repo.AddToProfitPool(ctx, dec("250.50")))
	require.NoError(t, repo.AddToProfitPool(ctx, dec("749.50")))
	require.Error(t, repo.AddToProfitPool(ctx, dec("0")))

	res, err := repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, res.ProfitPool.Equal(dec("1000")), "pool %s", res.ProfitPool)
}
