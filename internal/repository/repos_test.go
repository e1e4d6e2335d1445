package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coopfund/ledger/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedMember(t *testing.T, db *sql.DB, id, balance string) {
	t.Helper()
	err := NewMemberRepo(db).Insert(context.Background(), &domain.Member{
		ID:        id,
		Name:      "Member " + id,
		Tier:      domain.TierStandard,
		Balance:   dec(balance),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func seedQuota(t *testing.T, db *sql.DB, id, ownerID string, purchased time.Time) {
	t.Helper()
	err := NewQuotaRepo(db).Insert(context.Background(), &domain.Quota{
		ID:           id,
		OwnerID:      ownerID,
		ShareValue:   dec("42.00"),
		Status:       domain.QuotaActive,
		PurchaseDate: purchased,
	})
	require.NoError(t, err)
}
