package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coopfund/ledger/internal/domain"
)

func TestAdjustBalanceAppliesSignedDelta(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemberRepo(db)
	ctx := context.Background()
	seedMember(t, db, "m1", "100")

	require.NoError(t, repo.AdjustBalance(ctx, "m1", dec("26.00")))
	require.NoError(t, repo.AdjustBalance(ctx, "m1", dec("-50")))

	m, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.True(t, m.Balance.Equal(dec("76.00")), "balance %s", m.Balance)
}

func TestAdjustBalanceRejectsNegativeResult(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemberRepo(db)
	ctx := context.Background()
	seedMember(t, db, "m1", "40")

	err := repo.AdjustBalance(ctx, "m1", dec("-40.01"))
	require.ErrorIs(t, err, ErrNegativeBalance)

	// The rejected debit must leave the stored balance untouched.
	m, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.True(t, m.Balance.Equal(dec("40")))
}

func TestAdjustBalanceUnknownMember(t *testing.T) {
	db := newTestDB(t)
	err := NewMemberRepo(db).AdjustBalance(context.Background(), "ghost", dec("1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestSignalsAggregatesScoringInputs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	members := NewMemberRepo(db)
	loans := NewLoanRepo(db)
	entries := NewLedgerRepo(db)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, members.Insert(ctx, &domain.Member{
		ID: "m1", Name: "Active", Tier: domain.TierPremium,
		TwoFactorEnabled: true, Balance: dec("0"), CreatedAt: now,
	}))
	require.NoError(t, members.Insert(ctx, &domain.Member{
		ID: "m2", Name: "Passive", Tier: domain.TierStandard,
		Balance: dec("0"), CreatedAt: now.Add(time.Hour),
	}))

	seedQuota(t, db, "q1", "m1", now)
	seedQuota(t, db, "q2", "m1", now)

	// One settled loan with realized interest.
	require.NoError(t, loans.Insert(ctx, &domain.Loan{
		ID: "l1", OwnerID: "m1", Principal: dec("200"),
		InterestPaid: dec("15.50"), Status: domain.LoanPaid, CreatedAt: now,
	}))

	// A purchase counts as both spend and revenue; a deposit counts as neither.
	for _, e := range []domain.LedgerEntry{
		{ID: "e1", OwnerID: "m1", Type: domain.EntryPurchase, Amount: dec("60"),
			Status: domain.EntryCompleted, CreatedAt: now},
		{ID: "e2", OwnerID: "m1", Type: domain.EntryDeposit, Amount: dec("500"),
			Status: domain.EntryCompleted, CreatedAt: now},
		{ID: "e3", OwnerID: "m2", Type: domain.EntryDeposit, Amount: dec("100"),
			Status: domain.EntryCompleted, CreatedAt: now},
	} {
		e := e
		require.NoError(t, entries.Insert(ctx, &e))
	}

	signals, err := members.Signals(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	active := signals[0]
	require.Equal(t, "m1", active.OwnerID)
	require.Equal(t, domain.TierPremium, active.Tier)
	require.True(t, active.TwoFactorEnabled)
	require.Equal(t, 2, active.QuotaCount)
	require.Equal(t, 1, active.PaidLoans)
	require.True(t, active.TotalSpent.Equal(dec("60")), "spent %s", active.TotalSpent)
	require.True(t, active.RevenueGenerated.Equal(dec("75.5")), "revenue %s", active.RevenueGenerated)
	// One fee-bearing entry plus one paid loan.
	require.Equal(t, 2, active.RevenueEvents)

	passive := signals[1]
	require.Equal(t, "m2", passive.OwnerID)
	require.Equal(t, 0, passive.RevenueEvents)
	require.True(t, passive.TotalSpent.IsZero())
}
