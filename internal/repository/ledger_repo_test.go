package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coopfund/ledger/internal/domain"
)

func TestLedgerInsertAssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewLedgerRepo(db)
	seedMember(t, db, "m1", "0")

	entry := &domain.LedgerEntry{
		OwnerID:  "m1",
		Type:     domain.EntryDeposit,
		Amount:   dec("500"),
		Status:   domain.EntryCompleted,
		Metadata: domain.EntryMetadata{Kind: domain.MetaGeneric},
	}
	require.NoError(t, repo.Insert(ctx, entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
}

func TestLedgerMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewLedgerRepo(db)
	seedMember(t, db, "m1", "0")

	entry := &domain.LedgerEntry{
		OwnerID: "m1",
		Type:    domain.EntryLoanLiquidation,
		Amount:  dec("100"),
		Status:  domain.EntryCompleted,
		Metadata: domain.EntryMetadata{
			Kind: domain.MetaLiquidation,
			Liquidation: &domain.LiquidationMeta{
				InstallmentID: "inst-1",
				LoanID:        "l1",
				QuotaIDs:      []string{"q1", "q2", "q3"},
				QuotaCount:    3,
				RedeemedValue: dec("126.00"),
				Change:        dec("26.00"),
				Reason:        "overdue installment inst-1",
			},
		},
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Insert(ctx, entry))

	stored, err := repo.ByType(ctx, domain.EntryLoanLiquidation)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	m := stored[0].Metadata.Liquidation
	require.NotNil(t, m)
	require.Equal(t, "inst-1", m.InstallmentID)
	require.Equal(t, []string{"q1", "q2", "q3"}, m.QuotaIDs)
	require.True(t, m.RedeemedValue.Equal(dec("126.00")))
	require.True(t, m.Change.Equal(dec("26.00")))
}

func TestLedgerListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewLedgerRepo(db)
	seedMember(t, db, "m1", "0")
	seedMember(t, db, "m2", "0")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, e := range []domain.LedgerEntry{
		{OwnerID: "m1", Type: domain.EntryDeposit, Amount: dec("100"), Status: domain.EntryCompleted},
		{OwnerID: "m1", Type: domain.EntryPurchase, Amount: dec("20"), Status: domain.EntryCompleted},
		{OwnerID: "m1", Type: domain.EntryPurchase, Amount: dec("30"), Status: domain.EntryCompleted},
		{OwnerID: "m2", Type: domain.EntryDeposit, Amount: dec("200"), Status: domain.EntryCompleted},
	} {
		e := e
		e.Metadata = domain.EntryMetadata{Kind: domain.MetaGeneric}
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(ctx, &e))
	}

	entries, total, err := repo.List(ctx, EntryFilter{OwnerID: "m1", Type: "purchase"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, entries, 2)

	// Newest first, one per page.
	entries, total, err = repo.List(ctx, EntryFilter{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Len(t, entries, 1)
	require.Equal(t, "m2", entries[0].OwnerID)
}
