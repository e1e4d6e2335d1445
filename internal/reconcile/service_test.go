package reconcile

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/money"
	"github.com/coopfund/ledger/internal/notify"
	"github.com/coopfund/ledger/internal/observability"
	"github.com/coopfund/ledger/internal/repository"
)

type harness struct {
	db       *sql.DB
	svc      *Service
	members  *repository.MemberRepo
	quotas   *repository.QuotaRepo
	entries  *repository.LedgerRepo
	reserves *repository.ReservesRepo
	discs    *repository.DiscrepancyRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	reserves := repository.NewReservesRepo(db)
	require.NoError(t, reserves.EnsureRow(ctx))

	dispatcher := notify.NewDispatcher(
		notify.NewLogNotifier(slog.Default()),
		notify.NewLogAuditSink(slog.Default()),
		slog.Default(),
	)
	t.Cleanup(dispatcher.Close)

	h := &harness{
		db:       db,
		members:  repository.NewMemberRepo(db),
		quotas:   repository.NewQuotaRepo(db),
		entries:  repository.NewLedgerRepo(db),
		reserves: reserves,
		discs:    repository.NewDiscrepancyRepo(db),
	}
	h.svc = NewService(
		h.members, h.quotas, h.entries, reserves, h.discs,
		dispatcher, observability.New(),
	)
	return h
}

// seedConsistent creates a member whose balance equals the signed sum of
// their ledger: a deposit of 500 and a purchase of 60.
func (h *harness) seedConsistent(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.members.Insert(ctx, &domain.Member{
		ID: id, Name: "Member " + id, Tier: domain.TierStandard,
		Balance: money.MustDec("440"), CreatedAt: now,
	}))
	for _, e := range []domain.LedgerEntry{
		{OwnerID: id, Type: domain.EntryDeposit, Amount: money.MustDec("500"),
			Status: domain.EntryCompleted, CreatedAt: now},
		{OwnerID: id, Type: domain.EntryPurchase, Amount: money.MustDec("60"),
			Status: domain.EntryCompleted, CreatedAt: now.Add(time.Hour)},
	} {
		e := e
		e.Metadata = domain.EntryMetadata{Kind: domain.MetaGeneric}
		require.NoError(t, h.entries.Insert(ctx, &e))
	}
}

func TestRunFullAuditCleanFundHasNoFindings(t *testing.T) {
	h := newHarness(t)
	h.seedConsistent(t, "m1")
	h.seedConsistent(t, "m2")

	result, err := h.svc.RunFullAudit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.TotalFindings)
}

func TestRunFullAuditDetectsBalanceLedgerDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedConsistent(t, "m1")

	// Tamper with the stored balance behind the ledger's back.
	_, err := h.db.Exec("UPDATE members SET balance = '999' WHERE id = 'm1'")
	require.NoError(t, err)

	result, err := h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.BalanceLedgerDrift)
	require.Equal(t, 1, result.TotalFindings)

	findings, _, err := h.discs.List(ctx, repository.DiscrepancyFilter{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	require.Equal(t, domain.DiscrepancyBalanceLedgerDrift, f.Type)
	require.Equal(t, "m1", f.OwnerID)
	require.True(t, f.Expected.Equal(money.MustDec("440")), "expected %s", f.Expected)
	require.True(t, f.Actual.Equal(money.MustDec("999")))
	// Drift over 500 escalates to critical.
	require.Equal(t, domain.SeverityCritical, f.Severity)
}

func TestRunFullAuditDetectsNegativeBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedConsistent(t, "m1")
	_, err := h.db.Exec("UPDATE members SET balance = '-50' WHERE id = 'm1'")
	require.NoError(t, err)

	result, err := h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.NegativeBalances)
	// The tampered balance also no longer matches the ledger.
	require.Equal(t, 1, result.BalanceLedgerDrift)
}

func TestRunFullAuditDetectsUnbackedSeizure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedConsistent(t, "m1")

	require.NoError(t, h.quotas.Insert(ctx, &domain.Quota{
		ID: "q1", OwnerID: "m1", ShareValue: money.MustDec("42.00"),
		Status: domain.QuotaActive,
		PurchaseDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	// Seized without any backing liquidation entry.
	_, err := h.db.Exec(
		"UPDATE quotas SET status = 'LIQUIDATED', liquidated_at = '2025-06-01T00:00:00Z' WHERE id = 'q1'")
	require.NoError(t, err)

	result, err := h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.UnbackedSeizures)

	findings, _, err := h.discs.List(ctx, repository.DiscrepancyFilter{
		Type: string(domain.DiscrepancyUnbackedSeizure),
	})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, "q1", findings[0].EntityID)
}

func TestRunFullAuditDetectsSeizureValueDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedConsistent(t, "m1")

	require.NoError(t, h.quotas.Insert(ctx, &domain.Quota{
		ID: "q1", OwnerID: "m1", ShareValue: money.MustDec("42.00"),
		Status: domain.QuotaActive,
		PurchaseDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	_, err := h.db.Exec(
		`UPDATE quotas SET status = 'LIQUIDATED', liquidated_at = '2025-06-01T00:00:00Z',
		 installment_id = 'inst-1' WHERE id = 'q1'`)
	require.NoError(t, err)

	// The backing entry claims a redeemed value the quota book contradicts.
	require.NoError(t, h.entries.Insert(ctx, &domain.LedgerEntry{
		OwnerID: "m1", Type: domain.EntryLoanLiquidation,
		Amount: money.MustDec("40"), Status: domain.EntryCompleted,
		Metadata: domain.EntryMetadata{
			Kind: domain.MetaLiquidation,
			Liquidation: &domain.LiquidationMeta{
				InstallmentID: "inst-1",
				LoanID:        "l1",
				QuotaIDs:      []string{"q1"},
				QuotaCount:    1,
				RedeemedValue: money.MustDec("84.00"),
				Change:        decimal.Zero,
			},
		},
	}))

	result, err := h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.SeizureValueDrift)
	require.Equal(t, 0, result.UnbackedSeizures)

	findings, _, err := h.discs.List(ctx, repository.DiscrepancyFilter{
		Type: string(domain.DiscrepancySeizureValueDrift),
	})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.True(t, findings[0].Expected.Equal(money.MustDec("84.00")))
	require.True(t, findings[0].Actual.Equal(money.MustDec("42.00")))
}

func TestRunFullAuditDetectsReserveLedgerDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedConsistent(t, "m1")

	// One distribution run on record: the member received 60 out of a 1000
	// pool split 600/150/150/100.
	require.NoError(t, h.entries.Insert(ctx, &domain.LedgerEntry{
		OwnerID: "m1", Type: domain.EntryProfitDistribution,
		Amount: money.MustDec("60"), Status: domain.EntryCompleted,
		Metadata: domain.EntryMetadata{
			Kind: domain.MetaDistribution,
			Distribution: &domain.DistributionMeta{
				RunID:          "run-1",
				WeightedQuotas: money.MustDec("11.1"),
				Multiplier:     money.MustDec("1.11"),
				QuotaCount:     10,
				Pool:           money.MustDec("1000"),
				TotalForUsers:  money.MustDec("600.00"),
				Tax:            money.MustDec("150.00"),
				Operational:    money.MustDec("150.00"),
				Owner:          money.MustDec("100.00"),
			},
		},
	}))
	require.NoError(t, h.members.AdjustBalance(ctx, "m1", money.MustDec("60")))
	require.NoError(t, h.reserves.Set(ctx, &domain.SystemReserves{
		ProfitPool:         decimal.Zero,
		TaxReserve:         money.MustDec("150.00"),
		OperationalReserve: money.MustDec("150.00"),
		OwnerReserve:       money.MustDec("100.00"),
	}))

	result, err := h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, result.TotalFindings)

	// Drain the tax reserve behind the ledger's back.
	_, err = h.db.Exec("UPDATE system_reserves SET tax_reserve = '20'")
	require.NoError(t, err)

	result, err = h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.ReserveLedgerDrift)
	require.Equal(t, 1, result.TotalFindings)

	findings, _, err := h.discs.List(ctx, repository.DiscrepancyFilter{
		Type: string(domain.DiscrepancyReserveLedgerDrift),
	})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	require.Equal(t, "tax_reserve", f.EntityID)
	require.True(t, f.Expected.Equal(money.MustDec("150.00")), "expected %s", f.Expected)
	require.True(t, f.Actual.Equal(money.MustDec("20")))
	require.Equal(t, domain.SeverityHigh, f.Severity)
}

func TestRunFullAuditReplacesPreviousFindings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedConsistent(t, "m1")
	_, err := h.db.Exec("UPDATE members SET balance = '999' WHERE id = 'm1'")
	require.NoError(t, err)

	_, err = h.svc.RunFullAudit(ctx)
	require.NoError(t, err)

	// Repairing the balance clears the finding on the next run.
	_, err = h.db.Exec("UPDATE members SET balance = '440' WHERE id = 'm1'")
	require.NoError(t, err)

	result, err := h.svc.RunFullAudit(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, result.TotalFindings)

	summary, err := h.discs.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, summary.TotalCount)
}
