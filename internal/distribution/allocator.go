package distribution

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/ledger"
	"github.com/coopfund/ledger/internal/money"
	"github.com/coopfund/ledger/internal/notify"
	"github.com/coopfund/ledger/internal/observability"
	"github.com/coopfund/ledger/internal/repository"
)

// Outcome of a distribution run. Empty pool and zero weight are structured
// no-ops, not errors.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeEmptyPool  Outcome = "empty_pool"
	OutcomeZeroWeight Outcome = "zero_weight"
)

// Payout is one member's share of a distribution run.
type Payout struct {
	OwnerID        string          `json:"owner_id"`
	WeightedQuotas decimal.Decimal `json:"weighted_quotas"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	Amount         decimal.Decimal `json:"amount"`
}

// RunResult summarises one distribution run.
type RunResult struct {
	RunID         string          `json:"run_id"`
	Outcome       Outcome         `json:"outcome"`
	Pool          decimal.Decimal `json:"pool"`
	TotalForUsers decimal.Decimal `json:"total_for_users"`
	TotalWeighted decimal.Decimal `json:"total_weighted"`
	Remainder     decimal.Decimal `json:"remainder"`
	Tax           decimal.Decimal `json:"tax"`
	Operational   decimal.Decimal `json:"operational"`
	Owner         decimal.Decimal `json:"owner"`
	Payouts       []Payout        `json:"payouts"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// Allocator runs the weighted profit distribution. The whole run is one
// atomic unit: the pool is zeroed exactly once, together with every payout
// and reserve increment, or not at all.
type Allocator struct {
	exec       *ledger.Executor
	members    *repository.MemberRepo
	reserves   *repository.ReservesRepo
	entries    *repository.LedgerRepo
	settings   *repository.SettingsRepo
	dispatcher *notify.Dispatcher
	metrics    *observability.Metrics
	log        *slog.Logger
	now        func() time.Time
}

func NewAllocator(
	exec *ledger.Executor,
	members *repository.MemberRepo,
	reserves *repository.ReservesRepo,
	entries *repository.LedgerRepo,
	settings *repository.SettingsRepo,
	dispatcher *notify.Dispatcher,
	metrics *observability.Metrics,
) *Allocator {
	return &Allocator{
		exec:       exec,
		members:    members,
		reserves:   reserves,
		entries:    entries,
		settings:   settings,
		dispatcher: dispatcher,
		metrics:    metrics,
		log:        slog.With("component", "distribution"),
		now:        time.Now,
	}
}

// RunPass distributes the profit pool. Preconditions (non-empty pool,
// non-zero eligible weight) are checked inside the transaction so a
// concurrent run cannot observe a stale pool.
func (a *Allocator) RunPass(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New().String(),
		StartedAt: a.now().UTC(),
	}

	settings, err := a.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	err = a.exec.RunAtomic(ctx, func(tx *sql.Tx) error {
		reserves, err := a.reserves.WithTx(tx).Get(ctx)
		if err != nil {
			return err
		}
		result.Pool = reserves.ProfitPool

		if !reserves.ProfitPool.IsPositive() {
			result.Outcome = OutcomeEmptyPool
			return nil
		}

		signals, err := a.members.WithTx(tx).Signals(ctx)
		if err != nil {
			return fmt.Errorf("load member signals: %w", err)
		}
		scores, totalWeighted := ScoreAll(signals, settings.Scoring)
		result.TotalWeighted = totalWeighted

		if !totalWeighted.IsPositive() {
			result.Outcome = OutcomeZeroWeight
			return nil
		}

		pool := reserves.ProfitPool
		totalForUsers := money.Round2(pool.Mul(settings.UserSharePct))
		tax := money.Round2(pool.Mul(settings.TaxPct))
		owner := money.Round2(pool.Mul(settings.OwnerPct))

		// Per-user payout, rounded to the cent.
		perUnit := totalForUsers.Div(totalWeighted)
		paidOut := decimal.Zero
		payouts := make([]Payout, 0, len(scores))
		for _, score := range scores {
			amount := money.Round2(score.WeightedQuotas.Mul(perUnit))
			payouts = append(payouts, Payout{
				OwnerID:        score.OwnerID,
				WeightedQuotas: score.WeightedQuotas,
				Multiplier:     score.Multiplier,
				Amount:         amount,
			})
			paidOut = paidOut.Add(amount)
		}

		// Rounding remainder folds into the operational reserve so the
		// drained pool is conserved to the cent. The operational bucket also
		// absorbs the percentage-rounding slack.
		remainder := totalForUsers.Sub(paidOut)
		operational := pool.Sub(totalForUsers).Sub(tax).Sub(owner).Add(remainder)

		now := a.now().UTC()
		for i, p := range payouts {
			// A share that rounds below one cent moves no money and writes
			// no entry.
			if !p.Amount.IsPositive() {
				continue
			}
			if err := a.members.WithTx(tx).AdjustBalance(ctx, p.OwnerID, p.Amount); err != nil {
				return fmt.Errorf("credit payout for %s: %w", p.OwnerID, err)
			}
			entry := &domain.LedgerEntry{
				OwnerID: p.OwnerID,
				Type:    domain.EntryProfitDistribution,
				Amount:  p.Amount,
				Status:  domain.EntryCompleted,
				Metadata: domain.EntryMetadata{
					Kind: domain.MetaDistribution,
					// Every entry of a run carries the run's full split, so
					// the reserve side of the conservation audit can be
					// recomputed from the ledger alone.
					Distribution: &domain.DistributionMeta{
						RunID:          result.RunID,
						WeightedQuotas: p.WeightedQuotas,
						Multiplier:     p.Multiplier,
						QuotaCount:     scores[i].QuotaCount,
						Pool:           pool,
						TotalForUsers:  totalForUsers,
						Tax:            tax,
						Operational:    operational,
						Owner:          owner,
					},
				},
				CreatedAt: now,
			}
			if err := a.entries.WithTx(tx).Insert(ctx, entry); err != nil {
				return err
			}
		}

		next := &domain.SystemReserves{
			ProfitPool:         decimal.Zero,
			TaxReserve:         reserves.TaxReserve.Add(tax),
			OperationalReserve: reserves.OperationalReserve.Add(operational),
			OwnerReserve:       reserves.OwnerReserve.Add(owner),
		}
		if err := a.reserves.WithTx(tx).Set(ctx, next); err != nil {
			return err
		}

		result.Outcome = OutcomeCompleted
		result.TotalForUsers = totalForUsers
		result.Remainder = remainder
		result.Tax = tax
		result.Operational = operational
		result.Owner = owner
		result.Payouts = payouts
		return nil
	})
	if err != nil {
		a.metrics.DistributionRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	result.FinishedAt = a.now().UTC()
	a.metrics.DistributionRuns.WithLabelValues(string(result.Outcome)).Inc()

	switch result.Outcome {
	case OutcomeCompleted:
		a.afterCommit(result)
		a.log.Info("distribution run completed",
			"run_id", result.RunID,
			"pool", result.Pool,
			"members_paid", len(result.Payouts),
			"total_for_users", result.TotalForUsers,
			"remainder", result.Remainder)
	default:
		a.log.Info("distribution run was a no-op",
			"run_id", result.RunID,
			"outcome", string(result.Outcome),
			"pool", result.Pool)
	}
	return result, nil
}

func (a *Allocator) afterCommit(result *RunResult) {
	for _, p := range result.Payouts {
		a.metrics.MembersPaid.Inc()
		a.dispatcher.RecordAudit(domain.AuditEvent{
			OwnerID:    p.OwnerID,
			ActionType: "profit_distribution",
			EntityType: "distribution_run",
			EntityID:   result.RunID,
			NewValues: map[string]any{
				"amount":          p.Amount.String(),
				"weighted_quotas": p.WeightedQuotas.String(),
				"multiplier":      p.Multiplier.String(),
			},
		})
		a.dispatcher.NotifyUser(p.OwnerID,
			"Profit distribution received",
			fmt.Sprintf("You received %s from the latest profit distribution (%s weighted quotas).",
				p.Amount, p.WeightedQuotas))
	}
}
