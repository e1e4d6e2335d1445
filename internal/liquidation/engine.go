package liquidation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/ledger"
	"github.com/coopfund/ledger/internal/notify"
	"github.com/coopfund/ledger/internal/observability"
	"github.com/coopfund/ledger/internal/repository"
)

// Sentinel skip conditions: the installment stays PENDING and the batch
// moves on.
var (
	ErrNoCollateral           = errors.New("owner has no active quotas")
	ErrInsufficientCollateral = errors.New("active quotas do not cover the debt")
)

// PassResult summarises one liquidation pass.
type PassResult struct {
	Eligible      int             `json:"eligible"`
	Liquidated    int             `json:"liquidated"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	RedeemedTotal decimal.Decimal `json:"redeemed_total"`
	ChangeTotal   decimal.Decimal `json:"change_total"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// Engine runs the collateral liquidation pass. All collaborators are injected;
// the engine holds no ambient state.
type Engine struct {
	exec         *ledger.Executor
	installments *repository.InstallmentRepo
	quotas       *repository.QuotaRepo
	members      *repository.MemberRepo
	loans        *repository.LoanRepo
	entries      *repository.LedgerRepo
	settings     *repository.SettingsRepo
	dispatcher   *notify.Dispatcher
	metrics      *observability.Metrics
	log          *slog.Logger
	now          func() time.Time
}

func NewEngine(
	exec *ledger.Executor,
	installments *repository.InstallmentRepo,
	quotas *repository.QuotaRepo,
	members *repository.MemberRepo,
	loans *repository.LoanRepo,
	entries *repository.LedgerRepo,
	settings *repository.SettingsRepo,
	dispatcher *notify.Dispatcher,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		exec:         exec,
		installments: installments,
		quotas:       quotas,
		members:      members,
		loans:        loans,
		entries:      entries,
		settings:     settings,
		dispatcher:   dispatcher,
		metrics:      metrics,
		log:          slog.With("component", "liquidation"),
		now:          time.Now,
	}
}

// RunPass liquidates collateral for every eligible installment. Each
// installment is its own atomic unit: one failure does not block the rest.
// The pass is idempotent: settled installments fall out of the work queue, so
// a rerun with nothing newly overdue mutates nothing.
func (e *Engine) RunPass(ctx context.Context) (*PassResult, error) {
	result := &PassResult{
		RedeemedTotal: decimal.Zero,
		ChangeTotal:   decimal.Zero,
		StartedAt:     e.now().UTC(),
	}

	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	cutoff := e.now().UTC().AddDate(0, 0, -settings.LiquidationAfterDays)
	eligible, err := e.installments.OverduePending(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load overdue installments: %w", err)
	}
	result.Eligible = len(eligible)

	for i := range eligible {
		inst := &eligible[i]
		outcome, err := e.liquidateOne(ctx, inst, settings)
		switch {
		case err == nil:
			result.Liquidated++
			result.RedeemedTotal = result.RedeemedTotal.Add(outcome.RedeemedValue)
			result.ChangeTotal = result.ChangeTotal.Add(outcome.Change)
			e.metrics.InstallmentsLiquidated.Inc()
			e.afterCommit(inst, outcome)
		case errors.Is(err, ErrNoCollateral), errors.Is(err, ErrInsufficientCollateral):
			// Per-item skip: surfaced for manual admin review, retried on
			// later passes only if collateral appears.
			result.Skipped++
			e.metrics.InstallmentsSkipped.Inc()
			e.log.Warn("liquidation skipped",
				"installment_id", inst.ID,
				"owner_id", inst.OwnerID,
				"debt", inst.ExpectedAmount,
				"reason", err)
			e.dispatcher.NotifyAdmin(
				fmt.Sprintf("installment %s (owner %s, debt %s) has no liquidatable collateral",
					inst.ID, inst.OwnerID, inst.ExpectedAmount),
				notify.SeverityWarning)
		default:
			// Transactional failure: everything rolled back, the item is
			// retried on the next scheduled pass.
			result.Failed++
			e.log.Error("liquidation failed",
				"installment_id", inst.ID,
				"owner_id", inst.OwnerID,
				"error", err)
		}
	}

	result.FinishedAt = e.now().UTC()
	e.metrics.LiquidationRuns.WithLabelValues(runOutcome(result)).Inc()
	e.log.Info("liquidation pass finished",
		"eligible", result.Eligible,
		"liquidated", result.Liquidated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"redeemed_total", result.RedeemedTotal,
		"change_total", result.ChangeTotal)
	return result, nil
}

// liquidateOne seizes quotas and settles one installment inside a single
// atomic unit: quota status, balance credit, installment settlement, and the
// ledger entry commit or roll back together. There is no window in which
// quotas are seized but the change is not credited.
func (e *Engine) liquidateOne(ctx context.Context, inst *domain.Installment, settings *domain.FundSettings) (*Selection, error) {
	var sel Selection

	err := e.exec.RunAtomic(ctx, func(tx *sql.Tx) error {
		active, err := e.quotas.WithTx(tx).ActiveByOwner(ctx, inst.OwnerID)
		if err != nil {
			return fmt.Errorf("load active quotas: %w", err)
		}
		if len(active) == 0 {
			return ErrNoCollateral
		}

		sel = SelectQuotas(active, inst.ExpectedAmount, settings.ShareValue)
		if !sel.Covered {
			return fmt.Errorf("%w: have %d quotas worth %s against %s",
				ErrInsufficientCollateral, len(active), sel.RedeemedValue, inst.ExpectedAmount)
		}

		now := e.now().UTC()
		reason := fmt.Sprintf("overdue installment %s", inst.ID)
		quotaIDs := make([]string, len(sel.Quotas))
		for i, q := range sel.Quotas {
			quotaIDs[i] = q.ID
		}

		n, err := e.quotas.WithTx(tx).MarkLiquidated(ctx, quotaIDs, inst.ID, reason, now)
		if err != nil {
			return err
		}
		if n != len(quotaIDs) {
			return fmt.Errorf("expected %d quotas liquidated, got %d", len(quotaIDs), n)
		}

		if sel.Change.IsPositive() {
			if err := e.members.WithTx(tx).AdjustBalance(ctx, inst.OwnerID, sel.Change); err != nil {
				return fmt.Errorf("credit change: %w", err)
			}
		}

		// The installment settles for the debt amount, not the redeemed
		// value; the difference went back to the member as change.
		n, err = e.installments.WithTx(tx).MarkPaid(ctx, inst.ID, inst.ExpectedAmount, false, now)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("installment %s is no longer pending", inst.ID)
		}

		if err := e.loans.WithTx(tx).MarkPaidIfSettled(ctx, inst.LoanID); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			OwnerID: inst.OwnerID,
			Type:    domain.EntryLoanLiquidation,
			Amount:  inst.ExpectedAmount,
			Status:  domain.EntryCompleted,
			Metadata: domain.EntryMetadata{
				Kind: domain.MetaLiquidation,
				Liquidation: &domain.LiquidationMeta{
					InstallmentID: inst.ID,
					LoanID:        inst.LoanID,
					QuotaIDs:      quotaIDs,
					QuotaCount:    len(quotaIDs),
					RedeemedValue: sel.RedeemedValue,
					Change:        sel.Change,
					Reason:        reason,
				},
			},
			CreatedAt: now,
		}
		if err := e.entries.WithTx(tx).Insert(ctx, entry); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// afterCommit dispatches the audit event and member notification once the
// financial transaction is durable. Both are fire-and-forget.
func (e *Engine) afterCommit(inst *domain.Installment, sel *Selection) {
	e.dispatcher.RecordAudit(domain.AuditEvent{
		OwnerID:    inst.OwnerID,
		ActionType: "loan_payment_via_liquidation",
		EntityType: "installment",
		EntityID:   inst.ID,
		OldValues:  map[string]any{"status": string(domain.InstallmentPending)},
		NewValues: map[string]any{
			"status":         string(domain.InstallmentPaid),
			"quotas_seized":  len(sel.Quotas),
			"redeemed_value": sel.RedeemedValue.String(),
			"change":         sel.Change.String(),
		},
	})
	e.dispatcher.NotifyUser(inst.OwnerID,
		"Quotas liquidated to cover overdue installment",
		fmt.Sprintf("%d quota(s) worth %s were redeemed to settle installment %s (debt %s). Change of %s was credited to your balance.",
			len(sel.Quotas), sel.RedeemedValue, inst.ID, inst.ExpectedAmount, sel.Change))
}

func runOutcome(r *PassResult) string {
	switch {
	case r.Failed > 0:
		return "partial"
	case r.Eligible == 0:
		return "noop"
	default:
		return "ok"
	}
}
