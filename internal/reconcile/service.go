// Package reconcile audits the ledger for conservation violations: places
// where balances, the quota book, or the reserves disagree with the
// append-only ledger. Findings are recorded for admin review, never
// auto-corrected.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/notify"
	"github.com/coopfund/ledger/internal/observability"
	"github.com/coopfund/ledger/internal/repository"
)

// AuditResult summarises a full conservation audit run.
type AuditResult struct {
	NegativeBalances   int `json:"negative_balances"`
	NegativeReserves   int `json:"negative_reserves"`
	UnbackedSeizures   int `json:"unbacked_seizures"`
	SeizureValueDrift  int `json:"seizure_value_drift"`
	BalanceLedgerDrift int `json:"balance_ledger_drift"`
	ReserveLedgerDrift int `json:"reserve_ledger_drift"`
	TotalFindings      int `json:"total_findings"`
}

// Service performs the conservation audit across all financial tables.
type Service struct {
	members    *repository.MemberRepo
	quotas     *repository.QuotaRepo
	entries    *repository.LedgerRepo
	reserves   *repository.ReservesRepo
	discs      *repository.DiscrepancyRepo
	dispatcher *notify.Dispatcher
	metrics    *observability.Metrics
	log        *slog.Logger
	now        func() time.Time
}

func NewService(
	members *repository.MemberRepo,
	quotas *repository.QuotaRepo,
	entries *repository.LedgerRepo,
	reserves *repository.ReservesRepo,
	discs *repository.DiscrepancyRepo,
	dispatcher *notify.Dispatcher,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		members:    members,
		quotas:     quotas,
		entries:    entries,
		reserves:   reserves,
		discs:      discs,
		dispatcher: dispatcher,
		metrics:    metrics,
		log:        slog.With("component", "reconcile"),
		now:        time.Now,
	}
}

// RunFullAudit clears previous findings and runs all detectors from scratch,
// so the stored view is always consistent with one point in time.
func (s *Service) RunFullAudit(ctx context.Context) (*AuditResult, error) {
	if err := s.discs.ClearAll(ctx); err != nil {
		return nil, err
	}

	var findings []domain.Discrepancy

	neg, err := s.detectNegativeBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect negative balances: %w", err)
	}
	findings = append(findings, neg...)

	negRes, err := s.detectNegativeReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect negative reserves: %w", err)
	}
	findings = append(findings, negRes...)

	unbacked, drift, err := s.detectSeizureFindings(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect seizure findings: %w", err)
	}
	findings = append(findings, unbacked...)
	findings = append(findings, drift...)

	ledgerDrift, err := s.detectBalanceLedgerDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect balance drift: %w", err)
	}
	findings = append(findings, ledgerDrift...)

	reserveDrift, err := s.detectReserveLedgerDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect reserve drift: %w", err)
	}
	findings = append(findings, reserveDrift...)

	if len(findings) > 0 {
		if _, err := s.discs.BulkInsert(ctx, findings); err != nil {
			return nil, fmt.Errorf("store findings: %w", err)
		}
		for range findings {
			s.metrics.AuditFindings.Inc()
		}
		s.dispatcher.NotifyAdmin(
			fmt.Sprintf("conservation audit detected %d discrepancies", len(findings)),
			notify.SeverityCritical)
	}

	result := &AuditResult{
		NegativeBalances:   len(neg),
		NegativeReserves:   len(negRes),
		UnbackedSeizures:   len(unbacked),
		SeizureValueDrift:  len(drift),
		BalanceLedgerDrift: len(ledgerDrift),
		ReserveLedgerDrift: len(reserveDrift),
		TotalFindings:      len(findings),
	}
	s.log.Info("conservation audit finished",
		"negative_balances", result.NegativeBalances,
		"negative_reserves", result.NegativeReserves,
		"unbacked_seizures", result.UnbackedSeizures,
		"seizure_value_drift", result.SeizureValueDrift,
		"balance_ledger_drift", result.BalanceLedgerDrift,
		"reserve_ledger_drift", result.ReserveLedgerDrift)
	return result, nil
}

// detectNegativeBalances flags any member balance below zero. The business
// rule forbids this; a hit means a guard was bypassed.
func (s *Service) detectNegativeBalances(ctx context.Context) ([]domain.Discrepancy, error) {
	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var findings []domain.Discrepancy
	for _, m := range members {
		if !m.Balance.IsNegative() {
			continue
		}
		findings = append(findings, domain.Discrepancy{
			ID:          fmt.Sprintf("DISC-NB-%s", m.ID),
			Type:        domain.DiscrepancyNegativeBalance,
			OwnerID:     m.ID,
			Expected:    decimal.Zero,
			Actual:      m.Balance,
			Difference:  m.Balance,
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("member %s holds a negative balance of %s", m.ID, m.Balance),
			DetectedAt:  s.now().UTC(),
		})
	}
	return findings, nil
}

func (s *Service) detectNegativeReserves(ctx context.Context) ([]domain.Discrepancy, error) {
	res, err := s.reserves.Get(ctx)
	if err != nil {
		return nil, err
	}

	var findings []domain.Discrepancy
	for name, v := range map[string]decimal.Decimal{
		"profit_pool":         res.ProfitPool,
		"tax_reserve":         res.TaxReserve,
		"operational_reserve": res.OperationalReserve,
		"owner_reserve":       res.OwnerReserve,
	} {
		if !v.IsNegative() {
			continue
		}
		findings = append(findings, domain.Discrepancy{
			ID:          fmt.Sprintf("DISC-NR-%s", name),
			Type:        domain.DiscrepancyNegativeReserve,
			EntityID:    name,
			Expected:    decimal.Zero,
			Actual:      v,
			Difference:  v,
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("reserve %s is negative: %s", name, v),
			DetectedAt:  s.now().UTC(),
		})
	}
	return findings, nil
}

// detectSeizureFindings cross-checks every LIQUIDATED quota against the
// liquidation ledger: each seizure must have a backing entry, and the entry's
// recorded redeemed value must equal the summed share value of the quotas it
// names.
func (s *Service) detectSeizureFindings(ctx context.Context) (unbacked, drift []domain.Discrepancy, err error) {
	liquidated, err := s.quotas.Liquidated(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.entries.ByType(ctx, domain.EntryLoanLiquidation)
	if err != nil {
		return nil, nil, err
	}

	byInstallment := make(map[string]*domain.LedgerEntry)
	for i := range entries {
		e := &entries[i]
		if m := e.Metadata.Liquidation; m != nil {
			byInstallment[m.InstallmentID] = e
		}
	}

	quotaValue := make(map[string]decimal.Decimal)
	for _, q := range liquidated {
		quotaValue[q.ID] = q.ShareValue

		if q.InstallmentID == "" || byInstallment[q.InstallmentID] == nil {
			unbacked = append(unbacked, domain.Discrepancy{
				ID:          fmt.Sprintf("DISC-US-%s", q.ID),
				Type:        domain.DiscrepancyUnbackedSeizure,
				OwnerID:     q.OwnerID,
				EntityID:    q.ID,
				Expected:    q.ShareValue,
				Actual:      decimal.Zero,
				Difference:  q.ShareValue,
				Severity:    domain.SeverityHigh,
				Description: fmt.Sprintf("quota %s was liquidated with no backing ledger entry", q.ID),
				DetectedAt:  s.now().UTC(),
			})
		}
	}

	for i := range entries {
		e := &entries[i]
		m := e.Metadata.Liquidation
		if m == nil {
			continue
		}
		actual := decimal.Zero
		for _, id := range m.QuotaIDs {
			actual = actual.Add(quotaValue[id])
		}
		if actual.Equal(m.RedeemedValue) {
			continue
		}
		drift = append(drift, domain.Discrepancy{
			ID:         fmt.Sprintf("DISC-SD-%s", e.ID),
			Type:       domain.DiscrepancySeizureValueDrift,
			OwnerID:    e.OwnerID,
			EntityID:   e.ID,
			Expected:   m.RedeemedValue,
			Actual:     actual,
			Difference: m.RedeemedValue.Sub(actual),
			Severity:   domain.SeverityHigh,
			Description: fmt.Sprintf(
				"liquidation entry %s records redeemed value %s but the named quotas are worth %s",
				e.ID, m.RedeemedValue, actual),
			DetectedAt: s.now().UTC(),
		})
	}
	return unbacked, drift, nil
}

// detectBalanceLedgerDrift recomputes each member's balance from the signed
// ledger and flags any mismatch. Sums are taken over decimals, so a hit is a
// real drift, not rounding noise.
func (s *Service) detectBalanceLedgerDrift(ctx context.Context) ([]domain.Discrepancy, error) {
	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	expected := make(map[string]decimal.Decimal, len(members))
	for i := range entries {
		e := &entries[i]
		expected[e.OwnerID] = expected[e.OwnerID].Add(e.BalanceDelta())
	}

	var findings []domain.Discrepancy
	for _, m := range members {
		want := expected[m.ID]
		if m.Balance.Equal(want) {
			continue
		}
		findings = append(findings, domain.Discrepancy{
			ID:         fmt.Sprintf("DISC-BD-%s-%s", m.ID, uuid.New().String()[:8]),
			Type:       domain.DiscrepancyBalanceLedgerDrift,
			OwnerID:    m.ID,
			Expected:   want,
			Actual:     m.Balance,
			Difference: m.Balance.Sub(want),
			Severity:   severityByDrift(m.Balance.Sub(want).Abs()),
			Description: fmt.Sprintf(
				"member %s balance %s does not match ledger-derived %s",
				m.ID, m.Balance, want),
			DetectedAt: s.now().UTC(),
		})
	}
	return findings, nil
}

// detectReserveLedgerDrift recomputes the three accumulating reserves from
// the run splits recorded on distribution entries and flags any mismatch.
// Tax, operational, and owner reserves start at zero and only distribution
// runs fill them, so the ledger-derived sums are exact. The profit pool is
// excluded: accruals enter by admin seed, not through the ledger.
func (s *Service) detectReserveLedgerDrift(ctx context.Context) ([]domain.Discrepancy, error) {
	res, err := s.reserves.Get(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.ByType(ctx, domain.EntryProfitDistribution)
	if err != nil {
		return nil, err
	}

	// Every entry of a run repeats the run's split; count each run once.
	seen := make(map[string]bool)
	expTax, expOp, expOwner := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range entries {
		m := entries[i].Metadata.Distribution
		if m == nil || seen[m.RunID] {
			continue
		}
		seen[m.RunID] = true
		expTax = expTax.Add(m.Tax)
		expOp = expOp.Add(m.Operational)
		expOwner = expOwner.Add(m.Owner)
	}

	var findings []domain.Discrepancy
	for _, c := range []struct {
		name string
		want decimal.Decimal
		got  decimal.Decimal
	}{
		{"tax_reserve", expTax, res.TaxReserve},
		{"operational_reserve", expOp, res.OperationalReserve},
		{"owner_reserve", expOwner, res.OwnerReserve},
	} {
		if c.got.Equal(c.want) {
			continue
		}
		findings = append(findings, domain.Discrepancy{
			ID:         fmt.Sprintf("DISC-RD-%s", c.name),
			Type:       domain.DiscrepancyReserveLedgerDrift,
			EntityID:   c.name,
			Expected:   c.want,
			Actual:     c.got,
			Difference: c.got.Sub(c.want),
			Severity:   severityByDrift(c.got.Sub(c.want).Abs()),
			Description: fmt.Sprintf(
				"reserve %s holds %s but distribution entries account for %s",
				c.name, c.got, c.want),
			DetectedAt: s.now().UTC(),
		})
	}
	return findings, nil
}

func severityByDrift(abs decimal.Decimal) domain.Severity {
	switch {
	case abs.GreaterThan(decimal.NewFromInt(500)):
		return domain.SeverityCritical
	case abs.GreaterThan(decimal.NewFromInt(100)):
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}
