package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscrepancyType string

const (
	DiscrepancyNegativeBalance    DiscrepancyType = "NEGATIVE_BALANCE"
	DiscrepancyNegativeReserve    DiscrepancyType = "NEGATIVE_RESERVE"
	DiscrepancyUnbackedSeizure    DiscrepancyType = "UNBACKED_SEIZURE"
	DiscrepancySeizureValueDrift  DiscrepancyType = "SEIZURE_VALUE_DRIFT"
	DiscrepancyBalanceLedgerDrift DiscrepancyType = "BALANCE_LEDGER_DRIFT"
	DiscrepancyReserveLedgerDrift DiscrepancyType = "RESERVE_LEDGER_DRIFT"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Discrepancy is a conservation-audit finding: a place where the ledger, the
// balances, or the quota book disagree. Findings are stored for admin review,
// never auto-corrected.
type Discrepancy struct {
	ID          string          `json:"id"`
	Type        DiscrepancyType `json:"type"`
	OwnerID     string          `json:"owner_id,omitempty"`
	EntityID    string          `json:"entity_id,omitempty"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
	Difference  decimal.Decimal `json:"difference"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	DetectedAt  time.Time       `json:"detected_at"`
}
