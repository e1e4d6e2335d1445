package domain

import "github.com/shopspring/decimal"

// MetadataKind tags which provenance shape an entry carries.
type MetadataKind string

const (
	MetaLiquidation  MetadataKind = "liquidation"
	MetaDistribution MetadataKind = "distribution"
	MetaLoanPayment  MetadataKind = "loan_payment"
	MetaCostPayment  MetadataKind = "cost_payment"
	MetaGeneric      MetadataKind = "generic"
)

// EntryMetadata is a tagged union of the known provenance shapes. Exactly one
// of the typed pointers matches Kind; Extra is a generic fallback for fields
// that have no typed home yet.
type EntryMetadata struct {
	Kind         MetadataKind      `json:"kind"`
	Liquidation  *LiquidationMeta  `json:"liquidation,omitempty"`
	Distribution *DistributionMeta `json:"distribution,omitempty"`
	LoanPayment  *LoanPaymentMeta  `json:"loan_payment,omitempty"`
	CostPayment  *CostPaymentMeta  `json:"cost_payment,omitempty"`
	Extra        map[string]any    `json:"extra,omitempty"`
}

// LiquidationMeta records the full provenance of a collateral seizure.
type LiquidationMeta struct {
	InstallmentID string          `json:"installment_id"`
	LoanID        string          `json:"loan_id"`
	QuotaIDs      []string        `json:"quota_ids"`
	QuotaCount    int             `json:"quota_count"`
	RedeemedValue decimal.Decimal `json:"redeemed_value"`
	Change        decimal.Decimal `json:"change"`
	Reason        string          `json:"reason"`
}

// DistributionMeta records how one member's payout was derived, plus the
// run-level split every entry of the run repeats. The split makes the ledger
// self-describing: the reserve totals can be recomputed from entries alone.
type DistributionMeta struct {
	RunID          string          `json:"run_id"`
	WeightedQuotas decimal.Decimal `json:"weighted_quotas"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	QuotaCount     int             `json:"quota_count"`
	Pool           decimal.Decimal `json:"pool"`
	TotalForUsers  decimal.Decimal `json:"total_for_users"`
	Tax            decimal.Decimal `json:"tax"`
	Operational    decimal.Decimal `json:"operational"`
	Owner          decimal.Decimal `json:"owner"`
}

type LoanPaymentMeta struct {
	InstallmentID string `json:"installment_id"`
	LoanID        string `json:"loan_id"`
	UseBalance    bool   `json:"use_balance"`
}

type CostPaymentMeta struct {
	Category  string `json:"category"`
	Reference string `json:"reference"`
}
