package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuotaStatus string

const (
	QuotaActive     QuotaStatus = "ACTIVE"
	QuotaLiquidated QuotaStatus = "LIQUIDATED"
	QuotaSold       QuotaStatus = "SOLD"
)

// Quota is a fixed-value share of the fund. ShareValue is frozen at issue
// time and a LIQUIDATED quota is never revived.
type Quota struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	ShareValue   decimal.Decimal `json:"share_value"`
	Status       QuotaStatus     `json:"status"`
	PurchaseDate time.Time       `json:"purchase_date"`

	// Liquidation provenance, set once when the quota is seized.
	LiquidatedAt      *time.Time `json:"liquidated_at,omitempty"`
	LiquidationReason string     `json:"liquidation_reason,omitempty"`
	InstallmentID     string     `json:"installment_id,omitempty"`
}
