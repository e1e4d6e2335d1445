package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemReserves is the singleton accounting record. ProfitPool is drained to
// zero exactly once per successful distribution run; the three named reserves
// only ever increase.
type SystemReserves struct {
	ProfitPool         decimal.Decimal `json:"profit_pool"`
	TaxReserve         decimal.Decimal `json:"tax_reserve"`
	OperationalReserve decimal.Decimal `json:"operational_reserve"`
	OwnerReserve       decimal.Decimal `json:"owner_reserve"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// FundSettings is the admin-editable singleton configuration record. The
// engines read it at the start of every pass and never write anything but the
// reserve fields they are authorized to increment (which live on
// SystemReserves, not here).
type FundSettings struct {
	ShareValue           decimal.Decimal `json:"share_value"`
	UserSharePct         decimal.Decimal `json:"user_share_pct"`
	TaxPct               decimal.Decimal `json:"tax_pct"`
	OperationalPct       decimal.Decimal `json:"operational_pct"`
	OwnerPct             decimal.Decimal `json:"owner_pct"`
	LiquidationAfterDays int             `json:"liquidation_after_days"`
	Scoring              ScoringPolicy   `json:"scoring"`
}

// ScoringPolicy holds the distribution multiplier constants. Treated as
// configuration, not code: the caps are business policy.
type ScoringPolicy struct {
	TwoFactorBoost  decimal.Decimal `json:"two_factor_boost"`
	PremiumBoost    decimal.Decimal `json:"premium_boost"`
	PaidLoanStep    decimal.Decimal `json:"paid_loan_step"`
	PaidLoanCap     decimal.Decimal `json:"paid_loan_cap"`
	SpendDivisor    decimal.Decimal `json:"spend_divisor"`
	SpendRatioCap   decimal.Decimal `json:"spend_ratio_cap"`
	SpendWeight     decimal.Decimal `json:"spend_weight"`
	RevenueDivisor  decimal.Decimal `json:"revenue_divisor"`
	RevenueRatioCap decimal.Decimal `json:"revenue_ratio_cap"`
	RevenueWeight   decimal.Decimal `json:"revenue_weight"`
}
