package domain

import "github.com/shopspring/decimal"

// MemberSignals are the raw behavioral and revenue inputs to distribution
// scoring, aggregated per member from the quota book, loans, and the ledger.
type MemberSignals struct {
	OwnerID          string
	Tier             MemberTier
	TwoFactorEnabled bool
	QuotaCount       int
	PaidLoans        int
	TotalSpent       decimal.Decimal
	RevenueGenerated decimal.Decimal
	// RevenueEvents counts revenue-bearing events (fee-bearing ledger
	// entries plus fully-paid loans). Zero means the member is excluded
	// from distribution regardless of quota holdings.
	RevenueEvents int
}
