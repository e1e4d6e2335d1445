// Package distribution divides the accumulated profit pool among eligible
// members using a multi-factor weighting formula.
package distribution

import (
	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/money"
)

var one = decimal.NewFromInt(1)

// MemberScore is a member's computed allocation weight.
type MemberScore struct {
	OwnerID        string          `json:"owner_id"`
	Eligible       bool            `json:"eligible"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	WeightedQuotas decimal.Decimal `json:"weighted_quotas"`
	QuotaCount     int             `json:"quota_count"`
}

// Score computes a member's engagement multiplier and weighted quota count.
// Members with no revenue-bearing event are excluded entirely, whatever they
// hold: the distribution rewards platform usage, not passive holding.
func Score(sig domain.MemberSignals, policy domain.ScoringPolicy) MemberScore {
	score := MemberScore{
		OwnerID:        sig.OwnerID,
		QuotaCount:     sig.QuotaCount,
		Multiplier:     decimal.Zero,
		WeightedQuotas: decimal.Zero,
	}
	if sig.RevenueEvents == 0 {
		return score
	}
	score.Eligible = true

	m := one
	if sig.TwoFactorEnabled {
		m = m.Add(policy.TwoFactorBoost)
	}
	if sig.Tier == domain.TierPremium {
		m = m.Add(policy.PremiumBoost)
	}

	// Payment-history bonus, capped.
	loanBonus := policy.PaidLoanStep.Mul(decimal.NewFromInt(int64(sig.PaidLoans)))
	m = m.Add(money.Min(loanBonus, policy.PaidLoanCap))

	// Spend bonus: the ratio caps, then a fixed weight applies.
	spendRatio := money.Min(sig.TotalSpent.Div(policy.SpendDivisor), policy.SpendRatioCap)
	m = m.Add(spendRatio.Mul(policy.SpendWeight))

	// Revenue bonus, same shape.
	revenueRatio := money.Min(sig.RevenueGenerated.Div(policy.RevenueDivisor), policy.RevenueRatioCap)
	m = m.Add(revenueRatio.Mul(policy.RevenueWeight))

	score.Multiplier = m
	score.WeightedQuotas = decimal.NewFromInt(int64(sig.QuotaCount)).Mul(m)
	return score
}

// ScoreAll scores every member and returns the eligible scores plus the total
// weighted quota count.
func ScoreAll(signals []domain.MemberSignals, policy domain.ScoringPolicy) ([]MemberScore, decimal.Decimal) {
	var eligible []MemberScore
	total := decimal.Zero
	for _, sig := range signals {
		score := Score(sig, policy)
		if !score.Eligible || score.WeightedQuotas.IsZero() {
			continue
		}
		eligible = append(eligible, score)
		total = total.Add(score.WeightedQuotas)
	}
	return eligible, total
}
