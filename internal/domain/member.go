package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MemberTier string

const (
	TierStandard MemberTier = "standard"
	TierPremium  MemberTier = "premium"
)

// Member is a cooperative member. Balance is the single source of spendable
// funds and is only ever adjusted by signed deltas inside a ledger
// transaction.
type Member struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Tier             MemberTier      `json:"tier"`
	TwoFactorEnabled bool            `json:"two_factor_enabled"`
	Balance          decimal.Decimal `json:"balance"`
	CreatedAt        time.Time       `json:"created_at"`
}
