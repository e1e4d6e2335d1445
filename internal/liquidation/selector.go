// Package liquidation seizes a debtor's quotas to settle severely overdue
// loan installments.
package liquidation

import (
	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/money"
)

// Selection is the outcome of picking quotas to redeem against a debt.
type Selection struct {
	Quotas        []domain.Quota
	RedeemedValue decimal.Decimal
	Change        decimal.Decimal
	// Covered is false when the owner's ACTIVE quotas cannot fully cover
	// the debt. The engine never executes a partial seizure.
	Covered bool
}

// SelectQuotas picks the quotas to redeem for a debt from the owner's ACTIVE
// quotas, which must be ordered oldest-first: oldest capital is redeemed
// first, like FIFO inventory costing. It takes ceil(debt/shareValue) quotas;
// RedeemedValue is count*shareValue and Change = RedeemedValue - debt is
// non-negative whenever Covered.
func SelectQuotas(active []domain.Quota, debt, shareValue decimal.Decimal) Selection {
	needed := money.QuotasNeeded(debt, shareValue)
	if needed == 0 || len(active) == 0 {
		return Selection{RedeemedValue: decimal.Zero, Change: decimal.Zero}
	}

	take := needed
	if take > len(active) {
		take = len(active)
	}

	selected := active[:take]
	redeemed := shareValue.Mul(decimal.NewFromInt(int64(take)))

	sel := Selection{
		Quotas:        selected,
		RedeemedValue: redeemed,
		Covered:       take == needed,
	}
	if sel.Covered {
		sel.Change = redeemed.Sub(debt)
	} else {
		sel.Change = decimal.Zero
	}
	return sel
}
