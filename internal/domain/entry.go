package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType enumerates the ledger entry kinds. The enumerations below also
// drive the distribution scoring signals: spendTypes counts toward a member's
// approved spend, revenueTypes toward the platform revenue they generated.
type EntryType string

const (
	EntryDeposit            EntryType = "deposit"
	EntryWithdrawal         EntryType = "withdrawal"
	EntryTransferIn         EntryType = "transfer_in"
	EntryTransferOut        EntryType = "transfer_out"
	EntryBonus              EntryType = "bonus"
	EntryPurchase           EntryType = "purchase"
	EntryQuotaPurchase      EntryType = "quota_purchase"
	EntryQuotaSaleFee       EntryType = "quota_sale_fee"
	EntryLoanPayment        EntryType = "loan_payment"
	EntryLoanLiquidation    EntryType = "loan_liquidation"
	EntryProfitDistribution EntryType = "profit_distribution"
	EntryCostPayment        EntryType = "cost_payment"
)

type EntryStatus string

const (
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

// SpendTypes are the entry types counted as approved spend for scoring.
// Pure money movement (deposits, withdrawals, transfers, bonuses) is excluded.
var SpendTypes = []EntryType{
	EntryPurchase, EntryQuotaPurchase, EntryQuotaSaleFee, EntryLoanPayment,
}

// RevenueTypes are the fee-bearing entry types that make a member eligible
// for profit distribution and contribute to their revenue signal.
var RevenueTypes = []EntryType{
	EntryPurchase, EntryQuotaSaleFee, EntryLoanPayment, EntryLoanLiquidation,
}

// LedgerEntry is an append-only record: the sole source of truth for audit
// and reconciliation. Immutable once written.
type LedgerEntry struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Type      EntryType       `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    EntryStatus     `json:"status"`
	Metadata  EntryMetadata   `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// BalanceDelta reports how a completed entry moves the owner's balance:
// positive credits, negative debits, zero when the entry settles outside the
// balance (a liquidation pays debt from quotas; only the change is credited).
func (e *LedgerEntry) BalanceDelta() decimal.Decimal {
	if e.Status != EntryCompleted {
		return decimal.Zero
	}
	switch e.Type {
	case EntryDeposit, EntryBonus, EntryTransferIn, EntryProfitDistribution:
		return e.Amount
	case EntryWithdrawal, EntryTransferOut, EntryPurchase, EntryQuotaPurchase,
		EntryQuotaSaleFee, EntryCostPayment:
		return e.Amount.Neg()
	case EntryLoanPayment:
		if m := e.Metadata.LoanPayment; m != nil && !m.UseBalance {
			return decimal.Zero
		}
		return e.Amount.Neg()
	case EntryLoanLiquidation:
		if m := e.Metadata.Liquidation; m != nil {
			return m.Change
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
