package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanActive LoanStatus = "ACTIVE"
	LoanPaid   LoanStatus = "PAID"
)

// Loan is the parent of a set of installments. InterestPaid is the realized
// interest collected so far; it feeds the revenue signal for distribution
// scoring.
type Loan struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Principal    decimal.Decimal `json:"principal"`
	InterestPaid decimal.Decimal `json:"interest_paid"`
	Status       LoanStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
)

// Installment moves exactly once from PENDING to PAID, either by normal
// repayment or by collateral liquidation.
type Installment struct {
	ID             string            `json:"id"`
	LoanID         string            `json:"loan_id"`
	OwnerID        string            `json:"owner_id"`
	ExpectedAmount decimal.Decimal   `json:"expected_amount"`
	DueDate        time.Time         `json:"due_date"`
	Status         InstallmentStatus `json:"status"`
	PaidAmount     decimal.Decimal   `json:"paid_amount"`
	UseBalance     bool              `json:"use_balance"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
}
