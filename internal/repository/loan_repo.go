package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coopfund/ledger/internal/domain"
)

type LoanRepo struct {
	db DBTX
}

func NewLoanRepo(db *sql.DB) *LoanRepo {
	return &LoanRepo{db: db}
}

func (r *LoanRepo) WithTx(tx *sql.Tx) *LoanRepo {
	return &LoanRepo{db: tx}
}

func (r *LoanRepo) Insert(ctx context.Context, l *domain.Loan) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loans (id, owner_id, principal, interest_paid, status, created_at)
		 VALUES (?,?,?,?,?,?)`,
		l.ID, l.OwnerID, l.Principal.String(), l.InterestPaid.String(),
		string(l.Status), l.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// MarkPaidIfSettled flips a loan to PAID when no PENDING installments remain.
func (r *LoanRepo) MarkPaidIfSettled(ctx context.Context, loanID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE loans SET status = 'PAID'
		 WHERE id = ? AND status = 'ACTIVE'
		   AND NOT EXISTS (
			SELECT 1 FROM installments i
			WHERE i.loan_id = loans.id AND i.status = 'PENDING')`,
		loanID)
	if err != nil {
		return fmt.Errorf("settle loan %s: %w", loanID, err)
	}
	return nil
}
