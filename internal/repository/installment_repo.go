package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

type InstallmentRepo struct {
	db DBTX
}

func NewInstallmentRepo(db *sql.DB) *InstallmentRepo {
	return &InstallmentRepo{db: db}
}

func (r *InstallmentRepo) WithTx(tx *sql.Tx) *InstallmentRepo {
	return &InstallmentRepo{db: tx}
}

func (r *InstallmentRepo) Insert(ctx context.Context, inst *domain.Installment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO installments (id, loan_id, owner_id, expected_amount, due_date, status, use_balance)
		 VALUES (?,?,?,?,?,?,?)`,
		inst.ID, inst.LoanID, inst.OwnerID, inst.ExpectedAmount.String(),
		inst.DueDate.Format(time.RFC3339), string(inst.Status), inst.UseBalance,
	)
	if err != nil {
		return fmt.Errorf("insert installment: %w", err)
	}
	return nil
}

func (r *InstallmentRepo) GetByID(ctx context.Context, id string) (*domain.Installment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, loan_id, owner_id, expected_amount, due_date, status,
		        paid_amount, use_balance, paid_at
		 FROM installments WHERE id = ?`, id)
	return scanInstallment(row)
}

// OverduePending returns PENDING installments with a due date on or before
// the cutoff, oldest debt first: the liquidation engine's work queue.
func (r *InstallmentRepo) OverduePending(ctx context.Context, cutoff time.Time) ([]domain.Installment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, loan_id, owner_id, expected_amount, due_date, status,
		        paid_amount, use_balance, paid_at
		 FROM installments
		 WHERE status = 'PENDING' AND due_date < ?
		 ORDER BY due_date ASC`, cutoff.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query overdue installments: %w", err)
	}
	defer rows.Close()

	var insts []domain.Installment
	for rows.Next() {
		inst, err := scanInstallmentRows(rows)
		if err != nil {
			return nil, err
		}
		insts = append(insts, *inst)
	}
	return insts, rows.Err()
}

// MarkPaid settles a PENDING installment. The status guard makes the
// transition one-shot: a zero affected count means another writer got there
// first and the caller must roll back.
func (r *InstallmentRepo) MarkPaid(ctx context.Context, id string, amount decimal.Decimal, useBalance bool, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE installments
		 SET status = 'PAID', paid_amount = ?, use_balance = ?, paid_at = ?
		 WHERE id = ? AND status = 'PENDING'`,
		amount.String(), useBalance, at.Format(time.RFC3339), id)
	if err != nil {
		return 0, fmt.Errorf("mark installment paid: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanInstallment(row *sql.Row) (*domain.Installment, error) {
	var (
		inst     domain.Installment
		expected string
		due      string
		status   string
		paidAmt  sql.NullString
		paidAt   sql.NullString
	)
	err := row.Scan(&inst.ID, &inst.LoanID, &inst.OwnerID, &expected, &due,
		&status, &paidAmt, &inst.UseBalance, &paidAt)
	if err != nil {
		return nil, err
	}
	return fillInstallment(&inst, expected, due, status, paidAmt, paidAt)
}

func scanInstallmentRows(rows *sql.Rows) (*domain.Installment, error) {
	var (
		inst     domain.Installment
		expected string
		due      string
		status   string
		paidAmt  sql.NullString
		paidAt   sql.NullString
	)
	err := rows.Scan(&inst.ID, &inst.LoanID, &inst.OwnerID, &expected, &due,
		&status, &paidAmt, &inst.UseBalance, &paidAt)
	if err != nil {
		return nil, fmt.Errorf("scan installment: %w", err)
	}
	return fillInstallment(&inst, expected, due, status, paidAmt, paidAt)
}

func fillInstallment(inst *domain.Installment, expected, due, status string, paidAmt, paidAt sql.NullString) (*domain.Installment, error) {
	var err error
	inst.ExpectedAmount, err = decimal.NewFromString(expected)
	if err != nil {
		return nil, fmt.Errorf("parse expected amount %q: %w", expected, err)
	}
	inst.DueDate, _ = time.Parse(time.RFC3339, due)
	inst.Status = domain.InstallmentStatus(status)
	if paidAmt.Valid {
		inst.PaidAmount, err = decimal.NewFromString(paidAmt.String)
		if err != nil {
			return nil, fmt.Errorf("parse paid amount %q: %w", paidAmt.String, err)
		}
	}
	if paidAt.Valid {
		t, _ := time.Parse(time.RFC3339, paidAt.String)
		inst.PaidAt = &t
	}
	return inst, nil
}
