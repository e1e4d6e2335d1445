package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

// ErrNegativeBalance is returned when a debit would push a member's balance
// below zero. The enclosing transaction must roll back.
var ErrNegativeBalance = errors.New("balance would go negative")

type MemberRepo struct {
	db DBTX
}

func NewMemberRepo(db *sql.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// WithTx returns a copy of the repo bound to the given transaction.
func (r *MemberRepo) WithTx(tx *sql.Tx) *MemberRepo {
	return &MemberRepo{db: tx}
}

func (r *MemberRepo) Insert(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, name, tier, two_factor_enabled, balance, created_at)
		 VALUES (?,?,?,?,?,?)`,
		m.ID, m.Name, string(m.Tier), m.TwoFactorEnabled,
		m.Balance.String(), m.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, tier, two_factor_enabled, balance, created_at
		 FROM members WHERE id = ?`, id)
	return scanMember(row)
}

func (r *MemberRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&count)
	return count, err
}

func (r *MemberRepo) ListAll(ctx context.Context) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, tier, two_factor_enabled, balance, created_at
		 FROM members ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var (
			m       domain.Member
			tier    string
			balance string
			created string
		)
		if err := rows.Scan(&m.ID, &m.Name, &tier, &m.TwoFactorEnabled, &balance, &created); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Tier = domain.MemberTier(tier)
		m.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("parse balance for %s: %w", m.ID, err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, created)
		members = append(members, m)
	}
	return members, rows.Err()
}

// AdjustBalance applies a signed delta to the member's balance. It must run
// inside a ledger transaction: the read and write are only safe under the
// executor's exclusive unit. A debit that would go negative is rejected
// before any write.
func (r *MemberRepo) AdjustBalance(ctx context.Context, ownerID string, delta decimal.Decimal) error {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT balance FROM members WHERE id = ?", ownerID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("member %s not found", ownerID)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}

	current, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse balance %q: %w", raw, err)
	}

	next := current.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: member %s has %s, delta %s", ErrNegativeBalance, ownerID, current, delta)
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE members SET balance = ? WHERE id = ?", next.String(), ownerID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("update balance: expected 1 row, got %d", n)
	}
	return nil
}

// Signals aggregates per-member scoring inputs across the quota book, loans,
// and the ledger. Spend and revenue sums feed a capped ratio, so SQL REAL
// precision is acceptable here; conservation-critical sums are computed
// elsewhere over decimals.
func (r *MemberRepo) Signals(ctx context.Context) ([]domain.MemberSignals, error) {
	spendIn, spendArgs := inClause(domain.SpendTypes)
	revIn, revArgs := inClause(domain.RevenueTypes)

	query := `
		SELECT m.id, m.tier, m.two_factor_enabled,
			(SELECT COUNT(*) FROM quotas q
				WHERE q.owner_id = m.id AND q.status = 'ACTIVE'),
			(SELECT COUNT(*) FROM loans l
				WHERE l.owner_id = m.id AND l.status = 'PAID'),
			(SELECT COALESCE(SUM(CAST(l.interest_paid AS REAL)), 0) FROM loans l
				WHERE l.owner_id = m.id AND l.status = 'PAID'),
			(SELECT COALESCE(SUM(CAST(e.amount AS REAL)), 0) FROM ledger_entries e
				WHERE e.owner_id = m.id AND e.status = 'completed' AND e.type IN ` + spendIn + `),
			(SELECT COALESCE(SUM(CAST(e.amount AS REAL)), 0) FROM ledger_entries e
				WHERE e.owner_id = m.id AND e.status = 'completed' AND e.type IN ` + revIn + `),
			(SELECT COUNT(*) FROM ledger_entries e
				WHERE e.owner_id = m.id AND e.status = 'completed' AND e.type IN ` + revIn + `)
		FROM members m
		ORDER BY m.created_at
	`
	args := append(spendArgs, revArgs...)
	args = append(args, revArgs...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var signals []domain.MemberSignals
	for rows.Next() {
		var (
			s        domain.MemberSignals
			tier     string
			interest float64
			spent    float64
			revenue  float64
		)
		err := rows.Scan(&s.OwnerID, &tier, &s.TwoFactorEnabled,
			&s.QuotaCount, &s.PaidLoans, &interest, &spent, &revenue, &s.RevenueEvents)
		if err != nil {
			return nil, fmt.Errorf("scan signals: %w", err)
		}
		s.Tier = domain.MemberTier(tier)
		s.TotalSpent = decimal.NewFromFloat(spent)
		s.RevenueGenerated = decimal.NewFromFloat(revenue).Add(decimal.NewFromFloat(interest))
		// A fully-paid loan is a revenue-bearing event in its own right.
		s.RevenueEvents += s.PaidLoans
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

func inClause(types []domain.EntryType) (string, []any) {
	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(types)), ",") + ")", args
}

func scanMember(row *sql.Row) (*domain.Member, error) {
	var (
		m       domain.Member
		tier    string
		balance string
		created string
	)
	err := row.Scan(&m.ID, &m.Name, &tier, &m.TwoFactorEnabled, &balance, &created)
	if err != nil {
		return nil, err
	}
	m.Tier = domain.MemberTier(tier)
	m.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &m, nil
}
