package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

// SettingsRepo reads the admin-editable fund_settings singleton. The engines
// only ever read it; writes come from the admin surface and the startup seed.
type SettingsRepo struct {
	db DBTX
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) WithTx(tx *sql.Tx) *SettingsRepo {
	return &SettingsRepo{db: tx}
}

// EnsureDefaults seeds the singleton from environment defaults when no admin
// record exists yet. An existing record always wins.
func (r *SettingsRepo) EnsureDefaults(ctx context.Context, s *domain.FundSettings) error {
	scoring, err := json.Marshal(s.Scoring)
	if err != nil {
		return fmt.Errorf("marshal scoring policy: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO fund_settings
		 (id, share_value, user_share_pct, tax_pct, operational_pct, owner_pct,
		  liquidation_after_days, scoring, updated_at)
		 VALUES (1,?,?,?,?,?,?,?,?)`,
		s.ShareValue.String(), s.UserSharePct.String(), s.TaxPct.String(),
		s.OperationalPct.String(), s.OwnerPct.String(),
		s.LiquidationAfterDays, string(scoring),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("seed fund settings: %w", err)
	}
	return nil
}

func (r *SettingsRepo) Get(ctx context.Context) (*domain.FundSettings, error) {
	var (
		s       domain.FundSettings
		share   string
		user    string
		tax     string
		op      string
		owner   string
		scoring string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT share_value, user_share_pct, tax_pct, operational_pct, owner_pct,
		        liquidation_after_days, scoring
		 FROM fund_settings WHERE id = 1`).
		Scan(&share, &user, &tax, &op, &owner, &s.LiquidationAfterDays, &scoring)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fund settings not seeded")
	}
	if err != nil {
		return nil, fmt.Errorf("read fund settings: %w", err)
	}

	for _, p := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{share, &s.ShareValue},
		{user, &s.UserSharePct},
		{tax, &s.TaxPct},
		{op, &s.OperationalPct},
		{owner, &s.OwnerPct},
	} {
		v, err := decimal.NewFromString(p.raw)
		if err != nil {
			return nil, fmt.Errorf("parse setting %q: %w", p.raw, err)
		}
		*p.dst = v
	}
	if err := json.Unmarshal([]byte(scoring), &s.Scoring); err != nil {
		return nil, fmt.Errorf("unmarshal scoring policy: %w", err)
	}
	return &s, nil
}
