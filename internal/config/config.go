// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration. Fund-policy fields are only the
// seed defaults: once the fund_settings row exists in the database, the
// admin-editable record wins.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"coopfund.db"`

	SchedulerEnabled     bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	LiquidationInterval  time.Duration `env:"LIQUIDATION_INTERVAL" envDefault:"24h"`
	DistributionInterval time.Duration `env:"DISTRIBUTION_INTERVAL" envDefault:"24h"`

	// Seed defaults for the fund_settings singleton.
	ShareValue           decimal.Decimal `env:"SHARE_VALUE" envDefault:"42.00"`
	UserSharePct         decimal.Decimal `env:"USER_SHARE_PCT" envDefault:"0.60"`
	TaxPct               decimal.Decimal `env:"TAX_PCT" envDefault:"0.15"`
	OperationalPct       decimal.Decimal `env:"OPERATIONAL_PCT" envDefault:"0.15"`
	OwnerPct             decimal.Decimal `env:"OWNER_PCT" envDefault:"0.10"`
	LiquidationAfterDays int             `env:"LIQUIDATION_AFTER_DAYS" envDefault:"35"`

	Scoring ScoringConfig `envPrefix:"SCORING_"`
}

// ScoringConfig seeds the distribution multiplier policy. The caps are
// business constants without documented justification upstream, so they are
// configuration rather than code.
type ScoringConfig struct {
	TwoFactorBoost  decimal.Decimal `env:"TWO_FACTOR_BOOST" envDefault:"0.10"`
	PremiumBoost    decimal.Decimal `env:"PREMIUM_BOOST" envDefault:"0.20"`
	PaidLoanStep    decimal.Decimal `env:"PAID_LOAN_STEP" envDefault:"0.05"`
	PaidLoanCap     decimal.Decimal `env:"PAID_LOAN_CAP" envDefault:"0.50"`
	SpendDivisor    decimal.Decimal `env:"SPEND_DIVISOR" envDefault:"500"`
	SpendRatioCap   decimal.Decimal `env:"SPEND_RATIO_CAP" envDefault:"2.0"`
	SpendWeight     decimal.Decimal `env:"SPEND_WEIGHT" envDefault:"0.10"`
	RevenueDivisor  decimal.Decimal `env:"REVENUE_DIVISOR" envDefault:"100"`
	RevenueRatioCap decimal.Decimal `env:"REVENUE_RATIO_CAP" envDefault:"3.0"`
	RevenueWeight   decimal.Decimal `env:"REVENUE_WEIGHT" envDefault:"0.20"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	sum := cfg.UserSharePct.Add(cfg.TaxPct).Add(cfg.OperationalPct).Add(cfg.OwnerPct)
	if !sum.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("reserve split percentages must sum to 1.0, got %s", sum)
	}
	if !cfg.ShareValue.IsPositive() {
		return nil, fmt.Errorf("share value must be positive, got %s", cfg.ShareValue)
	}

	return cfg, nil
}
