package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/api"
	"github.com/coopfund/ledger/internal/config"
	"github.com/coopfund/ledger/internal/distribution"
	"github.com/coopfund/ledger/internal/domain"
	"github.com/coopfund/ledger/internal/ledger"
	"github.com/coopfund/ledger/internal/liquidation"
	"github.com/coopfund/ledger/internal/notify"
	"github.com/coopfund/ledger/internal/observability"
	"github.com/coopfund/ledger/internal/reconcile"
	"github.com/coopfund/ledger/internal/repository"
	"github.com/coopfund/ledger/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		slog.Error("init db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Repositories.
	members := repository.NewMemberRepo(db)
	quotas := repository.NewQuotaRepo(db)
	loans := repository.NewLoanRepo(db)
	installments := repository.NewInstallmentRepo(db)
	entries := repository.NewLedgerRepo(db)
	reserves := repository.NewReservesRepo(db)
	settings := repository.NewSettingsRepo(db)
	discs := repository.NewDiscrepancyRepo(db)

	ctx := context.Background()
	if err := reserves.EnsureRow(ctx); err != nil {
		slog.Error("ensure reserves", "error", err)
		os.Exit(1)
	}
	if err := settings.EnsureDefaults(ctx, defaultSettings(cfg)); err != nil {
		slog.Error("seed settings", "error", err)
		os.Exit(1)
	}

	// Executor, sinks, engines.
	exec := ledger.NewExecutor(db)
	dispatcher := notify.NewDispatcher(
		notify.NewLogNotifier(slog.Default()),
		notify.NewLogAuditSink(slog.Default()),
		slog.Default(),
	)
	defer dispatcher.Close()
	metrics := observability.New()

	liquidationEngine := liquidation.NewEngine(
		exec, installments, quotas, members, loans, entries, settings, dispatcher, metrics)
	allocator := distribution.NewAllocator(
		exec, members, reserves, entries, settings, dispatcher, metrics)
	auditSvc := reconcile.NewService(
		members, quotas, entries, reserves, discs, dispatcher, metrics)

	// Seed fixtures if the database is empty.
	count, err := members.Count(ctx)
	if err != nil {
		slog.Error("count members", "error", err)
		os.Exit(1)
	}
	if count == 0 {
		slog.Info("database is empty, seeding from testdata")
		if err := seedFund(ctx, db, reserves); err != nil {
			slog.Warn("seeding failed", "error", err)
		}
	} else {
		slog.Info("database already populated, skipping seed", "members", count)
	}

	// Scheduler stand-in: both passes are idempotent no-ops when nothing is
	// eligible, so the loop just fires on a timer.
	if cfg.SchedulerEnabled {
		go runEvery(ctx, cfg.LiquidationInterval, func() {
			if _, err := liquidationEngine.RunPass(ctx); err != nil {
				slog.Error("scheduled liquidation pass failed", "error", err)
			}
		})
		go runEvery(ctx, cfg.DistributionInterval, func() {
			if _, err := allocator.RunPass(ctx); err != nil {
				slog.Error("scheduled distribution pass failed", "error", err)
			}
			if _, err := auditSvc.RunFullAudit(ctx); err != nil {
				slog.Error("scheduled audit failed", "error", err)
			}
		})
	}

	router := api.NewRouter(
		liquidationEngine, allocator, auditSvc,
		members, quotas, entries, reserves, discs)

	slog.Info("cooperative fund ledger started",
		"address", "http://localhost:"+cfg.Port,
		"api_base", "/api/v1")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func runEvery(ctx context.Context, interval time.Duration, pass func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass()
		}
	}
}

func defaultSettings(cfg *config.Config) *domain.FundSettings {
	return &domain.FundSettings{
		ShareValue:           cfg.ShareValue,
		UserSharePct:         cfg.UserSharePct,
		TaxPct:               cfg.TaxPct,
		OperationalPct:       cfg.OperationalPct,
		OwnerPct:             cfg.OwnerPct,
		LiquidationAfterDays: cfg.LiquidationAfterDays,
		Scoring: domain.ScoringPolicy{
			TwoFactorBoost:  cfg.Scoring.TwoFactorBoost,
			PremiumBoost:    cfg.Scoring.PremiumBoost,
			PaidLoanStep:    cfg.Scoring.PaidLoanStep,
			PaidLoanCap:     cfg.Scoring.PaidLoanCap,
			SpendDivisor:    cfg.Scoring.SpendDivisor,
			SpendRatioCap:   cfg.Scoring.SpendRatioCap,
			SpendWeight:     cfg.Scoring.SpendWeight,
			RevenueDivisor:  cfg.Scoring.RevenueDivisor,
			RevenueRatioCap: cfg.Scoring.RevenueRatioCap,
			RevenueWeight:   cfg.Scoring.RevenueWeight,
		},
	}
}

// fixtures is the JSON shape produced by testdata/generate.
type fixtures struct {
	Members      []domain.Member      `json:"members"`
	Quotas       []domain.Quota       `json:"quotas"`
	Loans        []domain.Loan        `json:"loans"`
	Installments []domain.Installment `json:"installments"`
	Entries      []domain.LedgerEntry `json:"entries"`
	ProfitPool   string               `json:"profit_pool"`
}

func seedFund(ctx context.Context, db *sql.DB, reserves *repository.ReservesRepo) error {
	// Try multiple possible locations for testdata.
	candidates := []string{
		"testdata/fixtures.json",
		filepath.Join(".", "testdata", "fixtures.json"),
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "testdata", "fixtures.json"),
			filepath.Join(dir, "..", "..", "testdata", "fixtures.json"),
		)
	}

	var data []byte
	var loadErr error
	for _, path := range candidates {
		data, loadErr = os.ReadFile(path)
		if loadErr == nil {
			slog.Info("loaded fixtures", "path", path)
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find fixtures.json in any candidate path: %w", loadErr)
	}

	var fx fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("unmarshal fixtures: %w", err)
	}

	members := repository.NewMemberRepo(db)
	quotas := repository.NewQuotaRepo(db)
	loans := repository.NewLoanRepo(db)
	installments := repository.NewInstallmentRepo(db)
	entries := repository.NewLedgerRepo(db)

	for i := range fx.Members {
		if err := members.Insert(ctx, &fx.Members[i]); err != nil {
			return err
		}
	}
	for i := range fx.Quotas {
		if err := quotas.Insert(ctx, &fx.Quotas[i]); err != nil {
			return err
		}
	}
	for i := range fx.Loans {
		if err := loans.Insert(ctx, &fx.Loans[i]); err != nil {
			return err
		}
	}
	for i := range fx.Installments {
		if err := installments.Insert(ctx, &fx.Installments[i]); err != nil {
			return err
		}
	}
	for i := range fx.Entries {
		if err := entries.Insert(ctx, &fx.Entries[i]); err != nil {
			return err
		}
	}
	if fx.ProfitPool != "" {
		pool, err := decimal.NewFromString(fx.ProfitPool)
		if err != nil {
			return fmt.Errorf("parse profit pool %q: %w", fx.ProfitPool, err)
		}
		if pool.IsPositive() {
			if err := reserves.AddToProfitPool(ctx, pool); err != nil {
				return err
			}
		}
	}

	slog.Info("seeded fund",
		"members", len(fx.Members),
		"quotas", len(fx.Quotas),
		"loans", len(fx.Loans),
		"installments", len(fx.Installments),
		"entries", len(fx.Entries))
	return nil
}
