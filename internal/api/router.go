package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coopfund/ledger/internal/distribution"
	"github.com/coopfund/ledger/internal/liquidation"
	"github.com/coopfund/ledger/internal/reconcile"
	"github.com/coopfund/ledger/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	liquidationEngine *liquidation.Engine,
	allocator *distribution.Allocator,
	auditSvc *reconcile.Service,
	members *repository.MemberRepo,
	quotas *repository.QuotaRepo,
	entries *repository.LedgerRepo,
	reserves *repository.ReservesRepo,
	discs *repository.DiscrepancyRepo,
) http.Handler {
	h := &Handlers{
		liquidation: liquidationEngine,
		allocator:   allocator,
		audit:       auditSvc,
		members:     members,
		quotas:      quotas,
		entries:     entries,
		reserves:    reserves,
		discs:       discs,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Batch passes. The scheduler calls the same entry points.
		r.Post("/runs/liquidation", h.RunLiquidation)
		r.Post("/runs/distribution", h.RunDistribution)
		r.Post("/runs/audit", h.RunAudit)

		// Ledger and fund state.
		r.Get("/ledger", h.ListLedger)
		r.Get("/reserves", h.GetReserves)
		r.Get("/members/{id}", h.GetMember)
		r.Get("/members/{id}/quotas", h.GetMemberQuotas)

		// Audit findings.
		r.Get("/discrepancies", h.ListDiscrepancies)
		r.Get("/discrepancies/summary", h.GetDiscrepancySummary)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
