package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coopfund/ledger/internal/distribution"
	"github.com/coopfund/ledger/internal/liquidation"
	"github.com/coopfund/ledger/internal/reconcile"
	"github.com/coopfund/ledger/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	liquidation *liquidation.Engine
	allocator   *distribution.Allocator
	audit       *reconcile.Service
	members     *repository.MemberRepo
	quotas      *repository.QuotaRepo
	entries     *repository.LedgerRepo
	reserves    *repository.ReservesRepo
	discs       *repository.DiscrepancyRepo
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- batch passes ---

func (h *Handlers) RunLiquidation(w http.ResponseWriter, r *http.Request) {
	result, err := h.liquidation.RunPass(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) RunDistribution(w http.ResponseWriter, r *http.Request) {
	result, err := h.allocator.RunPass(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) RunAudit(w http.ResponseWriter, r *http.Request) {
	result, err := h.audit.RunFullAudit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- ledger and fund state ---

func (h *Handlers) ListLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.EntryFilter{
		OwnerID: q.Get("owner_id"),
		Type:    q.Get("type"),
		Page:    parseIntDefault(q.Get("page"), 1),
		Limit:   parseIntDefault(q.Get("limit"), 50),
	}

	entries, total, err := h.entries.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

func (h *Handlers) GetReserves(w http.ResponseWriter, r *http.Request) {
	reserves, err := h.reserves.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reserves)
}

func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	member, err := h.members.GetByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handlers) GetMemberQuotas(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quotas, err := h.quotas.ByOwner(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner_id": id,
		"quotas":   quotas,
		"total":    len(quotas),
	})
}

// --- audit findings ---

func (h *Handlers) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DiscrepancyFilter{
		Type:     q.Get("type"),
		Severity: q.Get("severity"),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 50),
	}

	discs, total, err := h.discs.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"discrepancies": discs,
		"total":         total,
		"page":          filter.Page,
		"limit":         filter.Limit,
	})
}

func (h *Handlers) GetDiscrepancySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.discs.GetSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberCount, err := h.members.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	activeQuotas, err := h.quotas.CountByStatus(ctx, "ACTIVE")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	liquidatedQuotas, err := h.quotas.CountByStatus(ctx, "LIQUIDATED")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	activeValue, err := h.quotas.ActiveValue(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reserves, err := h.reserves.Get(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entryCount, err := h.entries.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	discSummary, err := h.discs.GetSummary(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"members": map[string]int{
			"total": memberCount,
		},
		"quotas": map[string]any{
			"active":       activeQuotas,
			"liquidated":   liquidatedQuotas,
			"active_value": activeValue,
		},
		"reserves":      reserves,
		"ledger_size":   entryCount,
		"discrepancies": discSummary,
	})
}
