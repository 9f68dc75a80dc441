package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/auth"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/reporting"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/storage"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// SyncRunner triggers a single CATI sync
type SyncRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// AdminHandler handles operator endpoints for the call history store
type AdminHandler struct {
	store  storage.Store
	syncer SyncRunner // nil when sync is not configured
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler. syncer may be nil.
func NewAdminHandler(store storage.Store, syncer SyncRunner, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		store:  store,
		syncer: syncer,
		logger: logger.With().Str("component", "admin_handler").Logger(),
	}
}

// RequireAdmin allows only the admin role
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || !auth.HasRole(claims, auth.RoleAdmin) {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSupervisorOrAdmin allows the supervisor and admin roles
func RequireSupervisorOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || (claims.Role != auth.RoleAdmin && claims.Role != auth.RoleSupervisor) {
			writeError(w, http.StatusForbidden, "supervisor or admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunSync copies recent CATI dial history into the store
// POST /api/admin/sync
func (h *AdminHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}

	written, err := h.syncer.RunOnce(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual sync failed")
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "sync completed",
		"records": written,
	})
}

// maxSeedDials caps the dials one seed request may generate
const maxSeedDials = 100_000

type seedRequest struct {
	Interviewers   []string `json:"interviewers"`
	Questionnaires []string `json:"questionnaires,omitempty"`
	StartDate      string   `json:"start_date"`
	Days           int      `json:"days"`
	DialsPerDay    int      `json:"dials_per_day"`
	Seed           int64    `json:"seed"`
}

// SeedCallHistory writes synthetic dials for local development
// POST /api/admin/seed
func (h *AdminHandler) SeedCallHistory(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := time.Parse(types.DateLayout, req.StartDate)
	if err != nil || len(req.Interviewers) == 0 || req.Days <= 0 || req.DialsPerDay <= 0 {
		writeError(w, http.StatusBadRequest, "interviewers, start_date, days and dials_per_day are required")
		return
	}
	if !withinSeedLimit(len(req.Interviewers), req.Days, req.DialsPerDay) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("seed request exceeds %d dials", maxSeedDials))
		return
	}

	records := reporting.NewSeedGenerator(reporting.SeedConfig{
		Interviewers:   req.Interviewers,
		Questionnaires: req.Questionnaires,
		Start:          start,
		Days:           req.Days,
		DialsPerDay:    req.DialsPerDay,
		MissingEndRate: 0.02,
		Seed:           req.Seed,
	}).Generate()

	written, err := h.store.SaveCallRecords(r.Context(), records)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save seeded call history")
		writeError(w, http.StatusInternalServerError, "failed to save call history")
		return
	}

	h.logger.Info().Int("records", written).Strs("interviewers", req.Interviewers).Msg("call history seeded")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "call history seeded",
		"records": written,
	})
}

func withinSeedLimit(factors ...int) bool {
	total := 1
	for _, f := range factors {
		if f > maxSeedDials/total {
			return false
		}
		total *= f
	}
	return total <= maxSeedDials
}

// WipeCallHistory truncates the call history store
// DELETE /api/admin/call-history
func (h *AdminHandler) WipeCallHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate call history")
		writeError(w, http.StatusInternalServerError, "failed to truncate call history")
		return
	}

	h.logger.Info().Msg("call history truncated")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "call history truncated",
	})
}
