package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/auth"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/callpattern"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/export"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/reporting"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// SyncStatus reports when call history was last refreshed from CATI
type SyncStatus interface {
	LastSync() time.Time
}

// ReportHandler provides REST endpoints for interviewer reports
type ReportHandler struct {
	service *reporting.Service
	status  SyncStatus // nil when sync is not configured
	logger  zerolog.Logger
}

// NewReportHandler creates a new ReportHandler. status may be nil.
func NewReportHandler(service *reporting.Service, status SyncStatus, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		status:  status,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// GetCallPattern returns the call pattern report for an interviewer, or {}
// when they made no dials in range
// GET /api/reports/call-pattern/{interviewer}?start-date=&end-date=&survey-tla=
func (h *ReportHandler) GetCallPattern(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	result, err := h.service.CallPattern(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, q, err)
		return
	}

	if result.Report == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, result.Report)
}

// ExportCallPattern returns the report as a csv or xlsx attachment
// GET /api/reports/call-pattern/{interviewer}/export?format=csv|xlsx
func (h *ReportHandler) ExportCallPattern(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, ok := h.query(w, r)
	if !ok {
		return
	}

	result, err := h.service.CallPattern(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, q, err)
		return
	}

	meta := export.Meta{Interviewer: q.Interviewer, StartDate: q.StartKey(), EndDate: q.EndKey()}

	// Render fully before writing headers so a failure can still be a 500
	var buf bytes.Buffer
	if err := export.Write(&buf, format, meta, result.Report); err != nil {
		h.logger.Error().Err(err).Str("format", string(format)).Msg("failed to render export")
		writeError(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+meta.Filename(format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug().Err(err).Str("format", string(format)).Msg("failed to write export")
	}
}

// GetCallHistory returns the raw dials behind a report. Dials stored with
// neither a start nor an end time carry no date, so they are never returned
// here and never counted as discounted in the call pattern report.
// GET /api/reports/call-history/{interviewer}?start-date=&end-date=&survey-tla=&questionnaires=
func (h *ReportHandler) GetCallHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	rs, err := h.service.CallHistory(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, q, err)
		return
	}

	records := rs.Records
	if records == nil {
		records = []types.CallRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetQuestionnaires returns the sorted distinct questionnaires an
// interviewer dialled in range
// GET /api/{interviewer}/questionnaires?start-date=&end-date=&survey-tla=
func (h *ReportHandler) GetQuestionnaires(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	q.Questionnaires = nil

	rs, err := h.service.CallHistory(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, q, err)
		return
	}

	seen := make(map[string]struct{})
	names := []string{}
	for _, rec := range rs.Records {
		if rec.QuestionnaireName == "" {
			continue
		}
		if _, ok := seen[rec.QuestionnaireName]; ok {
			continue
		}
		seen[rec.QuestionnaireName] = struct{}{}
		names = append(names, rec.QuestionnaireName)
	}
	sort.Strings(names)

	writeJSON(w, http.StatusOK, names)
}

type callHistoryStatus struct {
	LastUpdated *time.Time `json:"last_updated"`
}

// GetCallHistoryStatus returns when call history was last synced, or a
// null last_updated when no sync has succeeded yet
// GET /api/reports/call-history-status
func (h *ReportHandler) GetCallHistoryStatus(w http.ResponseWriter, r *http.Request) {
	var resp callHistoryStatus
	if h.status != nil {
		if last := h.status.LastSync(); !last.IsZero() {
			last = last.UTC()
			resp.LastUpdated = &last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// query parses the request filters and checks the caller may see the
// interviewer. It writes the error response itself and returns false on
// failure.
func (h *ReportHandler) query(w http.ResponseWriter, r *http.Request) (types.CallHistoryQuery, bool) {
	params := r.URL.Query()

	var questionnaires []string
	if raw := params.Get("questionnaires"); raw != "" {
		questionnaires = strings.Split(raw, ",")
	}

	q, err := types.NewCallHistoryQuery(
		chi.URLParam(r, "interviewer"),
		params.Get("start-date"),
		params.Get("end-date"),
		params.Get("survey-tla"),
		questionnaires,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.CallHistoryQuery{}, false
	}

	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return types.CallHistoryQuery{}, false
	}
	if !claims.CanViewInterviewer(q.Interviewer) {
		h.logger.Warn().
			Str("user", claims.Username).
			Str("role", claims.Role).
			Str("interviewer", q.Interviewer).
			Msg("report access denied")
		writeError(w, http.StatusForbidden, "not permitted to view this interviewer")
		return types.CallHistoryQuery{}, false
	}

	return q, true
}

func (h *ReportHandler) writeServiceError(w http.ResponseWriter, q types.CallHistoryQuery, err error) {
	var re *callpattern.ReportError
	switch {
	case errors.As(err, &re) && re.Kind == callpattern.KindBadInput:
		writeError(w, re.StatusCode(), re.Error())
	case errors.As(err, &re):
		h.logger.Error().Err(err).Str("interviewer", q.Interviewer).Msg("report generation failed")
		writeError(w, re.StatusCode(), "failed to generate report")
	case errors.Is(err, reporting.ErrSourceUnavailable):
		writeError(w, http.StatusInternalServerError, "failed to retrieve call history")
	default:
		h.logger.Error().Err(err).Str("interviewer", q.Interviewer).Msg("unexpected report failure")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
