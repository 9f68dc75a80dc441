package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the report and admin endpoints. The caller is
// responsible for authentication.
func RegisterRoutes(r chi.Router, reports *ReportHandler, admin *AdminHandler) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/call-pattern/{interviewer}", reports.GetCallPattern)
		r.Get("/call-pattern/{interviewer}/export", reports.ExportCallPattern)
		r.Get("/call-history/{interviewer}", reports.GetCallHistory)
		r.Get("/call-history-status", reports.GetCallHistoryStatus)
	})

	r.Get("/api/{interviewer}/questionnaires", reports.GetQuestionnaires)

	r.Route("/api/admin", func(r chi.Router) {
		r.With(RequireSupervisorOrAdmin).Post("/sync", admin.RunSync)
		r.With(RequireAdmin).Post("/seed", admin.SeedCallHistory)
		r.With(RequireAdmin).Delete("/call-history", admin.WipeCallHistory)
	})
}
