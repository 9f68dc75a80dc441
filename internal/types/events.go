package types

import "time"

// Report event types pushed to dashboard clients
const (
	EventReportGenerated = "report.generated"
	EventReportFailed    = "report.failed"
	EventSyncCompleted   = "sync.completed"
)

// ReportEvent announces a finished report run or sync to live dashboards
type ReportEvent struct {
	Type        string             `json:"type"`
	RunID       string             `json:"run_id"`
	Interviewer string             `json:"interviewer,omitempty"` // empty for events about every interviewer
	StartDate   string             `json:"start_date,omitempty"`
	EndDate     string             `json:"end_date,omitempty"`
	Records     int                `json:"records"`
	Report      *CallPatternReport `json:"report,omitempty"`
	Error       string             `json:"error,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}
