package types

// Dial statuses recorded by the CATI dialler
const (
	StatusCompleted                   = "Completed"
	StatusAppointmentMade             = "Finished (Appointment made)"
	StatusNonResponse                 = "Finished (Non response)"
	StatusNoContact                   = "Finished (No contact)"
	StatusTimedOut                    = "Timed out"
	StatusTimedOutDuringQuestionnaire = "Timed out during questionnaire"
)

// Dial results recorded alongside a status
const (
	ResultWebNudge      = "WebNudge"
	ResultAnswerService = "AnswerService"
	ResultBusy          = "Busy"
	ResultDisconnect    = "Disconnect"
	ResultNoAnswer      = "NoAnswer"
)

// TimedOutStatuses is the closed set of statuses that discount a dial
var TimedOutStatuses = []string{
	StatusTimedOut,
	StatusTimedOutDuringQuestionnaire,
}

// IsTimedOut reports whether the status is one of TimedOutStatuses
func IsTimedOut(status string) bool {
	for _, s := range TimedOutStatuses {
		if status == s {
			return true
		}
	}
	return false
}
