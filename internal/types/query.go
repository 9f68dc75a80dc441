package types

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingFilter    = errors.New("Invalid request missing required filter properties")
	ErrInvalidDateRange = errors.New("Invalid date range parameters provided")
)

// CallHistoryQuery selects one interviewer's dials over an inclusive date range
type CallHistoryQuery struct {
	Interviewer    string
	StartDate      time.Time
	EndDate        time.Time
	SurveyTLA      string   // questionnaire name prefix, upper case
	Questionnaires []string // exact questionnaire names
}

// NewCallHistoryQuery validates raw filter values. Dates use DateLayout.
func NewCallHistoryQuery(interviewer, startDate, endDate, surveyTLA string, questionnaires []string) (CallHistoryQuery, error) {
	if interviewer == "" || startDate == "" || endDate == "" {
		return CallHistoryQuery{}, ErrMissingFilter
	}

	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return CallHistoryQuery{}, ErrInvalidDateRange
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return CallHistoryQuery{}, ErrInvalidDateRange
	}
	if end.Before(start) {
		return CallHistoryQuery{}, ErrInvalidDateRange
	}

	var names []string
	for _, q := range questionnaires {
		if q = strings.TrimSpace(q); q != "" {
			names = append(names, q)
		}
	}

	return CallHistoryQuery{
		Interviewer:    interviewer,
		StartDate:      start,
		EndDate:        end,
		SurveyTLA:      strings.ToUpper(strings.TrimSpace(surveyTLA)),
		Questionnaires: names,
	}, nil
}

// StartKey returns the start date as YYYY-MM-DD
func (q CallHistoryQuery) StartKey() string {
	return q.StartDate.Format(DateLayout)
}

// EndKey returns the end date as YYYY-MM-DD
func (q CallHistoryQuery) EndKey() string {
	return q.EndDate.Format(DateLayout)
}

// Matches reports whether a record falls inside the query. Records with
// neither a start nor an end time carry no date and never match.
func (q CallHistoryQuery) Matches(r CallRecord) bool {
	if r.Interviewer != q.Interviewer {
		return false
	}
	date := DialDateFor(r)
	if date == "" || date < q.StartKey() || date > q.EndKey() {
		return false
	}
	if q.SurveyTLA != "" && !strings.HasPrefix(strings.ToUpper(r.QuestionnaireName), q.SurveyTLA) {
		return false
	}
	if len(q.Questionnaires) > 0 {
		for _, name := range q.Questionnaires {
			if r.QuestionnaireName == name {
				return true
			}
		}
		return false
	}
	return true
}
