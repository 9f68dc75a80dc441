package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CallRecord represents one dial attempt made by an interviewer
type CallRecord struct {
	Interviewer       string     `json:"interviewer" dynamodbav:"Interviewer"`             // partition key
	DialKey           string     `json:"dial_key,omitempty" dynamodbav:"DialKey"`          // sort key
	DialDate          string     `json:"dial_date,omitempty" dynamodbav:"DialDate"`        // YYYY-MM-DD
	QuestionnaireName string     `json:"questionnaire_name,omitempty" dynamodbav:"QuestionnaireName"`
	CallStartTime     *time.Time `json:"call_start_time" dynamodbav:"CallStartTime"`
	CallEndTime       *time.Time `json:"call_end_time" dynamodbav:"CallEndTime"`
	DialSecs          *float64   `json:"dial_secs" dynamodbav:"DialSecs"` // seconds
	Status            string     `json:"status" dynamodbav:"Status"`
	CallResult        *string    `json:"call_result" dynamodbav:"CallResult"`
	OutcomeCode       *int       `json:"outcome_code" dynamodbav:"OutcomeCode"`
}

// Column names a field of the call history as seen by the retrieval layer
type Column string

const (
	ColumnInterviewer       Column = "interviewer"
	ColumnQuestionnaireName Column = "questionnaire_name"
	ColumnCallStartTime     Column = "call_start_time"
	ColumnCallEndTime       Column = "call_end_time"
	ColumnDialSecs          Column = "dial_secs"
	ColumnStatus            Column = "status"
	ColumnCallResult        Column = "call_result"
	ColumnOutcomeCode       Column = "outcome_code"
)

// AllColumns lists every column a complete call history row carries
var AllColumns = []Column{
	ColumnInterviewer,
	ColumnQuestionnaireName,
	ColumnCallStartTime,
	ColumnCallEndTime,
	ColumnDialSecs,
	ColumnStatus,
	ColumnCallResult,
	ColumnOutcomeCode,
}

// ColumnSet is the set of columns present in a record collection
type ColumnSet map[Column]struct{}

// NewColumnSet creates a set holding the given columns
func NewColumnSet(cols ...Column) ColumnSet {
	s := make(ColumnSet, len(cols))
	for _, c := range cols {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the column is present
func (s ColumnSet) Has(c Column) bool {
	_, ok := s[c]
	return ok
}

// Add marks the column as present
func (s ColumnSet) Add(c Column) {
	s[c] = struct{}{}
}

// Missing returns the first of cols that is not present, in argument order
func (s ColumnSet) Missing(cols ...Column) (Column, bool) {
	for _, c := range cols {
		if !s.Has(c) {
			return c, true
		}
	}
	return "", false
}

// RecordSet is an immutable collection of call records together with the
// columns the source actually supplied.
type RecordSet struct {
	Columns ColumnSet
	Records []CallRecord
}

// NewRecordSet wraps records that carry every column, e.g. rows read with a
// fixed SELECT list.
func NewRecordSet(records []CallRecord) RecordSet {
	return RecordSet{
		Columns: NewColumnSet(AllColumns...),
		Records: records,
	}
}

// Len returns the number of records
func (rs RecordSet) Len() int {
	return len(rs.Records)
}

// Subset returns a RecordSet with the same columns holding only the given records
func (rs RecordSet) Subset(records []CallRecord) RecordSet {
	return RecordSet{Columns: rs.Columns, Records: records}
}

// DecodeRecordSet parses a JSON array of call history rows. Keys are matched
// case-insensitively and every key seen on any row marks its column present.
func DecodeRecordSet(data []byte) (RecordSet, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return RecordSet{}, fmt.Errorf("failed to decode call history rows: %w", err)
	}

	known := NewColumnSet(AllColumns...)
	cols := NewColumnSet()
	for _, row := range rows {
		for key := range row {
			c := Column(strings.ToLower(key))
			if known.Has(c) {
				cols.Add(c)
			}
		}
	}

	records := make([]CallRecord, 0, len(rows))
	if err := json.Unmarshal(data, &records); err != nil {
		return RecordSet{}, fmt.Errorf("failed to decode call records: %w", err)
	}

	return RecordSet{Columns: cols, Records: records}, nil
}

// DialDateFor returns the calendar date a record is filed under: the start
// date, or the end date when the start is missing.
func DialDateFor(r CallRecord) string {
	switch {
	case r.CallStartTime != nil:
		return r.CallStartTime.Format(DateLayout)
	case r.CallEndTime != nil:
		return r.CallEndTime.Format(DateLayout)
	default:
		return ""
	}
}

// DateLayout is the YYYY-MM-DD layout used for dates in queries and keys
const DateLayout = "2006-01-02"

// DialKeyFor builds the sort key for a record: its dial date followed by an
// identifier unique within the interviewer's history.
func DialKeyFor(r CallRecord, id string) string {
	return DialDateFor(r) + "#" + id
}
