package callpattern

import (
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func at(day, hour int) *time.Time {
	t := time.Date(2021, time.September, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func secs(v float64) *float64 { return &v }

func str(v string) *string { return &v }

// dial builds a completed call record; options adjust individual fields.
func dial(start, end *time.Time, dialSecs float64, opts ...func(*types.CallRecord)) types.CallRecord {
	r := types.CallRecord{
		Interviewer:       "matpal",
		QuestionnaireName: "LMS2101_AA1",
		CallStartTime:     start,
		CallEndTime:       end,
		DialSecs:          secs(dialSecs),
		Status:            types.StatusCompleted,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func withStatus(status string) func(*types.CallRecord) {
	return func(r *types.CallRecord) { r.Status = status }
}

func withResult(result string) func(*types.CallRecord) {
	return func(r *types.CallRecord) { r.CallResult = str(result) }
}

func recordSet(records ...types.CallRecord) types.RecordSet {
	return types.NewRecordSet(records)
}

func withoutColumn(rs types.RecordSet, drop types.Column) types.RecordSet {
	cols := types.NewColumnSet()
	for c := range rs.Columns {
		if c != drop {
			cols.Add(c)
		}
	}
	return types.RecordSet{Columns: cols, Records: rs.Records}
}
