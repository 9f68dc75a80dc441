package cati

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func TestHistoryQuery(t *testing.T) {
	q, err := types.NewCallHistoryQuery("matpal", "2021-09-07", "2021-09-10", "lms", []string{"LMS2101_AA1", "LMS2101_BB1"})
	if err != nil {
		t.Fatalf("failed to build query: %v", err)
	}

	query, args := historyQuery(q)

	if !strings.Contains(query, "ABS(TIME_TO_SEC(TIMEDIFF(dh.EndTime, dh.StartTime)))") {
		t.Error("expected dial seconds to be derived from start and end times")
	}
	if !strings.Contains(query, "i.Name LIKE ?") {
		t.Error("expected survey filter")
	}
	if !strings.Contains(query, "i.Name IN (?, ?)") {
		t.Errorf("expected two questionnaire placeholders in %s", query)
	}
	if strings.Count(query, "?") != len(args) {
		t.Errorf("placeholder count %d does not match %d args", strings.Count(query, "?"), len(args))
	}

	want := []any{"matpal", "2021-09-07", "2021-09-10", "LMS%", "LMS2101_AA1", "LMS2101_BB1"}
	for i, w := range want {
		if args[i] != w {
			t.Errorf("arg %d: expected %v, got %v", i, w, args[i])
		}
	}
}

func TestHistoryQueryWithoutFilters(t *testing.T) {
	q, err := types.NewCallHistoryQuery("matpal", "2021-09-07", "2021-09-07", "", nil)
	if err != nil {
		t.Fatalf("failed to build query: %v", err)
	}

	query, args := historyQuery(q)
	if strings.Contains(query, "LIKE") || strings.Contains(query, " IN (") {
		t.Errorf("expected no questionnaire filters in %s", query)
	}
	if len(args) != 3 {
		t.Errorf("expected 3 args, got %d", len(args))
	}
}

func TestDialRowToRecord(t *testing.T) {
	start := time.Date(2021, 9, 7, 9, 0, 0, 0, time.UTC)
	row := dialRow{
		InstrumentID:   "4c7f",
		InstrumentName: "LMS2101_AA1",
		PrimaryKey:     "1001011",
		CallNumber:     1,
		DialNumber:     2,
		Interviewer:    "matpal",
		StartTime:      sql.NullTime{Time: start, Valid: true},
		DialSecs:       sql.NullFloat64{Float64: 61, Valid: true},
		Status:         "Finished (No contact)",
		DialResult:     sql.NullString{String: "Busy", Valid: true},
	}

	r := row.toRecord()

	if r.CallStartTime == nil || !r.CallStartTime.Equal(start) {
		t.Errorf("unexpected start time %v", r.CallStartTime)
	}
	if r.CallEndTime != nil {
		t.Error("expected null end time to stay nil")
	}
	if r.DialSecs == nil || *r.DialSecs != 61 {
		t.Errorf("unexpected dial secs %v", r.DialSecs)
	}
	if r.CallResult == nil || *r.CallResult != "Busy" {
		t.Errorf("unexpected call result %v", r.CallResult)
	}
	if r.DialDate != "2021-09-07" {
		t.Errorf("expected dial date 2021-09-07, got %s", r.DialDate)
	}
	if r.DialKey != "2021-09-07#4c7f-1001011-1-2" {
		t.Errorf("unexpected dial key %s", r.DialKey)
	}
}
