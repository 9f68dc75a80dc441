package callpattern

import (
	"errors"
	"testing"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func TestHoursWorked(t *testing.T) {
	tests := []struct {
		name    string
		records []types.CallRecord
		want    time.Duration
	}{
		{
			name:    "single record",
			records: []types.CallRecord{dial(at(7, 10), at(7, 11), 60)},
			want:    time.Hour,
		},
		{
			name: "outer bound of one day, not the sum of calls",
			records: []types.CallRecord{
				dial(at(7, 9), at(7, 15), 60),
				dial(at(7, 16), at(7, 17), 60),
			},
			want: 8 * time.Hour,
		},
		{
			name: "overlapping calls collapse to one window",
			records: []types.CallRecord{
				dial(at(7, 9), at(7, 12), 60),
				dial(at(7, 10), at(7, 11), 60),
			},
			want: 3 * time.Hour,
		},
		{
			name:    "call crossing midnight stays with its start date",
			records: []types.CallRecord{dial(at(7, 0), at(8, 1), 60)},
			want:    25 * time.Hour,
		},
		{
			name: "days are summed",
			records: []types.CallRecord{
				dial(at(7, 10), at(7, 11), 60),
				dial(at(7, 16), at(7, 17), 60),
				dial(at(8, 9), at(8, 10), 60),
				dial(at(8, 15), at(8, 16), 60),
			},
			want: 14 * time.Hour,
		},
		{
			name:    "end before start contributes nothing",
			records: []types.CallRecord{dial(at(7, 12), at(7, 11), 60)},
			want:    0,
		},
		{
			name:    "no records",
			records: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HoursWorked(recordSet(tt.records...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHoursWorkedNonDecreasingAsDaysAreAdded(t *testing.T) {
	var records []types.CallRecord
	var last time.Duration
	for day := 1; day <= 10; day++ {
		records = append(records, dial(at(day, 9), at(day, 9+day%4), 60))
		got, err := HoursWorked(recordSet(records...))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got < last {
			t.Fatalf("hours worked decreased from %v to %v after day %d", last, got, day)
		}
		last = got
	}
}

func TestDailyWindowsDoesNotConvertOffsets(t *testing.T) {
	bst := time.FixedZone("BST", 60*60)
	start := time.Date(2021, time.September, 7, 0, 30, 0, 0, bst) // 23:30 UTC on the 6th
	end := start.Add(time.Hour)

	windows, err := DailyWindows(recordSet(dial(&start, &end, 60)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Date != "2021-09-07" {
		t.Errorf("expected date 2021-09-07, got %s", windows[0].Date)
	}
}

func TestDailyWindowsSortedByDate(t *testing.T) {
	windows, err := DailyWindows(recordSet(
		dial(at(9, 10), at(9, 11), 60),
		dial(at(7, 10), at(7, 11), 60),
		dial(at(8, 10), at(8, 11), 60),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2021-09-07", "2021-09-08", "2021-09-09"}
	if len(windows) != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), len(windows))
	}
	for i, w := range windows {
		if w.Date != want[i] {
			t.Errorf("window %d: expected %s, got %s", i, want[i], w.Date)
		}
	}
}

func TestHoursWorkedMissingEndColumn(t *testing.T) {
	rs := withoutColumn(recordSet(dial(at(7, 10), at(7, 11), 60)), types.ColumnCallEndTime)
	if _, err := HoursWorked(rs); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}
