package callpattern

import (
	"sort"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// DailyWindow is the outer bound of one calendar day's dialling
type DailyWindow struct {
	Date          string // YYYY-MM-DD of the earliest start
	EarliestStart time.Time
	LatestEnd     time.Time
}

// Span returns latest end minus earliest start, floored at zero
func (w DailyWindow) Span() time.Duration {
	d := w.LatestEnd.Sub(w.EarliestStart)
	if d < 0 {
		return 0
	}
	return d
}

// DailyWindows groups valid records by the calendar date of their start time,
// as written (offsets are not converted), and returns one window per date in
// date order. Records with a missing start or end are skipped.
func DailyWindows(rs types.RecordSet) ([]DailyWindow, error) {
	if err := requireColumns(rs, types.ColumnCallStartTime, types.ColumnCallEndTime); err != nil {
		return nil, err
	}

	byDate := make(map[string]*DailyWindow)
	for _, r := range rs.Records {
		if r.CallStartTime == nil || r.CallEndTime == nil {
			continue
		}
		start, end := *r.CallStartTime, *r.CallEndTime
		date := start.Format(types.DateLayout)

		w, ok := byDate[date]
		if !ok {
			byDate[date] = &DailyWindow{Date: date, EarliestStart: start, LatestEnd: end}
			continue
		}
		if start.Before(w.EarliestStart) {
			w.EarliestStart = start
		}
		if end.After(w.LatestEnd) {
			w.LatestEnd = end
		}
	}

	windows := make([]DailyWindow, 0, len(byDate))
	for _, w := range byDate {
		windows = append(windows, *w)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Date < windows[j].Date })
	return windows, nil
}

// HoursWorked sums each day's window span across all days with activity
func HoursWorked(rs types.RecordSet) (time.Duration, error) {
	windows, err := DailyWindows(rs)
	if err != nil {
		return 0, err
	}

	var total time.Duration
	for _, w := range windows {
		total += w.Span()
	}
	return total, nil
}
