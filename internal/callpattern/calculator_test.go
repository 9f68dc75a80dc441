package callpattern

import (
	"errors"
	"testing"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func TestCallTime(t *testing.T) {
	rs := recordSet(
		dial(at(7, 10), at(7, 11), 600),
		dial(at(7, 12), at(7, 13), 1200),
		dial(at(7, 14), at(7, 15), 0, func(r *types.CallRecord) { r.DialSecs = nil }),
	)

	got, err := CallTime(rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 30*time.Minute {
		t.Errorf("expected 30m, got %v", got)
	}
}

func TestCallTimeMissingColumn(t *testing.T) {
	rs := withoutColumn(recordSet(dial(at(7, 10), at(7, 11), 600)), types.ColumnDialSecs)
	if _, err := CallTime(rs); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestHoursOnCallsPercentage(t *testing.T) {
	tests := []struct {
		name     string
		callTime time.Duration
		hours    time.Duration
		want     float64
	}{
		{"ten minutes of one hour", 10 * time.Minute, time.Hour, 16.67},
		{"call time over hours worked", 2 * time.Hour, time.Hour, 200},
		{"week of dials", 6000 * time.Second, 21 * time.Hour, 7.94},
		{"zero hours worked", 10 * time.Minute, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HoursOnCallsPercentage(tt.callTime, tt.hours); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAverageCallsPerHour(t *testing.T) {
	tests := []struct {
		name  string
		calls int
		hours time.Duration
		want  float64
	}{
		{"one call in one hour", 1, time.Hour, 1},
		{"nine calls in 21 hours", 9, 21 * time.Hour, 0.43},
		{"six calls in 18 hours", 6, 18 * time.Hour, 0.33},
		{"half hour", 3, 30 * time.Minute, 6},
		{"zero hours worked", 4, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageCallsPerHour(tt.calls, tt.hours); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{16.666666666666664, 16.67},
		{1.0 / 3 * 100, 33.33},
		{2.675, 2.67}, // binary value sits just below the half
		{0.125, 0.12}, // exact half rounds to even
		{0.375, 0.38},
		{100, 100},
	}

	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestPercentageZeroDenominator(t *testing.T) {
	if got := percentage(0, 0, 100); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
	if got := percentage(0, 0, 0); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := percentage(1, 3, 100); got != 33.33 {
		t.Errorf("expected 33.33, got %v", got)
	}
}
