package reporting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/callpattern"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func TestSeedGenerator(t *testing.T) {
	cfg := SeedConfig{
		Interviewers:   []string{"matpal", "rich"},
		Questionnaires: []string{"LMS2101_AA1", "LMS2101_BB1"},
		Start:          time.Date(2021, time.September, 6, 15, 0, 0, 0, time.UTC),
		Days:           3,
		DialsPerDay:    20,
		MissingEndRate: 0.05,
		Seed:           42,
	}

	records := NewSeedGenerator(cfg).Generate()
	if len(records) != 2*3*20 {
		t.Fatalf("expected 120 records, got %d", len(records))
	}

	keys := make(map[string]bool)
	for _, r := range records {
		if r.CallStartTime == nil {
			t.Fatal("expected every dial to have a start time")
		}
		if r.CallStartTime.Hour() < 9 {
			t.Errorf("dial started before the shift: %v", r.CallStartTime)
		}
		if r.DialDate != r.CallStartTime.Format(types.DateLayout) {
			t.Errorf("dial date %s does not match start %v", r.DialDate, r.CallStartTime)
		}
		if keys[r.Interviewer+r.DialKey] {
			t.Errorf("duplicate dial key %s", r.DialKey)
		}
		keys[r.Interviewer+r.DialKey] = true
	}

	// Same seed, same history
	again := NewSeedGenerator(cfg).Generate()
	for i := range records {
		if records[i].DialKey != again[i].DialKey || records[i].Status != again[i].Status {
			t.Fatalf("expected deterministic output at %d", i)
		}
	}
}

func TestSeedGeneratorFeedsReport(t *testing.T) {
	records := NewSeedGenerator(SeedConfig{
		Interviewers: []string{"matpal"},
		Start:        time.Date(2021, time.September, 6, 0, 0, 0, 0, time.UTC),
		Days:         5,
		DialsPerDay:  30,
		Seed:         7,
	}).Generate()

	report, err := callpattern.Generate(types.NewRecordSet(records))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil || report.TotalValidCases == 0 {
		t.Fatal("expected valid cases in the synthetic history")
	}
	if report.HoursOnCallsPercentage <= 0 || report.HoursOnCallsPercentage > 100 {
		t.Errorf("expected back to back dials to stay within the working window, got %v", report.HoursOnCallsPercentage)
	}
}

func TestPickDialWeight(t *testing.T) {
	weights := []DialWeight{
		{Status: types.StatusCompleted, Weight: 0},
		{Status: types.StatusNoContact, Weight: 1},
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		if w := pickDialWeight(rng, weights); w.Status != types.StatusNoContact {
			t.Fatalf("expected zero weight to never be picked, got %s", w.Status)
		}
	}
}
