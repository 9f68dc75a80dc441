package reporting

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// DialWeight is one possible dial outcome and its relative frequency
type DialWeight struct {
	Status      string
	CallResult  string // empty for a null result
	OutcomeCode int
	Weight      float64
}

// DefaultDialWeights approximates a telephone field period
var DefaultDialWeights = []DialWeight{
	{Status: types.StatusCompleted, OutcomeCode: 110, Weight: 0.12},
	{Status: types.StatusCompleted, CallResult: types.ResultWebNudge, OutcomeCode: 110, Weight: 0.03},
	{Status: types.StatusAppointmentMade, OutcomeCode: 300, Weight: 0.10},
	{Status: types.StatusNonResponse, OutcomeCode: 460, Weight: 0.08},
	{Status: types.StatusNoContact, CallResult: types.ResultNoAnswer, OutcomeCode: 310, Weight: 0.30},
	{Status: types.StatusNoContact, CallResult: types.ResultAnswerService, OutcomeCode: 310, Weight: 0.14},
	{Status: types.StatusNoContact, CallResult: types.ResultBusy, OutcomeCode: 310, Weight: 0.07},
	{Status: types.StatusNoContact, CallResult: types.ResultDisconnect, OutcomeCode: 310, Weight: 0.04},
	{Status: types.StatusNoContact, OutcomeCode: 310, Weight: 0.02},
	{Status: types.StatusTimedOut, Weight: 0.06},
	{Status: types.StatusTimedOutDuringQuestionnaire, Weight: 0.04},
}

// SeedConfig describes the synthetic call history to generate
type SeedConfig struct {
	Interviewers   []string
	Questionnaires []string
	Start          time.Time // first day, time of day is ignored
	Days           int
	DialsPerDay    int
	// MissingEndRate is the share of dials left without an end time
	MissingEndRate float64
	Seed           int64
	Weights        []DialWeight
}

// SeedGenerator produces realistic looking dials for local development
type SeedGenerator struct {
	cfg SeedConfig
	rng *rand.Rand
}

// NewSeedGenerator creates a deterministic generator for the given seed
func NewSeedGenerator(cfg SeedConfig) *SeedGenerator {
	if len(cfg.Weights) == 0 {
		cfg.Weights = DefaultDialWeights
	}
	if len(cfg.Questionnaires) == 0 {
		cfg.Questionnaires = []string{"LMS2101_AA1"}
	}
	return &SeedGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate returns every dial for every interviewer and day. Each day's
// dials run back to back from a morning shift start.
func (g *SeedGenerator) Generate() []types.CallRecord {
	day0 := time.Date(g.cfg.Start.Year(), g.cfg.Start.Month(), g.cfg.Start.Day(), 0, 0, 0, 0, time.UTC)
	records := make([]types.CallRecord, 0, len(g.cfg.Interviewers)*g.cfg.Days*g.cfg.DialsPerDay)

	for _, interviewer := range g.cfg.Interviewers {
		for d := 0; d < g.cfg.Days; d++ {
			cursor := day0.AddDate(0, 0, d).
				Add(9 * time.Hour).
				Add(time.Duration(g.rng.Intn(60)) * time.Minute)

			for n := 0; n < g.cfg.DialsPerDay; n++ {
				r, end := g.dial(interviewer, cursor)
				r.DialKey = types.DialKeyFor(r, fmt.Sprintf("seed-%s-%d-%d", interviewer, d, n))
				r.DialDate = types.DialDateFor(r)
				records = append(records, r)
				cursor = end.Add(time.Duration(30+g.rng.Intn(270)) * time.Second)
			}
		}
	}
	return records
}

func (g *SeedGenerator) dial(interviewer string, start time.Time) (types.CallRecord, time.Time) {
	w := pickDialWeight(g.rng, g.cfg.Weights)

	// Contacts run longer than unanswered rings
	length := time.Duration(15+g.rng.Intn(45)) * time.Second
	switch w.Status {
	case types.StatusCompleted, types.StatusTimedOutDuringQuestionnaire:
		length = time.Duration(10+g.rng.Intn(35)) * time.Minute
	case types.StatusAppointmentMade, types.StatusNonResponse:
		length = time.Duration(1+g.rng.Intn(5)) * time.Minute
	}
	end := start.Add(length)
	secs := length.Seconds()

	r := types.CallRecord{
		Interviewer:       interviewer,
		QuestionnaireName: g.cfg.Questionnaires[g.rng.Intn(len(g.cfg.Questionnaires))],
		CallStartTime:     &start,
		DialSecs:          &secs,
		Status:            w.Status,
	}
	if g.rng.Float64() >= g.cfg.MissingEndRate {
		endCopy := end
		r.CallEndTime = &endCopy
	}
	if w.CallResult != "" {
		result := w.CallResult
		r.CallResult = &result
	}
	if w.OutcomeCode != 0 {
		code := w.OutcomeCode
		r.OutcomeCode = &code
	}
	return r, end
}

// pickDialWeight selects a weight proportionally to its Weight
func pickDialWeight(rng *rand.Rand, weights []DialWeight) DialWeight {
	var total float64
	for _, w := range weights {
		total += w.Weight
	}

	r := rng.Float64() * total
	for _, w := range weights {
		r -= w.Weight
		if r <= 0 {
			return w
		}
	}
	return weights[len(weights)-1]
}
