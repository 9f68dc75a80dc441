package reporting

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/callpattern"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/metrics"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/storage"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func at(day, hour, minute int) *time.Time {
	t := time.Date(2021, time.September, day, hour, minute, 0, 0, time.UTC)
	return &t
}

func secs(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func sampleDials() []types.CallRecord {
	return []types.CallRecord{
		{
			Interviewer: "matpal", QuestionnaireName: "LMS2101_AA1",
			CallStartTime: at(7, 9, 0), CallEndTime: at(7, 10, 0), DialSecs: secs(3600),
			Status: types.StatusCompleted,
		},
		{
			Interviewer: "matpal", QuestionnaireName: "LMS2101_AA1",
			CallStartTime: at(7, 10, 30), CallEndTime: at(7, 11, 0), DialSecs: secs(1800),
			Status: types.StatusNoContact, CallResult: str(types.ResultNoAnswer),
		},
		{
			Interviewer: "matpal", QuestionnaireName: "LMS2101_AA1",
			CallStartTime: at(7, 11, 0), CallEndTime: at(7, 12, 0), DialSecs: secs(3600),
			Status: types.StatusTimedOut,
		},
		{
			Interviewer: "rich", QuestionnaireName: "LMS2101_AA1",
			CallStartTime: at(7, 9, 0), CallEndTime: at(7, 9, 5), DialSecs: secs(300),
			Status: types.StatusCompleted,
		},
	}
}

func mustQuery(t *testing.T, interviewer, start, end string) types.CallHistoryQuery {
	t.Helper()
	q, err := types.NewCallHistoryQuery(interviewer, start, end, "", nil)
	if err != nil {
		t.Fatalf("failed to build query: %v", err)
	}
	return q
}

func seededStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	if _, err := store.SaveCallRecords(context.Background(), sampleDials()); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return store
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.ReportEvent
	err    error
}

func (p *recordingPublisher) Publish(event types.ReportEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []types.ReportEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.ReportEvent(nil), p.events...)
}

// flakySource fails the first failures calls, then delegates
type flakySource struct {
	next     Source
	failures int
	calls    int
}

func (s *flakySource) GetCallHistory(ctx context.Context, q types.CallHistoryQuery) (types.RecordSet, error) {
	s.calls++
	if s.calls <= s.failures {
		return types.RecordSet{}, errors.New("ProvisionedThroughputExceededException")
	}
	return s.next.GetCallHistory(ctx, q)
}

type staticSource struct {
	rs types.RecordSet
}

func (s staticSource) GetCallHistory(context.Context, types.CallHistoryQuery) (types.RecordSet, error) {
	return s.rs, nil
}

func TestCallPattern(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	pub := &recordingPublisher{}
	svc := NewService(seededStore(t), pub, time.Second, logger)

	before := metrics.Get().ReportsGeneratedTotal

	result, err := svc.CallPattern(context.Background(), mustQuery(t, "matpal", "2021-09-07", "2021-09-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected run id to be set")
	}
	if result.Records != 3 {
		t.Errorf("expected 3 records, got %d", result.Records)
	}

	report := result.Report
	if report == nil {
		t.Fatal("expected a report")
	}
	if got := report.HoursWorked.String(); got != "2:00:00" {
		t.Errorf("expected hours worked 2:00:00, got %s", got)
	}
	if got := report.CallTime.String(); got != "1:30:00" {
		t.Errorf("expected call time 1:30:00, got %s", got)
	}
	if report.HoursOnCallsPercentage != 75 {
		t.Errorf("expected 75%% on calls, got %v", report.HoursOnCallsPercentage)
	}
	if report.AverageCallsPerHour != 1 {
		t.Errorf("expected 1 call per hour, got %v", report.AverageCallsPerHour)
	}
	if got := report.DiscountedInvalidCases.String(); got != "1/3, 33.33%" {
		t.Errorf("unexpected discounted cases %s", got)
	}
	if got := report.NoContacts.NoAnswer.String(); got != "1/1, 100.00%" {
		t.Errorf("unexpected no answer bucket %s", got)
	}

	if metrics.Get().ReportsGeneratedTotal != before+1 {
		t.Error("expected report to be counted")
	}

	events := pub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != types.EventReportGenerated || ev.RunID != result.RunID || ev.Interviewer != "matpal" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.StartDate != "2021-09-07" || ev.EndDate != "2021-09-07" || ev.Report != report {
		t.Errorf("unexpected event range or report %+v", ev)
	}

	if !strings.Contains(buf.String(), "call pattern report generated") {
		t.Errorf("expected report log line, got %s", buf.String())
	}
}

func TestCallPatternNoHistory(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(seededStore(t), pub, time.Second, zerolog.Nop())

	before := metrics.Get().ReportsEmptyTotal

	result, err := svc.CallPattern(context.Background(), mustQuery(t, "matpal", "2021-10-01", "2021-10-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Report != nil {
		t.Errorf("expected no report, got %+v", result.Report)
	}
	if metrics.Get().ReportsEmptyTotal != before+1 {
		t.Error("expected empty report to be counted")
	}
	if len(pub.Events()) != 0 {
		t.Errorf("expected no events, got %d", len(pub.Events()))
	}
}

func TestCallPatternReportError(t *testing.T) {
	rs := types.NewRecordSet(sampleDials()[:1])
	delete(rs.Columns, types.ColumnDialSecs)

	pub := &recordingPublisher{}
	svc := NewService(staticSource{rs: rs}, pub, time.Second, zerolog.Nop())

	before := metrics.Get().ReportErrors("bad_input")

	_, err := svc.CallPattern(context.Background(), mustQuery(t, "matpal", "2021-09-07", "2021-09-07"))
	var re *callpattern.ReportError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReportError, got %v", err)
	}
	if re.Kind != callpattern.KindBadInput {
		t.Errorf("expected bad input, got %s", re.Kind)
	}
	if metrics.Get().ReportErrors("bad_input") != before+1 {
		t.Error("expected bad input error to be counted")
	}

	events := pub.Events()
	if len(events) != 1 || events[0].Type != types.EventReportFailed || events[0].Error == "" {
		t.Errorf("expected one failure event, got %+v", events)
	}
}

func TestCallHistoryRetries(t *testing.T) {
	source := &flakySource{next: seededStore(t), failures: 2}
	svc := NewService(source, nil, 10*time.Second, zerolog.Nop())

	before := metrics.Get().FetchRetriesTotal

	rs, err := svc.CallHistory(context.Background(), mustQuery(t, "rich", "2021-09-07", "2021-09-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Len() != 1 {
		t.Errorf("expected 1 record, got %d", rs.Len())
	}
	if source.calls != 3 {
		t.Errorf("expected 3 calls, got %d", source.calls)
	}
	if metrics.Get().FetchRetriesTotal != before+2 {
		t.Errorf("expected 2 retries to be counted")
	}
}

func TestCallHistoryGivesUp(t *testing.T) {
	source := &flakySource{next: seededStore(t), failures: 1000}
	pub := &recordingPublisher{}
	svc := NewService(source, pub, time.Second, zerolog.Nop())

	_, err := svc.CallPattern(context.Background(), mustQuery(t, "rich", "2021-09-07", "2021-09-07"))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}

	events := pub.Events()
	if len(events) != 1 || events[0].Type != types.EventReportFailed {
		t.Errorf("expected one failure event, got %+v", events)
	}
}

func TestCallHistoryStopsOnCancel(t *testing.T) {
	source := &flakySource{next: seededStore(t), failures: 1000}
	svc := NewService(source, nil, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CallHistory(ctx, mustQuery(t, "rich", "2021-09-07", "2021-09-07"))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if source.calls != 1 {
		t.Errorf("expected a single attempt, got %d", source.calls)
	}
}

func TestPublishFailureDoesNotFailReport(t *testing.T) {
	var buf bytes.Buffer
	pub := &recordingPublisher{err: errors.New("hub closed")}
	svc := NewService(seededStore(t), pub, time.Second, zerolog.New(&buf))

	result, err := svc.CallPattern(context.Background(), mustQuery(t, "rich", "2021-09-07", "2021-09-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Report == nil {
		t.Fatal("expected a report")
	}
	if !strings.Contains(buf.String(), "failed to publish report event") {
		t.Errorf("expected publish warning, got %s", buf.String())
	}
}
