package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/callpattern"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/metrics"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// ErrSourceUnavailable wraps call history fetch failures that outlived retries
var ErrSourceUnavailable = errors.New("call history unavailable")

// Source supplies one interviewer's call history
type Source interface {
	GetCallHistory(ctx context.Context, q types.CallHistoryQuery) (types.RecordSet, error)
}

// Publisher receives report events, e.g. the websocket hub
type Publisher interface {
	Publish(event types.ReportEvent) error
}

// Result is one report run
type Result struct {
	RunID   string
	Query   types.CallHistoryQuery
	Records int
	// Report is nil when the interviewer had no call history in range
	Report *types.CallPatternReport
}

// Service fetches call history and turns it into call pattern reports
type Service struct {
	source     Source
	publisher  Publisher
	metrics    *metrics.Metrics
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// NewService creates a report service. publisher may be nil. A zero
// maxElapsed retries until the request context ends.
func NewService(source Source, publisher Publisher, maxElapsed time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		source:     source,
		publisher:  publisher,
		metrics:    metrics.Get(),
		maxElapsed: maxElapsed,
		logger:     logger.With().Str("component", "reporting").Logger(),
	}
}

// CallHistory fetches the raw call history for a query, retrying transient
// source failures.
func (s *Service) CallHistory(ctx context.Context, q types.CallHistoryQuery) (types.RecordSet, error) {
	var rs types.RecordSet

	op := func() error {
		var err error
		rs, err = s.source.GetCallHistory(ctx, q)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.metrics.RecordFetchRetry()
		s.logger.Warn().
			Err(err).
			Str("interviewer", q.Interviewer).
			Dur("retry_in", wait).
			Msg("call history fetch failed, retrying")
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.maxElapsed
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		s.metrics.RecordFetchError()
		return types.RecordSet{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return rs, nil
}

// CallPattern builds the call pattern report for a query and announces the
// outcome to the publisher.
func (s *Service) CallPattern(ctx context.Context, q types.CallHistoryQuery) (*Result, error) {
	runID := uuid.NewString()
	logger := s.logger.With().
		Str("run_id", runID).
		Str("interviewer", q.Interviewer).
		Str("start_date", q.StartKey()).
		Str("end_date", q.EndKey()).
		Logger()

	rs, err := s.CallHistory(ctx, q)
	if err != nil {
		logger.Error().Err(err).Msg("call pattern report failed")
		s.publish(logger, types.ReportEvent{Type: types.EventReportFailed, RunID: runID, Interviewer: q.Interviewer, Error: err.Error()}, q)
		return nil, err
	}

	start := time.Now()
	report, err := callpattern.Generate(rs)
	if err != nil {
		kind := callpattern.KindInternal
		var re *callpattern.ReportError
		if errors.As(err, &re) {
			kind = re.Kind
		}
		s.metrics.RecordReportError(kind.String())
		logger.Error().Err(err).Str("kind", kind.String()).Msg("call pattern report failed")
		s.publish(logger, types.ReportEvent{Type: types.EventReportFailed, RunID: runID, Interviewer: q.Interviewer, Records: rs.Len(), Error: err.Error()}, q)
		return nil, err
	}

	result := &Result{RunID: runID, Query: q, Records: rs.Len(), Report: report}
	if report == nil {
		s.metrics.RecordEmptyReport()
		logger.Info().Msg("no call history found")
		return result, nil
	}

	s.metrics.RecordReport(time.Since(start), rs.Len(), report.DiscountedInvalidCases.Count)
	logger.Info().
		Int("records", rs.Len()).
		Int("valid", report.TotalValidCases).
		Str("hours_worked", report.HoursWorked.String()).
		Msg("call pattern report generated")

	s.publish(logger, types.ReportEvent{
		Type:        types.EventReportGenerated,
		RunID:       runID,
		Interviewer: q.Interviewer,
		Records:     rs.Len(),
		Report:      report,
	}, q)
	return result, nil
}

func (s *Service) publish(logger zerolog.Logger, event types.ReportEvent, q types.CallHistoryQuery) {
	if s.publisher == nil {
		return
	}
	event.StartDate = q.StartKey()
	event.EndDate = q.EndKey()
	event.Timestamp = time.Now().UTC()
	if err := s.publisher.Publish(event); err != nil {
		logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish report event")
	}
}
