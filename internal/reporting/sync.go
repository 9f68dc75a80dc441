package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/metrics"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// DialReader reads dials made at or after a point in time
type DialReader interface {
	ReadSince(ctx context.Context, since time.Time) ([]types.CallRecord, error)
}

// RecordWriter persists call records
type RecordWriter interface {
	SaveCallRecords(ctx context.Context, records []types.CallRecord) (int, error)
}

// Syncer copies CATI dial history into the call history store
type Syncer struct {
	reader    DialReader
	writer    RecordWriter
	publisher Publisher
	interval  time.Duration
	lookback  time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu  sync.Mutex // serialises runs
	now func() time.Time

	stateMu  sync.RWMutex
	lastSync time.Time
}

// NewSyncer creates a Syncer. The first run reads lookback worth of history;
// later runs resume from the start of the previous one.
func NewSyncer(reader DialReader, writer RecordWriter, publisher Publisher, interval, lookback time.Duration, logger zerolog.Logger) *Syncer {
	return &Syncer{
		reader:    reader,
		writer:    writer,
		publisher: publisher,
		interval:  interval,
		lookback:  lookback,
		metrics:   metrics.Get(),
		logger:    logger.With().Str("component", "sync").Logger(),
		now:       time.Now,
	}
}

// RunOnce performs a single sync and returns how many records were written
func (s *Syncer) RunOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	since := s.LastSync()
	if since.IsZero() {
		since = started.Add(-s.lookback)
	}

	written, err := s.sync(ctx, since)
	s.metrics.RecordSync(written, err)
	if err != nil {
		s.logger.Error().Err(err).Time("since", since).Msg("sync failed")
		return written, err
	}
	s.stateMu.Lock()
	s.lastSync = started
	s.stateMu.Unlock()

	s.logger.Info().
		Time("since", since).
		Int("records", written).
		Dur("duration", s.now().Sub(started)).
		Msg("sync completed")

	if s.publisher != nil {
		event := types.ReportEvent{
			Type:      types.EventSyncCompleted,
			RunID:     uuid.NewString(),
			StartDate: since.UTC().Format(types.DateLayout),
			EndDate:   started.UTC().Format(types.DateLayout),
			Records:   written,
			Timestamp: started.UTC(),
		}
		if err := s.publisher.Publish(event); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish sync event")
		}
	}
	return written, nil
}

// LastSync returns when the last successful sync started, or the zero time
// before the first one
func (s *Syncer) LastSync() time.Time {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastSync
}

func (s *Syncer) sync(ctx context.Context, since time.Time) (int, error) {
	records, err := s.reader.ReadSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to read dial history: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	written, err := s.writer.SaveCallRecords(ctx, records)
	if err != nil {
		return written, fmt.Errorf("failed to save call records: %w", err)
	}
	return written, nil
}

// Start runs a sync immediately and then on every interval until ctx is done
func (s *Syncer) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Dur("lookback", s.lookback).Msg("sync started")
	_, _ = s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sync stopped")
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
