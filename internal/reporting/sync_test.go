package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/storage"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

type fakeReader struct {
	records []types.CallRecord
	err     error
	since   []time.Time
}

func (r *fakeReader) ReadSince(_ context.Context, since time.Time) ([]types.CallRecord, error) {
	r.since = append(r.since, since)
	return r.records, r.err
}

func TestSyncerRunOnce(t *testing.T) {
	now := time.Date(2021, time.September, 8, 6, 0, 0, 0, time.UTC)
	reader := &fakeReader{records: sampleDials()}
	store := storage.NewMemoryStore()
	pub := &recordingPublisher{}

	s := NewSyncer(reader, store, pub, time.Hour, 48*time.Hour, zerolog.Nop())
	s.now = func() time.Time { return now }

	written, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 4 {
		t.Errorf("expected 4 records written, got %d", written)
	}
	if !s.LastSync().Equal(now) {
		t.Errorf("expected last sync %v, got %v", now, s.LastSync())
	}
	if !reader.since[0].Equal(now.Add(-48 * time.Hour)) {
		t.Errorf("expected first sync to look back 48h, got %v", reader.since[0])
	}

	rs, _ := store.GetCallHistory(context.Background(), mustQuery(t, "matpal", "2021-09-07", "2021-09-07"))
	if rs.Len() != 3 {
		t.Errorf("expected 3 synced matpal records, got %d", rs.Len())
	}

	events := pub.Events()
	if len(events) != 1 || events[0].Type != types.EventSyncCompleted || events[0].Records != 4 {
		t.Errorf("unexpected sync events %+v", events)
	}

	// The next run resumes from the start of this one
	now = now.Add(time.Hour)
	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reader.since[1].Equal(now.Add(-time.Hour)) {
		t.Errorf("expected second sync to resume from previous start, got %v", reader.since[1])
	}
}

func TestSyncerReadFailure(t *testing.T) {
	now := time.Date(2021, time.September, 8, 6, 0, 0, 0, time.UTC)
	reader := &fakeReader{err: errors.New("connection refused")}
	pub := &recordingPublisher{}

	s := NewSyncer(reader, storage.NewMemoryStore(), pub, time.Hour, time.Hour, zerolog.Nop())
	s.now = func() time.Time { return now }

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.Events()) != 0 {
		t.Error("expected no sync event after a failure")
	}
	if !s.LastSync().IsZero() {
		t.Errorf("expected no last sync after a failure, got %v", s.LastSync())
	}

	// A failed run does not advance the resume point
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !reader.since[1].Equal(now.Add(-time.Hour)) {
		t.Errorf("expected retry from the lookback window, got %v", reader.since[1])
	}
}

func TestSyncerStartStops(t *testing.T) {
	reader := &fakeReader{}
	s := NewSyncer(reader, storage.NewNoopStore(), nil, 20*time.Millisecond, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop after context cancel")
	}
	if len(reader.since) < 2 {
		t.Errorf("expected several sync runs, got %d", len(reader.since))
	}
}
