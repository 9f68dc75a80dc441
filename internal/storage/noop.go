package storage

import (
	"context"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// Store defines the storage interface
type Store interface {
	// SaveCallRecords upserts records and returns how many were written.
	// Records with neither a start nor an end time have no dial date and are
	// skipped.
	SaveCallRecords(ctx context.Context, records []types.CallRecord) (int, error)
	GetCallHistory(ctx context.Context, q types.CallHistoryQuery) (types.RecordSet, error)
	TruncateAll(ctx context.Context) error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveCallRecords(_ context.Context, _ []types.CallRecord) (int, error) {
	return 0, nil
}
func (s *NoopStore) GetCallHistory(_ context.Context, _ types.CallHistoryQuery) (types.RecordSet, error) {
	return types.NewRecordSet(nil), nil
}
func (s *NoopStore) TruncateAll(_ context.Context) error { return nil }
