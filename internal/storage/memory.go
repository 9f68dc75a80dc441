package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// MemoryStore keeps call history in process. Used by local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]types.CallRecord // interviewer -> dial key -> record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]types.CallRecord)}
}

func (s *MemoryStore) SaveCallRecords(_ context.Context, records []types.CallRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := 0
	for _, r := range records {
		r, ok := prepareRecord(r)
		if !ok {
			continue
		}
		byKey, exists := s.records[r.Interviewer]
		if !exists {
			byKey = make(map[string]types.CallRecord)
			s.records[r.Interviewer] = byKey
		}
		byKey[r.DialKey] = r
		saved++
	}
	return saved, nil
}

// GetCallHistory returns matching records in dial key order
func (s *MemoryStore) GetCallHistory(_ context.Context, q types.CallHistoryQuery) (types.RecordSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []types.CallRecord
	for _, r := range s.records[q.Interviewer] {
		if q.Matches(r) {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].DialKey < records[j].DialKey })
	return types.NewRecordSet(records), nil
}

func (s *MemoryStore) TruncateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]map[string]types.CallRecord)
	return nil
}

// prepareRecord fills in the dial date and, when absent, a generated dial key.
// It reports false for records that cannot be filed under any date.
func prepareRecord(r types.CallRecord) (types.CallRecord, bool) {
	date := types.DialDateFor(r)
	if date == "" || r.Interviewer == "" {
		return r, false
	}
	r.DialDate = date
	if r.DialKey == "" {
		r.DialKey = types.DialKeyFor(r, uuid.NewString())
	}
	return r, true
}
