package rawstore

import (
	"bytes"
	"context"
	"sync"
	"time"

	"matchlens/ingest-service/internal/clock"
)

type recordKey struct {
	source, endpoint, key string
}

// MemoryStore is an in-process Store for local runs and tests. fetched_at is
// taken from its clock, standing in for the database server clock.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   clock.Clock
	nextID  int64
	records map[recordKey]Record
}

// NewMemoryStore returns an empty MemoryStore. A nil clock uses system time.
func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.System{}
	}
	return &MemoryStore{clock: c, records: make(map[recordKey]Record)}
}

func (s *MemoryStore) Exists(_ context.Context, source, endpoint, key string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[recordKey{source, endpoint, key}]
	return ok && !r.FetchedAt.Before(since), nil
}

func (s *MemoryStore) InsertIfAbsent(_ context.Context, source, endpoint, key string, lastModified time.Time, payload []byte) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey{source, endpoint, key}
	if _, taken := s.records[k]; taken {
		return 0, false, nil
	}

	s.nextID++
	s.records[k] = Record{
		ID:           s.nextID,
		Source:       source,
		Endpoint:     endpoint,
		ExternalKey:  key,
		LastModified: lastModified.UTC(),
		FetchedAt:    s.clock.Now().UTC(),
		Payload:      bytes.Clone(payload),
	}
	return s.nextID, true, nil
}

func (s *MemoryStore) Get(_ context.Context, source, endpoint, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[recordKey{source, endpoint, key}]
	if !ok {
		return nil, ErrNotFound
	}
	r.Payload = bytes.Clone(r.Payload)
	return &r, nil
}
