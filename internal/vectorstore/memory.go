package vectorstore

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps records in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ID == "" {
			return errors.New("record id is required")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		rec.Vector = append([]float32(nil), rec.Vector...)
		if i, ok := s.byID[rec.ID]; ok {
			s.records[i] = rec
			continue
		}
		s.byID[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

// ScanAll returns a copy of the records in insertion order.
func (s *MemoryStore) ScanAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ VectorStore = (*MemoryStore)(nil)
