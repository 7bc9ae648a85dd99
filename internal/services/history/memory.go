package history

import (
	"context"
	"sync"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

// MemoryStore keeps the last MaxLimit readings in a mutex-guarded ring.
// It backs single-process deployments and serves as the fallback cache for
// the Influx-backed store.
type MemoryStore struct {
	mu       sync.RWMutex
	buffer   []model.Reading
	capacity int
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buffer:   make([]model.Reading, 0, MaxLimit),
		capacity: MaxLimit,
	}
}

// Append stores a copy of the reading and returns the assigned sequence id.
func (s *MemoryStore) Append(_ context.Context, r *model.Reading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	stored := *r
	stored.Seq = s.seq
	if len(s.buffer) >= s.capacity {
		s.buffer = s.buffer[1:]
	}
	s.buffer = append(s.buffer, stored)
	return s.seq, nil
}

// Recent returns up to limit readings, oldest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]model.Reading, error) {
	limit = ClampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.buffer) {
		limit = len(s.buffer)
	}
	out := make([]model.Reading, limit)
	copy(out, s.buffer[len(s.buffer)-limit:])
	return out, nil
}
