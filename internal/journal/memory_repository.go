package journal

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	entries   []Entry
	retention int
}

// NewMemoryRepository keeps the most recent lookups in memory.
func NewMemoryRepository() Repository {
	return &memoryRepository{retention: defaultMemoryRetention}
}

func (r *memoryRepository) Record(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		return errors.New("entry id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.retention {
		r.entries = r.entries[len(r.entries)-r.retention:]
	}
	return nil
}

func (r *memoryRepository) Recent(_ context.Context, limit int) ([]Entry, error) {
	limit = ClampLimit(limit)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
