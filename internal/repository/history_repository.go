package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iconidentify/redgrabba/internal/domain"
)

// InMemoryHistoryRepository implements HistoryRepository in process memory.
type InMemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[domain.PostID]*domain.HistoryEntry
}

// NewInMemoryHistoryRepository creates a new in-memory history repository.
func NewInMemoryHistoryRepository() *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{
		entries: make(map[domain.PostID]*domain.HistoryEntry),
	}
}

// Record inserts or refreshes an entry.
func (r *InMemoryHistoryRepository) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[entry.PostID]
	if !ok {
		stored := *entry
		if stored.Requests <= 0 {
			stored.Requests = 1
		}
		r.entries[entry.PostID] = &stored
		return nil
	}

	existing.Title = entry.Title
	existing.SourceURL = entry.SourceURL
	existing.MediaURL = entry.MediaURL
	existing.Size = entry.Size
	existing.Requests++
	existing.LastRequestedAt = entry.LastRequestedAt
	return nil
}

// Get retrieves an entry by post id.
func (r *InMemoryHistoryRepository) Get(ctx context.Context, id domain.PostID) (*domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	copied := *entry
	return &copied, nil
}

// List returns entries, most recently requested first.
func (r *InMemoryHistoryRepository) List(ctx context.Context, limit, offset int) ([]*domain.HistoryEntry, error) {
	r.mu.RLock()
	result := make([]*domain.HistoryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		copied := *entry
		result = append(result, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastRequestedAt.Equal(result[j].LastRequestedAt) {
			return result[i].PostID < result[j].PostID
		}
		return result[i].LastRequestedAt.After(result[j].LastRequestedAt)
	})

	// Apply pagination
	if offset >= len(result) {
		return []*domain.HistoryEntry{}, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Count returns the number of entries.
func (r *InMemoryHistoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Close is a no-op.
func (r *InMemoryHistoryRepository) Close() error {
	return nil
}
