package history

import (
	"context"
	"sort"
	"sync"

	"github.com/kapu/chess-driller/internal/domain"
)

// memrepo is the in-memory repository used when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID    int64
	bySession map[string]*domain.DrillResult
	results   []*domain.DrillResult
}

func NewMemoryRepository() Repository {
	return &memrepo{bySession: make(map[string]*domain.DrillResult)}
}

func (m *memrepo) InsertResult(ctx context.Context, result *domain.DrillResult) (int64, error) {
	if result == nil {
		return 0, ErrDuplicateResult
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySession[result.SessionUUID]; exists {
		return 0, ErrDuplicateResult
	}

	m.nextID++
	copy := *result
	copy.ID = m.nextID
	copy.Opening = append([]string(nil), result.Opening...)

	m.bySession[copy.SessionUUID] = &copy
	m.results = append(m.results, &copy)
	return copy.ID, nil
}

func (m *memrepo) RecentResults(ctx context.Context, limit int) ([]*domain.DrillResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := append([]*domain.DrillResult(nil), m.results...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*domain.DrillResult, 0, len(items))
	for _, item := range items {
		copy := *item
		out = append(out, &copy)
	}
	return out, nil
}

func (m *memrepo) Close() error { return nil }
