package oplog

import (
	"context"
	"sort"
	"sync"
)

type mockRepository struct {
	entries []OperationLog
	mu      sync.RWMutex
}

func newMockRepository() *mockRepository {
	return &mockRepository{}
}

func (r *mockRepository) Create(_ context.Context, entry *OperationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *mockRepository) ListByUID(_ context.Context, uid uint, limit, offset int) ([]OperationLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []OperationLog
	for _, e := range r.entries {
		if e.UID == uid {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].OpTime.Equal(matched[j].OpTime) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].OpTime.After(matched[j].OpTime)
	})

	if offset >= len(matched) {
		return []OperationLog{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}
