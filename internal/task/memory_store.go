package task

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 以内存方式保存任务，主要用于测试与本地开发。
type MemoryStore struct {
	mu     sync.RWMutex
	tasks  map[int64]*Task
	nextID int64
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[int64]*Task)}
}

// List 实现 Store 接口。
func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]*Task, error) {
	opts.applyDefaults()

	m.mu.RLock()
	result := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !opts.Matches(t) {
			continue
		}
		result = append(result, cloneTask(t))
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if opts.Order == SortByManual {
			switch {
			case a.SortIndex != nil && b.SortIndex == nil:
				return true
			case a.SortIndex == nil && b.SortIndex != nil:
				return false
			case a.SortIndex != nil && *a.SortIndex != *b.SortIndex:
				return *a.SortIndex < *b.SortIndex
			}
		}
		return a.ID > b.ID
	})
	return result, nil
}

// Get 实现 Store 接口。
func (m *MemoryStore) Get(_ context.Context, id int64) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, draft Draft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(draft), nil
}

// CreateMany 实现 Store 接口。
func (m *MemoryStore) CreateMany(_ context.Context, drafts []Draft) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(drafts))
	for _, d := range drafts {
		ids = append(ids, m.insertLocked(d))
	}
	return ids, nil
}

func (m *MemoryStore) insertLocked(draft Draft) int64 {
	m.nextID++
	m.tasks[m.nextID] = &Task{
		ID:          m.nextID,
		Title:       cloneString(draft.Title),
		Description: cloneString(draft.Description),
	}
	return m.nextID
}

// Update 实现 Store 接口。
func (m *MemoryStore) Update(_ context.Context, id int64, patch Patch) error {
	if patch.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		patch.Apply(t)
	}
	return nil
}

// Delete 实现 Store 接口。
func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

// Reorder 实现 Store 接口。
func (m *MemoryStore) Reorder(_ context.Context, positions []Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range positions {
		t, ok := m.tasks[p.ID]
		if !ok {
			continue
		}
		idx := p.Order
		t.SortIndex = &idx
	}
	return nil
}

// Stats 实现 Store 接口。
func (m *MemoryStore) Stats(_ context.Context) (TaskStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats TaskStats
	for _, t := range m.tasks {
		stats.Total++
		if t.Completed == 1 {
			stats.Completed++
		}
	}
	stats.Open = stats.Total - stats.Completed
	return stats, nil
}
