package template

import (
	"context"
	"sort"
	"sync"

	"taskdeck/internal/task"
)

type memoryTemplate struct {
	label *string
	items []Item
}

// MemoryStore 以内存方式保存模板，主要用于测试与本地开发。
type MemoryStore struct {
	mu         sync.RWMutex
	templates  map[int64]*memoryTemplate
	nextID     int64
	nextItemID int64
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[int64]*memoryTemplate)}
}

// List 实现 Store 接口。
func (m *MemoryStore) List(_ context.Context) ([]*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Template, 0, len(m.templates))
	for id, tpl := range m.templates {
		result = append(result, &Template{ID: id, Label: cloneString(tpl.label)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// Get 实现 Store 接口。
func (m *MemoryStore) Get(_ context.Context, id int64) (*Detail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tpl, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	detail := &Detail{
		Template: Template{ID: id, Label: cloneString(tpl.label)},
		Tasks:    make([]Item, 0, len(tpl.items)),
	}
	for _, item := range tpl.items {
		detail.Tasks = append(detail.Tasks, Item{ID: item.ID, Title: cloneString(item.Title), Description: cloneString(item.Description)})
	}
	return detail, nil
}

// Save 实现 Store 接口。空标签的模板互不冲突。
func (m *MemoryStore) Save(_ context.Context, label *string, items []task.Draft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if label != nil {
		for id, tpl := range m.templates {
			if tpl.label != nil && *tpl.label == *label {
				tpl.items = m.buildItemsLocked(items)
				return id, nil
			}
		}
	}
	m.nextID++
	m.templates[m.nextID] = &memoryTemplate{label: cloneString(label), items: m.buildItemsLocked(items)}
	return m.nextID, nil
}

// ReplaceItems 实现 Store 接口。
func (m *MemoryStore) ReplaceItems(_ context.Context, id int64, items []task.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[id]
	if !ok {
		return ErrTemplateNotFound
	}
	tpl.items = m.buildItemsLocked(items)
	return nil
}

// Delete 实现 Store 接口。
func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, id)
	return nil
}

// Items 实现 Store 接口。
func (m *MemoryStore) Items(_ context.Context, id int64) ([]task.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tpl, ok := m.templates[id]
	if !ok {
		return []task.Draft{}, nil
	}
	drafts := make([]task.Draft, 0, len(tpl.items))
	for _, item := range tpl.items {
		drafts = append(drafts, task.Draft{Title: cloneString(item.Title), Description: cloneString(item.Description)})
	}
	return drafts, nil
}

func (m *MemoryStore) buildItemsLocked(drafts []task.Draft) []Item {
	items := make([]Item, 0, len(drafts))
	for _, d := range drafts {
		m.nextItemID++
		items = append(items, Item{ID: m.nextItemID, Title: cloneString(d.Title), Description: cloneString(d.Description)})
	}
	return items
}
