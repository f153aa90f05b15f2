package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/todosync/internal/todo"
)

// Compile-time contract assertion.
var _ Store = (*Memory)(nil)

// Memory keeps items in a slice in insertion order.
// Safe for concurrent use; reads return copies.
type Memory struct {
	mu    sync.RWMutex
	items []todo.Item
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make([]todo.Item, 0, 16)}
}

func (m *Memory) Insert(_ context.Context, item todo.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if todo.IndexOf(m.items, item.ID) >= 0 {
		return fmt.Errorf("insert item: duplicate id %q", item.ID)
	}
	m.items = append(m.items, item)
	return nil
}

func (m *Memory) FindByID(_ context.Context, id string) (todo.Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := todo.IndexOf(m.items, id); i >= 0 {
		return m.items[i], true, nil
	}
	return todo.Item{}, false, nil
}

func (m *Memory) ListAll(_ context.Context) ([]todo.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]todo.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory) Search(_ context.Context, substr string) ([]todo.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return todo.Filter(m.items, substr), nil
}

func (m *Memory) Update(_ context.Context, id string, patch todo.Patch) (todo.Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := todo.IndexOf(m.items, id)
	if i < 0 {
		return todo.Item{}, false, nil
	}
	m.items[i] = patch.Apply(m.items[i])
	return m.items[i], true, nil
}

func (m *Memory) Remove(_ context.Context, id string) (todo.Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := todo.IndexOf(m.items, id)
	if i < 0 {
		return todo.Item{}, false, nil
	}
	removed := m.items[i]
	// Nil out the tail slot so the backing array does not pin the item.
	copy(m.items[i:], m.items[i+1:])
	m.items[len(m.items)-1] = todo.Item{}
	m.items = m.items[:len(m.items)-1]
	return removed, true, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
