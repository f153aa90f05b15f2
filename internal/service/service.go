// Package service executes queries and mutations against the store and
// publishes an "added" event for every successful create.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/todosync/internal/bus"
	"github.com/roach88/todosync/internal/store"
	"github.com/roach88/todosync/internal/todo"
)

// Service is the mutation/query surface over a Store.
//
// Mutations are serialized by mu. Create holds mu across the store insert
// and the bus publish so no caller can observe a created item before its
// event has been handed to every subscriber.
type Service struct {
	mu      sync.Mutex
	store   store.Store
	bus     *bus.Bus
	ids     IDGenerator
	now     func() time.Time
	metrics *Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator overrides the default UUIDv7 generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithNow overrides the wall clock used for CreatedAt.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service over st publishing to b.
func New(st store.Store, b *bus.Bus, opts ...Option) *Service {
	s := &Service{
		store: st,
		bus:   b,
		ids:   UUIDv7Generator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every item in insertion order.
func (s *Service) List(ctx context.Context) (items []todo.Item, err error) {
	defer s.track("list", time.Now(), &err)
	items, err = s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Search returns items whose title contains text, ignoring case.
// Routing empty text to List is the caller's job.
func (s *Service) Search(ctx context.Context, text string) (items []todo.Item, err error) {
	defer s.track("search", time.Now(), &err)
	items, err = s.store.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}

// Get returns a single item or a NotFoundError.
func (s *Service) Get(ctx context.Context, id string) (item todo.Item, err error) {
	defer s.track("get", time.Now(), &err)
	item, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return todo.Item{}, fmt.Errorf("get item: %w", err)
	}
	if !ok {
		return todo.Item{}, todo.NewNotFoundError(id)
	}
	return item, nil
}

// Create validates title, stores a new item and publishes it.
func (s *Service) Create(ctx context.Context, title string) (item todo.Item, err error) {
	defer s.track("create", time.Now(), &err)

	normalized, err := todo.ValidateTitle(title)
	if err != nil {
		return todo.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item = todo.Item{
		ID:        s.ids.Generate(),
		Title:     normalized,
		Completed: false,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return todo.Item{}, fmt.Errorf("create item: %w", err)
	}
	delivered := s.bus.Publish(todo.Event{Type: todo.EventAdded, Item: item})

	slog.Info("item added",
		"id", item.ID,
		"title", item.Title,
		"subscribers", delivered,
	)
	return item, nil
}

// Update sets the mutable fields of id. A nil completed leaves the field as is.
func (s *Service) Update(ctx context.Context, id string, completed *bool) (item todo.Item, err error) {
	defer s.track("update", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok, err := s.store.Update(ctx, id, todo.Patch{Completed: completed})
	if err != nil {
		return todo.Item{}, fmt.Errorf("update item: %w", err)
	}
	if !ok {
		return todo.Item{}, todo.NewNotFoundError(id)
	}

	slog.Info("item updated", "id", item.ID, "completed", item.Completed)
	return item, nil
}

// Delete removes id and returns it.
func (s *Service) Delete(ctx context.Context, id string) (deleted string, err error) {
	defer s.track("delete", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok, err := s.store.Remove(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete item: %w", err)
	}
	if !ok {
		return "", todo.NewNotFoundError(id)
	}

	slog.Info("item deleted", "id", item.ID)
	return item.ID, nil
}

func (s *Service) track(operation string, start time.Time, err *error) {
	s.metrics.observe(operation, *err, time.Since(start))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case todo.IsValidation(err):
		return "invalid"
	case todo.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
