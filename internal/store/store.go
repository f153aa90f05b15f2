package store

import (
	"context"
	"strings"

	"github.com/roach88/todosync/internal/todo"
)

// Store is the authoritative ordered collection of items.
//
// Every operation runs against a single collection. Insert rejects a
// duplicate id. The bool results of FindByID, Update and Remove report
// whether the id was present; absence is not an error at this layer.
type Store interface {
	Insert(ctx context.Context, item todo.Item) error
	FindByID(ctx context.Context, id string) (todo.Item, bool, error)
	ListAll(ctx context.Context) ([]todo.Item, error)
	Search(ctx context.Context, substr string) ([]todo.Item, error)
	Update(ctx context.Context, id string, patch todo.Patch) (todo.Item, bool, error)
	Remove(ctx context.Context, id string) (todo.Item, bool, error)
	Close() error
}

// Open returns the store selected by dsn.
//
//   - ""                        in-memory store
//   - "postgres://..."          postgres via pgx
//   - "postgresql://..."        postgres via pgx
//   - anything else             sqlite database file at that path
func Open(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return NewMemory(), nil
	}
	return OpenSQL(dsn)
}
