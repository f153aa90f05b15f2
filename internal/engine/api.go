package engine

import (
	"context"

	"github.com/roach88/todosync/internal/todo"
)

// QueryAPI reads the shared list.
type QueryAPI interface {
	List(ctx context.Context) ([]todo.Item, error)

	// Search is only called with non-empty, trimmed text.
	Search(ctx context.Context, text string) ([]todo.Item, error)
}

// MutationAPI changes the shared list.
type MutationAPI interface {
	Create(ctx context.Context, title string) (todo.Item, error)
	Update(ctx context.Context, id string, completed *bool) (todo.Item, error)
	Delete(ctx context.Context, id string) (string, error)
}

// PushStream delivers items added by any client, in publish order.
//
// Next blocks until an item arrives, the stream fails, or ctx is done.
// Close must be idempotent.
type PushStream interface {
	Next(ctx context.Context) (todo.Item, error)
	Close() error
}

// PushAPI opens push streams.
type PushAPI interface {
	Subscribe(ctx context.Context) (PushStream, error)
}

// API is everything an Engine consumes.
type API interface {
	QueryAPI
	MutationAPI
	PushAPI
}
