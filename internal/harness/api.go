package harness

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/roach88/todosync/internal/inproc"
	"github.com/roach88/todosync/internal/todo"
)

// ErrUnavailable is what queries and mutations fail with while offline.
var ErrUnavailable = errors.New("server unavailable")

// switchableAPI fails queries and mutations while down. The push stream is
// unaffected so settling can still count deliveries.
type switchableAPI struct {
	*inproc.API
	down atomic.Bool
}

func (a *switchableAPI) List(ctx context.Context) ([]todo.Item, error) {
	if a.down.Load() {
		return nil, ErrUnavailable
	}
	return a.API.List(ctx)
}

func (a *switchableAPI) Search(ctx context.Context, text string) ([]todo.Item, error) {
	if a.down.Load() {
		return nil, ErrUnavailable
	}
	return a.API.Search(ctx, text)
}

func (a *switchableAPI) Create(ctx context.Context, title string) (todo.Item, error) {
	if a.down.Load() {
		return todo.Item{}, ErrUnavailable
	}
	return a.API.Create(ctx, title)
}

func (a *switchableAPI) Update(ctx context.Context, id string, completed *bool) (todo.Item, error) {
	if a.down.Load() {
		return todo.Item{}, ErrUnavailable
	}
	return a.API.Update(ctx, id, completed)
}

func (a *switchableAPI) Delete(ctx context.Context, id string) (string, error) {
	if a.down.Load() {
		return "", ErrUnavailable
	}
	return a.API.Delete(ctx, id)
}
