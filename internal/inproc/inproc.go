// Package inproc serves the engine's query, mutation and push surfaces
// straight from a Service and Gateway in the same process.
package inproc

import (
	"context"
	"strings"

	"github.com/roach88/todosync/internal/engine"
	"github.com/roach88/todosync/internal/gateway"
	"github.com/roach88/todosync/internal/service"
	"github.com/roach88/todosync/internal/todo"
)

// API implements engine.API without a network hop.
type API struct {
	svc *service.Service
	gw  *gateway.Gateway
}

var _ engine.API = (*API)(nil)

// New creates an API over svc and gw.
func New(svc *service.Service, gw *gateway.Gateway) *API {
	return &API{svc: svc, gw: gw}
}

func (a *API) List(ctx context.Context) ([]todo.Item, error) {
	return a.svc.List(ctx)
}

// Search routes blank text to List, like the HTTP handler does.
func (a *API) Search(ctx context.Context, text string) ([]todo.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return a.svc.List(ctx)
	}
	return a.svc.Search(ctx, text)
}

func (a *API) Create(ctx context.Context, title string) (todo.Item, error) {
	return a.svc.Create(ctx, title)
}

func (a *API) Update(ctx context.Context, id string, completed *bool) (todo.Item, error) {
	return a.svc.Update(ctx, id, completed)
}

func (a *API) Delete(ctx context.Context, id string) (string, error) {
	return a.svc.Delete(ctx, id)
}

// Subscribe attaches a gateway stream.
func (a *API) Subscribe(ctx context.Context) (engine.PushStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &stream{s: a.gw.Attach()}, nil
}

type stream struct {
	s *gateway.Stream
}

// Next returns the item of the next "added" event.
func (s *stream) Next(ctx context.Context) (todo.Item, error) {
	for {
		ev, err := s.s.Next(ctx)
		if err != nil {
			return todo.Item{}, err
		}
		if ev.Type == todo.EventAdded {
			return ev.Item, nil
		}
	}
}

func (s *stream) Close() error {
	s.s.Cancel()
	return nil
}
