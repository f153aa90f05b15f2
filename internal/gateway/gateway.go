// Package gateway bridges the event bus to per-client push streams.
//
// Each attached Stream owns its own bus subscription, so every event
// published while the stream is attached reaches it exactly once, in
// publish order. Cancel detaches immediately; nothing is delivered after.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/todosync/internal/bus"
	"github.com/roach88/todosync/internal/todo"
)

// ErrStreamClosed is returned by Stream.Next after Cancel.
var ErrStreamClosed = errors.New("stream closed")

// Gateway tracks the live client streams.
type Gateway struct {
	bus *bus.Bus

	mu      sync.Mutex
	streams map[string]*Stream

	live prometheus.Gauge
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRegisterer registers the live-stream gauge with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(g *Gateway) {
		reg.MustRegister(g.live)
	}
}

// New creates a gateway over b.
func New(b *bus.Bus, opts ...Option) *Gateway {
	g := &Gateway{
		bus:     b,
		streams: make(map[string]*Stream),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "todosync",
			Subsystem: "gateway",
			Name:      "streams",
			Help:      "Currently attached push streams.",
		}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attach registers a new stream. It receives every event published after
// Attach returns, until it is cancelled.
func (g *Gateway) Attach() *Stream {
	s := &Stream{
		ID:  uuid.NewString(),
		gw:  g,
		sub: g.bus.Subscribe(),
	}

	g.mu.Lock()
	g.streams[s.ID] = s
	n := len(g.streams)
	g.mu.Unlock()

	g.live.Inc()
	slog.Debug("stream attached", "stream", s.ID, "streams", n)
	return s
}

// Len returns the number of attached streams.
func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.streams)
}

// Close cancels every attached stream.
func (g *Gateway) Close() {
	g.mu.Lock()
	streams := make([]*Stream, 0, len(g.streams))
	for _, s := range g.streams {
		streams = append(streams, s)
	}
	g.mu.Unlock()

	for _, s := range streams {
		s.Cancel()
	}
}

func (g *Gateway) remove(id string) {
	g.mu.Lock()
	_, ok := g.streams[id]
	delete(g.streams, id)
	n := len(g.streams)
	g.mu.Unlock()

	if ok {
		g.live.Dec()
		slog.Debug("stream detached", "stream", id, "streams", n)
	}
}

// Stream is one client's long-lived event stream.
type Stream struct {
	ID string

	gw   *Gateway
	sub  *bus.Subscription
	once sync.Once
}

// Next blocks for the next event. It returns ErrStreamClosed once the
// stream is cancelled and ctx.Err() if ctx ends first.
func (s *Stream) Next(ctx context.Context) (todo.Event, error) {
	ev, ok := s.sub.Next(ctx)
	if ok {
		return ev, nil
	}
	if err := ctx.Err(); err != nil {
		return todo.Event{}, err
	}
	return todo.Event{}, ErrStreamClosed
}

// Pending returns the number of queued, undelivered events.
func (s *Stream) Pending() int {
	return s.sub.Len()
}

// Cancel detaches the stream from the bus. Idempotent and safe to call
// from any goroutine.
func (s *Stream) Cancel() {
	s.once.Do(func() {
		s.sub.Close()
		s.gw.remove(s.ID)
	})
}
