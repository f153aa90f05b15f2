package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/todosync/internal/clock"
	"github.com/roach88/todosync/internal/queue"
	"github.com/roach88/todosync/internal/todo"
)

const (
	// DefaultDebounce is the quiet period before search input commits.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultNotificationTTL is how long an "added" notification stays visible.
	DefaultNotificationTTL = 3 * time.Second
)

// Snapshot is a copy of the engine's observable state.
type Snapshot struct {
	// Items is the presented collection, unique by ID.
	Items []todo.Item

	// SearchText is the committed filter. PendingSearch is the latest input
	// still inside the debounce window.
	SearchText    string
	PendingSearch string

	Loading bool

	// Err is the last refresh or mutation failure; cleared by every refresh.
	Err error

	// Notification is empty when none is live.
	Notification string

	// Generation is the generation of the most recent refresh. Discarded
	// counts results dropped because a newer refresh superseded them.
	Generation int64
	Discarded  int

	// PushReceived counts every pushed item, merged or not.
	PushReceived int

	// Live reports whether the push stream is connected. PushErr holds the
	// reason it is not, if it failed.
	Live    bool
	PushErr error
}

// Engine is the per-client synchronization engine.
//
// CRITICAL: All state changes happen in the single-writer Run loop.
// Public methods enqueue events and return without touching state.
//
// Thread-safety model:
//   - SetSearchInput, ClearSearch, Create, Update, Delete, Flush, Snapshot,
//     Stop: safe from any goroutine
//   - Run: must be called exactly once
//
// INVARIANTS:
//   - Items never holds two entries with the same ID
//   - Only the refresh with the current generation may replace Items
//   - Nothing changes Items after Run returns
type Engine struct {
	api             API
	clock           clock.Clock
	debounce        time.Duration
	notificationTTL time.Duration
	onChange        func(Snapshot)

	queue   *queue.Queue[event]
	gen     generation
	started atomic.Bool
	wg      sync.WaitGroup

	mu    sync.RWMutex
	state Snapshot

	// Owned by the Run goroutine.
	searchSeq     uint64
	searchTimer   clock.Timer
	noticeSeq     uint64
	noticeTimer   clock.Timer
	cancelRefresh context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for debounce and expiry timers.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDebounce sets the search debounce window.
//
// Default: 300ms (DefaultDebounce)
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithNotificationTTL sets how long a notification stays visible.
//
// Default: 3s (DefaultNotificationTTL)
func WithNotificationTTL(d time.Duration) Option {
	return func(e *Engine) { e.notificationTTL = d }
}

// WithOnChange registers a callback invoked from the Run goroutine after
// every state change. It must not block.
func WithOnChange(fn func(Snapshot)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// New creates an Engine over api. Nothing happens until Run is called.
func New(api API, opts ...Option) *Engine {
	e := &Engine{
		api:             api,
		clock:           clock.System(),
		debounce:        DefaultDebounce,
		notificationTTL: DefaultNotificationTTL,
		queue:           queue.New[event](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run connects the push stream, performs the startup refresh and processes
// events until ctx is cancelled or Stop is called.
//
// Returns nil after Stop and ctx.Err() after cancellation. When Run returns
// the push stream is closed, timers are stopped and in-flight refreshes are
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if e.queue.Closed() {
		return ErrStopped
	}
	slog.Info("sync engine starting",
		"debounce", e.debounce,
		"notification_ttl", e.notificationTTL,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer e.shutdown(cancel)

	e.wg.Add(1)
	go e.listen(ctx)
	e.refresh(ctx)

	for {
		ev, ok := e.queue.TryPop()
		if ok {
			e.apply(ctx, ev)
			continue
		}
		if e.queue.Closed() {
			slog.Info("sync engine stopping: stopped")
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("sync engine stopping: context cancelled")
			return ctx.Err()
		case <-e.queue.Wait():
		}
	}
}

// Stop makes Run return. Events still queued are discarded.
func (e *Engine) Stop() {
	e.closeQueue()
}

// SetSearchInput offers a candidate filter. It commits, and triggers one
// refresh, only after the debounce window passes without further input.
func (e *Engine) SetSearchInput(text string) {
	e.queue.Push(searchInput{text: text})
}

// ClearSearch empties the filter immediately and always refreshes.
func (e *Engine) ClearSearch() {
	e.queue.Push(clearSearch{})
}

// Create adds an item through the mutation API and merges the response.
//
// A blank title fails with a ValidationError before reaching the API and
// leaves state untouched. Any other failure is recorded in Err.
func (e *Engine) Create(ctx context.Context, title string) (todo.Item, error) {
	title, err := todo.ValidateTitle(title)
	if err != nil {
		return todo.Item{}, err
	}

	item, err := e.api.Create(ctx, title)
	if err != nil {
		err = todo.WrapTransport("create", err)
		e.queue.Push(mutationFailed{err: err})
		return todo.Item{}, err
	}
	e.queue.Push(created{item: item})
	return item, nil
}

// Update sets the completed flag of id. A missing id is not an error.
func (e *Engine) Update(ctx context.Context, id string, completed *bool) error {
	item, err := e.api.Update(ctx, id, completed)
	if err != nil {
		if todo.IsNotFound(err) {
			slog.Debug("update of missing item ignored", "id", id)
			return nil
		}
		err = todo.WrapTransport("update", err)
		e.queue.Push(mutationFailed{err: err})
		return err
	}
	e.queue.Push(updated{item: item})
	return nil
}

// Delete removes id. A missing id is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	deletedID, err := e.api.Delete(ctx, id)
	if err != nil {
		if todo.IsNotFound(err) {
			slog.Debug("delete of missing item ignored", "id", id)
			return nil
		}
		err = todo.WrapTransport("delete", err)
		e.queue.Push(mutationFailed{err: err})
		return err
	}
	e.queue.Push(deleted{id: deletedID})
	return nil
}

// Flush blocks until every event enqueued before the call has been applied.
// Work those events started asynchronously, such as a refresh query, may
// still be in flight.
func (e *Engine) Flush(ctx context.Context) error {
	b := barrier{done: make(chan error, 1)}
	if !e.queue.Push(b) {
		return ErrStopped
	}
	select {
	case err := <-b.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state
	s.Items = slices.Clone(e.state.Items)
	return s
}

// QueueLen returns the number of events waiting for the loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// apply routes an event to its handler.
// CRITICAL: Called only from the Run goroutine.
func (e *Engine) apply(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case searchInput:
		e.armDebounce(ev.text)

	case searchSettled:
		if ev.seq != e.searchSeq {
			return
		}
		e.searchTimer = nil
		e.update(func(s *Snapshot) {
			s.SearchText = ev.text
			s.PendingSearch = ""
		})
		e.refresh(ctx)

	case clearSearch:
		e.searchSeq++
		stopTimer(&e.searchTimer)
		e.update(func(s *Snapshot) {
			s.SearchText = ""
			s.PendingSearch = ""
		})
		e.refresh(ctx)

	case refreshDone:
		e.applyRefresh(ev)

	case created:
		e.update(func(s *Snapshot) { s.Items = MergeByID(s.Items, ev.item) })

	case updated:
		e.update(func(s *Snapshot) { s.Items = ReplaceByID(s.Items, ev.item) })

	case deleted:
		e.update(func(s *Snapshot) { s.Items = RemoveByID(s.Items, ev.id) })

	case mutationFailed:
		slog.Warn("mutation failed", "error", ev.err)
		e.update(func(s *Snapshot) { s.Err = ev.err })

	case pushConnected:
		slog.Debug("push stream connected")
		e.update(func(s *Snapshot) {
			s.Live = true
			s.PushErr = nil
		})

	case pushed:
		e.applyPush(ev.item)

	case pushFailed:
		err := todo.WrapTransport("push", ev.err)
		slog.Warn("push stream failed, live updates stopped", "error", err)
		e.update(func(s *Snapshot) {
			s.Live = false
			s.PushErr = err
		})

	case notificationExpired:
		if ev.seq != e.noticeSeq {
			return
		}
		e.noticeTimer = nil
		e.update(func(s *Snapshot) { s.Notification = "" })

	case barrier:
		ev.done <- nil
	}
}

func (e *Engine) armDebounce(text string) {
	e.searchSeq++
	seq := e.searchSeq
	stopTimer(&e.searchTimer)
	e.searchTimer = e.clock.AfterFunc(e.debounce, func() {
		e.queue.Push(searchSettled{seq: seq, text: text})
	})
	e.update(func(s *Snapshot) { s.PendingSearch = text })
}

// refresh supersedes any outstanding refresh and starts a new one.
func (e *Engine) refresh(ctx context.Context) {
	if e.cancelRefresh != nil {
		e.cancelRefresh()
	}
	rctx, cancel := context.WithCancel(ctx)
	e.cancelRefresh = cancel

	gen := e.gen.Next()
	text := strings.TrimSpace(e.state.SearchText)
	e.update(func(s *Snapshot) {
		s.Loading = true
		s.Err = nil
		s.Generation = gen
	})
	slog.Debug("refresh started", "generation", gen, "search", text)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		var (
			items []todo.Item
			err   error
		)
		if text == "" {
			items, err = e.api.List(rctx)
		} else {
			items, err = e.api.Search(rctx, text)
		}
		e.queue.Push(refreshDone{gen: gen, items: items, err: err})
	}()
}

func (e *Engine) applyRefresh(ev refreshDone) {
	if ev.gen != e.gen.Current() {
		slog.Debug("stale refresh discarded", "generation", ev.gen, "current", e.gen.Current())
		e.update(func(s *Snapshot) { s.Discarded++ })
		return
	}
	if e.cancelRefresh != nil {
		e.cancelRefresh()
		e.cancelRefresh = nil
	}

	if ev.err != nil {
		err := todo.WrapTransport("refresh", ev.err)
		slog.Warn("refresh failed", "generation", ev.gen, "error", err)
		e.update(func(s *Snapshot) {
			s.Items = []todo.Item{}
			s.Loading = false
			s.Err = err
		})
		return
	}
	e.update(func(s *Snapshot) {
		s.Items = Dedup(ev.items)
		s.Loading = false
	})
}

// applyPush merges item unless a filter is active, then shows the
// notification for it either way.
func (e *Engine) applyPush(item todo.Item) {
	filtered := strings.TrimSpace(e.state.SearchText) != ""

	e.noticeSeq++
	seq := e.noticeSeq
	stopTimer(&e.noticeTimer)
	e.noticeTimer = e.clock.AfterFunc(e.notificationTTL, func() {
		e.queue.Push(notificationExpired{seq: seq})
	})

	e.update(func(s *Snapshot) {
		s.PushReceived++
		if !filtered {
			s.Items = MergeByID(s.Items, item)
		}
		s.Notification = fmt.Sprintf("Todo \"%s\" was added.", item.Title)
	})
}

// listen owns the push stream for the lifetime of ctx.
func (e *Engine) listen(ctx context.Context) {
	defer e.wg.Done()

	stream, err := e.api.Subscribe(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.queue.Push(pushFailed{err: err})
		}
		return
	}
	defer stream.Close()
	e.queue.Push(pushConnected{})

	for {
		item, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				e.queue.Push(pushFailed{err: err})
			}
			return
		}
		e.queue.Push(pushed{item: item})
	}
}

// update mutates state under mu and reports the result to onChange.
func (e *Engine) update(fn func(s *Snapshot)) {
	e.mu.Lock()
	fn(&e.state)
	var snap Snapshot
	if e.onChange != nil {
		snap = e.state
		snap.Items = slices.Clone(e.state.Items)
	}
	e.mu.Unlock()

	if e.onChange != nil {
		e.onChange(snap)
	}
}

// shutdown releases everything Run started.
func (e *Engine) shutdown(cancel context.CancelFunc) {
	e.closeQueue()
	stopTimer(&e.searchTimer)
	stopTimer(&e.noticeTimer)
	if e.cancelRefresh != nil {
		e.cancelRefresh()
		e.cancelRefresh = nil
	}
	cancel()
	e.wg.Wait()

	e.mu.Lock()
	e.state.Live = false
	e.mu.Unlock()
	slog.Info("sync engine stopped")
}

// closeQueue closes the queue and fails the barriers still waiting in it.
func (e *Engine) closeQueue() {
	for _, ev := range e.queue.Close() {
		if b, ok := ev.(barrier); ok {
			b.done <- ErrStopped
		}
	}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
