package engine

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/todosync/internal/testutil"
	"github.com/roach88/todosync/internal/todo"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// pendingQuery is a query parked by a gated fakeAPI until the test replies.
type pendingQuery struct {
	search string
	reply  chan queryResult
}

type queryResult struct {
	items []todo.Item
	err   error
}

// fakeAPI is an in-memory API. Created items are prepended, like the
// presented collection, so List results read newest first.
type fakeAPI struct {
	mu       sync.Mutex
	items    []todo.Item
	queries  []string
	queryErr error
	nextID   int

	createErr    error
	mutateErr    error
	creates      int
	subscribeErr error

	// When gated, every query blocks until the test replies on the
	// pendingQuery received from gates. Gated queries ignore ctx.
	gated bool
	gates chan *pendingQuery

	stream *fakeStream
}

func newFakeAPI(items ...todo.Item) *fakeAPI {
	return &fakeAPI{
		items:  items,
		gates:  make(chan *pendingQuery, 16),
		stream: newFakeStream(),
	}
}

func (f *fakeAPI) List(ctx context.Context) ([]todo.Item, error) {
	return f.query(ctx, "")
}

func (f *fakeAPI) Search(ctx context.Context, text string) ([]todo.Item, error) {
	return f.query(ctx, text)
}

func (f *fakeAPI) query(ctx context.Context, search string) ([]todo.Item, error) {
	f.mu.Lock()
	f.queries = append(f.queries, search)
	gated := f.gated
	items := slices.Clone(f.items)
	err := f.queryErr
	f.mu.Unlock()

	if gated {
		p := &pendingQuery{search: search, reply: make(chan queryResult, 1)}
		f.gates <- p
		r := <-p.reply
		return r.items, r.err
	}
	if err != nil {
		return nil, err
	}
	if search != "" {
		return todo.Filter(items, search), nil
	}
	return items, nil
}

func (f *fakeAPI) Create(ctx context.Context, title string) (todo.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return todo.Item{}, f.createErr
	}
	f.nextID++
	it := todo.Item{ID: strconv.Itoa(f.nextID), Title: title, CreatedAt: epoch}
	f.items = append([]todo.Item{it}, f.items...)
	return it, nil
}

func (f *fakeAPI) Update(ctx context.Context, id string, completed *bool) (todo.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return todo.Item{}, f.mutateErr
	}
	i := todo.IndexOf(f.items, id)
	if i < 0 {
		return todo.Item{}, todo.NewNotFoundError(id)
	}
	f.items[i] = todo.Patch{Completed: completed}.Apply(f.items[i])
	return f.items[i], nil
}

func (f *fakeAPI) Delete(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return "", f.mutateErr
	}
	i := todo.IndexOf(f.items, id)
	if i < 0 {
		return "", todo.NewNotFoundError(id)
	}
	f.items = slices.Delete(f.items, i, i+1)
	return id, nil
}

func (f *fakeAPI) Subscribe(ctx context.Context) (PushStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.stream, nil
}

// add puts an item into the backing list without going through Create.
func (f *fakeAPI) add(it todo.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]todo.Item{it}, f.items...)
}

func (f *fakeAPI) queryLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fakeStream struct {
	items  chan todo.Item
	errs   chan error
	closed chan struct{}
	once   sync.Once
	closes atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		items:  make(chan todo.Item),
		errs:   make(chan error),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Next(ctx context.Context) (todo.Item, error) {
	select {
	case it := <-s.items:
		return it, nil
	case err := <-s.errs:
		return todo.Item{}, err
	case <-s.closed:
		return todo.Item{}, errors.New("stream closed")
	case <-ctx.Done():
		return todo.Item{}, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// runner drives one Engine.Run in the background.
type runner struct {
	e      *Engine
	clk    *testutil.FakeClock
	api    *fakeAPI
	cancel context.CancelFunc
	exited chan struct{}
	err    error
}

func start(t *testing.T, api *fakeAPI, opts ...Option) *runner {
	t.Helper()
	clk := testutil.NewFakeClock(epoch)
	e := New(api, append([]Option{WithClock(clk)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	r := &runner{e: e, clk: clk, api: api, cancel: cancel, exited: make(chan struct{})}
	go func() {
		defer close(r.exited)
		r.err = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-r.exited:
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return r
}

// settle waits until the loop is idle and no refresh is outstanding.
func (r *runner) settle(t *testing.T) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		if err := r.e.Flush(context.Background()); err != nil {
			return false
		}
		snap = r.e.Snapshot()
		return !snap.Loading
	}, 2*time.Second, time.Millisecond)
	return snap
}

// flush applies everything already queued.
func (r *runner) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.e.Flush(ctx))
}

// push delivers it over the push stream and waits until it was applied.
func (r *runner) push(t *testing.T, it todo.Item) Snapshot {
	t.Helper()
	before := r.e.Snapshot().PushReceived
	r.api.stream.items <- it
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = r.e.Snapshot()
		return snap.PushReceived > before
	}, 2*time.Second, time.Millisecond)
	return snap
}

func (r *runner) waitLive(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return r.e.Snapshot().Live }, 2*time.Second, time.Millisecond)
}

// wait returns Run's result once it exited.
func (r *runner) wait(t *testing.T) error {
	t.Helper()
	select {
	case <-r.exited:
		return r.err
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
		return nil
	}
}

func ptr[T any](v T) *T {
	return &v
}
