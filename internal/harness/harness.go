package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/todosync/internal/bus"
	"github.com/roach88/todosync/internal/engine"
	"github.com/roach88/todosync/internal/gateway"
	"github.com/roach88/todosync/internal/inproc"
	"github.com/roach88/todosync/internal/service"
	"github.com/roach88/todosync/internal/store"
	"github.com/roach88/todosync/internal/testutil"
	"github.com/roach88/todosync/internal/todo"
)

// Epoch is the fake clock's start, and so the CreatedAt of every item.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// SettleTimeout bounds how long a step may take to settle.
const SettleTimeout = 5 * time.Second

// Harness holds the server side and the engines of one scenario run.
type Harness struct {
	clock     *testutil.FakeClock
	svc       *service.Service
	api       *switchableAPI
	clients   map[string]*client
	order     []string
	published int
}

type client struct {
	name   string
	engine *engine.Engine
	done   chan error
}

// Run executes a scenario in a fresh in-memory server.
//
// A returned error means the run itself broke (an engine failed to start
// or settle); mismatches against the scenario are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	clk := testutil.NewFakeClock(Epoch)
	b := bus.New()
	gw := gateway.New(b)
	svc := service.New(store.NewMemory(), b,
		service.WithIDGenerator(service.NewSequenceGenerator("")),
		service.WithNow(clk.Now),
	)
	defer gw.Close()

	if err := seed(ctx, svc, scenario.Seed); err != nil {
		return nil, err
	}

	h := &Harness{
		clock:   clk,
		svc:     svc,
		api:     &switchableAPI{API: inproc.New(svc, gw)},
		clients: make(map[string]*client),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		for _, c := range h.clients {
			<-c.done
		}
	}()

	for _, name := range scenario.clientNames() {
		c := &client{
			name:   name,
			engine: engine.New(h.api, engine.WithClock(clk)),
			done:   make(chan error, 1),
		}
		go func() { c.done <- c.engine.Run(ctx) }()
		h.clients[name] = c
		h.order = append(h.order, name)
	}
	if err := h.waitReady(ctx); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		n := i + 1
		c := h.clientFor(step)

		action, err := h.execute(ctx, c, step)
		if err := h.settle(ctx); err != nil {
			return nil, fmt.Errorf("step %d: %w", n, err)
		}

		outcome := outcomeOf(err)
		event := TraceEvent{Step: n, Action: action, Outcome: outcome, States: h.states()}
		if isClientScoped(step) {
			event.Client = c.name
		}
		result.Trace = append(result.Trace, event)

		if step.actionCount() > 0 {
			want := step.Error
			if want == "" {
				want = OutcomeOK
			}
			if outcome != want {
				result.AddError(fmt.Sprintf("step %d: %s: expected outcome %s, got %s (%v)", n, action, want, outcome, err))
			}
		}
		if step.Expect != nil {
			for _, msg := range checkExpect(c.engine.Snapshot(), step.Expect) {
				result.AddError(fmt.Sprintf("step %d: %s: %s", n, c.name, msg))
			}
		}
	}

	slog.Debug("scenario finished", "name", scenario.Name, "pass", result.Pass, "steps", len(scenario.Steps))
	return result, nil
}

func seed(ctx context.Context, svc *service.Service, items []SeedItem) error {
	for _, s := range items {
		item, err := svc.Create(ctx, s.Title)
		if err != nil {
			return fmt.Errorf("seed %q: %w", s.Title, err)
		}
		if s.Completed {
			done := true
			if _, err := svc.Update(ctx, item.ID, &done); err != nil {
				return fmt.Errorf("seed %q: %w", s.Title, err)
			}
		}
	}
	return nil
}

func (h *Harness) clientFor(step Step) *client {
	if step.Client != "" {
		return h.clients[step.Client]
	}
	return h.clients[h.order[0]]
}

// execute performs the step's action and renders it for the trace.
func (h *Harness) execute(ctx context.Context, c *client, step Step) (string, error) {
	switch {
	case step.Create != nil:
		_, err := c.engine.Create(ctx, *step.Create)
		if err == nil {
			h.published++
		}
		return "create " + strconv.Quote(*step.Create), err

	case step.Type != nil:
		c.engine.SetSearchInput(*step.Type)
		return "type " + strconv.Quote(*step.Type), nil

	case step.ClearSearch:
		c.engine.ClearSearch()
		return "clear_search", nil

	case step.Advance != 0:
		h.clock.Advance(step.Advance)
		return "advance " + step.Advance.String(), nil

	case step.Update != nil:
		completed := "unset"
		if step.Update.Completed != nil {
			completed = strconv.FormatBool(*step.Update.Completed)
		}
		err := c.engine.Update(ctx, step.Update.ID, step.Update.Completed)
		return fmt.Sprintf("update %q completed=%s", step.Update.ID, completed), err

	case step.Delete != nil:
		err := c.engine.Delete(ctx, *step.Delete)
		return "delete " + strconv.Quote(*step.Delete), err

	case step.Publish != nil:
		_, err := h.svc.Create(ctx, *step.Publish)
		if err == nil {
			h.published++
		}
		return "publish " + strconv.Quote(*step.Publish), err

	case step.Offline != nil:
		h.api.down.Store(*step.Offline)
		return "offline " + strconv.FormatBool(*step.Offline), nil

	default:
		return "expect", nil
	}
}

func isClientScoped(step Step) bool {
	return step.Advance == 0 && step.Publish == nil && step.Offline == nil
}

// waitReady waits for every engine's push stream and startup refresh.
func (h *Harness) waitReady(ctx context.Context) error {
	for _, name := range h.order {
		c := h.clients[name]
		err := waitFor(ctx, func() bool {
			if err := c.engine.Flush(ctx); err != nil {
				return false
			}
			s := c.engine.Snapshot()
			return s.Live && !s.Loading
		})
		if err != nil {
			return fmt.Errorf("client %s did not start: %w", name, err)
		}
	}
	return nil
}

// settle waits until every engine is idle and has seen every publish.
func (h *Harness) settle(ctx context.Context) error {
	for _, name := range h.order {
		c := h.clients[name]
		err := waitFor(ctx, func() bool {
			if err := c.engine.Flush(ctx); err != nil {
				return false
			}
			s := c.engine.Snapshot()
			return !s.Loading && s.PushReceived == h.published
		})
		if err != nil {
			return fmt.Errorf("client %s did not settle: %w", name, err)
		}
	}
	return nil
}

var errSettleTimeout = errors.New("timed out")

func waitFor(ctx context.Context, cond func() bool) error {
	deadline := time.Now().Add(SettleTimeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return errSettleTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (h *Harness) states() []ClientState {
	out := make([]ClientState, 0, len(h.order))
	for _, name := range h.order {
		s := h.clients[name].engine.Snapshot()
		out = append(out, ClientState{
			Name:         name,
			Items:        s.Items,
			Search:       s.SearchText,
			Pending:      s.PendingSearch,
			Notification: s.Notification,
			Err:          errorKind(s.Err),
		})
	}
	return out
}

// outcomeOf names the kind of error an action returned.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return errorKind(err)
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return OutcomeNone
	case todo.IsValidation(err):
		return OutcomeValidation
	case todo.IsNotFound(err):
		return OutcomeNotFound
	case todo.IsTransport(err):
		return OutcomeTransport
	default:
		return "error"
	}
}
