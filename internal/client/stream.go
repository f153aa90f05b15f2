package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/todosync/internal/engine"
	"github.com/roach88/todosync/internal/todo"
)

// ErrClosed is returned by a push stream's Next after Close.
var ErrClosed = errors.New("push stream closed")

const closeWait = time.Second

// Subscribe opens the WebSocket push stream.
func (c *Client) Subscribe(ctx context.Context) (engine.PushStream, error) {
	u := c.base.JoinPath("api/subscribe")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, todo.WrapTransport("subscribe", err)
	}
	s := &stream{
		conn:   conn,
		events: make(chan todo.Event),
		done:   make(chan struct{}),
	}
	go s.read()
	return s, nil
}

// stream reads events on its own goroutine. Reading continuously also
// answers the server's pings.
type stream struct {
	conn   *websocket.Conn
	events chan todo.Event
	done   chan struct{}
	once   sync.Once

	// err is written before events is closed.
	err error
}

func (s *stream) read() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.err = err
			return
		}
		var ev todo.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.err = fmt.Errorf("decode event: %w", err)
			return
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Next returns the item of the next "added" event.
func (s *stream) Next(ctx context.Context) (todo.Item, error) {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				if s.closed() {
					return todo.Item{}, ErrClosed
				}
				return todo.Item{}, todo.WrapTransport("push", s.err)
			}
			if ev.Type == todo.EventAdded {
				return ev.Item, nil
			}
		case <-s.done:
			return todo.Item{}, ErrClosed
		case <-ctx.Done():
			return todo.Item{}, ctx.Err()
		}
	}
}

// Close says goodbye to the server and drops the connection. Idempotent.
func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		err = s.conn.Close()
	})
	return err
}

func (s *stream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
