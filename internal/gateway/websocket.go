package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ServeWS upgrades the request to a WebSocket and pushes every event as
// a JSON text message until the peer disconnects or the request ends.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	defer conn.Close()

	stream := g.Attach()
	defer stream.Cancel()

	if err := pump(r.Context(), conn, stream); err != nil {
		slog.Debug("push stream ended", "stream", stream.ID, "err", err)
	}
}

// pump runs a reader goroutine, which only exists to notice the peer
// going away, and a writer loop forwarding events and pings.
func pump(ctx context.Context, conn *websocket.Conn, stream *Stream) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := new(sync.WaitGroup)
	defer wg.Wait()
	// Closing the conn unblocks the reader before wg.Wait.
	defer conn.Close()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := make(chan []byte)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(events)
		for {
			ev, err := stream.Next(ctx)
			if err != nil {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("failed to encode event", "err", err)
				continue
			}
			select {
			case events <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case payload, ok := <-events:
			if !ok {
				return closeConn(conn, ctx.Err())
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				cancel()
				return fmt.Errorf("failed to write event: %w", err)
			}
		case <-t.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				return fmt.Errorf("failed to write ping: %w", err)
			}
		case <-ctx.Done():
			return closeConn(conn, ctx.Err())
		}
	}
}

func closeConn(conn *websocket.Conn, cause error) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	if cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
