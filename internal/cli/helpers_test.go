package cli

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/todosync/internal/bus"
	"github.com/roach88/todosync/internal/gateway"
	"github.com/roach88/todosync/internal/server"
	"github.com/roach88/todosync/internal/service"
	"github.com/roach88/todosync/internal/store"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// lockedBuffer is written by slog from server goroutines while tests read it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// execute runs the root command with args and stdin.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&lockedBuffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// startServer serves an in-memory list with IDs "1", "2", ...
func startServer(t *testing.T) (string, *service.Service) {
	t.Helper()
	b := bus.New()
	gw := gateway.New(b)
	svc := service.New(store.NewMemory(), b,
		service.WithIDGenerator(service.NewSequenceGenerator("")),
		service.WithNow(func() time.Time { return epoch }),
	)
	srv := server.New(svc, gw, server.WithRegistry(prometheus.NewRegistry()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		gw.Close()
		ts.Close()
	})
	return ts.URL, svc
}
