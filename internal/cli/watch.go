package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/todosync/internal/engine"
	"github.com/roach88/todosync/internal/todo"
)

const watchHelp = `commands:
  /text    search for text          /      clear the search
  + title  add an item              x id   toggle completed
  - id     delete an item           q      quit`

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the list live and edit it interactively",
		Long: `Follow the list live. The presented items are printed again whenever
they change, including when another client adds an item. Commands are read
from stdin, one per line:

` + watchHelp,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	c, err := opts.client(cfg)
	if err != nil {
		return err
	}

	r := &renderer{w: cmd.OutOrStdout(), format: opts.Format}
	eng := engine.New(c,
		engine.WithDebounce(cfg.Client.Debounce),
		engine.WithNotificationTTL(cfg.Client.NotificationTTL),
		engine.WithOnChange(r.render),
	)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	slog.Debug("watching", "server", cfg.Client.Server)
	err = repl(ctx, eng, cmd.InOrStdin(), r)

	eng.Stop()
	runErr := <-done
	if err == nil && runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, engine.ErrStopped) {
		err = runErr
	}
	if err != nil {
		return WrapExitError(ExitFailure, "watch failed", err)
	}
	return nil
}

// repl applies commands read from in until quit, EOF or ctx ends. Each
// command is flushed through the engine before the next line is read.
func repl(ctx context.Context, eng *engine.Engine, in io.Reader, r *renderer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			wc, err := parseWatchCommand(line)
			if err != nil {
				r.printf("? %v", err)
				continue
			}
			if wc.kind == watchQuit {
				return nil
			}
			if err := wc.apply(ctx, eng, r); err != nil {
				r.printf("! %v", err)
			}
			if err := eng.Flush(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}

type watchKind int

const (
	watchNone watchKind = iota
	watchSearch
	watchClear
	watchAdd
	watchToggle
	watchDelete
	watchShowHelp
	watchQuit
)

type watchCommand struct {
	kind watchKind
	arg  string
}

func parseWatchCommand(line string) (watchCommand, error) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return watchCommand{kind: watchNone}, nil
	case trimmed == "q" || trimmed == "quit":
		return watchCommand{kind: watchQuit}, nil
	case trimmed == "?" || trimmed == "help":
		return watchCommand{kind: watchShowHelp}, nil
	case trimmed == "/":
		return watchCommand{kind: watchClear}, nil
	case strings.HasPrefix(trimmed, "/"):
		return watchCommand{kind: watchSearch, arg: trimmed[1:]}, nil
	case strings.HasPrefix(trimmed, "+"):
		return watchCommand{kind: watchAdd, arg: strings.TrimSpace(trimmed[1:])}, nil
	case strings.HasPrefix(trimmed, "x "), strings.HasPrefix(trimmed, "- "):
		id := strings.TrimSpace(trimmed[2:])
		kind := watchToggle
		if trimmed[0] == '-' {
			kind = watchDelete
		}
		return watchCommand{kind: kind, arg: id}, nil
	default:
		return watchCommand{}, fmt.Errorf("unknown command %q (? for help)", trimmed)
	}
}

func (wc watchCommand) apply(ctx context.Context, eng *engine.Engine, r *renderer) error {
	switch wc.kind {
	case watchSearch:
		eng.SetSearchInput(wc.arg)
	case watchClear:
		eng.ClearSearch()
	case watchAdd:
		_, err := eng.Create(ctx, wc.arg)
		return err
	case watchToggle:
		completed := true
		snap := eng.Snapshot()
		if i := todo.IndexOf(snap.Items, wc.arg); i >= 0 {
			completed = !snap.Items[i].Completed
		}
		return eng.Update(ctx, wc.arg, &completed)
	case watchDelete:
		return eng.Delete(ctx, wc.arg)
	case watchShowHelp:
		r.printf("%s", watchHelp)
	}
	return nil
}

// watchView is what watch prints for a snapshot.
type watchView struct {
	Items        []todo.Item `json:"items"`
	Search       string      `json:"search,omitempty"`
	Loading      bool        `json:"loading,omitempty"`
	Notification string      `json:"notification,omitempty"`
	Error        string      `json:"error,omitempty"`
	Live         bool        `json:"live"`
}

func newWatchView(s engine.Snapshot) watchView {
	v := watchView{
		Items:        s.Items,
		Search:       s.SearchText,
		Loading:      s.Loading,
		Notification: s.Notification,
		Live:         s.Live,
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

func (v watchView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %d items", len(v.Items))
	if v.Search != "" {
		fmt.Fprintf(&b, ", search %q", v.Search)
	}
	if v.Loading {
		b.WriteString(", loading")
	}
	if !v.Live {
		b.WriteString(", offline")
	}
	b.WriteString(" --")
	for _, it := range v.Items {
		b.WriteString("\n")
		b.WriteString(itemView{it}.String())
	}
	if v.Notification != "" {
		b.WriteString("\n* " + v.Notification)
	}
	if v.Error != "" {
		b.WriteString("\n! " + v.Error)
	}
	return b.String()
}

// renderer prints a view whenever it differs from the last one printed.
// render runs on the engine loop; printf runs on the REPL goroutine.
type renderer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	last   string
}

func (r *renderer) render(s engine.Snapshot) {
	view := newWatchView(s)
	text := view.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if text == r.last {
		return
	}
	r.last = text
	if r.format == "json" {
		_ = json.NewEncoder(r.w).Encode(view)
		return
	}
	fmt.Fprintln(r.w, text)
}

func (r *renderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format+"\n", args...)
}
