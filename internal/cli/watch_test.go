package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todosync/internal/engine"
	"github.com/roach88/todosync/internal/todo"
)

func TestParseWatchCommand(t *testing.T) {
	tests := []struct {
		line string
		want watchCommand
	}{
		{"", watchCommand{kind: watchNone}},
		{"   ", watchCommand{kind: watchNone}},
		{"q", watchCommand{kind: watchQuit}},
		{"quit", watchCommand{kind: watchQuit}},
		{"?", watchCommand{kind: watchShowHelp}},
		{"/", watchCommand{kind: watchClear}},
		{"/milk", watchCommand{kind: watchSearch, arg: "milk"}},
		{" /buy milk ", watchCommand{kind: watchSearch, arg: "buy milk"}},
		{"+ Buy milk", watchCommand{kind: watchAdd, arg: "Buy milk"}},
		{"+Buy milk", watchCommand{kind: watchAdd, arg: "Buy milk"}},
		{"+", watchCommand{kind: watchAdd, arg: ""}},
		{"x 3", watchCommand{kind: watchToggle, arg: "3"}},
		{"- 3", watchCommand{kind: watchDelete, arg: "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseWatchCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWatchCommand_Unknown(t *testing.T) {
	for _, line := range []string{"hello", "x", "-", "x3"} {
		_, err := parseWatchCommand(line)
		assert.Error(t, err, line)
	}
}

func TestWatchView_String(t *testing.T) {
	view := newWatchView(engine.Snapshot{
		Items: []todo.Item{
			{ID: "2", Title: "Build Angular App", Completed: true},
		},
		SearchText:   "ang",
		Notification: `Todo "Angular signals" was added.`,
		Err:          errors.New("search: connection refused"),
		Live:         true,
	})

	assert.Equal(t, `-- 1 items, search "ang" --
[x] 2  Build Angular App
* Todo "Angular signals" was added.
! search: connection refused`, view.String())

	assert.Equal(t, "-- 0 items, loading, offline --", newWatchView(engine.Snapshot{Loading: true}).String())
}

func TestRenderer_SkipsUnchangedViews(t *testing.T) {
	buf := &bytes.Buffer{}
	r := &renderer{w: buf, format: "text"}

	snap := engine.Snapshot{Items: []todo.Item{{ID: "1", Title: "Buy milk"}}, Live: true}
	r.render(snap)
	snap.PushReceived = 4 // not part of the view
	r.render(snap)

	assert.Equal(t, 1, strings.Count(buf.String(), "Buy milk"))
}

func TestWatch_AddToggleQuit(t *testing.T) {
	url, svc := startServer(t)

	out, err := execute(t, "+ Buy milk\nx 1\nq\n", "--server", url, "watch")
	require.NoError(t, err)
	assert.Contains(t, out, "1  Buy milk")

	item, err := svc.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, item.Completed)
}

func TestWatch_DeleteAndEOF(t *testing.T) {
	url, svc := startServer(t)
	_, err := svc.Create(context.Background(), "Walk the dog")
	require.NoError(t, err)

	_, err = execute(t, "- 1\n", "--server", url, "watch")
	require.NoError(t, err)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWatch_ReportsBadInput(t *testing.T) {
	url, _ := startServer(t)

	out, err := execute(t, "bogus\n+\nq\n", "--server", url, "watch")
	require.NoError(t, err)
	assert.Contains(t, out, `? unknown command "bogus"`)
	assert.Contains(t, out, "! invalid title: must not be empty")
}

func TestWatch_JSONFormat(t *testing.T) {
	url, _ := startServer(t)

	out, err := execute(t, "+ Buy milk\nq\n", "--server", url, "--format", "json", "watch")
	require.NoError(t, err)
	assert.Contains(t, out, `"title":"Buy milk"`)
}
