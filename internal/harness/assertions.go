package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/todosync/internal/engine"
)

// checkExpect returns one message per mismatch between snap and e.
func checkExpect(snap engine.Snapshot, e *Expect) []string {
	var msgs []string

	if e.Items != nil {
		titles := make([]string, 0, len(snap.Items))
		for _, it := range snap.Items {
			titles = append(titles, it.Title)
		}
		if !slices.Equal(titles, e.Items) {
			msgs = append(msgs, fmt.Sprintf("items: expected %q, got %q", e.Items, titles))
		}
	}

	if e.IDs != nil {
		ids := make([]string, 0, len(snap.Items))
		for _, it := range snap.Items {
			ids = append(ids, it.ID)
		}
		if !slices.Equal(ids, e.IDs) {
			msgs = append(msgs, fmt.Sprintf("ids: expected %q, got %q", e.IDs, ids))
		}
	}

	if e.Completed != nil {
		done := []string{}
		for _, it := range snap.Items {
			if it.Completed {
				done = append(done, it.ID)
			}
		}
		if !slices.Equal(done, e.Completed) {
			msgs = append(msgs, fmt.Sprintf("completed: expected %q, got %q", e.Completed, done))
		}
	}

	if e.Search != nil && *e.Search != snap.SearchText {
		msgs = append(msgs, fmt.Sprintf("search: expected %q, got %q", *e.Search, snap.SearchText))
	}

	if e.Notification != nil && *e.Notification != snap.Notification {
		msgs = append(msgs, fmt.Sprintf("notification: expected %q, got %q", *e.Notification, snap.Notification))
	}

	if e.Error != nil {
		if got := errorKind(snap.Err); got != *e.Error {
			msgs = append(msgs, fmt.Sprintf("error: expected %s, got %s (%v)", *e.Error, got, snap.Err))
		}
	}

	return msgs
}
