package engine

import "github.com/roach88/todosync/internal/todo"

// event is anything the Run loop applies. The set is closed: apply switches
// over the concrete types below.
type event interface {
	isEvent()
}

// searchInput is a raw keystroke-level value awaiting debounce.
type searchInput struct{ text string }

// searchSettled fires when the debounce window for seq elapsed.
type searchSettled struct {
	seq  uint64
	text string
}

// clearSearch resets the filter immediately and forces a refresh.
type clearSearch struct{}

// refreshDone carries a query result tagged with its generation.
type refreshDone struct {
	gen   int64
	items []todo.Item
	err   error
}

type created struct{ item todo.Item }

type updated struct{ item todo.Item }

type deleted struct{ id string }

// mutationFailed surfaces a failed mutation without touching the collection.
type mutationFailed struct{ err error }

type pushConnected struct{}

type pushed struct{ item todo.Item }

type pushFailed struct{ err error }

// notificationExpired fires when the notification armed with seq times out.
type notificationExpired struct{ seq uint64 }

// barrier receives nil once every event queued before it has been applied,
// or ErrStopped if the loop exits first. done is buffered.
type barrier struct{ done chan error }

func (searchInput) isEvent()         {}
func (searchSettled) isEvent()       {}
func (clearSearch) isEvent()         {}
func (refreshDone) isEvent()         {}
func (created) isEvent()             {}
func (updated) isEvent()             {}
func (deleted) isEvent()             {}
func (mutationFailed) isEvent()      {}
func (pushConnected) isEvent()       {}
func (pushed) isEvent()              {}
func (pushFailed) isEvent()          {}
func (notificationExpired) isEvent() {}
func (barrier) isEvent()             {}
