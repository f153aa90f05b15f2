package harness

import "github.com/roach88/todosync/internal/todo"

// TraceEvent records one executed step and the settled state after it.
type TraceEvent struct {
	Step int

	// Client is empty for steps that are not client-scoped.
	Client string

	// Action is a one-line rendering such as `create "Buy milk"`.
	Action string

	// Outcome is OutcomeOK or the kind of error the action returned.
	Outcome string

	States []ClientState
}

// ClientState is the settled state of one client.
type ClientState struct {
	Name         string
	Items        []todo.Item
	Search       string
	Pending      string
	Notification string
	Err          string
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step outcome and expect clause matched.
	Pass bool

	Trace []TraceEvent

	// Errors describes each mismatch. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
