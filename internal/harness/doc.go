// Package harness runs scripted multi-client scenarios against real
// synchronization engines.
//
// A scenario starts a fresh in-memory server (store, bus, service and
// gateway), attaches one Engine per named client through the in-process
// API, and executes steps in order. All engines share one fake clock, so
// debounce and notification timers only fire on explicit advance steps.
//
// After every step the harness settles: it waits until each engine has
// applied all queued events, has no refresh outstanding, and has received
// every item published so far. The state of every client is then appended
// to the trace, which tests compare against golden files.
//
// Scenario format (YAML, unknown keys rejected):
//
//	name: buy-milk
//	description: create and push converge on one entry
//	clients: [alice, bob]
//	seed:
//	  - title: Learn GraphQL
//	    completed: true
//	steps:
//	  - create: Buy milk          # client defaults to the first one
//	  - client: bob
//	    type: milk                # search input, debounced
//	  - advance: 300ms            # moves the shared clock
//	  - clear_search: true
//	  - update: {id: "1", completed: true}
//	  - delete: "1"
//	  - publish: Task A           # create by a client without an engine
//	  - offline: true             # queries and mutations start failing
//	  - create: ""
//	    error: validation         # expected outcome of the step
//	  - expect:
//	      items: [Buy milk]       # titles, in presented order
//	      search: milk
//	      notification: 'Todo "Task A" was added.'
//	      error: none
package harness
