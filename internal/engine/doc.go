// Package engine implements the client synchronization engine.
//
// An Engine keeps one client's presented collection consistent with the
// shared list while three channels feed it: refresh query results, the
// client's own mutation responses, and "added" events pushed by the server.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All state transitions happen on the goroutine running Engine.Run. Public
// methods, timer callbacks, refresh goroutines and the push listener only
// enqueue events; the loop applies them one at a time in FIFO order.
//
// Event Processing Flow:
//  1. Inputs enqueued to the FIFO queue (search input, refresh results,
//     mutation results, pushed items, timer firings)
//  2. Run() dequeues events one at a time
//  3. apply() routes to the handler for the event type
//  4. Handlers update state under mu so Snapshot readers see a consistent copy
//
// CRITICAL PATTERNS:
//
// Generation Counter (switch-to-latest):
// Every refresh takes the next generation. A refresh result whose generation
// is not current is discarded, so the last triggered refresh always wins
// regardless of arrival order.
//
// Merge-by-ID:
// Items arriving from a mutation response or a push are prepended only if
// their ID is absent. The two channels may deliver the same created item in
// either order; the outcome is the same.
//
// Sequenced Timers:
// Debounce and notification timers carry the sequence number current when
// they were armed. A firing whose sequence is stale is ignored, so a timer
// that raced its own Stop has no effect.
package engine
