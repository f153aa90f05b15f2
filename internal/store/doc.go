// Package store holds the authoritative collection of todo items.
//
// Two implementations satisfy Store:
//   - Memory: a mutex-guarded slice, process lifetime only (the default)
//   - SQL: database/sql backed, sqlite (mattn/go-sqlite3) or postgres (pgx)
//
// # Ordering
//
// ListAll and Search return items in insertion order, oldest first.
// Callers that need newest first reverse explicitly. SQL keeps insertion
// order through an autoincrement seq column, never through created_at.
//
// # Search
//
// Search is a case-insensitive substring match on the title only. Both
// implementations filter through todo.Filter so the folding rules agree
// across backends.
//
// # Database Configuration (sqlite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
