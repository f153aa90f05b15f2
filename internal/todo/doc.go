// Package todo defines the shared item model for todosync.
//
// Every other internal package imports todo; todo imports nothing internal.
// It holds:
//   - Item, the unit of the shared list, and its JSON transfer shape
//   - Patch, the set of mutable fields an update may change
//   - The error taxonomy (ValidationError, NotFoundError, TransportError)
//   - Title normalization and case-folded matching shared by every store
//
// Identity is Item.ID. It is assigned once on create and never changes.
// Completed is the only field an update may touch.
package todo
