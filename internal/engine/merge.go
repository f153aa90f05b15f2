package engine

import "github.com/roach88/todosync/internal/todo"

// MergeByID prepends item unless an item with the same ID is present.
// Merging the same item any number of times yields the same collection.
func MergeByID(items []todo.Item, item todo.Item) []todo.Item {
	if todo.IndexOf(items, item.ID) >= 0 {
		return items
	}
	out := make([]todo.Item, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// ReplaceByID copies the mutable fields of item onto the entry with the same
// ID, keeping its position. An absent ID leaves items unchanged.
func ReplaceByID(items []todo.Item, item todo.Item) []todo.Item {
	i := todo.IndexOf(items, item.ID)
	if i < 0 {
		return items
	}
	out := make([]todo.Item, len(items))
	copy(out, items)
	out[i].Completed = item.Completed
	return out
}

// RemoveByID drops the entry with the given ID. An absent ID leaves items
// unchanged.
func RemoveByID(items []todo.Item, id string) []todo.Item {
	i := todo.IndexOf(items, id)
	if i < 0 {
		return items
	}
	out := make([]todo.Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// Dedup keeps the first occurrence of every ID, preserving order.
func Dedup(items []todo.Item) []todo.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]todo.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
