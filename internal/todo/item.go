package todo

import (
	"encoding/json"
	"fmt"
	"time"
)

// Item is a single entry of the shared list.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Patch lists the mutable fields of an update. A nil field is left untouched.
type Patch struct {
	Completed *bool `json:"completed,omitempty"`
}

// Apply returns a copy of item with the patch applied.
func (p Patch) Apply(item Item) Item {
	if p.Completed != nil {
		item.Completed = *p.Completed
	}
	return item
}

// EventType names the kind of change carried by an Event.
type EventType string

// EventAdded is published once per successful create.
const EventAdded EventType = "added"

// Event is the payload fanned out to subscribers.
type Event struct {
	Type EventType `json:"type"`
	Item Item      `json:"item"`
}

// itemWire pins createdAt to RFC 3339 UTC so all three surfaces agree.
type itemWire struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"`
}

// MarshalJSON encodes the transfer shape.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemWire{
		ID:        i.ID,
		Title:     i.Title,
		Completed: i.Completed,
		CreatedAt: i.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON decodes the transfer shape.
func (i *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var createdAt time.Time
	if w.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
		if err != nil {
			return fmt.Errorf("parse createdAt: %w", err)
		}
		createdAt = t
	}
	*i = Item{ID: w.ID, Title: w.Title, Completed: w.Completed, CreatedAt: createdAt}
	return nil
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
