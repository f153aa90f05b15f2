package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/todosync/internal/todo"
)

// SampleItem describes a seed entry.
type SampleItem struct {
	Title     string
	Completed bool
}

// DefaultSamples is the list a fresh server starts with when seeding is enabled.
var DefaultSamples = []SampleItem{
	{Title: "Learn GraphQL"},
	{Title: "Build Angular App", Completed: true},
	{Title: "Deploy to Netlify"},
}

// Seed inserts samples into s when it is empty. newID supplies identifiers.
// It returns the number of items inserted.
func Seed(ctx context.Context, s Store, newID func() string, now time.Time, samples []SampleItem) (int, error) {
	existing, err := s.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, sample := range samples {
		title, err := todo.ValidateTitle(sample.Title)
		if err != nil {
			return i, fmt.Errorf("seed sample %d: %w", i, err)
		}
		item := todo.Item{
			ID:        newID(),
			Title:     title,
			Completed: sample.Completed,
			CreatedAt: now.UTC(),
		}
		if err := s.Insert(ctx, item); err != nil {
			return i, fmt.Errorf("seed sample %d: %w", i, err)
		}
	}
	return len(samples), nil
}
