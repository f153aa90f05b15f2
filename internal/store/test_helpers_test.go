package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/todosync/internal/todo"
)

// createTestSQL opens a fresh sqlite store in a temp directory.
func createTestSQL(t *testing.T) *SQL {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQL(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestItem creates an item with minimal required fields.
func createTestItem(id, title string, offset int) todo.Item {
	return todo.Item{
		ID:        id,
		Title:     title,
		CreatedAt: testEpoch.Add(time.Duration(offset) * time.Second),
	}
}
