package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todosync/internal/bus"
	"github.com/roach88/todosync/internal/store"
	"github.com/roach88/todosync/internal/todo"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *bus.Bus, *Metrics) {
	t.Helper()
	b := bus.New()
	m := NewMetrics(prometheus.NewRegistry())
	svc := New(store.NewMemory(), b,
		WithIDGenerator(NewSequenceGenerator("")),
		WithNow(func() time.Time { return fixedNow }),
		WithMetrics(m),
	)
	return svc, b, m
}

func boolPtr(v bool) *bool { return &v }

func TestService_CreatePublishesBeforeReturning(t *testing.T) {
	svc, b, _ := newTestService(t)
	sub := b.Subscribe()
	defer sub.Close()

	item, err := svc.Create(context.Background(), "  Buy milk ")
	require.NoError(t, err)
	assert.Equal(t, "1", item.ID)
	assert.Equal(t, "Buy milk", item.Title)
	assert.False(t, item.Completed)
	assert.Equal(t, fixedNow, item.CreatedAt)

	// Event is already queued when Create returns
	require.Equal(t, 1, sub.Len())
	ev, ok := sub.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, todo.EventAdded, ev.Type)
	assert.Equal(t, item, ev.Item)
}

func TestService_CreateEmptyTitle(t *testing.T) {
	svc, b, m := newTestService(t)
	sub := b.Subscribe()
	defer sub.Close()

	for _, title := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), title)
		require.Error(t, err)
		assert.True(t, todo.IsValidation(err))
	}

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, sub.Len(), "failed create must not publish")
	assert.Equal(t, 2.0, promtest.ToFloat64(m.operations.WithLabelValues("create", "invalid")))
}

func TestService_ListAndSearch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, title := range []string{"Learn GraphQL", "Build Angular App", "Deploy"} {
		_, err := svc.Create(ctx, title)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Learn GraphQL", all[0].Title, "oldest first")

	found, err := svc.Search(ctx, "angular")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Build Angular App", found[0].Title)
}

func TestService_Get(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "Task")
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.Get(ctx, "missing")
	assert.True(t, todo.IsNotFound(err))
}

func TestService_Update(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "Task")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, boolPtr(true))
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	unchanged, err := svc.Update(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.True(t, unchanged.Completed, "omitted completed is a no-op")
}

func TestService_UpdateMissing(t *testing.T) {
	svc, _, m := newTestService(t)

	_, err := svc.Update(context.Background(), "missing-id", boolPtr(true))
	require.Error(t, err)
	assert.True(t, todo.IsNotFound(err))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.operations.WithLabelValues("update", "not_found")))
}

func TestService_Delete(t *testing.T) {
	svc, b, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "Task")
	require.NoError(t, err)

	sub := b.Subscribe()
	defer sub.Close()

	id, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)
	assert.Equal(t, 0, sub.Len(), "delete does not publish")

	_, err = svc.Delete(ctx, created.ID)
	assert.True(t, todo.IsNotFound(err))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_DefaultIDsAreUUIDs(t *testing.T) {
	svc := New(store.NewMemory(), bus.New())
	item, err := svc.Create(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, item.ID, 36)
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("item")
	assert.Equal(t, "item-1", g.Generate())
	assert.Equal(t, "item-2", g.Generate())

	plain := NewSequenceGenerator("")
	assert.Equal(t, "1", plain.Generate())
}
