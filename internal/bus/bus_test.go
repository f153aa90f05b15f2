package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todosync/internal/todo"
)

func added(id string) todo.Event {
	return todo.Event{Type: todo.EventAdded, Item: todo.Item{ID: id, Title: "item " + id}}
}

func TestBus_PublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	assert.Equal(t, 2, b.Publish(added("1")))

	ctx := context.Background()
	for _, s := range []*Subscription{s1, s2} {
		ev, ok := s.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, "1", ev.Item.ID)
		assert.Equal(t, todo.EventAdded, ev.Type)
	}
}

func TestBus_LateSubscriberMissesEarlierEvents(t *testing.T) {
	b := New()
	assert.Equal(t, 0, b.Publish(added("early")))

	s := b.Subscribe()
	defer s.Close()
	b.Publish(added("late"))

	ev, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "late", ev.Item.ID)
	assert.Equal(t, 0, s.Len())
}

func TestBus_PreservesOrderPerSubscriber(t *testing.T) {
	b := New()
	s := b.Subscribe()
	defer s.Close()

	for _, id := range []string{"a", "b", "c", "d"} {
		b.Publish(added(id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	for ev := range s.Events(ctx) {
		got = append(got, ev.Item.ID)
		if len(got) == 4 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestSubscription_CloseDetaches(t *testing.T) {
	b := New()
	s := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())

	b.Publish(added("pending"))
	s.Close()
	s.Close() // idempotent

	assert.Equal(t, 0, b.Subscribers())
	assert.Equal(t, 0, b.Publish(added("after")))

	_, ok := s.Next(context.Background())
	assert.False(t, ok, "closed subscription must not deliver")
}

func TestSubscription_NextUnblocksOnClose(t *testing.T) {
	b := New()
	s := b.Subscribe()

	done := make(chan bool)
	go func() {
		_, ok := s.Next(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestSubscription_NextRespectsContext(t *testing.T) {
	b := New()
	s := b.Subscribe()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := s.Next(ctx)
	assert.False(t, ok)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := New()
	s := b.Subscribe()
	defer s.Close()

	const publishers, perPublisher = 8, 50
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				b.Publish(added("x"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, publishers*perPublisher, s.Len())
}
