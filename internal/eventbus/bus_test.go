package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func closeBus(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b.Close(ctx)
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var got []int
	b.Subscribe(EventTypeHueShifted, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data["n"].(int))
	})

	for i := 0; i < 20; i++ {
		b.Publish(Event{Type: EventTypeHueShifted, Data: map[string]any{"n": i}})
	}
	closeBus(t, b)

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestBus_RoutesByType(t *testing.T) {
	b := New()

	var mu sync.Mutex
	counts := map[EventType]int{}
	handler := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		counts[e.Type]++
	}
	b.Subscribe(EventTypeToggled, handler)
	b.Subscribe(EventTypeToggled, handler)
	b.Subscribe(EventTypeLightError, handler)

	b.Publish(Event{Type: EventTypeToggled})
	b.Publish(Event{Type: EventTypeLightError})
	b.Publish(Event{Type: EventTypePose}) // no subscribers
	closeBus(t, b)

	assert.Equal(t, map[EventType]int{EventTypeToggled: 2, EventTypeLightError: 1}, counts)
}

func TestBus_FullQueueDrops(t *testing.T) {
	b := NewWithConfig(1, 1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	var handled int
	b.Subscribe(EventTypeHueShifted, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		handled++
		mu.Unlock()
	})

	b.Publish(Event{Type: EventTypeHueShifted})
	<-started // worker is busy with the first event

	b.Publish(Event{Type: EventTypeHueShifted}) // queued
	b.Publish(Event{Type: EventTypeHueShifted}) // dropped

	close(release)
	closeBus(t, b)

	assert.Equal(t, 2, handled)
}

func TestBus_HandlerPanicRecovered(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var calls int
	b.Subscribe(EventTypeLightError, func(Event) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			panic("handler failure")
		}
	})

	b.Publish(Event{Type: EventTypeLightError})
	b.Publish(Event{Type: EventTypeLightError})
	closeBus(t, b)

	assert.Equal(t, 2, calls)
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New()
	var calls int
	b.Subscribe(EventTypeToggled, func(Event) { calls++ })
	closeBus(t, b)
	closeBus(t, b)

	require.NotPanics(t, func() { b.Publish(Event{Type: EventTypeToggled}) })
	assert.Zero(t, calls)
}
