// Package eventbus fans controller events out to background consumers
// (history recording) without blocking the control loop.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType names what happened to the lights or the gesture state.
type EventType string

const (
	EventTypePose          EventType = "pose"
	EventTypeHueShifted    EventType = "hue_shifted"
	EventTypeToggled       EventType = "toggled"
	EventTypeTargetMissing EventType = "target_missing"
	EventTypeLightError    EventType = "light_error"
)

const (
	DefaultWorkerCount = 1
	DefaultQueueSize   = 100
)

// Event is published by the controllers. Data is JSON-friendly.
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler consumes events on a bus worker.
type Handler func(Event)

type delivery struct {
	event   Event
	handler Handler
}

// Bus delivers each event to its subscribers on a fixed set of workers.
// Publish never blocks: when the queue is full the delivery is dropped.
// With one worker, deliveries run in publish order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]Handler
	queue  chan delivery
	closed bool

	workers sync.WaitGroup
	once    sync.Once
}

// New creates a bus with DefaultWorkerCount workers and DefaultQueueSize slots.
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a bus and starts its workers.
func NewWithConfig(workerCount, queueSize int) *Bus {
	b := &Bus{
		subs:  make(map[EventType][]Handler),
		queue: make(chan delivery, queueSize),
	}

	b.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go b.work(i)
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus started")
	return b
}

func (b *Bus) work(id int) {
	defer b.workers.Done()
	for d := range b.queue {
		b.deliver(id, d)
	}
}

func (b *Bus) deliver(worker int, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event_type", string(d.event.Type)).
				Int("worker", worker).
				Msg("Event handler panicked")
		}
	}()
	d.handler(d.event)
}

// Subscribe adds a handler for eventType.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], handler)
}

// Publish queues event for every subscriber of its type. Events published
// after Close are dropped.
func (b *Bus) Publish(event Event) {
	// The read lock keeps Close from closing the queue under a send
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		log.Debug().Str("event_type", string(event.Type)).Msg("Event bus closed, dropping event")
		return
	}

	for _, handler := range b.subs[event.Type] {
		select {
		case b.queue <- delivery{event: event, handler: handler}:
		default:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event bus queue full, dropping event")
		}
	}
}

// Close stops accepting events and waits for queued deliveries until ctx ends.
// Safe to call more than once.
func (b *Bus) Close(ctx context.Context) {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
	})

	drained := make(chan struct{})
	go func() {
		b.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		log.Debug().Msg("Event bus drained")
	case <-ctx.Done():
		log.Warn().Msg("Event bus close timed out, queued events may be lost")
	}
}
