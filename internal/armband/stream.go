package armband

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Default stream settings
const (
	DefaultQueueSize   = 256
	DefaultPollTimeout = 100 * time.Millisecond
)

// Feed yields raw feed messages, one event per call.
type Feed interface {
	Next() ([]byte, error)
	Close() error
}

// Dialer opens a feed.
type Dialer interface {
	Dial(ctx context.Context) (Feed, error)
	String() string
}

// StreamOptions tunes a StreamDriver.
type StreamOptions struct {
	QueueSize   int           // buffered events between reader and Poll
	PollTimeout time.Duration // max wait for the first event of a Poll
}

// StreamDriver reads events from a Feed on a background goroutine and
// dispatches them from Poll. Handlers never run on the reader goroutine.
type StreamDriver struct {
	dialer Dialer
	opts   StreamOptions

	poseHandlers   []func(Pose)
	motionHandlers []func(Motion)

	mu      sync.Mutex
	feed    Feed
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	readErr error // set by the reader before it closes events
}

// NewStreamDriver creates a driver that reads from dialer.
func NewStreamDriver(dialer Dialer, opts StreamOptions) *StreamDriver {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	return &StreamDriver{
		dialer: dialer,
		opts:   opts,
	}
}

// OnPose registers a pose handler. Register before Connect.
func (d *StreamDriver) OnPose(handler func(Pose)) {
	d.poseHandlers = append(d.poseHandlers, handler)
}

// OnMotion registers a motion handler. Register before Connect.
func (d *StreamDriver) OnMotion(handler func(Motion)) {
	d.motionHandlers = append(d.motionHandlers, handler)
}

// Connect opens the feed and starts the reader.
func (d *StreamDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.feed != nil {
		return nil
	}

	feed, err := d.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to armband via %s: %w", d.dialer, err)
	}

	d.feed = feed
	d.events = make(chan Event, d.opts.QueueSize)
	d.done = make(chan struct{})
	d.readErr = nil

	d.wg.Add(1)
	go d.read(feed, d.events, d.done)

	log.Info().Str("feed", d.dialer.String()).Msg("Armband connected")
	return nil
}

// read decodes feed messages until the feed fails or done is closed.
func (d *StreamDriver) read(feed Feed, events chan<- Event, done <-chan struct{}) {
	defer d.wg.Done()
	defer close(events)

	for {
		raw, err := feed.Next()
		if err != nil {
			select {
			case <-done:
				// Disconnect closed the feed under us
			default:
				d.readErr = err
			}
			return
		}

		ev, err := Decode(raw)
		if err != nil {
			log.Debug().Err(err).Msg("Skipping malformed armband event")
			continue
		}

		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// Poll waits up to the poll timeout for an event, then dispatches every
// pending event to the registered handlers.
func (d *StreamDriver) Poll(ctx context.Context) error {
	d.mu.Lock()
	events := d.events
	d.mu.Unlock()

	if events == nil {
		return ErrNotConnected
	}

	timer := time.NewTimer(d.opts.PollTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case ev, ok := <-events:
		if !ok {
			return d.closedErr()
		}
		d.dispatch(ev)
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return d.closedErr()
			}
			d.dispatch(ev)
		default:
			return nil
		}
	}
}

// closedErr maps the reader's exit to the Poll result: end of stream is
// ErrFeedClosed, anything else is the read failure.
func (d *StreamDriver) closedErr() error {
	if d.readErr == nil || errors.Is(d.readErr, io.EOF) {
		return ErrFeedClosed
	}
	return fmt.Errorf("armband feed failed: %w", d.readErr)
}

func (d *StreamDriver) dispatch(ev Event) {
	switch ev.Type {
	case EventTypePose:
		for _, h := range d.poseHandlers {
			h(ev.Pose)
		}
	case EventTypeIMU:
		for _, h := range d.motionHandlers {
			h(ev.Motion)
		}
	}
}

// Disconnect closes the feed and waits for the reader to exit.
func (d *StreamDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.feed == nil {
		return nil
	}

	close(d.done)
	err := d.feed.Close()
	d.wg.Wait()

	d.feed = nil
	d.events = nil
	d.done = nil

	log.Info().Str("feed", d.dialer.String()).Msg("Armband disconnected")
	if err != nil {
		return fmt.Errorf("failed to close armband feed: %w", err)
	}
	return nil
}
