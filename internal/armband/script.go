package armband

import "context"

// Script is an in-memory Driver that replays a fixed event sequence,
// one event per Poll. Once exhausted, Poll returns ErrFeedClosed or EndErr.
type Script struct {
	Events []Event

	// ConnectErr, if set, is returned by Connect.
	ConnectErr error
	// EndErr, if set, replaces ErrFeedClosed once the events run out.
	EndErr error

	poseHandlers   []func(Pose)
	motionHandlers []func(Motion)

	connected    bool
	next         int
	Disconnected int // number of Disconnect calls
}

// NewScript creates a scripted driver.
func NewScript(events ...Event) *Script {
	return &Script{Events: events}
}

// PoseEvent builds a pose event.
func PoseEvent(p Pose) Event {
	return Event{Type: EventTypePose, Pose: p}
}

// AccelEvent builds a motion event with only the accelerometer set.
func AccelEvent(x, y, z float64) Event {
	return Event{Type: EventTypeIMU, Motion: Motion{Accel: [3]float64{x, y, z}}}
}

func (s *Script) OnPose(handler func(Pose)) {
	s.poseHandlers = append(s.poseHandlers, handler)
}

func (s *Script) OnMotion(handler func(Motion)) {
	s.motionHandlers = append(s.motionHandlers, handler)
}

func (s *Script) Connect(ctx context.Context) error {
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.connected = true
	return nil
}

func (s *Script) Disconnect() error {
	s.connected = false
	s.Disconnected++
	return nil
}

func (s *Script) Poll(ctx context.Context) error {
	if !s.connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.next >= len(s.Events) {
		if s.EndErr != nil {
			return s.EndErr
		}
		return ErrFeedClosed
	}

	ev := s.Events[s.next]
	s.next++

	switch ev.Type {
	case EventTypePose:
		for _, h := range s.poseHandlers {
			h(ev.Pose)
		}
	case EventTypeIMU:
		for _, h := range s.motionHandlers {
			h(ev.Motion)
		}
	}
	return nil
}
