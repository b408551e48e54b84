package armband

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event types on the feed
const (
	EventTypePose = "pose"
	EventTypeIMU  = "imu"
)

// Event is one decoded feed message.
type Event struct {
	Type   string
	Pose   Pose
	Motion Motion
}

// wireEvent is the JSON shape of a feed line:
//
//	{"type":"pose","pose":1}
//	{"type":"imu","quat":[w,x,y,z],"acc":[x,y,z],"gyro":[x,y,z]}
type wireEvent struct {
	Type string    `json:"type"`
	Pose *int      `json:"pose,omitempty"`
	Quat []float64 `json:"quat,omitempty"`
	Acc  []float64 `json:"acc,omitempty"`
	Gyro []float64 `json:"gyro,omitempty"`
}

// Decode parses a single feed message.
func Decode(data []byte) (Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Event{}, fmt.Errorf("empty message")
	}

	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}

	switch w.Type {
	case EventTypePose:
		if w.Pose == nil {
			return Event{}, fmt.Errorf("pose event without pose label")
		}
		return Event{Type: EventTypePose, Pose: Pose(*w.Pose)}, nil

	case EventTypeIMU:
		var m Motion
		if err := fill(m.Quat[:], w.Quat, "quat"); err != nil {
			return Event{}, err
		}
		if err := fill(m.Accel[:], w.Acc, "acc"); err != nil {
			return Event{}, err
		}
		if err := fill(m.Gyro[:], w.Gyro, "gyro"); err != nil {
			return Event{}, err
		}
		return Event{Type: EventTypeIMU, Motion: m}, nil
	}

	return Event{}, fmt.Errorf("unknown event type %q", w.Type)
}

// fill copies src into dst. A missing field leaves dst zeroed; a wrong length is an error.
func fill(dst, src []float64, field string) error {
	if src == nil {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("%s: expected %d values, got %d", field, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}
