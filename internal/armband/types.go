// Package armband receives pose and motion events from a gesture armband feed.
//
// The armband itself (EMG classification, BLE link) lives outside this process.
// Drivers read its already-classified output and dispatch it to registered
// handlers from Poll, on the caller's goroutine.
package armband

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Poll before Connect or after Disconnect.
	ErrNotConnected = errors.New("armband not connected")
	// ErrFeedClosed is returned by Poll once the event feed has ended normally.
	// A feed that fails returns the read error instead.
	ErrFeedClosed = errors.New("armband feed closed")
)

// Pose is a classifier label for the wearer's current hand gesture.
type Pose int

// PoseRest is the label of a relaxed hand.
const PoseRest Pose = 0

// Motion is one inertial sample.
type Motion struct {
	Quat  [4]float64 // orientation quaternion w, x, y, z
	Accel [3]float64
	Gyro  [3]float64
}

// AxisFunc extracts one scalar from a motion sample.
type AxisFunc func(Motion) float64

// Axis returns the extractor for a named axis such as "accel_y".
func Axis(name string) (AxisFunc, error) {
	switch name {
	case "accel_x":
		return func(m Motion) float64 { return m.Accel[0] }, nil
	case "accel_y":
		return func(m Motion) float64 { return m.Accel[1] }, nil
	case "accel_z":
		return func(m Motion) float64 { return m.Accel[2] }, nil
	case "gyro_x":
		return func(m Motion) float64 { return m.Gyro[0] }, nil
	case "gyro_y":
		return func(m Motion) float64 { return m.Gyro[1] }, nil
	case "gyro_z":
		return func(m Motion) float64 { return m.Gyro[2] }, nil
	case "quat_w":
		return func(m Motion) float64 { return m.Quat[0] }, nil
	case "quat_x":
		return func(m Motion) float64 { return m.Quat[1] }, nil
	case "quat_y":
		return func(m Motion) float64 { return m.Quat[2] }, nil
	case "quat_z":
		return func(m Motion) float64 { return m.Quat[3] }, nil
	}
	return nil, fmt.Errorf("unknown motion axis %q", name)
}

// PoseSource delivers pose labels to registered handlers.
type PoseSource interface {
	OnPose(handler func(Pose))
}

// MotionSource delivers motion samples to registered handlers.
type MotionSource interface {
	OnMotion(handler func(Motion))
}

// Driver is an armband connection. Handlers run inside Poll.
type Driver interface {
	PoseSource
	MotionSource

	// Connect opens the feed. It does not retry.
	Connect(ctx context.Context) error
	// Disconnect releases the feed. Safe to call more than once.
	Disconnect() error
	// Poll waits briefly for new events and dispatches everything pending.
	Poll(ctx context.Context) error
}
