package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/eventbus"
	"github.com/dokzlo13/gesturehue/internal/hue"
	"github.com/dokzlo13/gesturehue/internal/lighting"
)

const (
	poseRest   = armband.PoseRest
	poseActive = armband.Pose(1)
)

// fakeLights records ShiftHue/Toggle calls.
type fakeLights struct {
	deltas  []int
	toggles int
	outcome lighting.Outcome
	err     error
}

func (f *fakeLights) ShiftHue(ctx context.Context, delta int) (lighting.Change, error) {
	f.deltas = append(f.deltas, delta)
	if f.err != nil {
		return lighting.Change{}, f.err
	}
	return lighting.Change{Outcome: f.outcome}, nil
}

func (f *fakeLights) Toggle(ctx context.Context) (lighting.Change, error) {
	f.toggles++
	if f.err != nil {
		return lighting.Change{}, f.err
	}
	return lighting.Change{Outcome: f.outcome, On: true}, nil
}

// fakeClock is advanced manually.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func defaultParams() Params {
	return Params{
		ActivePose:      poseActive,
		UpdateInterval:  300 * time.Millisecond,
		MotionThreshold: 150,
		HueStep:         500,
		Deadzone:        50,
	}
}

// activeAt returns a controller that became active with the given anchor.
func activeAt(t *testing.T, lights Lights, clock *fakeClock, anchor float64) *Controller {
	t.Helper()
	c := NewController(lights, defaultParams(), WithClock(clock.Now))
	ctx := context.Background()
	c.HandleMotion(ctx, anchor)
	c.HandlePose(ctx, poseActive)
	require.True(t, c.Active())
	require.Equal(t, anchor, c.Anchor())
	return c
}

func TestHandleMotion_Gates(t *testing.T) {
	tests := []struct {
		name     string
		relative float64
		want     Decision
		delta    int
	}{
		{name: "zero", relative: 0, want: DecisionDeadzone},
		{name: "inside_deadzone", relative: 49.9, want: DecisionDeadzone},
		{name: "inside_deadzone_negative", relative: -30, want: DecisionDeadzone},
		{name: "at_deadzone", relative: 50, want: DecisionBelowThreshold},
		{name: "between_deadzone_and_threshold", relative: 100, want: DecisionBelowThreshold},
		{name: "at_threshold", relative: 150, want: DecisionBelowThreshold},
		{name: "at_threshold_negative", relative: -150, want: DecisionBelowThreshold},
		{name: "past_threshold", relative: 151, want: DecisionApplied, delta: 503},
		{name: "double_threshold", relative: 300, want: DecisionApplied, delta: 1000},
		{name: "double_threshold_negative", relative: -300, want: DecisionApplied, delta: -1000},
		{name: "rounds_to_nearest", relative: 160, want: DecisionApplied, delta: 533},
		{name: "large_step_unbounded", relative: 15000, want: DecisionApplied, delta: 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lights := &fakeLights{outcome: lighting.OutcomeApplied}
			clock := newClock()
			c := activeAt(t, lights, clock, 200)

			got := c.HandleMotion(context.Background(), 200+tt.relative)
			assert.Equal(t, tt.want, got)

			if tt.want == DecisionApplied {
				assert.Equal(t, []int{tt.delta}, lights.deltas)
			} else {
				assert.Empty(t, lights.deltas, "no lighting call expected")
			}
		})
	}
}

func TestHandleMotion_InactiveIgnored(t *testing.T) {
	lights := &fakeLights{outcome: lighting.OutcomeApplied}
	c := NewController(lights, defaultParams(), WithClock(newClock().Now))

	assert.Equal(t, DecisionInactive, c.HandleMotion(context.Background(), 10000))
	assert.Empty(t, lights.deltas)
}

func TestHandleMotion_RateLimited(t *testing.T) {
	lights := &fakeLights{outcome: lighting.OutcomeApplied}
	clock := newClock()
	c := activeAt(t, lights, clock, 0)
	ctx := context.Background()

	require.Equal(t, DecisionApplied, c.HandleMotion(ctx, 300))

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, DecisionRateLimited, c.HandleMotion(ctx, 300))

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, DecisionRateLimited, c.HandleMotion(ctx, 300))

	clock.Advance(150 * time.Millisecond)
	assert.Equal(t, DecisionApplied, c.HandleMotion(ctx, 300))

	assert.Equal(t, []int{1000, 1000}, lights.deltas)
}

func TestHandleMotion_FailureDoesNotConsumeRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		outcome lighting.Outcome
		err     error
	}{
		{name: "error", err: errors.New("bridge timeout")},
		{name: "not_found", outcome: lighting.OutcomeNotFound},
		{name: "unavailable", outcome: lighting.OutcomeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lights := &fakeLights{outcome: tt.outcome, err: tt.err}
			clock := newClock()
			c := activeAt(t, lights, clock, 0)
			ctx := context.Background()

			assert.Equal(t, DecisionNotApplied, c.HandleMotion(ctx, 300))

			// Immediate retry is allowed
			clock.Advance(time.Millisecond)
			lights.err = nil
			lights.outcome = lighting.OutcomeApplied
			assert.Equal(t, DecisionApplied, c.HandleMotion(ctx, 300))
			assert.Len(t, lights.deltas, 2)
		})
	}
}

func TestHandlePose_EdgeTriggered(t *testing.T) {
	lights := &fakeLights{outcome: lighting.OutcomeApplied}
	c := NewController(lights, defaultParams(), WithClock(newClock().Now))
	ctx := context.Background()

	c.HandleMotion(ctx, 10)
	c.HandlePose(ctx, poseActive)
	require.Equal(t, 10.0, c.Anchor())

	// Repeated active labels must not recapture the anchor
	c.HandleMotion(ctx, 20)
	c.HandlePose(ctx, poseActive)
	c.HandleMotion(ctx, 30)
	c.HandlePose(ctx, poseActive)

	assert.Equal(t, 10.0, c.Anchor())
	assert.Empty(t, lights.deltas)
}

func TestHandlePose_AnchorReset(t *testing.T) {
	lights := &fakeLights{outcome: lighting.OutcomeApplied}
	c := NewController(lights, defaultParams(), WithClock(newClock().Now))
	ctx := context.Background()

	c.HandleMotion(ctx, -500)
	c.HandlePose(ctx, poseActive)
	require.Equal(t, -500.0, c.Anchor())

	c.HandlePose(ctx, poseRest)
	assert.False(t, c.Active())

	// Motion while at rest is tracked but produces no call
	assert.Equal(t, DecisionInactive, c.HandleMotion(ctx, 900))
	assert.Empty(t, lights.deltas)

	c.HandlePose(ctx, poseActive)
	assert.Equal(t, 900.0, c.Anchor())

	// Relative to the new anchor, not the old one
	assert.Equal(t, DecisionDeadzone, c.HandleMotion(ctx, 920))
	assert.Empty(t, lights.deltas)
}

func TestHandlePose_OtherLabelsDeactivate(t *testing.T) {
	c := NewController(&fakeLights{}, defaultParams(), WithClock(newClock().Now))
	ctx := context.Background()

	c.HandlePose(ctx, poseActive)
	require.True(t, c.Active())

	c.HandlePose(ctx, armband.Pose(3))
	assert.False(t, c.Active())
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(e eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []eventbus.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []eventbus.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func TestController_PublishesEvents(t *testing.T) {
	lights := &fakeLights{outcome: lighting.OutcomeApplied}
	pub := &recordingPublisher{}
	clock := newClock()
	c := NewController(lights, defaultParams(), WithClock(clock.Now), WithPublisher(pub))
	ctx := context.Background()

	c.HandlePose(ctx, poseActive)
	c.HandleMotion(ctx, 300)

	clock.Advance(time.Second)
	lights.outcome = lighting.OutcomeNotFound
	c.HandleMotion(ctx, 300)

	lights.err = errors.New("boom")
	c.HandleMotion(ctx, 300)

	assert.Equal(t, []eventbus.EventType{
		eventbus.EventTypePose,
		eventbus.EventTypeHueShifted,
		eventbus.EventTypeTargetMissing,
		eventbus.EventTypeLightError,
	}, pub.types())
}

// memBridge is an in-memory bridge that applies group hue writes.
type memBridge struct {
	groups    []hue.Group
	lights    []hue.Light
	mutations int
}

func (b *memBridge) Groups(ctx context.Context) ([]hue.Group, error) { return b.groups, nil }
func (b *memBridge) Lights(ctx context.Context) ([]hue.Light, error) { return b.lights, nil }

func (b *memBridge) SetGroupAction(ctx context.Context, id string, u hue.StateUpdate) error {
	b.mutations++
	for i := range b.groups {
		if b.groups[i].ID == id && u.Hue != nil {
			b.groups[i].Action.Hue = *u.Hue
		}
	}
	return nil
}

func (b *memBridge) SetLightState(ctx context.Context, id string, u hue.StateUpdate) error {
	b.mutations++
	return nil
}

func TestController_WithLightingService(t *testing.T) {
	tests := []struct {
		name       string
		currentHue uint16
		relative   float64
		wantHue    uint16
	}{
		{name: "scenario_step", currentHue: 1000, relative: 300, wantHue: 2000},
		{name: "wraps_past_max", currentHue: 65300, relative: 300, wantHue: 764},
		{name: "wraps_below_zero", currentHue: 200, relative: -300, wantHue: 64736},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := &memBridge{groups: []hue.Group{{ID: "1", Name: "Living room", Action: hue.LightState{Hue: tt.currentHue}}}}
			svc := lighting.NewService(bridge, lighting.Target{Group: "Living room"})
			c := activeAt(t, svc, newClock(), 0)

			require.Equal(t, DecisionApplied, c.HandleMotion(context.Background(), tt.relative))
			assert.Equal(t, tt.wantHue, bridge.groups[0].Action.Hue)
		})
	}
}

func TestController_TargetNotFoundMakesNoMutation(t *testing.T) {
	bridge := &memBridge{groups: []hue.Group{{ID: "1", Name: "Kitchen"}}}
	svc := lighting.NewService(bridge, lighting.Target{Group: "living room"})
	c := activeAt(t, svc, newClock(), 0)

	assert.Equal(t, DecisionNotApplied, c.HandleMotion(context.Background(), 300))
	assert.Zero(t, bridge.mutations)
}
