// Package control turns armband poses and motion into light changes.
package control

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/eventbus"
	"github.com/dokzlo13/gesturehue/internal/lighting"
)

// Lights is the lighting surface the controllers drive.
type Lights interface {
	ShiftHue(ctx context.Context, delta int) (lighting.Change, error)
	Toggle(ctx context.Context) (lighting.Change, error)
}

// Publisher receives controller events. *eventbus.Bus implements it.
type Publisher interface {
	Publish(event eventbus.Event)
}

// Decision is what the controller did with one motion sample.
type Decision int

const (
	DecisionInactive Decision = iota
	DecisionRateLimited
	DecisionDeadzone
	DecisionBelowThreshold
	DecisionApplied
	DecisionNotApplied // bridge unavailable, target missing or call failed
)

func (d Decision) String() string {
	switch d {
	case DecisionInactive:
		return "inactive"
	case DecisionRateLimited:
		return "rate_limited"
	case DecisionDeadzone:
		return "deadzone"
	case DecisionBelowThreshold:
		return "below_threshold"
	case DecisionApplied:
		return "applied"
	case DecisionNotApplied:
		return "not_applied"
	}
	return "unknown"
}

// Params configures the motion-to-hue mapping.
type Params struct {
	ActivePose      armband.Pose
	UpdateInterval  time.Duration
	MotionThreshold float64
	HueStep         float64
	Deadzone        float64
}

// Option configures a controller.
type Option func(*options)

type options struct {
	now       func() time.Time
	publisher Publisher
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPublisher publishes controller events to p.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Controller shifts the target's hue while the active pose is held, in
// proportion to how far the control axis has moved since the pose began.
//
// Not safe for concurrent use; HandlePose and HandleMotion must be called from
// the same goroutine (the armband Poll loop).
type Controller struct {
	lights  Lights
	params  Params
	limiter *RateLimiter
	opts    options

	active bool
	anchor float64 // axis value when the active pose began
	latest float64 // most recent axis value
}

// NewController creates a hue controller.
func NewController(lights Lights, params Params, opts ...Option) *Controller {
	return &Controller{
		lights:  lights,
		params:  params,
		limiter: NewRateLimiter(params.UpdateInterval),
		opts:    buildOptions(opts),
	}
}

// Active reports whether the active pose is currently held.
func (c *Controller) Active() bool {
	return c.active
}

// Anchor returns the axis value captured when the active pose began.
func (c *Controller) Anchor() float64 {
	return c.anchor
}

// HandlePose processes a pose label. Only changes into or out of the
// active pose have an effect.
func (c *Controller) HandlePose(ctx context.Context, pose armband.Pose) {
	active := pose == c.params.ActivePose
	if active == c.active {
		return
	}
	c.active = active

	if active {
		c.anchor = c.latest
		log.Info().Float64("anchor", c.anchor).Msg("Gesture active, hue control enabled")
	} else {
		log.Info().Msg("Gesture inactive, hue control disabled")
	}
	publish(c.opts.publisher, eventbus.EventTypePose, map[string]any{
		"pose":   int(pose),
		"active": active,
		"anchor": c.anchor,
	})
}

// HandleMotion records the latest axis value and, while active, applies a
// hue step when the relative motion warrants one.
func (c *Controller) HandleMotion(ctx context.Context, value float64) Decision {
	c.latest = value
	if !c.active {
		return DecisionInactive
	}

	relative := c.latest - c.anchor

	now := c.opts.now()
	if !c.limiter.Ready(now) {
		return DecisionRateLimited
	}

	if math.Abs(relative) < c.params.Deadzone {
		return DecisionDeadzone
	}
	if math.Abs(relative) <= c.params.MotionThreshold {
		return DecisionBelowThreshold
	}

	// Not bounded by HueStep: far motion gives a proportionally large step
	delta := int(math.Round(relative / c.params.MotionThreshold * c.params.HueStep))

	change, err := c.lights.ShiftHue(ctx, delta)
	if err != nil {
		log.Warn().Err(err).Int("delta", delta).Msg("Failed to adjust hue")
		publish(c.opts.publisher, eventbus.EventTypeLightError, map[string]any{
			"operation": "shift_hue",
			"delta":     delta,
			"error":     err.Error(),
		})
		return DecisionNotApplied
	}

	switch change.Outcome {
	case lighting.OutcomeApplied:
		c.limiter.Mark(now)
		log.Debug().
			Float64("relative", relative).
			Float64("anchor", c.anchor).
			Int("delta", delta).
			Msg("Applied hue step")
		publish(c.opts.publisher, eventbus.EventTypeHueShifted, map[string]any{
			"target":   change.Target.String(),
			"names":    change.Names,
			"from":     int(change.FromHue),
			"to":       int(change.ToHue),
			"delta":    delta,
			"relative": relative,
		})
		return DecisionApplied
	case lighting.OutcomeNotFound:
		publish(c.opts.publisher, eventbus.EventTypeTargetMissing, map[string]any{
			"operation": "shift_hue",
			"target":    change.Target.String(),
		})
	}
	return DecisionNotApplied
}

func publish(p Publisher, t eventbus.EventType, data map[string]any) {
	if p == nil {
		return
	}
	p.Publish(eventbus.Event{Type: t, Data: data})
}
