package control

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/eventbus"
	"github.com/dokzlo13/gesturehue/internal/lighting"
)

// Toggler flips the target's power once each time the active pose begins.
// Motion is ignored and there is no rate limit.
type Toggler struct {
	lights     Lights
	activePose armband.Pose
	opts       options

	active bool
}

// NewToggler creates a power toggler.
func NewToggler(lights Lights, activePose armband.Pose, opts ...Option) *Toggler {
	return &Toggler{
		lights:     lights,
		activePose: activePose,
		opts:       buildOptions(opts),
	}
}

// HandlePose toggles on the rest-to-active edge. It reports whether a toggle
// was applied.
func (t *Toggler) HandlePose(ctx context.Context, pose armband.Pose) bool {
	active := pose == t.activePose
	if active == t.active {
		return false
	}
	t.active = active

	publish(t.opts.publisher, eventbus.EventTypePose, map[string]any{
		"pose":   int(pose),
		"active": active,
	})
	if !active {
		return false
	}

	change, err := t.lights.Toggle(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to toggle lights")
		publish(t.opts.publisher, eventbus.EventTypeLightError, map[string]any{
			"operation": "toggle",
			"error":     err.Error(),
		})
		return false
	}

	switch change.Outcome {
	case lighting.OutcomeApplied:
		publish(t.opts.publisher, eventbus.EventTypeToggled, map[string]any{
			"target": change.Target.String(),
			"names":  change.Names,
			"on":     change.On,
		})
		return true
	case lighting.OutcomeNotFound:
		publish(t.opts.publisher, eventbus.EventTypeTargetMissing, map[string]any{
			"operation": "toggle",
			"target":    change.Target.String(),
		})
	case lighting.OutcomeUnavailable:
		log.Debug().Msg("No bridge connection, toggle skipped")
	}
	return false
}
