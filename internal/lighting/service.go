// Package lighting resolves the configured light target on the bridge and applies
// power toggles and hue shifts to it.
package lighting

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/hue"
)

// HueSpace is the size of the cyclic hue range understood by the bridge.
const HueSpace = 65536

// MaxHue is the largest hue value.
const MaxHue = HueSpace - 1

// Outcome describes what a lighting operation did.
type Outcome int

const (
	// OutcomeApplied means the bridge accepted the change.
	OutcomeApplied Outcome = iota
	// OutcomeNotFound means the configured target does not exist on the bridge.
	OutcomeNotFound
	// OutcomeUnavailable means there is no bridge connection.
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Bridge is the subset of the Hue client the service needs.
type Bridge interface {
	Groups(ctx context.Context) ([]hue.Group, error)
	Lights(ctx context.Context) ([]hue.Light, error)
	SetGroupAction(ctx context.Context, groupID string, update hue.StateUpdate) error
	SetLightState(ctx context.Context, lightID string, update hue.StateUpdate) error
}

// Target is either a named group or a list of named lights.
type Target struct {
	Group  string
	Lights []string
}

// IsGroup reports whether the target addresses a group.
func (t Target) IsGroup() bool {
	return t.Group != ""
}

func (t Target) String() string {
	if t.IsGroup() {
		return fmt.Sprintf("group '%s'", t.Group)
	}
	return fmt.Sprintf("lights [%s]", strings.Join(t.Lights, ", "))
}

// Change reports the result of a toggle or hue shift.
type Change struct {
	Outcome Outcome
	Target  Target
	// IDs and Names of the resolved group or lights
	IDs   []string
	Names []string

	FromHue uint16
	ToHue   uint16
	WasOn   bool
	On      bool
}

// Service applies changes to a single configured target.
// A nil bridge puts the service in degraded mode: every operation reports
// OutcomeUnavailable without touching the network.
type Service struct {
	bridge Bridge
	target Target
}

// NewService creates a lighting service for target.
func NewService(bridge Bridge, target Target) *Service {
	return &Service{
		bridge: bridge,
		target: target,
	}
}

// Target returns the configured target.
func (s *Service) Target() Target {
	return s.target
}

// Connected reports whether a bridge is available.
func (s *Service) Connected() bool {
	return s.bridge != nil
}

// resolved is the target matched against the current bridge state.
type resolved struct {
	ids   []string
	names []string
	hue   uint16 // current hue of the group action or first light
	on    bool   // any_on of the group or on state of the first light
}

// resolve looks the target up by exact name. ok is false when nothing matched.
func (s *Service) resolve(ctx context.Context) (r resolved, ok bool, err error) {
	if s.target.IsGroup() {
		groups, err := s.bridge.Groups(ctx)
		if err != nil {
			return r, false, err
		}
		for _, g := range groups {
			if g.Name == s.target.Group {
				r.ids = []string{g.ID}
				r.names = []string{g.Name}
				r.hue = g.Action.Hue
				r.on = g.State.AnyOn
				return r, true, nil
			}
		}
		return r, false, nil
	}

	lights, err := s.bridge.Lights(ctx)
	if err != nil {
		return r, false, err
	}
	byName := make(map[string]hue.Light, len(lights))
	for _, l := range lights {
		if _, dup := byName[l.Name]; !dup {
			byName[l.Name] = l
		}
	}
	for _, name := range s.target.Lights {
		l, found := byName[name]
		if !found {
			continue
		}
		// The first configured light that exists is the reference for current state
		if len(r.ids) == 0 {
			r.hue = l.State.Hue
			r.on = l.State.On
		}
		r.ids = append(r.ids, l.ID)
		r.names = append(r.names, l.Name)
	}
	return r, len(r.ids) > 0, nil
}

// apply writes update to the resolved group or to each light in order.
// Light writes are not atomic: lights before a failing one keep the new
// state, and since the caller does not count the attempt as applied, a retry
// reads the first light's already updated hue and shifts it again.
func (s *Service) apply(ctx context.Context, ids []string, update hue.StateUpdate) error {
	if s.target.IsGroup() {
		return s.bridge.SetGroupAction(ctx, ids[0], update)
	}
	for _, id := range ids {
		if err := s.bridge.SetLightState(ctx, id, update); err != nil {
			return fmt.Errorf("light %s: %w", id, err)
		}
	}
	return nil
}

// Toggle flips the target's power state.
func (s *Service) Toggle(ctx context.Context) (Change, error) {
	change := Change{Target: s.target}
	if s.bridge == nil {
		change.Outcome = OutcomeUnavailable
		return change, nil
	}

	r, ok, err := s.resolve(ctx)
	if err != nil {
		return change, fmt.Errorf("failed to resolve %s: %w", s.target, err)
	}
	if !ok {
		change.Outcome = OutcomeNotFound
		log.Warn().Str("target", s.target.String()).Msg("Target not found")
		return change, nil
	}

	change.IDs, change.Names = r.ids, r.names
	change.WasOn = r.on
	change.On = !r.on

	if err := s.apply(ctx, r.ids, hue.StateUpdate{}.SetOn(change.On)); err != nil {
		return change, fmt.Errorf("failed to toggle %s: %w", s.target, err)
	}

	change.Outcome = OutcomeApplied
	log.Info().
		Strs("names", r.names).
		Bool("on", change.On).
		Msg("Toggled lights")
	return change, nil
}

// ShiftHue adds delta to the target's current hue, wrapping around the hue circle.
// The current hue is read from the bridge on every call.
func (s *Service) ShiftHue(ctx context.Context, delta int) (Change, error) {
	change := Change{Target: s.target}
	if s.bridge == nil {
		change.Outcome = OutcomeUnavailable
		return change, nil
	}

	r, ok, err := s.resolve(ctx)
	if err != nil {
		return change, fmt.Errorf("failed to resolve %s: %w", s.target, err)
	}
	if !ok {
		change.Outcome = OutcomeNotFound
		log.Warn().Str("target", s.target.String()).Msg("Target not found")
		return change, nil
	}

	change.IDs, change.Names = r.ids, r.names
	change.FromHue = r.hue
	change.ToHue = WrapHue(int(r.hue), delta)

	if err := s.apply(ctx, r.ids, hue.StateUpdate{}.SetHue(change.ToHue)); err != nil {
		return change, fmt.Errorf("failed to set hue on %s: %w", s.target, err)
	}

	change.Outcome = OutcomeApplied
	log.Info().
		Strs("names", r.names).
		Uint16("from", change.FromHue).
		Uint16("to", change.ToHue).
		Msg("Hue changed")
	return change, nil
}

// Available lists the names the target can be resolved against:
// group names in group mode, light names otherwise.
func (s *Service) Available(ctx context.Context) ([]string, error) {
	if s.bridge == nil {
		return nil, nil
	}

	var names []string
	if s.target.IsGroup() {
		groups, err := s.bridge.Groups(ctx)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			names = append(names, g.Name)
		}
		return names, nil
	}

	lights, err := s.bridge.Lights(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lights {
		names = append(names, l.Name)
	}
	return names, nil
}

// WrapHue returns current+delta on the hue circle.
func WrapHue(current, delta int) uint16 {
	v := (current + delta) % HueSpace
	if v < 0 {
		v += HueSpace
	}
	// Redundant after the modulo
	v = max(0, min(MaxHue, v))
	return uint16(v)
}
