package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/config"
	"github.com/dokzlo13/gesturehue/internal/hue"
	"github.com/dokzlo13/gesturehue/internal/lighting"
)

// BridgeService owns the Hue bridge connection and the lighting service built on it.
type BridgeService struct {
	cfg    *config.Config
	client *hue.Client

	// bridge is what the lighting service talks to; nil while degraded
	bridge  lighting.Bridge
	Lights  *lighting.Service
	skipped bool // bridge injected by the caller, no connect needed
}

// NewBridgeService creates a BridgeService. A non-nil bridge replaces the
// configured Hue client and is used as-is.
func NewBridgeService(cfg *config.Config, bridge lighting.Bridge) *BridgeService {
	s := &BridgeService{cfg: cfg}
	if bridge != nil {
		s.bridge = bridge
		s.skipped = true
	} else {
		s.client = hue.NewClient(cfg.Hue.Bridge, cfg.Hue.Token, cfg.Hue.Timeout.Duration())
	}
	s.Lights = lighting.NewService(nil, targetFromConfig(cfg))
	return s
}

// Start connects to the bridge. A failed connection is logged and leaves the
// service degraded: lighting operations are skipped for the rest of the run.
func (s *BridgeService) Start(ctx context.Context) {
	if !s.skipped {
		if err := s.client.Connect(ctx); err != nil {
			log.Error().Err(err).Str("bridge", s.cfg.Hue.Bridge).Msg("Could not connect to Hue bridge, light control disabled")
			return
		}
		s.bridge = s.client
	}

	s.Lights = lighting.NewService(s.bridge, targetFromConfig(s.cfg))

	names, err := s.Lights.Available(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list available targets")
		return
	}
	if s.Lights.Target().IsGroup() {
		log.Info().Strs("groups", names).Msg("Available groups")
	} else {
		log.Info().Strs("lights", names).Msg("Available lights")
	}
}

// Degraded reports whether light control is disabled.
func (s *BridgeService) Degraded() bool {
	return !s.Lights.Connected()
}

// Close releases the HTTP client.
func (s *BridgeService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func targetFromConfig(cfg *config.Config) lighting.Target {
	return lighting.Target{
		Group:  cfg.Target.Group,
		Lights: cfg.Target.Lights,
	}
}
