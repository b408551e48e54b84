package hue

import (
	"context"
	"fmt"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// DiscoveredBridge is a bridge found on the local network.
type DiscoveredBridge struct {
	ID   string
	Host string
}

// Discover looks up bridges through the Hue discovery service.
// The lookup itself is not cancellable; ctx is only checked before it starts.
func Discover(ctx context.Context) ([]DiscoveredBridge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := huego.DiscoverAll()
	if err != nil {
		return nil, fmt.Errorf("bridge discovery failed: %w", err)
	}

	bridges := make([]DiscoveredBridge, 0, len(found))
	for _, b := range found {
		bridges = append(bridges, DiscoveredBridge{ID: b.ID, Host: b.Host})
	}

	log.Debug().Int("bridges", len(bridges)).Msg("Bridge discovery finished")
	return bridges, nil
}

// Pair registers a new application key on the bridge at host.
// The link button on the bridge must be pressed shortly before calling.
func Pair(host, deviceType string) (string, error) {
	bridge := huego.New(host, "")
	token, err := bridge.CreateUser(deviceType)
	if err != nil {
		return "", fmt.Errorf("failed to pair with bridge %s (was the link button pressed?): %w", host, err)
	}

	log.Info().Str("bridge", host).Str("device_type", deviceType).Msg("Paired with Hue bridge")
	return token, nil
}
