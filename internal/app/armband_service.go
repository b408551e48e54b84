package app

import (
	"fmt"

	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/config"
)

// NewArmbandDriver builds the armband driver for the configured feed source.
func NewArmbandDriver(cfg config.ArmbandConfig) (armband.Driver, error) {
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	return armband.NewStreamDriver(dialer, armband.StreamOptions{
		QueueSize:   cfg.QueueSize,
		PollTimeout: cfg.PollTimeout.Duration(),
	}), nil
}

func newDialer(cfg config.ArmbandConfig) (armband.Dialer, error) {
	switch cfg.Source {
	case config.SourceSerial:
		return armband.SerialDialer{Port: cfg.Port, Baud: cfg.Baud}, nil
	case config.SourceWebSocket:
		return armband.WebSocketDialer{URL: cfg.URL}, nil
	case config.SourceFile:
		return armband.FileDialer{Path: cfg.Path, Rate: cfg.ReplayRate.Duration()}, nil
	}
	return nil, fmt.Errorf("unknown armband source %q", cfg.Source)
}
