package app

import (
	"context"

	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/config"
	"github.com/dokzlo13/gesturehue/internal/eventbus"
	"github.com/dokzlo13/gesturehue/internal/lighting"
)

// Deps lets callers replace the external collaborators. Zero fields are
// built from configuration.
type Deps struct {
	Driver armband.Driver
	Bridge lighting.Bridge
}

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	Bus     *eventbus.Bus
	Driver  armband.Driver
	Bridge  *BridgeService
	History *HistoryService
	Health  *HealthService

	// cancel stops background services started by Start
	cancel context.CancelFunc
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config, deps Deps) (*Services, error) {
	s := &Services{cfg: cfg}

	s.Driver = deps.Driver
	if s.Driver == nil {
		driver, err := NewArmbandDriver(cfg.Armband)
		if err != nil {
			return nil, err
		}
		s.Driver = driver
	}

	history, err := NewHistoryService(cfg)
	if err != nil {
		return nil, err
	}
	s.History = history

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.History.Subscribe(s.Bus)

	s.Bridge = NewBridgeService(cfg, deps.Bridge)
	s.Health = NewHealthService(cfg, s.Bridge.Degraded)

	return s, nil
}

// Start connects to the bridge and starts background services. They run
// until ctx is cancelled or Close is called.
func (s *Services) Start(ctx context.Context) {
	s.Bridge.Start(ctx)

	bgCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.History.Start(bgCtx)
	s.Health.Start(bgCtx)
}

// Close releases all resources. The armband is released by the control loop.
func (s *Services) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.Health != nil {
		s.Health.Wait()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Bridge != nil {
		s.Bridge.Close()
	}
	if s.History != nil {
		s.History.Close()
	}
}
