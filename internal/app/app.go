package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/config"
	"github.com/dokzlo13/gesturehue/internal/control"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config, deps Deps) (*App, error) {
	services, err := NewServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start connects to the bridge and starts background services.
// A bridge that cannot be reached does not fail Start.
func (a *App) Start(ctx context.Context) {
	a.services.Start(ctx)

	target := a.services.Bridge.Lights.Target()
	switch a.cfg.Control.Mode {
	case config.ModeToggle:
		log.Info().Str("target", target.String()).Msg("Control mode: make the gesture to toggle")
	default:
		log.Info().Str("target", target.String()).Msg("Control mode: hold the gesture and move the arm to adjust hue")
	}
}

// Run connects the armband and runs the control loop until ctx is cancelled
// or the feed ends. The armband is always disconnected before Run returns.
func (a *App) Run(ctx context.Context) error {
	driver := a.services.Driver
	a.bindHandlers(ctx, driver)

	if err := driver.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		a.services.Health.SetReady(false)
		if err := driver.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("Armband disconnect failed")
		}
		log.Info().Msg("Disconnected")
	}()

	a.services.Health.SetReady(true)
	log.Info().Msg("Ready for operation")

	for {
		if ctx.Err() != nil {
			log.Info().Msg("Stopping")
			return nil
		}

		err := driver.Poll(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Info().Msg("Stopping")
			return nil
		case errors.Is(err, armband.ErrFeedClosed):
			log.Info().Msg("Armband feed ended")
			return nil
		default:
			return err
		}
	}
}

// bindHandlers routes armband events to the controller for the configured mode.
// Handlers run inside driver.Poll, on the Run goroutine.
func (a *App) bindHandlers(ctx context.Context, driver armband.Driver) {
	lights := a.services.Bridge.Lights
	publisher := control.WithPublisher(a.services.Bus)
	activePose := armband.Pose(a.cfg.Control.ActivePose)

	if a.cfg.Control.Mode == config.ModeToggle {
		toggler := control.NewToggler(lights, activePose, publisher)
		driver.OnPose(func(p armband.Pose) { toggler.HandlePose(ctx, p) })
		return
	}

	axis, err := armband.Axis(a.cfg.Control.Axis)
	if err != nil {
		// Rejected by config validation
		log.Error().Err(err).Msg("Invalid motion axis, falling back to accel_y")
		axis, _ = armband.Axis("accel_y")
	}

	controller := control.NewController(lights, control.Params{
		ActivePose:      activePose,
		UpdateInterval:  a.cfg.Control.UpdateInterval.Duration(),
		MotionThreshold: a.cfg.Control.MotionThreshold,
		HueStep:         a.cfg.Control.HueStep,
		Deadzone:        a.cfg.Control.Deadzone,
	}, publisher)
	driver.OnPose(func(p armband.Pose) { controller.HandlePose(ctx, p) })
	driver.OnMotion(func(m armband.Motion) { controller.HandleMotion(ctx, axis(m)) })
}

// Stop releases all resources.
func (a *App) Stop() {
	log.Info().Msg("Shutting down...")
	if a.services != nil {
		a.services.Close()
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
