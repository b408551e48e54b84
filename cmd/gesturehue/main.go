package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/app"
	"github.com/dokzlo13/gesturehue/internal/armband"
	"github.com/dokzlo13/gesturehue/internal/config"
	"github.com/dokzlo13/gesturehue/internal/hue"
	"github.com/dokzlo13/gesturehue/internal/lighting"
)

const usage = `Usage: gesturehue [-c config.yaml] [command]

Commands:
  run        control lights with armband gestures (default)
  list       print groups or lights available for the configured target
  discover   find Hue bridges on the local network
  pair       create a bridge token (press the bridge link button first)
  ports      list serial ports
`

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	// Commands that work without a config file
	switch command {
	case "discover":
		setupLogging("info", false, true)
		runDiscover()
		return
	case "ports":
		setupLogging("info", false, true)
		runPorts()
		return
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)

	switch command {
	case "run":
		runControl(cfg, configPath)
	case "list":
		runList(cfg)
	case "pair":
		runPair(cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runControl(cfg *config.Config, configPath string) {
	log.Info().Str("config", configPath).Str("mode", cfg.Control.Mode).Msg("Starting gesturehue")

	application, err := app.New(cfg, app.Deps{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	application.Start(ctx)
	runErr := application.Run(ctx)
	application.Stop()

	if runErr != nil {
		log.Fatal().Err(runErr).Msg("Control loop failed")
	}
}

func runList(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Hue.Timeout.Duration())
	defer cancel()

	client := hue.NewClient(cfg.Hue.Bridge, cfg.Hue.Token, cfg.Hue.Timeout.Duration())
	defer client.Close()

	svc := lighting.NewService(client, lighting.Target{Group: cfg.Target.Group, Lights: cfg.Target.Lights})
	names, err := svc.Available(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list bridge contents")
	}
	kind := "Lights"
	if svc.Target().IsGroup() {
		kind = "Groups"
	}
	fmt.Printf("%s on %s:\n", kind, cfg.Hue.Bridge)
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func runDiscover() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bridges, err := hue.Discover(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Discovery failed")
	}
	if len(bridges) == 0 {
		fmt.Println("No bridges found")
		return
	}
	for _, b := range bridges {
		fmt.Printf("%s\t%s\n", b.Host, b.ID)
	}
}

func runPair(cfg *config.Config) {
	token, err := hue.Pair(cfg.Hue.Bridge, cfg.Hue.DeviceType)
	if err != nil {
		log.Fatal().Err(err).Msg("Pairing failed")
	}
	fmt.Printf("Token: %s\nSet hue.token in your config (or HUE_TOKEN with token: ${HUE_TOKEN}).\n", token)
}

func runPorts() {
	ports, err := armband.ListSerialPorts()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list serial ports")
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Println(p)
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
