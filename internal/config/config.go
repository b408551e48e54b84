package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Control modes
const (
	ModeHue    = "hue"
	ModeToggle = "toggle"
)

// Armband feed sources
const (
	SourceSerial    = "serial"
	SourceWebSocket = "websocket"
	SourceFile      = "file"
)

// Config represents the application configuration
type Config struct {
	Hue             HueConfig         `yaml:"hue"`
	Target          TargetConfig      `yaml:"target"`
	Control         ControlConfig     `yaml:"control"`
	Armband         ArmbandConfig     `yaml:"armband"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge     string   `yaml:"bridge"`
	Token      string   `yaml:"token"`
	Timeout    Duration `yaml:"timeout"`     // HTTP timeout for Hue API requests
	DeviceType string   `yaml:"device_type"` // Name registered with the bridge on pairing
}

// TargetConfig selects what the gesture controls: one group, or a list of lights.
// Names are matched case-sensitively.
type TargetConfig struct {
	Group  string   `yaml:"group"`
	Lights []string `yaml:"lights"`
}

// ControlConfig contains the gesture/motion control parameters
type ControlConfig struct {
	Mode            string   `yaml:"mode"`             // "hue" or "toggle"
	ActivePose      int      `yaml:"active_pose"`      // Classifier label that activates control
	Axis            string   `yaml:"axis"`             // Motion axis, e.g. accel_y
	UpdateInterval  Duration `yaml:"update_interval"`  // Minimum time between hue updates
	MotionThreshold float64  `yaml:"motion_threshold"` // Relative motion needed for a hue step
	HueStep         float64  `yaml:"hue_step"`         // Hue change per threshold unit of motion
	Deadzone        float64  `yaml:"deadzone"`         // Relative motion ignored as jitter
}

// ArmbandConfig contains armband event feed settings
type ArmbandConfig struct {
	Source      string   `yaml:"source"`       // serial, websocket or file
	Port        string   `yaml:"port"`         // Serial port (source: serial)
	Baud        int      `yaml:"baud"`         // Serial baud rate
	URL         string   `yaml:"url"`          // Feed URL (source: websocket)
	Path        string   `yaml:"path"`         // Recorded feed (source: file)
	ReplayRate  Duration `yaml:"replay_rate"`  // Delay between replayed events (0 = as fast as possible)
	PollTimeout Duration `yaml:"poll_timeout"` // Max wait for new events per poll
	QueueSize   int      `yaml:"queue_size"`   // Buffered events between reader and control loop
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the configured log level
func (c LogConfig) GetLevel() string {
	return c.Level
}

// LedgerConfig contains light change history settings
type LedgerConfig struct {
	Enabled         bool     `yaml:"enabled"`
	RetentionPeriod Duration `yaml:"retention_period"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 1)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./gesturehue.sqlite"
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Hue.DeviceType == "" {
		cfg.Hue.DeviceType = "gesturehue#armband"
	}

	// Control defaults are tuned for accel_y on a forearm-worn band
	if cfg.Control.Mode == "" {
		cfg.Control.Mode = ModeHue
	}
	if cfg.Control.ActivePose == 0 {
		cfg.Control.ActivePose = 1
	}
	if cfg.Control.Axis == "" {
		cfg.Control.Axis = "accel_y"
	}
	if cfg.Control.UpdateInterval == 0 {
		cfg.Control.UpdateInterval = Duration(300 * time.Millisecond)
	}
	if cfg.Control.MotionThreshold == 0 {
		cfg.Control.MotionThreshold = 150
	}
	if cfg.Control.HueStep == 0 {
		cfg.Control.HueStep = 500
	}
	if cfg.Control.Deadzone == 0 {
		cfg.Control.Deadzone = 50
	}

	// Armband defaults
	if cfg.Armband.Source == "" {
		cfg.Armband.Source = SourceSerial
	}
	if cfg.Armband.Baud == 0 {
		cfg.Armband.Baud = 115200
	}
	if cfg.Armband.PollTimeout == 0 {
		cfg.Armband.PollTimeout = Duration(100 * time.Millisecond)
	}
	if cfg.Armband.QueueSize <= 0 {
		cfg.Armband.QueueSize = 256
	}

	// Ledger defaults
	if cfg.Ledger.RetentionPeriod == 0 {
		cfg.Ledger.RetentionPeriod = Duration(30 * 24 * time.Hour)
	}
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks the configuration for values the controller cannot run with.
func (cfg *Config) Validate() error {
	var errs []error

	hasGroup := cfg.Target.Group != ""
	hasLights := len(cfg.Target.Lights) > 0
	switch {
	case hasGroup && hasLights:
		errs = append(errs, errors.New("target: set either group or lights, not both"))
	case !hasGroup && !hasLights:
		errs = append(errs, errors.New("target: group or lights is required"))
	}

	switch cfg.Control.Mode {
	case ModeHue, ModeToggle:
	default:
		errs = append(errs, fmt.Errorf("control.mode: unknown mode %q", cfg.Control.Mode))
	}
	if cfg.Control.MotionThreshold < 0 {
		errs = append(errs, errors.New("control.motion_threshold must be positive"))
	}
	if cfg.Control.Deadzone < 0 {
		errs = append(errs, errors.New("control.deadzone must not be negative"))
	}
	if cfg.Control.UpdateInterval < 0 {
		errs = append(errs, errors.New("control.update_interval must not be negative"))
	}
	if !knownAxis(cfg.Control.Axis) {
		errs = append(errs, fmt.Errorf("control.axis: unknown axis %q", cfg.Control.Axis))
	}

	if cfg.Ledger.CleanupInterval <= 0 {
		errs = append(errs, errors.New("ledger.cleanup_interval must be positive"))
	}
	if cfg.Ledger.RetentionPeriod < 0 {
		errs = append(errs, errors.New("ledger.retention_period must not be negative"))
	}

	switch cfg.Armband.Source {
	case SourceSerial:
		// Empty port is resolved at connect time to the first detected port
	case SourceWebSocket:
		if cfg.Armband.URL == "" {
			errs = append(errs, errors.New("armband.url is required for websocket source"))
		}
	case SourceFile:
		if cfg.Armband.Path == "" {
			errs = append(errs, errors.New("armband.path is required for file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("armband.source: unknown source %q", cfg.Armband.Source))
	}

	return errors.Join(errs...)
}

// knownAxis mirrors the axis names accepted by armband.Axis.
func knownAxis(name string) bool {
	switch name {
	case "accel_x", "accel_y", "accel_z",
		"gyro_x", "gyro_y", "gyro_z",
		"quat_w", "quat_x", "quat_y", "quat_z":
		return true
	}
	return false
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
