package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig         `yaml:"log"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Metrics         MetricsConfig     `yaml:"metrics"`
	CommandAPI      CommandAPIConfig  `yaml:"command_api"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Service         ServiceConfig     `yaml:"service"`
	Driver          DriverConfig      `yaml:"driver"`
	LEDs            []LEDConfig       `yaml:"leds"`
	Library         LibraryConfig     `yaml:"library"`
	Lua             LuaConfig         `yaml:"lua"`
	Schedule        []ScheduleEntry   `yaml:"schedule"`
	Autostart       []AutostartEntry  `yaml:"autostart"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// MetricsConfig contains Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// CommandAPIConfig contains the HTTP command API settings
type CommandAPIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
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

// ServiceConfig tunes the sequencer service loop
type ServiceConfig struct {
	TickInterval Duration `yaml:"tick_interval"` // Re-service cadence during fades (default: 20ms)
	IdlePoll     Duration `yaml:"idle_poll"`     // Wake interval when nothing runs (default: 1s)
}

// DriverConfig selects and configures the light backend
type DriverConfig struct {
	Type string     `yaml:"type"` // "log", "term", "hue" or "lifx"
	Hue  HueConfig  `yaml:"hue"`
	Lifx LifxConfig `yaml:"lifx"`
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge       string  `yaml:"bridge"`
	Token        string  `yaml:"token"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // Bridge-wide write budget (default: 10)
}

// LifxConfig contains LIFX LAN settings
type LifxConfig struct {
	Fade Duration `yaml:"fade"` // Transition sent with every write (default: 50ms)
}

// LEDConfig describes one controlled LED
type LEDConfig struct {
	ID         string   `yaml:"id"`
	HueLight   int      `yaml:"hue_light"`  // Hue light id (driver type "hue")
	LifxLabel  string   `yaml:"lifx_label"` // LIFX bulb label (driver type "lifx")
	Label      string   `yaml:"label"`      // Display label (driver type "term")
	Brightness *float64 `yaml:"brightness"` // Initial brightness, 0..1
	Epsilon    *float64 `yaml:"epsilon"`    // Write filter threshold override
}

// LibraryConfig contains sequence library settings
type LibraryConfig struct {
	Paths       []string `yaml:"paths"`
	Watch       bool     `yaml:"watch"`
	QuietWindow Duration `yaml:"quiet_window"` // Reload debounce (default: 500ms)
	Capacity    int      `yaml:"capacity"`     // Max steps per sequence (0 = builder default)
}

// LuaConfig contains Lua scripting settings
type LuaConfig struct {
	Enabled bool   `yaml:"enabled"`
	Script  string `yaml:"script"`
}

// ScheduleEntry is one time-of-day cue
type ScheduleEntry struct {
	At       string `yaml:"at"` // "HH:MM"
	LED      string `yaml:"led"`
	Sequence string `yaml:"sequence"`
	Action   string `yaml:"action"` // default "start"
}

// AutostartEntry names a sequence started on boot
type AutostartEntry struct {
	LED      string `yaml:"led"`
	Sequence string `yaml:"sequence"`
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
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9091
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "0.0.0.0"
	}

	if cfg.CommandAPI.Port == 0 {
		cfg.CommandAPI.Port = 8080
	}
	if cfg.CommandAPI.Host == "" {
		cfg.CommandAPI.Host = "0.0.0.0"
	}

	if cfg.Service.TickInterval == 0 {
		cfg.Service.TickInterval = Duration(20 * time.Millisecond)
	}
	if cfg.Service.IdlePoll == 0 {
		cfg.Service.IdlePoll = Duration(1 * time.Second)
	}

	if cfg.Driver.Type == "" {
		cfg.Driver.Type = "log"
	}
	if cfg.Driver.Hue.RateLimitRPS == 0 {
		cfg.Driver.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}
	if cfg.Driver.Lifx.Fade == 0 {
		cfg.Driver.Lifx.Fade = Duration(50 * time.Millisecond)
	}

	if cfg.Library.QuietWindow == 0 {
		cfg.Library.QuietWindow = Duration(500 * time.Millisecond)
	}

	if cfg.Lua.Script == "" {
		cfg.Lua.Script = "main.lua"
	}

	for i := range cfg.Schedule {
		if cfg.Schedule[i].Action == "" {
			cfg.Schedule[i].Action = "start"
		}
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate rejects configurations the services could not start with.
func (cfg *Config) Validate() error {
	switch cfg.Driver.Type {
	case "log", "term", "hue", "lifx":
	default:
		return fmt.Errorf("driver type %q is not one of log, term, hue, lifx", cfg.Driver.Type)
	}

	if cfg.Driver.Type == "hue" {
		if cfg.Driver.Hue.Bridge == "" {
			return fmt.Errorf("driver type hue requires hue.bridge")
		}
		if cfg.Driver.Hue.Token == "" {
			return fmt.Errorf("driver type hue requires hue.token")
		}
	}

	seen := make(map[string]bool, len(cfg.LEDs))
	for i, led := range cfg.LEDs {
		if led.ID == "" {
			return fmt.Errorf("led %d has no id", i)
		}
		if seen[led.ID] {
			return fmt.Errorf("led id %q used twice", led.ID)
		}
		seen[led.ID] = true

		if cfg.Driver.Type == "hue" && led.HueLight == 0 {
			return fmt.Errorf("led %q needs hue_light for driver type hue", led.ID)
		}
		if cfg.Driver.Type == "lifx" && led.LifxLabel == "" {
			return fmt.Errorf("led %q needs lifx_label for driver type lifx", led.ID)
		}
		if led.Brightness != nil && (*led.Brightness < 0 || *led.Brightness > 1) {
			return fmt.Errorf("led %q brightness %v outside 0..1", led.ID, *led.Brightness)
		}
		if led.Epsilon != nil && *led.Epsilon < 0 {
			return fmt.Errorf("led %q epsilon %v is negative", led.ID, *led.Epsilon)
		}
	}

	for _, entry := range cfg.Schedule {
		if entry.LED == "" {
			return fmt.Errorf("schedule entry %q has no led", entry.At)
		}
		if !seen[entry.LED] {
			return fmt.Errorf("schedule entry %q names unknown led %q", entry.At, entry.LED)
		}
	}

	for _, entry := range cfg.Autostart {
		if entry.LED == "" || entry.Sequence == "" {
			return fmt.Errorf("autostart entries need both led and sequence")
		}
		if !seen[entry.LED] {
			return fmt.Errorf("autostart names unknown led %q", entry.LED)
		}
	}

	if cfg.Lua.Enabled && cfg.Lua.Script == "" {
		return fmt.Errorf("lua is enabled without a script")
	}

	return nil
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

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
