// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the console looks for its config when none is given.
const DefaultPath = "config/console.yaml"

// Poll tunes the telemetry poller.
type Poll struct {
	Interval   time.Duration `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Dispatch tunes command dispatch.
type Dispatch struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Notices tunes the transient operator message queue.
type Notices struct {
	TTL time.Duration `yaml:"ttl"`
	Max int           `yaml:"max"`
}

// Log selects log level, format and an optional log file.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Admin configures the local read-only view endpoint.
type Admin struct {
	Addr string `yaml:"addr"`
}

// Map tunes the map view.
type Map struct {
	Trail int `yaml:"trail"`
}

// Greptime configures the GreptimeDB recorder. An empty endpoint disables it.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// MQTT configures the MQTT recorder. An empty broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// Record lists the telemetry recorders.
type Record struct {
	File     string   `yaml:"file"`
	Greptime Greptime `yaml:"greptime"`
	MQTT     MQTT     `yaml:"mqtt"`
}

// Config is the root console configuration.
type Config struct {
	RoverAPIURL string   `yaml:"rover_api_url"`
	RoverID     string   `yaml:"rover_id"`
	Poll        Poll     `yaml:"poll"`
	Dispatch    Dispatch `yaml:"dispatch"`
	Notices     Notices  `yaml:"notices"`
	Log         Log      `yaml:"log"`
	Admin       Admin    `yaml:"admin"`
	Map         Map      `yaml:"map"`
	Record      Record   `yaml:"record"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RoverAPIURL: "http://localhost:5000",
		RoverID:     "rover-1",
		Poll: Poll{
			Interval:   time.Second,
			Timeout:    2 * time.Second,
			MaxBackoff: 8 * time.Second,
		},
		Dispatch: Dispatch{Timeout: 2 * time.Second},
		Notices:  Notices{TTL: 8 * time.Second, Max: 5},
		Log:      Log{Level: "info", Format: "auto"},
		Map:      Map{Trail: 64},
		Record: Record{
			Greptime: Greptime{Database: "public", Table: "rover_telemetry"},
			MQTT:     MQTT{ClientID: "rover-console"},
		},
	}
}

// Load reads the YAML config at configPath, validates it against the CUE
// schema and applies environment overrides. A missing file at DefaultPath
// yields the defaults; any other missing file is an error.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		configPath = DefaultPath
	}
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && configPath == DefaultPath:
		data = nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := ValidateWithCue(configPath, data, cueSchemaPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ROVER_API_URL, POLL_INTERVAL, ROVER_ID,
// GREPTIMEDB_ENDPOINT, GREPTIMEDB_TABLE and MQTT_BROKER.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("ROVER_API_URL"); v != "" {
		cfg.RoverAPIURL = v
	}
	if v := os.Getenv("ROVER_ID"); v != "" {
		cfg.RoverID = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		cfg.Record.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
		cfg.Record.Greptime.Table = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.Record.MQTT.Broker = v
	}
	return nil
}

// parseDuration accepts Go durations and bare millisecond counts.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate checks values that overrides can still break after schema validation.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.RoverAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("rover_api_url %q is not an http(s) URL", c.RoverAPIURL))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Poll.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("poll.timeout must be positive, got %s", c.Poll.Timeout))
	}
	if c.Dispatch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.timeout must be positive, got %s", c.Dispatch.Timeout))
	}
	if c.RoverID == "" {
		errs = append(errs, errors.New("rover_id must not be empty"))
	}
	return errors.Join(errs...)
}
