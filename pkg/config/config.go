package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/homemon/pkg/probe"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "HOMEMON_"

var (
	// ErrUnknownFormat is returned for device files that are neither JSON nor YAML
	ErrUnknownFormat = errors.New("unknown device file format")
	// ErrInvalidConfig wraps every Validate failure
	ErrInvalidConfig   = errors.New("invalid configuration")
	errInvalidDuration = errors.New("invalid duration")
)

// Duration accepts "2s" style strings or a number of nanoseconds in JSON
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}
		*d = Duration(dur)
		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds the monitor configuration
type Config struct {
	HomeName        string   `json:"home_name"`        // Registry name shown in logs and the dashboard
	DevicesFile     string   `json:"devices_file"`     // JSON or YAML device descriptors
	StatusLog       string   `json:"status_log"`       // Append-only status timeline
	ErrorLogDir     string   `json:"error_log_dir"`    // Directory for per-run error logs, empty disables
	IntervalSeconds int      `json:"interval_seconds"` // Pause between rounds
	Workers         int      `json:"workers"`          // Concurrent probes per round, 0 means one per CPU
	Probe           string   `json:"probe"`            // exec or icmp
	PingPath        string   `json:"ping_path"`        // ping binary for the exec prober
	ProbeTimeout    Duration `json:"probe_timeout"`    // Reply wait per probe, 0 keeps the transport default
	Privileged      bool     `json:"privileged"`       // Raw ICMP socket instead of datagram ICMP
	DashboardAddr   string   `json:"dashboard_addr"`   // Listen address for the dashboard, empty disables
	OUIFile         string   `json:"oui_file"`         // MAC vendor CSV used to fill manufacturers
	LogLevel        string   `json:"log_level"`        // logrus level name
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	return Config{
		HomeName:        "MyHome",
		DevicesFile:     "devices.json",
		StatusLog:       "status.log",
		ErrorLogDir:     "logs",
		IntervalSeconds: 60,
		Probe:           probe.KindExec,
		PingPath:        "ping",
		LogLevel:        "info",
	}
}

// Interval returns the pause between rounds
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ProbeOptions returns the prober settings
func (c Config) ProbeOptions() probe.Options {
	return probe.Options{
		PingPath:   c.PingPath,
		Timeout:    time.Duration(c.ProbeTimeout),
		Privileged: c.Privileged,
	}
}

// LoadConfigFromFile loads configuration from a JSON file on top of the defaults
func LoadConfigFromFile(filePath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", filePath, err)
	}
	return cfg, nil
}

// ApplyEnv loads envFile (or ./.env when empty) if it exists and applies the
// HOMEMON_* overrides. Unparseable numbers keep the current value.
func (c *Config) ApplyEnv(envFile string, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	c.HomeName = getEnv("HOME_NAME", c.HomeName)
	c.DevicesFile = getEnv("DEVICES_FILE", c.DevicesFile)
	c.StatusLog = getEnv("STATUS_LOG", c.StatusLog)
	c.ErrorLogDir = getEnv("ERROR_LOG_DIR", c.ErrorLogDir)
	c.IntervalSeconds = getEnvInt(logger, "INTERVAL_SECONDS", c.IntervalSeconds)
	c.Workers = getEnvInt(logger, "WORKERS", c.Workers)
	c.Probe = getEnv("PROBE", c.Probe)
	c.PingPath = getEnv("PING_PATH", c.PingPath)
	c.ProbeTimeout = Duration(getEnvDuration(logger, "PROBE_TIMEOUT", time.Duration(c.ProbeTimeout)))
	c.Privileged = getEnvBool(logger, "PRIVILEGED", c.Privileged)
	c.DashboardAddr = getEnv("DASHBOARD_ADDR", c.DashboardAddr)
	c.OUIFile = getEnv("OUI_FILE", c.OUIFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	return nil
}

// Validate checks the values the monitor cannot run without
func (c Config) Validate() error {
	if c.DevicesFile == "" {
		return fmt.Errorf("%w: devices_file is required", ErrInvalidConfig)
	}
	if c.StatusLog == "" {
		return fmt.Errorf("%w: status_log is required", ErrInvalidConfig)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: interval_seconds must be positive, got %d", ErrInvalidConfig, c.IntervalSeconds)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("%w: probe_timeout must not be negative", ErrInvalidConfig)
	}
	switch c.Probe {
	case probe.KindExec, probe.KindICMP, "":
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, probe.ErrUnknownProber, c.Probe)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(logger *logrus.Logger, key string, defaultValue int) int {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		logger.WithField("key", EnvPrefix+key).WithError(err).Warn("Ignoring invalid integer")
		return defaultValue
	}
	return n
}

func getEnvBool(logger *logrus.Logger, key string, defaultValue bool) bool {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.WithField("key", EnvPrefix+key).WithError(err).Warn("Ignoring invalid boolean")
		return defaultValue
	}
	return b
}

func getEnvDuration(logger *logrus.Logger, key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		logger.WithField("key", EnvPrefix+key).WithError(err).Warn("Ignoring invalid duration")
		return defaultValue
	}
	return d
}
