package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the auto-brightness daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Brightness BrightnessConfig `yaml:"brightness"`
	Backends   BackendsConfig   `yaml:"backends"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	Name     string         `yaml:"name"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates for the solar calculation.
// Longitude is east-positive.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// IsSet reports whether coordinates were configured.
// The null island (0,0) is treated as unset.
func (l LocationConfig) IsSet() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// BrightnessConfig controls the automatic brightness schedule.
type BrightnessConfig struct {
	AutoEnabled bool `yaml:"auto_enabled"`

	// Min and Max are fractions in [0,1] of full panel brightness.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// Mode is "curve" (five-segment) or "simple" (civil twilight ramp).
	Mode string `yaml:"mode"`

	// UpdateInterval is the number of seconds between scheduler ticks.
	UpdateInterval int `yaml:"update_interval"`

	// RedetectEvery triggers a fresh monitor detection every N ticks (0 disables).
	RedetectEvery int `yaml:"redetect_every"`
}

// BackendsConfig holds settings for the three monitor backends.
type BackendsConfig struct {
	DDCUtil DDCUtilConfig `yaml:"ddcutil"`
	RawI2C  RawI2CConfig  `yaml:"raw_i2c"`
	Desktop DesktopConfig `yaml:"desktop"`
}

// DDCUtilConfig configures the bus-level DDC/CI driver.
type DDCUtilConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Binary    string   `yaml:"binary"`
	Timeout   int      `yaml:"timeout"` // seconds
	ExtraArgs []string `yaml:"extra_args"`
}

// RawI2CConfig configures the raw /dev/i2c-N DDC/CI driver.
type RawI2CConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AdapterFilter string `yaml:"adapter_filter"`
	SysfsRoot     string `yaml:"sysfs_root"`
	DevDir        string `yaml:"dev_dir"`
	ReplyDelayMS  int    `yaml:"reply_delay_ms"`
}

// DesktopConfig configures the desktop-session brightness service driver.
type DesktopConfig struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"` // seconds
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings, used when Output is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// Load builds the configuration: defaults, then the YAML file at path, then
// AUTOBRIGHTNESS_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration populated with defaults.
// The site location is left unset and must come from the file or environment.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			Name: "Home",
		},
		Brightness: BrightnessConfig{
			AutoEnabled:    true,
			Min:            0.1,
			Max:            1.0,
			Mode:           "curve",
			UpdateInterval: 300,
			RedetectEvery:  12,
		},
		Backends: BackendsConfig{
			DDCUtil: DDCUtilConfig{
				Enabled: true,
				Binary:  "ddcutil",
				Timeout: 5,
			},
			RawI2C: RawI2CConfig{
				Enabled:       true,
				AdapterFilter: "NVIDIA",
				SysfsRoot:     "/sys",
				DevDir:        "/dev",
				ReplyDelayMS:  50,
			},
			Desktop: DesktopConfig{
				Enabled: true,
				Timeout: 2,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/autobrightness.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "autobrightness",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8095,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "autobrightness",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/autobrightness.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

const envPrefix = "AUTOBRIGHTNESS_"

// envStrings maps environment variables (without envPrefix) to string
// fields.
func envStrings(cfg *Config) map[string]*string {
	return map[string]*string{
		"DATABASE_PATH":  &cfg.Database.Path,
		"DDCUTIL_BINARY": &cfg.Backends.DDCUtil.Binary,
		"MQTT_HOST":      &cfg.MQTT.Broker.Host,
		"MQTT_USERNAME":  &cfg.MQTT.Auth.Username,
		"MQTT_PASSWORD":  &cfg.MQTT.Auth.Password,
		"API_HOST":       &cfg.API.Host,
		"INFLUXDB_TOKEN": &cfg.InfluxDB.Token,
		"LOG_LEVEL":      &cfg.Logging.Level,
	}
}

// applyEnvOverrides copies non-empty AUTOBRIGHTNESS_* variables over cfg.
// A coordinate that does not parse is an error rather than silently
// falling back to the file value.
func applyEnvOverrides(cfg *Config) error {
	for name, field := range envStrings(cfg) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*field = v
		}
	}

	coords := []struct {
		name  string
		field *float64
	}{
		{"LATITUDE", &cfg.Site.Location.Latitude},
		{"LONGITUDE", &cfg.Site.Location.Longitude},
	}
	for _, c := range coords {
		v := os.Getenv(envPrefix + c.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, c.name, err)
		}
		*c.field = f
	}
	return nil
}

// Validate checks the configuration for errors.
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	loc := c.Site.Location
	if !loc.IsSet() {
		errs = append(errs, "site.location is required (set latitude and longitude)")
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		errs = append(errs, "site.location.latitude must be between -90 and 90")
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		errs = append(errs, "site.location.longitude must be between -180 and 180")
	}

	b := c.Brightness
	if b.Min < 0 || b.Min > 1 {
		errs = append(errs, "brightness.min must be between 0 and 1")
	}
	if b.Max < 0 || b.Max > 1 {
		errs = append(errs, "brightness.max must be between 0 and 1")
	}
	if b.Min > b.Max {
		errs = append(errs, "brightness.min must not exceed brightness.max")
	}
	if b.Mode != "curve" && b.Mode != "simple" {
		errs = append(errs, "brightness.mode must be \"curve\" or \"simple\"")
	}
	if b.UpdateInterval < 1 {
		errs = append(errs, "brightness.update_interval must be at least 1 second")
	}
	if b.RedetectEvery < 0 {
		errs = append(errs, "brightness.redetect_every must not be negative")
	}

	if c.Backends.DDCUtil.Enabled && c.Backends.DDCUtil.Binary == "" {
		errs = append(errs, "backends.ddcutil.binary is required when ddcutil is enabled")
	}
	if c.Backends.DDCUtil.Timeout < 1 {
		errs = append(errs, "backends.ddcutil.timeout must be at least 1 second")
	}
	if c.Backends.Desktop.Timeout < 1 {
		errs = append(errs, "backends.desktop.timeout must be at least 1 second")
	}
	// DDC/CI requires at least 40ms between a request and reading its reply.
	if c.Backends.RawI2C.Enabled && c.Backends.RawI2C.ReplyDelayMS < 40 {
		errs = append(errs, "backends.raw_i2c.reply_delay_ms must be at least 40")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is \"file\"")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr, or file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Durations returns the read, write and idle timeouts.
func (t APITimeoutConfig) Durations() (read, write, idle time.Duration) {
	return time.Duration(t.Read) * time.Second,
		time.Duration(t.Write) * time.Second,
		time.Duration(t.Idle) * time.Second
}

// Interval returns the scheduler tick interval.
func (b BrightnessConfig) Interval() time.Duration {
	return time.Duration(b.UpdateInterval) * time.Second
}
