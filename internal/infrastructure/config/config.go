package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hearth Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	History   HistoryConfig   `yaml:"history"`
	Entries   []EntrySeed     `yaml:"entries"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker is optional; push integrations refuse to set up without it.
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

// InfluxDBConfig contains InfluxDB connection settings for long-term
// entity state history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// APIAuthConfig contains bearer token settings for the API.
// With an empty secret the API runs unauthenticated (development only).
type APIAuthConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // minutes
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// HistoryConfig contains entity state history settings.
type HistoryConfig struct {
	// Enabled controls the SQLite recent-history store.
	Enabled bool `yaml:"enabled"`

	// RetentionHours is how long recent history rows are kept.
	RetentionHours int `yaml:"retention_hours"`

	// PruneInterval is how often expired rows are removed, in minutes.
	PruneInterval int `yaml:"prune_interval"`
}

// EntrySeed describes a config entry created on first boot if no entry for
// its domain and title exists yet. Used to provision installations from the
// config file instead of the API.
type EntrySeed struct {
	Domain  string         `yaml:"domain"`
	Title   string         `yaml:"title"`
	Data    map[string]any `yaml:"data"`
	Options map[string]any `yaml:"options"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEARTH_SECTION_KEY
// For example: HEARTH_DATABASE_PATH, HEARTH_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Hearth",
		},
		Database: DatabaseConfig{
			Path:        "./data/hearth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hearth-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8423,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				TokenTTL: 60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		History: HistoryConfig{
			Enabled:        true,
			RetentionHours: 72,
			PruneInterval:  30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEARTH_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HEARTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HEARTH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEARTH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEARTH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HEARTH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HEARTH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HEARTH_API_SECRET"); v != "" {
		cfg.API.Auth.Secret = v
	}

	// InfluxDB
	if v := os.Getenv("HEARTH_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("HEARTH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("HEARTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors and normalises values.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyTimeout <= 0 {
		c.Database.BusyTimeout = 5
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", c.API.Port)
	}
	if c.API.Auth.TokenTTL <= 0 {
		c.API.Auth.TokenTTL = 60
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			return fmt.Errorf("mqtt.broker.port must be 1-65535, got %d", c.MQTT.Broker.Port)
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	if c.History.RetentionHours <= 0 {
		c.History.RetentionHours = 72
	}
	if c.History.PruneInterval <= 0 {
		c.History.PruneInterval = 30
	}

	for i, seed := range c.Entries {
		if seed.Domain == "" {
			return fmt.Errorf("entries[%d].domain is required", i)
		}
		if seed.Title == "" {
			return fmt.Errorf("entries[%d].title is required", i)
		}
	}

	return nil
}
