package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Relay  RelayConfig  `yaml:"relay"`
	Limits LimitsConfig `yaml:"limits"`
	Log    LogConfig    `yaml:"log"`
}

// RelayConfig relay listener and telemetry configuration
type RelayConfig struct {
	BindAddr      string `yaml:"bind_addr"`      // Relay listening address (format: ip:port or :port, e.g., ":7711")
	ListenAddress string `yaml:"listen_address"` // Metrics listener address
	TelemetryPath string `yaml:"telemetry_path"` // Metrics path
	ServerName    string `yaml:"server_name"`    // Display name used in server-originated lines
	Welcome       string `yaml:"welcome"`        // Welcome banner sent to every new peer
}

// LimitsConfig per-peer and process-wide resource limits
type LimitsConfig struct {
	MaxPeers        int `yaml:"max_peers"`         // Max simultaneously connected peers (0 means unlimited)
	MaxLineBytes    int `yaml:"max_line_bytes"`    // A peer sending a longer unterminated line is dropped
	ReadBufferBytes int `yaml:"read_buffer_bytes"` // Size of the per-read transfer buffer
	WriteTimeout    int `yaml:"write_timeout"`     // Outbound write deadline in seconds
	TickInterval    int `yaml:"tick_interval"`     // Hub liveness tick in seconds (periodic work hook)
}

// LogConfig log configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		// Try default path
		configPath = "config.yaml"
	}

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	// Set default values
	config.SetDefaults()

	// Apply environment variable overrides
	config.ApplyEnvOverrides()

	return &config, nil
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	if c.Relay.BindAddr == "" {
		c.Relay.BindAddr = ":7711"
	}
	if c.Relay.ListenAddress == "" {
		c.Relay.ListenAddress = ":9090"
	}
	if c.Relay.TelemetryPath == "" {
		c.Relay.TelemetryPath = "/metrics"
	}
	if c.Relay.ServerName == "" {
		c.Relay.ServerName = "server"
	}
	if c.Relay.Welcome == "" {
		c.Relay.Welcome = "Welcome to Simple Chat! Use /nick <nick> to set your nick."
	}

	if c.Limits.MaxPeers == 0 {
		c.Limits.MaxPeers = 1000
	}
	if c.Limits.MaxLineBytes == 0 {
		c.Limits.MaxLineBytes = 64 * 1024
	}
	if c.Limits.ReadBufferBytes == 0 {
		c.Limits.ReadBufferBytes = 4096
	}
	if c.Limits.WriteTimeout == 0 {
		c.Limits.WriteTimeout = 10
	}
	if c.Limits.TickInterval == 0 {
		c.Limits.TickInterval = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// GetWriteTimeout gets the outbound write deadline
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Limits.WriteTimeout) * time.Second
}

// GetTickInterval gets the hub liveness tick interval
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Limits.TickInterval) * time.Second
}

// ApplyEnvOverrides applies environment variable overrides
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("RELAY_BIND_ADDR"); val != "" {
		c.Relay.BindAddr = val
	}
	if val := os.Getenv("RELAY_LISTEN_ADDRESS"); val != "" {
		c.Relay.ListenAddress = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_PATH"); val != "" {
		c.Relay.TelemetryPath = val
	}
	if val := os.Getenv("RELAY_SERVER_NAME"); val != "" {
		c.Relay.ServerName = val
	}
	if val := os.Getenv("RELAY_WELCOME"); val != "" {
		c.Relay.Welcome = val
	}

	if val := os.Getenv("RELAY_MAX_PEERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Limits.MaxPeers = i
		}
	}
	if val := os.Getenv("RELAY_MAX_LINE_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Limits.MaxLineBytes = i
		}
	}
	if val := os.Getenv("RELAY_READ_BUFFER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Limits.ReadBufferBytes = i
		}
	}
	if val := os.Getenv("RELAY_WRITE_TIMEOUT_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Limits.WriteTimeout = i
		}
	}
	if val := os.Getenv("RELAY_TICK_INTERVAL_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Limits.TickInterval = i
		}
	}

	// Log config
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
}
