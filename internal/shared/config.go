package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	YouTube   YouTubeConfig   `toml:"youtube"`
	Fallback  FallbackConfig  `toml:"fallback"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Downloads DownloadsConfig `toml:"downloads"`
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig contains settings for the local audio proxy listener.
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	StartupDelayMS int    `toml:"startup_delay_ms"`
}

// YouTubeConfig contains settings for the Innertube API.
type YouTubeConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Language       string  `toml:"hl"`
	Region         string  `toml:"gl"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	RateBurst      int     `toml:"rate_burst"`
}

// FallbackConfig lists the secondary stream providers tried after every persona failed.
type FallbackConfig struct {
	Instances      []string `toml:"instances"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// ProxyConfig contains the upstream fetch policy of the range proxy.
type ProxyConfig struct {
	InitialWindow  int64  `toml:"initial_window"`
	MaxWindow      int64  `toml:"max_window"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DownloadsConfig contains download-to-disk settings.
type DownloadsConfig struct {
	Dir       string  `toml:"dir"`
	Subdir    string  `toml:"subdir"`
	UserAgent string  `toml:"user_agent"`
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains log level and optional rotating file output.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values the proxy and resolver cannot run without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("%w: youtube api_key is empty", ErrInvalidConfig)
	}
	if c.Proxy.InitialWindow <= 0 || c.Proxy.MaxWindow <= 0 {
		return fmt.Errorf("%w: proxy windows must be positive", ErrInvalidConfig)
	}
	return nil
}

// ProxyBaseURL is the loopback origin handed to playback clients.
func (c *Config) ProxyBaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
}

// ListenAddr is the address the proxy binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StartupDelay is how long serve waits before binding the proxy port.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.Server.StartupDelayMS) * time.Millisecond
}

// Seconds converts a config timeout into a [time.Duration], using fallback for non-positive values.
func Seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
