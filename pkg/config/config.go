package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Stations   []StationConfig  `mapstructure:"stations"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Directions DirectionsConfig `mapstructure:"directions"`
	Web        WebConfig        `mapstructure:"web"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds server identification
type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// StationConfig describes a single display station: its service area, the
// origin coordinate used for directions lookups, and the address pattern a
// connecting display must match to represent it.
type StationConfig struct {
	ID      string  `mapstructure:"id"`
	Area    string  `mapstructure:"area"`
	Lat     float64 `mapstructure:"lat"`
	Lng     float64 `mapstructure:"lng"`
	IPMatch string  `mapstructure:"ip_match"`
}

// DispatchConfig holds call routing parameters
type DispatchConfig struct {
	HistoryLimit int `mapstructure:"history_limit"` // Max retained call entries
	DisplayTTL   int `mapstructure:"display_ttl"`   // Seconds a call stays active for replay-on-connect
	StatusPosts  int `mapstructure:"status_posts"`  // Delivery posts shown per connection on the status surface
}

// DirectionsConfig holds directions provider configuration
type DirectionsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	APIKey          string `mapstructure:"api_key"`
	StaticMapsKey   string `mapstructure:"static_maps_key"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	AddressSuffix   string `mapstructure:"address_suffix"`   // Appended to textual destinations
	DistanceCeiling int    `mapstructure:"distance_ceiling"` // Meters; routes at or above are discarded
}

// WebConfig holds HTTP server configuration
type WebConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ArchiveConfig holds the call archive database configuration
type ArchiveConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"` // 0 keeps rows forever
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Set config file
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/dispatch-relay")
	}

	// Environment variables
	viper.SetEnvPrefix("DISPATCH")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal to struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.name", "Dispatch-Relay")
	viper.SetDefault("server.description", "911 call relay for station displays")

	// Dispatch defaults
	viper.SetDefault("dispatch.history_limit", 20)
	viper.SetDefault("dispatch.display_ttl", 600)
	viper.SetDefault("dispatch.status_posts", 20)

	// Directions defaults
	viper.SetDefault("directions.enabled", true)
	viper.SetDefault("directions.timeout_seconds", 15)
	viper.SetDefault("directions.address_suffix", "")
	viper.SetDefault("directions.distance_ceiling", 160934) // 100 miles

	// Web defaults
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 3000)

	// Archive defaults
	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.path", "dispatch-relay.db")
	viper.SetDefault("archive.retention_days", 0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
