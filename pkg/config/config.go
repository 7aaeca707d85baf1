package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/detector"
)

// Flight-data providers
const (
	ProviderFR24    = "fr24"
	ProviderAeroAPI = "aeroapi"
)

// Config represents the complete application configuration.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
type Config struct {
	Area       AreaConfig       `json:"area" yaml:"area"`
	Detection  detector.Params  `json:"detection" yaml:"detection"`
	Filter     FilterConfig     `json:"filter" yaml:"filter"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	FlightData FlightDataConfig `json:"flight_data" yaml:"flight_data"`
	Geocoder   GeocoderConfig   `json:"geocoder" yaml:"geocoder"`
	Database   DatabaseConfig   `json:"database" yaml:"database"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Schedule   ScheduleConfig   `json:"schedule" yaml:"schedule"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// AreaConfig describes the watched area.
type AreaConfig struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude" yaml:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude" yaml:"longitude"`

	// RadiusMeters is the search radius around the center
	RadiusMeters float64 `json:"radius_meters" yaml:"radius_meters"`

	// Address is optional; when set it is geocoded and replaces the
	// coordinates above, which then serve as the fallback
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Area converts the section into a search area.
func (a AreaConfig) Area() coordinates.Area {
	return coordinates.Area{
		Center:       coordinates.Geographic{Latitude: a.Latitude, Longitude: a.Longitude},
		RadiusMeters: a.RadiusMeters,
	}
}

// FilterConfig controls which candidate flights are considered.
type FilterConfig struct {
	// ExcludedManufacturers are case-insensitive model prefixes to drop
	ExcludedManufacturers []string `json:"excluded_manufacturers" yaml:"excluded_manufacturers"`
}

// OutputConfig controls where verdicts go and how chatty runs are.
type OutputConfig struct {
	// LogPath is the daily verdict log (4-line text records)
	LogPath string `json:"log_path" yaml:"log_path"`

	// Verbose prints per-flight details and per-half statistics
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// FlightDataConfig contains flight-tracking provider settings.
type FlightDataConfig struct {
	// Provider selects the source: "fr24" (default) or "aeroapi"
	Provider string `json:"provider" yaml:"provider"`

	// FeedURL lists flights in a bounding box
	FeedURL string `json:"feed_url" yaml:"feed_url"`

	// DetailsURL returns trail and metadata for one flight
	DetailsURL string `json:"details_url" yaml:"details_url"`

	// RequestsPerMinute paces all provider calls
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// TimeoutSeconds is the per-request HTTP timeout
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`

	// AeroAPIURL and AeroAPIKey configure the FlightAware provider
	AeroAPIURL string `json:"aeroapi_url,omitempty" yaml:"aeroapi_url,omitempty"`
	AeroAPIKey string `json:"aeroapi_key,omitempty" yaml:"aeroapi_key,omitempty"`
}

// GeocoderConfig contains address resolution settings.
type GeocoderConfig struct {
	// Enabled allows address lookups; when false only coordinates are used
	Enabled bool `json:"enabled" yaml:"enabled"`

	// BaseURL is the Photon API endpoint
	BaseURL string `json:"base_url" yaml:"base_url"`

	// UserAgent is sent with every lookup
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// DatabaseConfig contains the optional PostgreSQL mirror settings.
type DatabaseConfig struct {
	// Enabled mirrors recorded verdicts into PostgreSQL
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Host is the database server hostname
	Host string `json:"host" yaml:"host"`

	// Port is the database server port
	Port int `json:"port" yaml:"port"`

	// Database is the database name
	Database string `json:"database" yaml:"database"`

	// Username for database authentication
	Username string `json:"username" yaml:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password" yaml:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" yaml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`

	// RetentionDays prunes mirrored verdicts older than this (0 = keep all)
	RetentionDays int `json:"retention_days" yaml:"retention_days"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host" yaml:"host"`

	// Port is the HTTP server port (default: 8080)
	Port int `json:"port" yaml:"port"`

	// OperatorUser may trigger cycles through the API
	OperatorUser string `json:"operator_user" yaml:"operator_user"`

	// OperatorPasswordHash is a bcrypt hash of the operator password
	OperatorPasswordHash string `json:"operator_password_hash" yaml:"operator_password_hash"`

	// JWTSecret signs API tokens (should be loaded from environment)
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`

	// TokenHours is how long issued tokens stay valid
	TokenHours int `json:"token_hours" yaml:"token_hours"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ScheduleConfig controls the recurring watcher.
type ScheduleConfig struct {
	// IntervalSeconds between detection cycles (default: 300)
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds"`
}

// MetricsConfig controls the Prometheus endpoint of long-running commands.
type MetricsConfig struct {
	// Enabled exposes /metrics
	Enabled bool `json:"enabled" yaml:"enabled"`

	// ListenAddr is used by commands without their own HTTP server
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// Load reads configuration from a JSON or YAML file.
// If the file doesn't exist, returns a default configuration.
// Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration, choosing the format from the extension.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// DefaultConfig returns a configuration with sensible defaults.
// The area is centered on Utrecht with a 20 km radius.
func DefaultConfig() *Config {
	return &Config{
		Area: AreaConfig{
			Latitude:     52.089805,
			Longitude:    5.1075,
			RadiusMeters: 20000,
		},
		Detection: detector.DefaultParams(),
		Filter: FilterConfig{
			ExcludedManufacturers: []string{"Airbus", "Embraer", "Bombardier", "Boeing"},
		},
		Output: OutputConfig{
			LogPath: "flights_over_area.txt",
		},
		FlightData: FlightDataConfig{
			Provider:          ProviderFR24,
			FeedURL:           "https://data-cloud.flightradar24.com/zones/fcgi/feed.js",
			DetailsURL:        "https://data-live.flightradar24.com/clickhandler/",
			RequestsPerMinute: 30,
			TimeoutSeconds:    10,
		},
		Geocoder: GeocoderConfig{
			Enabled:   true,
			BaseURL:   "https://photon.komoot.io/api/",
			UserAgent: "ads-loiter/1.0",
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "adsloiter",
			Username:      "adsloiter",
			SSLMode:       "disable",
			MaxOpenConns:  5,
			MaxIdleConns:  2,
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			OperatorUser: "operator",
			TokenHours:   24,
		},
		Schedule: ScheduleConfig{
			IntervalSeconds: 300,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9108",
		},
	}
}

// Validate rejects configurations no command can run with.
func (c *Config) Validate() error {
	if err := c.Area.Area().Validate(); err != nil {
		return fmt.Errorf("area: %w", err)
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if strings.TrimSpace(c.Output.LogPath) == "" {
		return fmt.Errorf("output: log_path must not be empty")
	}
	if c.Schedule.IntervalSeconds <= 0 {
		return fmt.Errorf("schedule: interval_seconds must be positive, got %d", c.Schedule.IntervalSeconds)
	}
	if c.FlightData.RequestsPerMinute <= 0 {
		return fmt.Errorf("flight_data: requests_per_minute must be positive, got %d", c.FlightData.RequestsPerMinute)
	}
	switch c.FlightData.Provider {
	case ProviderFR24:
	case ProviderAeroAPI:
		if c.FlightData.AeroAPIKey == "" {
			return fmt.Errorf("flight_data: aeroapi_key required for provider %q", ProviderAeroAPI)
		}
	default:
		return fmt.Errorf("flight_data: unknown provider %q", c.FlightData.Provider)
	}
	if c.Database.Enabled && c.Database.Database == "" {
		return fmt.Errorf("database: name required when enabled")
	}
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows secrets and per-host settings to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("ADS_LOITER_LOG_PATH"); v != "" {
		c.Output.LogPath = v
	}
	if v := os.Getenv("ADS_LOITER_ADDRESS"); v != "" {
		c.Area.Address = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("ADS_LOITER_RADIUS_METERS"), 64); err == nil {
		c.Area.RadiusMeters = v
	}
	if v, err := strconv.Atoi(os.Getenv("ADS_LOITER_PORT")); err == nil {
		c.Server.Port = v
	}
	if v := os.Getenv("ADS_LOITER_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("ADS_LOITER_AEROAPI_KEY"); v != "" {
		c.FlightData.AeroAPIKey = v
	}
	if v := os.Getenv("ADS_LOITER_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("ADS_LOITER_OPERATOR_PASSWORD_HASH"); v != "" {
		c.Server.OperatorPasswordHash = v
	}
}
