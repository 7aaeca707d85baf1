package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Area defaults (Utrecht, 20 km)
	if cfg.Area.Latitude != 52.089805 || cfg.Area.Longitude != 5.1075 {
		t.Errorf("Expected Utrecht center, got %.6f, %.6f", cfg.Area.Latitude, cfg.Area.Longitude)
	}
	if cfg.Area.RadiusMeters != 20000 {
		t.Errorf("Expected radius 20000, got %.0f", cfg.Area.RadiusMeters)
	}

	// Detection defaults
	if cfg.Detection.MinAltitudeM != 500 || cfg.Detection.MaxAltitudeM != 5000 {
		t.Errorf("Expected band 500-5000, got %.0f-%.0f", cfg.Detection.MinAltitudeM, cfg.Detection.MaxAltitudeM)
	}
	if cfg.Detection.MinSamplesPerHalf != 10 {
		t.Errorf("Expected 10 samples per half, got %d", cfg.Detection.MinSamplesPerHalf)
	}
	if cfg.Detection.ToleranceDeg != 5 {
		t.Errorf("Expected tolerance 5, got %.1f", cfg.Detection.ToleranceDeg)
	}

	// Filter defaults
	want := []string{"Airbus", "Embraer", "Bombardier", "Boeing"}
	if len(cfg.Filter.ExcludedManufacturers) != len(want) {
		t.Fatalf("Expected %d excluded manufacturers, got %d", len(want), len(cfg.Filter.ExcludedManufacturers))
	}
	for i, m := range want {
		if cfg.Filter.ExcludedManufacturers[i] != m {
			t.Errorf("Expected %s at %d, got %s", m, i, cfg.Filter.ExcludedManufacturers[i])
		}
	}

	if cfg.Output.LogPath != "flights_over_area.txt" {
		t.Errorf("Expected flights_over_area.txt, got %s", cfg.Output.LogPath)
	}
	if cfg.Schedule.IntervalSeconds != 300 {
		t.Errorf("Expected 300s interval, got %d", cfg.Schedule.IntervalSeconds)
	}
	if cfg.Database.Enabled {
		t.Error("Expected database mirror disabled by default")
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.Server.Addr())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	if cfg.Area.RadiusMeters != 20000 {
		t.Error("Did not get default config for non-existent file")
	}
}

// TestLoadJSON tests loading a partial JSON file over the defaults.
func TestLoadJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "loiter.json")
	content := `{
		"area": {"latitude": 51.92, "longitude": 4.48, "radius_meters": 15000},
		"detection": {"min_altitude_m": 300, "max_altitude_m": 3000, "min_samples_per_half": 8, "tolerance_deg": 4},
		"output": {"log_path": "/var/lib/loiter/log.txt", "verbose": true}
	}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Area.Latitude != 51.92 || cfg.Area.RadiusMeters != 15000 {
		t.Errorf("Expected area override, got %+v", cfg.Area)
	}
	if cfg.Detection.MaxAltitudeM != 3000 || cfg.Detection.MinSamplesPerHalf != 8 {
		t.Errorf("Expected detection override, got %+v", cfg.Detection)
	}
	if !cfg.Output.Verbose {
		t.Error("Expected verbose true")
	}
	// Untouched sections keep defaults
	if cfg.Schedule.IntervalSeconds != 300 {
		t.Errorf("Expected default interval, got %d", cfg.Schedule.IntervalSeconds)
	}
	if len(cfg.Filter.ExcludedManufacturers) != 4 {
		t.Errorf("Expected default exclusions, got %v", cfg.Filter.ExcludedManufacturers)
	}
}

// TestLoadYAML tests YAML parsing by extension.
func TestLoadYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "loiter.yaml")
	content := `
area:
  address: "Stadsplateau 1, Utrecht"
  radius_meters: 10000
filter:
  excluded_manufacturers: [Airbus, Boeing]
schedule:
  interval_seconds: 120
database:
  enabled: true
  host: db.internal
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Area.Address != "Stadsplateau 1, Utrecht" {
		t.Errorf("Expected address, got %q", cfg.Area.Address)
	}
	if cfg.Area.Latitude != 52.089805 {
		t.Errorf("Expected default latitude kept as fallback, got %f", cfg.Area.Latitude)
	}
	if len(cfg.Filter.ExcludedManufacturers) != 2 {
		t.Errorf("Expected 2 exclusions, got %v", cfg.Filter.ExcludedManufacturers)
	}
	if cfg.Schedule.IntervalSeconds != 120 {
		t.Errorf("Expected 120, got %d", cfg.Schedule.IntervalSeconds)
	}
	if !cfg.Database.Enabled || cfg.Database.Host != "db.internal" || cfg.Database.Port != 5432 {
		t.Errorf("Expected database override with default port, got %+v", cfg.Database)
	}
}

// TestLoadInvalidFile tests parse errors.
func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()

	jsonPath := filepath.Join(tmpDir, "bad.json")
	os.WriteFile(jsonPath, []byte("{not json"), 0644)
	if _, err := Load(jsonPath); err == nil {
		t.Error("Expected error for invalid JSON")
	}

	yamlPath := filepath.Join(tmpDir, "bad.yml")
	os.WriteFile(yamlPath, []byte("area: [unterminated"), 0644)
	if _, err := Load(yamlPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

// TestSaveRoundTrip tests that saved files load back identically.
func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"nested/dir/config.json", "nested/config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Area.RadiusMeters = 12345
			cfg.Filter.ExcludedManufacturers = []string{"ATR"}

			if err := cfg.Save(path); err != nil {
				t.Fatalf("Failed to save: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			if loaded.Area.RadiusMeters != 12345 {
				t.Errorf("Expected 12345, got %.0f", loaded.Area.RadiusMeters)
			}
			if len(loaded.Filter.ExcludedManufacturers) != 1 || loaded.Filter.ExcludedManufacturers[0] != "ATR" {
				t.Errorf("Expected [ATR], got %v", loaded.Filter.ExcludedManufacturers)
			}
		})
	}

	t.Run("JSON is indented", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := DefaultConfig().Save(path); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		data, _ := os.ReadFile(path)
		var generic map[string]interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			t.Fatalf("Saved file is not JSON: %v", err)
		}
		if _, ok := generic["flight_data"]; !ok {
			t.Error("Expected flight_data key in saved JSON")
		}
	})
}

// TestEnvironmentOverrides tests environment variable overrides.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ADS_LOITER_LOG_PATH", "/tmp/env-log.txt")
	t.Setenv("ADS_LOITER_RADIUS_METERS", "5000")
	t.Setenv("ADS_LOITER_PORT", "9090")
	t.Setenv("ADS_LOITER_DB_PASSWORD", "s3cret")
	t.Setenv("ADS_LOITER_JWT_SECRET", "jwt-secret")
	t.Setenv("ADS_LOITER_AEROAPI_KEY", "aero-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.Output.LogPath != "/tmp/env-log.txt" {
		t.Errorf("Expected env log path, got %s", cfg.Output.LogPath)
	}
	if cfg.Area.RadiusMeters != 5000 {
		t.Errorf("Expected env radius, got %.0f", cfg.Area.RadiusMeters)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected env port, got %d", cfg.Server.Port)
	}
	if cfg.Database.Password != "s3cret" {
		t.Error("Expected env database password")
	}
	if cfg.Server.JWTSecret != "jwt-secret" {
		t.Error("Expected env JWT secret")
	}
	if cfg.FlightData.AeroAPIKey != "aero-key" {
		t.Error("Expected env AeroAPI key")
	}
}

// TestValidate tests configuration validation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Zero radius", func(c *Config) { c.Area.RadiusMeters = 0 }},
		{"Latitude out of range", func(c *Config) { c.Area.Latitude = 95 }},
		{"Inverted band", func(c *Config) { c.Detection.MaxAltitudeM = 100 }},
		{"Empty log path", func(c *Config) { c.Output.LogPath = " " }},
		{"Zero interval", func(c *Config) { c.Schedule.IntervalSeconds = 0 }},
		{"Zero request rate", func(c *Config) { c.FlightData.RequestsPerMinute = 0 }},
		{"Database without name", func(c *Config) { c.Database.Enabled = true; c.Database.Database = "" }},
		{"Unknown provider", func(c *Config) { c.FlightData.Provider = "opensky" }},
		{"AeroAPI without key", func(c *Config) { c.FlightData.Provider = ProviderAeroAPI }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
