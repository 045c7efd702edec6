package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("shoptalk-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Warehouse.Driver != DriverDuckDB {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.MaxOpenConns != 10 {
		t.Fatalf("Warehouse.MaxOpenConns = %d", cfg.Warehouse.MaxOpenConns)
	}
	if cfg.AI.Model != "gpt-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("AI.Timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Schema.SampleRows != 5 {
		t.Fatalf("Schema.SampleRows = %d", cfg.Schema.SampleRows)
	}
	if cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should default to false")
	}
}

func TestLoadProdProfileTightensDefaults(t *testing.T) {
	cfg, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_PROFILE": "prod",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Archive.UseSSL {
		t.Fatal("Archive.UseSSL should be true in prod")
	}
	if cfg.Archive.AutoCreateBucket {
		t.Fatal("Archive.AutoCreateBucket should be false in prod")
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_HTTP_ADDR":               ":9090",
		"SHOPTALK_WAREHOUSE_DRIVER":        "postgres",
		"SHOPTALK_WAREHOUSE_POSTGRES_DSN":  "postgres://localhost:5432/shop",
		"SHOPTALK_WAREHOUSE_MAX_OPEN_CONNS": "3",
		"SHOPTALK_AI_API_KEY":              "sk-test",
		"SHOPTALK_AI_TEMPERATURE":          "0.4",
		"SHOPTALK_AI_TIMEOUT":              "5s",
		"SHOPTALK_LOG_LEVEL":               "warn",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Warehouse.Driver != DriverPostgres {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.MaxOpenConns != 3 {
		t.Fatalf("Warehouse.MaxOpenConns = %d", cfg.Warehouse.MaxOpenConns)
	}
	if cfg.AI.Temperature != 0.4 {
		t.Fatalf("AI.Temperature = %v", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 5*time.Second {
		t.Fatalf("AI.Timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	_, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_PROFILE": "staging",
	}))
	if err == nil {
		t.Fatal("Load() expected error for invalid profile")
	}
}

func TestLoadRejectsInvalidDriver(t *testing.T) {
	_, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_WAREHOUSE_DRIVER": "sqlite",
	}))
	if err == nil {
		t.Fatal("Load() expected error for invalid driver")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	_, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_AI_TIMEOUT": "soon",
	}))
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
}

func TestValidateForServingRequiresAPIKey(t *testing.T) {
	cfg, err := Load("shoptalk-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err = cfg.ValidateForServing()
	if err == nil {
		t.Fatal("ValidateForServing() expected error without API key")
	}
	if !strings.Contains(err.Error(), "SHOPTALK_AI_API_KEY") {
		t.Fatalf("error = %v", err)
	}
}

func TestValidateForServingRequiresPostgresDSN(t *testing.T) {
	cfg, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_AI_API_KEY":       "sk-test",
		"SHOPTALK_WAREHOUSE_DRIVER": "postgres",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.ValidateForServing(); err == nil {
		t.Fatal("ValidateForServing() expected error without postgres DSN")
	}
}

func TestValidateForServingRequiresArchiveBucket(t *testing.T) {
	cfg, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_AI_API_KEY":      "sk-test",
		"SHOPTALK_ARCHIVE_ENABLED": "true",
		"SHOPTALK_ARCHIVE_BUCKET":  "",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.ValidateForServing(); err == nil {
		t.Fatal("ValidateForServing() expected error without archive bucket")
	}
}

func TestValidateForServingAccepts(t *testing.T) {
	cfg, err := Load("shoptalk-api", mapLookup(map[string]string{
		"SHOPTALK_AI_API_KEY": "sk-test",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.ValidateForServing(); err != nil {
		t.Fatalf("ValidateForServing() error = %v", err)
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
