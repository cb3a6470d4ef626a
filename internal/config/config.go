// Package config loads the service configuration from YAML or JSON with
// environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
	StorageMemory = "memory"
)

// #region config
// Config is the full service configuration.
type Config struct {
	Storage         string                 `json:"storage" yaml:"storage"`
	DBPath          string                 `json:"db_path" yaml:"db_path"`     // SQLite snapshots and provenance
	BoltPath        string                 `json:"bolt_path" yaml:"bolt_path"` // used when Storage is bolt
	GRPCAddr        string                 `json:"grpc_addr" yaml:"grpc_addr"`
	HTTPAddr        string                 `json:"http_addr" yaml:"http_addr"`
	LogLevel        string                 `json:"log_level" yaml:"log_level"`
	LogFormat       string                 `json:"log_format" yaml:"log_format"` // text | json
	Catalog         string                 `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Adaptive        bool                   `json:"adaptive" yaml:"adaptive"`
	CacheEntries    int                    `json:"cache_entries" yaml:"cache_entries"` // 0 = unbounded
	TelemetryBuffer int                    `json:"telemetry_buffer" yaml:"telemetry_buffer"`
	Defaults        intent.Defaults        `json:"defaults" yaml:"defaults"`
	Engine          engine.Config          `json:"engine" yaml:"engine"`
	Signals         signals.ProducerConfig `json:"signals" yaml:"signals"`
}

// Default returns a runnable configuration: SQLite in the working
// directory, gRPC on :50061 and HTTP on :8080.
func Default() Config {
	return Config{
		Storage:         StorageSQLite,
		DBPath:          "adaptive_layout.db",
		BoltPath:        "adaptive_layout.bolt",
		GRPCAddr:        ":50061",
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		Adaptive:        true,
		CacheEntries:    4096,
		TelemetryBuffer: 256,
		Defaults:        intent.DefaultDefaults(),
		Engine:          engine.DefaultConfig(),
		Signals:         signals.DefaultProducerConfig(),
	}
}

// #endregion config

// #region load
// Load reads path on top of Default and applies environment overrides.
// An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data, filepath.Ext(path)); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// Parse decodes config bytes on top of Default. ext is a format hint
// (".yaml", ".yml", ".json"); empty means detect from content.
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config json: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

// #endregion load

// #region env
// ApplyEnv overrides fields from LAYOUT_* environment variables.
func (c *Config) ApplyEnv() {
	c.DBPath = envOr("LAYOUT_DB", c.DBPath)
	c.BoltPath = envOr("LAYOUT_BOLT", c.BoltPath)
	c.Storage = envOr("LAYOUT_STORAGE", c.Storage)
	c.GRPCAddr = envOr("LAYOUT_GRPC_ADDR", c.GRPCAddr)
	c.HTTPAddr = envOr("LAYOUT_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = envOr("LAYOUT_LOG_LEVEL", c.LogLevel)
	c.Catalog = envOr("LAYOUT_CATALOG", c.Catalog)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env

// #region validate
// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case !slices.Contains([]string{StorageSQLite, StorageBolt, StorageMemory}, c.Storage):
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	case c.Storage == StorageBolt && c.BoltPath == "":
		return fmt.Errorf("config: bolt storage needs bolt_path")
	case c.DBPath == "":
		return fmt.Errorf("config: db_path is required")
	case c.GRPCAddr == "" && c.HTTPAddr == "":
		return fmt.Errorf("config: at least one of grpc_addr and http_addr is required")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	case c.CacheEntries < 0:
		return fmt.Errorf("config: cache_entries must not be negative")
	case c.Signals.MaxPenalty < 0:
		return fmt.Errorf("config: signals.max_penalty must not be negative")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// #endregion validate
