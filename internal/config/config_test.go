package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse_YAMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
storage: bolt
bolt_path: /tmp/x.bolt
engine:
  bandit_blend: 0.8
  active_strategy: thompson
defaults:
  domain: blog
`)
	cfg, err := Parse(data, ".yml")
	require.NoError(t, err)

	assert.Equal(t, StorageBolt, cfg.Storage)
	assert.Equal(t, 0.8, cfg.Engine.BanditBlend)
	assert.Equal(t, bandit.StrategyThompson, cfg.Engine.ActiveStrategy)
	assert.Equal(t, "blog", cfg.Defaults.Domain)
	assert.Equal(t, "medium", cfg.Defaults.Density, "unset defaults keep their values")
	assert.Equal(t, 32, cfg.Engine.BatchSize)
	require.NoError(t, cfg.Validate())
}

func TestParse_JSONBySniffing(t *testing.T) {
	cfg, err := Parse([]byte(`{"http_addr": ":9999", "adaptive": false}`), "")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.False(t, cfg.Adaptive)
	assert.Equal(t, ":50061", cfg.GRPCAddr)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"storage": `), ".json")
	assert.ErrorContains(t, err, "parse config json")
	_, err = Parse([]byte("storage: [unclosed"), ".yaml")
	assert.ErrorContains(t, err, "parse config yaml")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7000\"\n"), 0o644))
	t.Setenv("LAYOUT_HTTP_ADDR", ":7100")
	t.Setenv("LAYOUT_DB", "/var/lib/layout.db")
	t.Setenv("LAYOUT_STORAGE", "memory")
	t.Setenv("LAYOUT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.HTTPAddr)
	assert.Equal(t, "/var/lib/layout.db", cfg.DBPath)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown storage":      func(c *Config) { c.Storage = "s3" },
		"bolt without path":    func(c *Config) { c.Storage = StorageBolt; c.BoltPath = "" },
		"no db path":           func(c *Config) { c.DBPath = "" },
		"no listeners":         func(c *Config) { c.GRPCAddr, c.HTTPAddr = "", "" },
		"bad log format":       func(c *Config) { c.LogFormat = "xml" },
		"negative cache":       func(c *Config) { c.CacheEntries = -1 },
		"invalid engine":       func(c *Config) { c.Engine.BanditBlend = 2 },
		"negative max penalty": func(c *Config) { c.Signals.MaxPenalty = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
