package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "app-shell-v1", cfg.ShellCache)
	assert.Equal(t, "dynamic-cache-v1", cfg.DynamicCache)
	assert.Equal(t, "/offline.html", cfg.Fallback)
	assert.Equal(t, StrategyCacheOnly, cfg.Strategies.Shell)
	assert.Equal(t, StrategyCacheFirst, cfg.Strategies.Dynamic)
	assert.Len(t, cfg.Manifest.Shell, 6)
	assert.Len(t, cfg.Manifest.Dynamic, 6)
}

func TestLoadConfig(t *testing.T) {
	doc := `
shell_cache: app-shell-v2
dynamic_cache: dynamic-cache-v2
origin: https://calendar.example.org
fallback: /index.html
strategies:
  dynamic: cache-first
shell:
  - /
  - /index.html
  - /app.js
dynamic_hosts:
  - cdn.jsdelivr.net
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "app-shell-v2", cfg.ShellCache)
	assert.Equal(t, "dynamic-cache-v2", cfg.DynamicCache)
	assert.Equal(t, "https://calendar.example.org", cfg.Origin)
	assert.Equal(t, "/index.html", cfg.Fallback)
	assert.Equal(t, StrategyCacheOnly, cfg.Strategies.Shell, "unset keys keep defaults")
	assert.Equal(t, []string{"/", "/index.html", "/app.js"}, cfg.Manifest.Shell)
	assert.Len(t, cfg.Manifest.Dynamic, 6)
	assert.Equal(t, []string{"cdn.jsdelivr.net"}, cfg.Manifest.DynamicHosts)
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown field", "shell_cashe: x\n", "decode config"},
		{"malformed", "shell: [\n", "decode config"},
		{"fallback not in shell", "fallback: /missing.html\n", "not a shell asset"},
		{"unknown strategy", "strategies:\n  shell: network-first\n", "unknown strategy"},
		{"relative dynamic", "dynamic:\n  - /lib.js\n", "must be an absolute URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing shell cache", func(c *Config) { c.ShellCache = "" }, "shell_cache is required"},
		{"missing dynamic cache", func(c *Config) { c.DynamicCache = "" }, "dynamic_cache is required"},
		{"same names", func(c *Config) { c.DynamicCache = c.ShellCache }, "must differ"},
		{"missing origin", func(c *Config) { c.Origin = "" }, "origin is required"},
		{"relative origin", func(c *Config) { c.Origin = "localhost" }, "absolute URL"},
		{"no shell needs no origin", func(c *Config) {
			c.Origin = ""
			c.Fallback = ""
			c.Manifest.Shell = nil
		}, ""},
		{"no fallback", func(c *Config) { c.Fallback = "" }, ""},
		{"relative shell entry", func(c *Config) { c.Manifest.Shell = append(c.Manifest.Shell, "main.css") }, "absolute path"},
		{"host with scheme", func(c *Config) { c.Manifest.DynamicHosts = []string{"https://cdn.example"} }, "bare host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
