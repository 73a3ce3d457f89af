package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10, cfg.MaxInstances)
	require.Equal(t, "dark", cfg.DefaultTheme)
	require.Equal(t, AutoStartModeManager, cfg.AutoStart.Mode)
	require.Equal(t, 2*time.Second, cfg.Startup.Delay)
	require.Equal(t, 500*time.Millisecond, cfg.Startup.Stagger)
	require.False(t, cfg.Create.Launch)
	require.False(t, cfg.Create.AutoStart)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cap", func(c *Config) { c.MaxInstances = 0 }},
		{"unknown theme", func(c *Config) { c.DefaultTheme = "neon" }},
		{"empty widget command", func(c *Config) { c.Widget.Command = nil }},
		{"blank widget arg", func(c *Config) { c.Widget.Command = []string{"w", ""} }},
		{"bad autostart mode", func(c *Config) { c.AutoStart.Mode = "cron" }},
		{"negative stagger", func(c *Config) { c.Startup.Stagger = -time.Second }},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }},
		{"otlp without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = ExporterOTLP
			c.Tracing.OTLPEndpoint = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestResolve_DerivesPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults()
	cfg.DataDir = dir

	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	require.Equal(t, dir, resolved.DataDir)
	require.Equal(t, filepath.Join(dir, ".smart_notes_history.db"), resolved.History.Path)
	require.Equal(t, filepath.Join(dir, ".smart_notes_traces.jsonl"), resolved.Tracing.FilePath)
}

func TestResolve_DefaultsToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	resolved, err := Defaults().Resolve()
	require.NoError(t, err)
	require.Equal(t, home, resolved.DataDir)

	cfg := Defaults()
	cfg.DataDir = "~/notes"
	resolved, err = cfg.Resolve()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "notes"), resolved.DataDir)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# smartnotes configuration")

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.Equal(t, 10, raw["max_instances"])
	startup, ok := raw["startup"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2s", startup["delay"])
}
