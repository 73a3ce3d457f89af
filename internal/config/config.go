// Package config provides configuration types, defaults, and validation for
// smartnotes. The Config value is built once at startup and passed to every
// component; nothing reads file locations from package globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/zjrosen/smartnotes/internal/log"
)

// Auto-start modes.
const (
	// AutoStartModeManager installs one global startup entry that runs
	// `smartnotes startup`, which relaunches every registry entry.
	AutoStartModeManager = "manager"
	// AutoStartModeDirect installs one startup entry per instance that
	// invokes the widget directly.
	AutoStartModeDirect = "direct"
)

// Tracing exporters.
const (
	ExporterNone   = "none"
	ExporterFile   = "file"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config holds all configuration options for smartnotes.
type Config struct {
	// DataDir holds every .smart_notes_* file. Empty means the user's home.
	DataDir             string          `mapstructure:"data_dir" yaml:"data_dir"`
	MaxInstances        int             `mapstructure:"max_instances" yaml:"max_instances"`
	DefaultTheme        string          `mapstructure:"default_theme" yaml:"default_theme"`
	AutoRefresh         bool            `mapstructure:"auto_refresh" yaml:"auto_refresh"`
	AutoRefreshDebounce time.Duration   `mapstructure:"auto_refresh_debounce" yaml:"auto_refresh_debounce"`
	Widget              WidgetConfig    `mapstructure:"widget" yaml:"widget"`
	Create              CreateConfig    `mapstructure:"create" yaml:"create"`
	AutoStart           AutoStartConfig `mapstructure:"autostart" yaml:"autostart"`
	Startup             StartupConfig   `mapstructure:"startup" yaml:"startup"`
	History             HistoryConfig   `mapstructure:"history" yaml:"history"`
	Tracing             TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// WidgetConfig describes how to start a widget process. The instance id is
// appended as `--instance-id <id>`.
type WidgetConfig struct {
	Command []string `mapstructure:"command" yaml:"command"`
}

// CreateConfig controls what happens right after an instance is created.
type CreateConfig struct {
	Launch    bool `mapstructure:"launch" yaml:"launch"`
	AutoStart bool `mapstructure:"auto_start" yaml:"auto_start"`
}

// AutoStartConfig selects how instances are hooked into OS startup.
type AutoStartConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"` // "manager" (default) or "direct"
}

// StartupConfig tunes the boot-time relaunch.
type StartupConfig struct {
	Delay   time.Duration `mapstructure:"delay" yaml:"delay"`
	Stagger time.Duration `mapstructure:"stagger" yaml:"stagger"`
}

// HistoryConfig controls the SQLite launch journal.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // default: <data_dir>/.smart_notes_history.db
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter     string  `mapstructure:"exporter" yaml:"exporter"` // none, file, stdout, otlp
	FilePath     string  `mapstructure:"file_path" yaml:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		MaxInstances:        10,
		DefaultTheme:        "dark",
		AutoRefresh:         true,
		AutoRefreshDebounce: 300 * time.Millisecond,
		Widget:              WidgetConfig{Command: []string{"smartnotes-widget"}},
		AutoStart:           AutoStartConfig{Mode: AutoStartModeManager},
		Startup: StartupConfig{
			Delay:   2 * time.Second,
			Stagger: 500 * time.Millisecond,
		},
		History: HistoryConfig{Enabled: true},
		Tracing: TracingConfig{
			Exporter:     ExporterFile,
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// DefaultConfigPath returns ~/.config/smartnotes/config.yaml, or "" when the
// home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "smartnotes", "config.yaml")
}

// Resolve fills in locations derived from other settings: the data
// directory falls back to the home directory, and the history and trace
// paths live inside it unless set explicitly.
func (c Config) Resolve() (Config, error) {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return c, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = home
	}
	c.DataDir = expandHome(c.DataDir)
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.DataDir, ".smart_notes_history.db")
	}
	c.History.Path = expandHome(c.History.Path)
	if c.Tracing.FilePath == "" {
		c.Tracing.FilePath = filepath.Join(c.DataDir, ".smart_notes_traces.jsonl")
	}
	c.Tracing.FilePath = expandHome(c.Tracing.FilePath)
	if c.AutoStart.Mode == "" {
		c.AutoStart.Mode = AutoStartModeManager
	}
	return c, nil
}

func expandHome(p string) string {
	if p != "~" && !hasHomePrefix(p) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}

func hasHomePrefix(p string) bool {
	return len(p) >= 2 && p[0] == '~' && (p[1] == '/' || p[1] == '\\')
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxInstances, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.DefaultTheme, validation.Required, validation.In("dark", "light")),
		validation.Field(&c.AutoRefreshDebounce, validation.Min(time.Duration(0))),
	); err != nil {
		log.ErrorErr(log.CatConfig, "Invalid configuration", err)
		return err
	}
	for _, v := range []validation.Validatable{&c.Widget, &c.AutoStart, &c.Startup, &c.Tracing} {
		if err := v.Validate(); err != nil {
			log.ErrorErr(log.CatConfig, "Invalid configuration", err)
			return err
		}
	}
	return nil
}

// Validate validates the widget configuration.
func (w *WidgetConfig) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Command, validation.Required, validation.Each(validation.Required)),
	)
}

// Validate validates the auto-start configuration.
func (a *AutoStartConfig) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Mode, validation.In(AutoStartModeManager, AutoStartModeDirect)),
	)
}

// Validate validates the startup timing.
func (s *StartupConfig) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Delay, validation.Min(time.Duration(0))),
		validation.Field(&s.Stagger, validation.Min(time.Duration(0))),
	)
}

// Validate validates tracing. Path requirements apply only when enabled.
func (t *TracingConfig) Validate() error {
	if err := validation.ValidateStruct(t,
		validation.Field(&t.SampleRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&t.Exporter, validation.In(ExporterNone, ExporterFile, ExporterStdout, ExporterOTLP)),
	); err != nil {
		return err
	}
	if !t.Enabled {
		return nil
	}
	return validation.ValidateStruct(t,
		validation.Field(&t.FilePath, validation.When(t.Exporter == ExporterFile, validation.Required)),
		validation.Field(&t.OTLPEndpoint, validation.When(t.Exporter == ExporterOTLP, validation.Required)),
	)
}
