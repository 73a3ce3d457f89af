package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/smartnotes/internal/app"
	"github.com/zjrosen/smartnotes/internal/config"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/paths"
	"github.com/zjrosen/smartnotes/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
	cfgErr    error
	v         *viper.Viper

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "smartnotes",
	Short: "Manage Smart Notes sticky-note instances",
	Long: `Smart Notes keeps any number of independent sticky-note windows. This
manager creates, clones, renames, deletes and launches them, and controls
which ones start automatically when you log in.

Run without a subcommand to open the interactive manager.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/smartnotes/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (also SMARTNOTES_DEBUG=1)")
	rootCmd.PersistentFlags().String("data-dir", "",
		"directory holding instance files (default: home directory)")
	rootCmd.Flags().Bool("no-auto-refresh", false,
		"disable refreshing when instance files change on disk")
}

func setDefaults(v *viper.Viper, d config.Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("max_instances", d.MaxInstances)
	v.SetDefault("default_theme", d.DefaultTheme)
	v.SetDefault("auto_refresh", d.AutoRefresh)
	v.SetDefault("auto_refresh_debounce", d.AutoRefreshDebounce)
	v.SetDefault("widget.command", d.Widget.Command)
	v.SetDefault("create.launch", d.Create.Launch)
	v.SetDefault("create.auto_start", d.Create.AutoStart)
	v.SetDefault("autostart.mode", d.AutoStart.Mode)
	v.SetDefault("startup.delay", d.Startup.Delay)
	v.SetDefault("startup.stagger", d.Startup.Stagger)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

func initConfig() {
	cfg, cfgErr = config.Config{}, nil
	v = viper.New()
	_ = v.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	setDefaults(v, config.Defaults())
	v.SetEnvPrefix("SMARTNOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if path != "" {
		// First run: leave a commented config behind for the user to edit.
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			_ = config.WriteDefaultConfig(path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && cfgFile != "" {
			cfgErr = fmt.Errorf("reading config %s: %w", path, err)
			return
		}
	}

	var c config.Config
	if err := v.Unmarshal(&c); err != nil {
		cfgErr = fmt.Errorf("decoding config: %w", err)
		return
	}
	c, err := c.Resolve()
	if err != nil {
		cfgErr = err
		return
	}
	cfg = c
}

// setup finishes configuration for every command: validation and the
// optional debug log.
func setup(cmd *cobra.Command, _ []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if debugFlag || os.Getenv("SMARTNOTES_DEBUG") != "" {
		logPath := os.Getenv("SMARTNOTES_LOG")
		if logPath == "" {
			logPath = paths.New(cfg.DataDir).DebugLog()
		}
		var (
			cleanup func()
			err     error
		)
		if !cmd.HasParent() {
			cleanup, err = log.InitWithTeaLog(logPath, "smartnotes")
		} else {
			cleanup, err = log.Init(logPath)
		}
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.Info(log.CatConfig, "smartnotes starting", "command", cmd.Name(), "dataDir", cfg.DataDir, "config", v.ConfigFileUsed())
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return nil
}

func runApp(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	opts := app.Options{
		Controller: e.ctrl,
		Exits:      e.sup,
		Debug:      debugFlag || os.Getenv("SMARTNOTES_DEBUG") != "",
	}
	if cfg.AutoRefresh {
		// The manager works without auto-refresh, so watcher errors only log.
		w, err := watcher.New(watcher.Config{Dir: cfg.DataDir, DebounceDur: cfg.AutoRefreshDebounce})
		if err == nil {
			if err = w.Start(); err != nil {
				_ = w.Stop()
			}
		}
		if err != nil {
			log.Warn(log.CatWatcher, "File watcher unavailable", "error", err)
		} else {
			defer func() { _ = w.Stop() }()
			opts.Changes = w
		}
	}

	zone.NewGlobal()
	defer zone.Close()

	model := app.New(opts)
	defer model.Close()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(ver string) {
	version = ver
	rootCmd.Version = ver
}
