// Package config handles the parsing and validation of memprof's command-line
// configuration, the optional YAML configuration file and MEMPROF_*
// environment overrides.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	apperrors "github.com/agbru/memprof/internal/errors"
)

// EnvPrefix is the prefix for all memprof environment variables.
const EnvPrefix = "MEMPROF_"

// Sampling and output defaults.
const (
	DefaultCapacity   = 1000
	DefaultQueueSize  = 100
	DefaultLeakWindow = 30
	DefaultDuration   = 10 * time.Second
	DefaultHorizon    = 60 * time.Second
)

// Sources lists the accepted values for --source.
var Sources = []string{"host", "runtime"}

// Formats lists the accepted values for --format.
var Formats = []string{"text", "json"}

// AppConfig aggregates the application's configuration parameters.
type AppConfig struct {
	// Interval is the sampling period. Zero selects an adaptive default.
	Interval time.Duration `yaml:"interval"`
	// Capacity is the retention buffer size in snapshots.
	Capacity int `yaml:"capacity"`
	// QueueSize bounds each subscriber channel.
	QueueSize int `yaml:"queue_size"`
	// LeakWindow is the number of trailing snapshots handed to the leak detector.
	LeakWindow int `yaml:"leak_window"`
	// Duration bounds watch mode. Zero means until interrupted.
	Duration time.Duration `yaml:"duration"`
	// Horizon is the prediction horizon used in reports.
	Horizon time.Duration `yaml:"horizon"`
	// Source selects the process counter provider ("host" or "runtime").
	Source string `yaml:"source"`
	// Format selects the report rendering ("text" or "json").
	Format string `yaml:"format"`
	// Export is the archive written after watch mode completes.
	Export string `yaml:"export"`
	// Import switches to offline analysis of a captured archive.
	Import string `yaml:"-"`
	// Serve switches to HTTP API mode on the given address.
	Serve string `yaml:"serve"`
	// LogLevel is the zerolog level name.
	LogLevel string `yaml:"log_level"`
	// ConfigFile is the YAML configuration file path.
	ConfigFile string `yaml:"-"`
	// Completion generates a shell completion script and exits.
	Completion string `yaml:"-"`
	// Verbose prints the sparkline and per-bottleneck detail.
	Verbose bool `yaml:"verbose"`
	// Quiet suppresses the spinner and headers.
	Quiet bool `yaml:"quiet"`
	// NoColor disables ANSI colors.
	NoColor bool `yaml:"no_color"`
	// Thresholds drive bottleneck, leak and alert detection.
	Thresholds Thresholds `yaml:"thresholds"`
}

// Default returns a configuration populated with the documented defaults.
func Default() AppConfig {
	return AppConfig{
		Capacity:   DefaultCapacity,
		QueueSize:  DefaultQueueSize,
		LeakWindow: DefaultLeakWindow,
		Duration:   DefaultDuration,
		Horizon:    DefaultHorizon,
		Source:     "host",
		Format:     "text",
		LogLevel:   "warn",
		Thresholds: DefaultThresholds(),
	}
}

// Validate checks the configuration for semantic consistency.
//
// Returns:
//   - error: A ConfigError or ValidationError describing the first problem found.
func (c AppConfig) Validate() error {
	if c.Interval < 0 {
		return apperrors.NewValidationError("interval", "must not be negative, got %s", c.Interval)
	}
	if c.Capacity <= 0 {
		return apperrors.NewValidationError("capacity", "must be positive, got %d", c.Capacity)
	}
	if c.QueueSize <= 0 {
		return apperrors.NewValidationError("queue-size", "must be positive, got %d", c.QueueSize)
	}
	if c.LeakWindow < 2 {
		return apperrors.NewValidationError("leak-window", "must be at least 2, got %d", c.LeakWindow)
	}
	if c.Duration < 0 {
		return apperrors.NewValidationError("duration", "must not be negative, got %s", c.Duration)
	}
	if c.Horizon <= 0 {
		return apperrors.NewValidationError("horizon", "must be positive, got %s", c.Horizon)
	}
	if !slices.Contains(Sources, c.Source) {
		return apperrors.NewConfigError("unknown source %q (accepted: %s)", c.Source, strings.Join(Sources, ", "))
	}
	if !slices.Contains(Formats, c.Format) {
		return apperrors.NewConfigError("unknown format %q (accepted: %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.Import != "" && c.Serve != "" {
		return apperrors.NewConfigError("--import and --serve are mutually exclusive")
	}
	return c.Thresholds.Validate()
}

// ParseConfig parses the command-line arguments into an AppConfig.
// Values are resolved with the priority CLI flags > environment > YAML file > defaults.
//
// Parameters:
//   - programName: The name used in usage output.
//   - args: The arguments without the program name.
//   - errorWriter: Destination for flag parsing errors and usage.
//
// Returns:
//   - AppConfig: The resolved configuration.
//   - error: flag.ErrHelp when --help was requested, or a configuration error.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)

	config := Default()
	th := &config.Thresholds

	fs.DurationVar(&config.Interval, "interval", 0, "Sampling interval (0 = adaptive).")
	fs.IntVar(&config.Capacity, "capacity", config.Capacity, "Retention buffer capacity in snapshots.")
	fs.IntVar(&config.QueueSize, "queue-size", config.QueueSize, "Per-subscriber queue size (drop-oldest).")
	fs.IntVar(&config.LeakWindow, "leak-window", config.LeakWindow, "Snapshots examined by the leak detector.")
	fs.DurationVar(&config.Duration, "duration", config.Duration, "How long to sample in watch mode (0 = until interrupted).")
	fs.DurationVar(&config.Horizon, "horizon", config.Horizon, "Prediction horizon.")
	fs.StringVar(&config.Source, "source", config.Source, "Process counter source: host or runtime.")
	fs.StringVar(&config.Format, "format", config.Format, "Report format: text or json.")
	fs.StringVar(&config.Export, "export", "", "Write captured history to this archive (.json or .yaml).")
	fs.StringVar(&config.Import, "import", "", "Analyze a previously exported archive instead of sampling.")
	fs.StringVar(&config.Serve, "serve", "", "Serve the HTTP API and /metrics on this address (e.g. :9090).")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level: debug, info, warn, error.")
	fs.StringVar(&config.ConfigFile, "config", "", "YAML configuration file.")
	fs.StringVar(&config.Completion, "completion", "", "Generate a completion script (bash, zsh, fish, powershell).")
	fs.BoolVar(&config.Verbose, "v", false, "Verbose report.")
	fs.BoolVar(&config.Verbose, "verbose", false, "Verbose report.")
	fs.BoolVar(&config.Quiet, "q", false, "Quiet mode.")
	fs.BoolVar(&config.Quiet, "quiet", false, "Quiet mode.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output.")
	fs.Float64Var(&th.MemoryPressure, "pressure-threshold", th.MemoryPressure, "Memory pressure ratio bottleneck threshold.")
	fs.Float64Var(&th.PageFault, "page-fault-threshold", th.PageFault, "Page faults per minute bottleneck threshold.")
	fs.Float64Var(&th.Fragmentation, "fragmentation-threshold", th.Fragmentation, "Fragmentation ratio bottleneck threshold.")
	fs.Float64Var(&th.LeakDetection, "leak-threshold", th.LeakDetection, "Per-tick resident growth (bytes) considered leak-like.")
	fs.Uint64Var(&th.PerformanceAlert, "alert-threshold", th.PerformanceAlert, "Usage jump (bytes) raising a performance alert.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 {
		return AppConfig{}, apperrors.NewConfigError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if config.ConfigFile == "" {
		config.ConfigFile = os.Getenv(EnvPrefix + "CONFIG")
	}
	if config.ConfigFile != "" {
		if err := applyFile(&config, fs, config.ConfigFile); err != nil {
			return AppConfig{}, err
		}
	}
	applyEnvOverrides(&config, fs)

	if err := config.Validate(); err != nil {
		fmt.Fprintln(errorWriter, "Error:", err)
		return AppConfig{}, err
	}
	return config, nil
}
