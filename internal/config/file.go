package config

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/memprof/internal/errors"
)

// fileConfig mirrors AppConfig with optional fields so that keys absent from
// the YAML document leave defaults untouched.
type fileConfig struct {
	Interval   *time.Duration `yaml:"interval"`
	Capacity   *int           `yaml:"capacity"`
	QueueSize  *int           `yaml:"queue_size"`
	LeakWindow *int           `yaml:"leak_window"`
	Duration   *time.Duration `yaml:"duration"`
	Horizon    *time.Duration `yaml:"horizon"`
	Source     *string        `yaml:"source"`
	Format     *string        `yaml:"format"`
	Export     *string        `yaml:"export"`
	Serve      *string        `yaml:"serve"`
	LogLevel   *string        `yaml:"log_level"`
	Verbose    *bool          `yaml:"verbose"`
	Quiet      *bool          `yaml:"quiet"`
	NoColor    *bool          `yaml:"no_color"`
	Thresholds *struct {
		MemoryPressure   *float64 `yaml:"memory_pressure"`
		PageFault        *float64 `yaml:"page_fault"`
		Fragmentation    *float64 `yaml:"fragmentation"`
		LeakDetection    *float64 `yaml:"leak_detection"`
		PerformanceAlert *uint64  `yaml:"performance_alert"`
	} `yaml:"thresholds"`
}

// loadFile reads a YAML configuration document.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, apperrors.NewConfigError("reading config file: %v", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, apperrors.NewConfigError("parsing config file %s: %v", path, err)
	}
	return fc, nil
}

// applyFile overlays values from the YAML file for flags not set on the command line.
func applyFile(config *AppConfig, fs *flag.FlagSet, path string) error {
	fc, err := loadFile(path)
	if err != nil {
		return err
	}

	unset := func(names ...string) bool { return !isFlagSetAny(fs, names...) }

	if fc.Interval != nil && unset("interval") {
		config.Interval = *fc.Interval
	}
	if fc.Capacity != nil && unset("capacity") {
		config.Capacity = *fc.Capacity
	}
	if fc.QueueSize != nil && unset("queue-size") {
		config.QueueSize = *fc.QueueSize
	}
	if fc.LeakWindow != nil && unset("leak-window") {
		config.LeakWindow = *fc.LeakWindow
	}
	if fc.Duration != nil && unset("duration") {
		config.Duration = *fc.Duration
	}
	if fc.Horizon != nil && unset("horizon") {
		config.Horizon = *fc.Horizon
	}
	if fc.Source != nil && unset("source") {
		config.Source = *fc.Source
	}
	if fc.Format != nil && unset("format") {
		config.Format = *fc.Format
	}
	if fc.Export != nil && unset("export") {
		config.Export = *fc.Export
	}
	if fc.Serve != nil && unset("serve") {
		config.Serve = *fc.Serve
	}
	if fc.LogLevel != nil && unset("log-level") {
		config.LogLevel = *fc.LogLevel
	}
	if fc.Verbose != nil && unset("v", "verbose") {
		config.Verbose = *fc.Verbose
	}
	if fc.Quiet != nil && unset("q", "quiet") {
		config.Quiet = *fc.Quiet
	}
	if fc.NoColor != nil && unset("no-color") {
		config.NoColor = *fc.NoColor
	}
	if th := fc.Thresholds; th != nil {
		if th.MemoryPressure != nil && unset("pressure-threshold") {
			config.Thresholds.MemoryPressure = *th.MemoryPressure
		}
		if th.PageFault != nil && unset("page-fault-threshold") {
			config.Thresholds.PageFault = *th.PageFault
		}
		if th.Fragmentation != nil && unset("fragmentation-threshold") {
			config.Thresholds.Fragmentation = *th.Fragmentation
		}
		if th.LeakDetection != nil && unset("leak-threshold") {
			config.Thresholds.LeakDetection = *th.LeakDetection
		}
		if th.PerformanceAlert != nil && unset("alert-threshold") {
			config.Thresholds.PerformanceAlert = *th.PerformanceAlert
		}
	}
	return nil
}
