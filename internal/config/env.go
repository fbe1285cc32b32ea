// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the MEMPROF_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

func intOverride(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst(c) = parsed
		}
	}
}

func durationOverride(dst func(*AppConfig) *time.Duration) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst(c) = parsed
		}
	}
}

func floatOverride(dst func(*AppConfig) *float64) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst(c) = parsed
		}
	}
}

func boolOverride(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := dst(c)
		*p = parseBoolEnv(v, *p)
	}
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	// Numeric overrides
	{"CAPACITY", []string{"capacity"}, intOverride(func(c *AppConfig) *int { return &c.Capacity })},
	{"QUEUE_SIZE", []string{"queue-size"}, intOverride(func(c *AppConfig) *int { return &c.QueueSize })},
	{"LEAK_WINDOW", []string{"leak-window"}, intOverride(func(c *AppConfig) *int { return &c.LeakWindow })},
	{"PRESSURE_THRESHOLD", []string{"pressure-threshold"}, floatOverride(func(c *AppConfig) *float64 { return &c.Thresholds.MemoryPressure })},
	{"PAGE_FAULT_THRESHOLD", []string{"page-fault-threshold"}, floatOverride(func(c *AppConfig) *float64 { return &c.Thresholds.PageFault })},
	{"FRAGMENTATION_THRESHOLD", []string{"fragmentation-threshold"}, floatOverride(func(c *AppConfig) *float64 { return &c.Thresholds.Fragmentation })},
	{"LEAK_THRESHOLD", []string{"leak-threshold"}, floatOverride(func(c *AppConfig) *float64 { return &c.Thresholds.LeakDetection })},
	{"ALERT_THRESHOLD", []string{"alert-threshold"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Thresholds.PerformanceAlert = parsed
		}
	}},

	// Duration overrides
	{"INTERVAL", []string{"interval"}, durationOverride(func(c *AppConfig) *time.Duration { return &c.Interval })},
	{"DURATION", []string{"duration"}, durationOverride(func(c *AppConfig) *time.Duration { return &c.Duration })},
	{"HORIZON", []string{"horizon"}, durationOverride(func(c *AppConfig) *time.Duration { return &c.Horizon })},

	// String overrides
	{"SOURCE", []string{"source"}, func(c *AppConfig, v string) { c.Source = v }},
	{"FORMAT", []string{"format"}, func(c *AppConfig, v string) { c.Format = v }},
	{"EXPORT", []string{"export"}, func(c *AppConfig, v string) { c.Export = v }},
	{"SERVE", []string{"serve"}, func(c *AppConfig, v string) { c.Serve = v }},
	{"LOG_LEVEL", []string{"log-level"}, func(c *AppConfig, v string) { c.LogLevel = v }},

	// Boolean overrides
	{"VERBOSE", []string{"v", "verbose"}, boolOverride(func(c *AppConfig) *bool { return &c.Verbose })},
	{"QUIET", []string{"q", "quiet"}, boolOverride(func(c *AppConfig) *bool { return &c.Quiet })},
	{"NO_COLOR", []string{"no-color"}, boolOverride(func(c *AppConfig) *bool { return &c.NoColor })},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
//
// Supported environment variables (all prefixed with MEMPROF_):
//   - CAPACITY, QUEUE_SIZE, LEAK_WINDOW, INTERVAL, DURATION, HORIZON,
//     SOURCE, FORMAT, EXPORT, SERVE, LOG_LEVEL, VERBOSE, QUIET, NO_COLOR,
//     PRESSURE_THRESHOLD, PAGE_FAULT_THRESHOLD, FRAGMENTATION_THRESHOLD,
//     LEAK_THRESHOLD, ALERT_THRESHOLD
//   - CONFIG is read by ParseConfig when --config is absent.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
