package profiler

import (
	"time"

	"github.com/agbru/memprof/internal/analysis"
	"github.com/agbru/memprof/internal/config"
	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/metrics"
	"github.com/agbru/memprof/internal/sampler"
)

// DefaultInterval is the sampling period used when none is configured.
const DefaultInterval = time.Second

// Config holds the parameters of a Profiler.
type Config struct {
	// Interval is the sampling period.
	Interval time.Duration
	// Capacity is the retention buffer size in snapshots.
	Capacity int
	// QueueSize bounds each subscriber channel, including the internal consumer.
	QueueSize int
	// LeakWindow is the trailing window size handed to the leak detector.
	LeakWindow int
	// Thresholds drive bottleneck, leak and alert detection.
	Thresholds config.Thresholds
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   DefaultInterval,
		Capacity:   metrics.DefaultCapacity,
		QueueSize:  sampler.DefaultQueueSize,
		LeakWindow: analysis.DefaultLeakWindow,
		Thresholds: config.DefaultThresholds(),
	}
}

// ConfigFromApp extracts the profiler settings from the application
// configuration, filling an unset interval adaptively.
func ConfigFromApp(cfg config.AppConfig) Config {
	cfg = config.ApplyAdaptiveDefaults(cfg)
	return Config{
		Interval:   cfg.Interval,
		Capacity:   cfg.Capacity,
		QueueSize:  cfg.QueueSize,
		LeakWindow: cfg.LeakWindow,
		Thresholds: cfg.Thresholds,
	}
}

// Validate rejects configurations the profiler cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return apperrors.NewValidationError("interval", "must be positive, got %s", c.Interval)
	case c.Capacity <= 0:
		return apperrors.NewValidationError("capacity", "must be positive, got %d", c.Capacity)
	case c.QueueSize <= 0:
		return apperrors.NewValidationError("queue-size", "must be positive, got %d", c.QueueSize)
	case c.LeakWindow < 2:
		return apperrors.NewValidationError("leak-window", "must be at least 2, got %d", c.LeakWindow)
	case c.LeakWindow > c.Capacity:
		return apperrors.NewValidationError("leak-window", "must not exceed capacity (%d), got %d", c.Capacity, c.LeakWindow)
	}
	return c.Thresholds.Validate()
}

// leakConfig derives the detector configuration. Short windows lower the
// minimum run so that a suspicion remains reachable.
func (c Config) leakConfig() analysis.LeakConfig {
	lc := analysis.LeakConfig{
		ThresholdBytes: c.Thresholds.LeakDetection,
		WindowSize:     c.LeakWindow,
		MinGrowthTicks: analysis.DefaultMinGrowthTicks,
	}
	if lc.MinGrowthTicks >= lc.WindowSize {
		lc.MinGrowthTicks = lc.WindowSize - 1
	}
	return lc
}
