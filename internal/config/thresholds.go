package config

import (
	"runtime"
	"time"

	apperrors "github.com/agbru/memprof/internal/errors"
)

// MiB is one mebibyte in bytes.
const MiB = 1024 * 1024

// Thresholds holds the named detection thresholds shared by the analyzers.
type Thresholds struct {
	// MemoryPressure is the used/total ratio above which memory pressure is a bottleneck.
	MemoryPressure float64 `yaml:"memory_pressure" json:"memory_pressure_threshold"`
	// PageFault is the fault rate (faults per minute) above which faults are a bottleneck.
	PageFault float64 `yaml:"page_fault" json:"page_fault_threshold"`
	// Fragmentation is the virtual/resident excess ratio above which fragmentation is a bottleneck.
	Fragmentation float64 `yaml:"fragmentation" json:"fragmentation_threshold"`
	// LeakDetection is the per-tick resident growth in bytes considered leak-like.
	LeakDetection float64 `yaml:"leak_detection" json:"leak_detection_threshold"`
	// PerformanceAlert is the tick-to-tick usage jump in bytes that raises an alert.
	PerformanceAlert uint64 `yaml:"performance_alert" json:"performance_alert_threshold"`
}

// DefaultThresholds returns the documented default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemoryPressure:   0.8,
		PageFault:        1000,
		Fragmentation:    0.3,
		LeakDetection:    0.1 * MiB,
		PerformanceAlert: 100 * MiB,
	}
}

// Validate rejects threshold values outside their sane ranges.
func (t Thresholds) Validate() error {
	switch {
	case t.MemoryPressure <= 0 || t.MemoryPressure > 1:
		return apperrors.NewValidationError("memory_pressure_threshold", "must be in (0, 1], got %g", t.MemoryPressure)
	case t.PageFault <= 0:
		return apperrors.NewValidationError("page_fault_threshold", "must be positive, got %g", t.PageFault)
	case t.Fragmentation <= 0:
		return apperrors.NewValidationError("fragmentation_threshold", "must be positive, got %g", t.Fragmentation)
	case t.LeakDetection <= 0:
		return apperrors.NewValidationError("leak_detection_threshold", "must be positive, got %g", t.LeakDetection)
	case t.PerformanceAlert == 0:
		return apperrors.NewValidationError("performance_alert_threshold", "must be positive")
	}
	return nil
}

// ApplyAdaptiveDefaults fills the sampling interval when it was left at zero.
// The function never overrides a user-specified value.
func ApplyAdaptiveDefaults(cfg AppConfig) AppConfig {
	if cfg.Interval == 0 {
		cfg.Interval = EstimateInterval()
	}
	return cfg
}

// EstimateInterval provides a heuristic sampling interval from the CPU count.
func EstimateInterval() time.Duration {
	switch numCPU := runtime.NumCPU(); {
	case numCPU <= 1:
		return 2 * time.Second
	case numCPU <= 4:
		return time.Second
	default:
		return 500 * time.Millisecond
	}
}
