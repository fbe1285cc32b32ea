package analysis

import (
	"math"

	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/metrics"
)

// Leak detector defaults.
const (
	DefaultLeakThreshold  = 0.1 * 1024 * 1024
	DefaultLeakWindow     = 30
	DefaultMinGrowthTicks = 3
)

// ResidentSiteLabel names the only leak site the detector can report.
const ResidentSiteLabel = "process resident set"

// LeakConfig tunes the leak detector.
type LeakConfig struct {
	// ThresholdBytes is the mean per-tick resident growth above which a run is leak-like.
	ThresholdBytes float64
	// WindowSize is the number of trailing snapshots the owner should feed.
	WindowSize int
	// MinGrowthTicks is the shortest run of non-decreasing ticks considered.
	MinGrowthTicks int
}

// DefaultLeakConfig returns the documented defaults.
func DefaultLeakConfig() LeakConfig {
	return LeakConfig{
		ThresholdBytes: DefaultLeakThreshold,
		WindowSize:     DefaultLeakWindow,
		MinGrowthTicks: DefaultMinGrowthTicks,
	}
}

// Validate rejects non-positive thresholds and windows too short to hold a run.
func (c LeakConfig) Validate() error {
	switch {
	case c.ThresholdBytes <= 0 || math.IsNaN(c.ThresholdBytes):
		return apperrors.NewValidationError("leak_detection_threshold", "must be positive, got %g", c.ThresholdBytes)
	case c.MinGrowthTicks < 1:
		return apperrors.NewValidationError("min_growth_ticks", "must be at least 1, got %d", c.MinGrowthTicks)
	case c.WindowSize <= c.MinGrowthTicks:
		return apperrors.NewValidationError("leak_window", "must exceed min growth ticks (%d), got %d", c.MinGrowthTicks, c.WindowSize)
	}
	return nil
}

// LeakDetector flags sustained resident-set growth.
//
// The detector looks at the trailing run of k ticks over which the resident
// size never decreased, with mean growth g bytes per tick. A leak is
// suspected when k >= MinGrowthTicks and g > T, with
//
//	confidence = min(1, k/(n-1)) * (1 - T/g)
//
// where n is the window length. The value lies in [0, 1) and never decreases
// when either the run gets longer or the growth gets steeper.
type LeakDetector struct {
	cfg LeakConfig
}

// NewLeakDetector validates cfg and returns a detector.
func NewLeakDetector(cfg LeakConfig) (*LeakDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LeakDetector{cfg: cfg}, nil
}

// Config returns the detector configuration.
func (d *LeakDetector) Config() LeakConfig { return d.cfg }

// Detect evaluates a window of snapshots.
func (d *LeakDetector) Detect(window []metrics.Snapshot) LeakSuspicion {
	snaps := usable(window)
	result := LeakSuspicion{Sites: []LeakSite{}}
	n := len(snaps)
	if n < 2 {
		return result
	}

	k := 0
	for i := n - 1; i > 0; i-- {
		if snaps[i].ResidentSize < snaps[i-1].ResidentSize {
			break
		}
		k++
	}
	if k == 0 {
		return result
	}

	start := snaps[n-1-k]
	growth := snaps[n-1].ResidentSize - start.ResidentSize
	g := float64(growth) / float64(k)
	result.GrowthTicks = k
	result.GrowthRate = g

	if k < d.cfg.MinGrowthTicks || g <= d.cfg.ThresholdBytes {
		return result
	}

	duration := math.Min(1, float64(k)/float64(n-1))
	magnitude := 1 - d.cfg.ThresholdBytes/g
	result.Suspected = true
	result.Confidence = clamp01(duration * magnitude)
	result.TotalEstimatedSize = growth
	result.Sites = []LeakSite{{
		Label:        ResidentSiteLabel,
		SizeEstimate: growth,
		AllocatedAt:  start.Timestamp,
		CallStack:    []string{},
	}}
	return result
}
