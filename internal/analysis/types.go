package analysis

import (
	"fmt"
	"time"
)

// Trend classifies the direction and speed of usage change over a window.
type Trend string

const (
	TrendInsufficientData    Trend = "insufficient_data"
	TrendStable              Trend = "stable"
	TrendGraduallyIncreasing Trend = "gradually_increasing"
	TrendRapidlyIncreasing   Trend = "rapidly_increasing"
	TrendGraduallyDecreasing Trend = "gradually_decreasing"
	TrendRapidlyDecreasing   Trend = "rapidly_decreasing"
)

// Severity is an ordered level. It doubles as the real-time pressure level.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityCritical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText renders the level name in JSON and YAML documents.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a level name.
func (s *Severity) UnmarshalText(b []byte) error {
	for i, name := range severityNames {
		if name == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", b)
}

// Level grades recommendation priority and implementation effort.
type Level = Severity

const (
	LevelLow    = SeverityLow
	LevelMedium = SeverityMedium
	LevelHigh   = SeverityHigh
)

// BottleneckKind tags a detected bottleneck.
type BottleneckKind string

const (
	BottleneckMemoryPressure BottleneckKind = "memory-pressure"
	BottleneckPageFaults     BottleneckKind = "page-faults"
	BottleneckFragmentation  BottleneckKind = "fragmentation"
	BottleneckAllocation     BottleneckKind = "allocation"
)

// Bottleneck is one classified performance problem.
type Bottleneck struct {
	Kind        BottleneckKind `json:"kind"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Impact      string         `json:"impact"`
}

// RecommendationKind tags a recommendation.
type RecommendationKind string

const (
	RecommendMemoryOptimization RecommendationKind = "memory-optimization"
	RecommendCaching            RecommendationKind = "caching"
	RecommendMemoryLayout       RecommendationKind = "memory-layout"
	RecommendMemoryPooling      RecommendationKind = "memory-pooling"
	RecommendAllocationStrategy RecommendationKind = "allocation-strategy"
	RecommendGarbageCollection  RecommendationKind = "garbage-collection"
)

// Recommendation is an action derived from a bottleneck.
type Recommendation struct {
	Kind                 RecommendationKind `json:"kind"`
	Priority             Level              `json:"priority"`
	EstimatedImprovement float64            `json:"estimated_improvement"`
	Effort               Level              `json:"effort"`
	Description          string             `json:"description"`
}

// Stats summarizes a window of snapshots. Usage figures are host used bytes.
type Stats struct {
	SampleCount          int     `json:"sample_count"`
	AverageUsage         float64 `json:"average_usage"`
	PeakUsage            uint64  `json:"peak_usage"`
	UsageVariance        float64 `json:"usage_variance"`
	PageFaultRate        float64 `json:"page_fault_rate"`
	FragmentationRatio   float64 `json:"fragmentation_ratio"`
	AllocationEfficiency float64 `json:"allocation_efficiency"`
	CacheHitRate         float64 `json:"cache_hit_rate"`
	MemoryPressure       float64 `json:"memory_pressure"`
	AverageResident      float64 `json:"average_resident"`
	PeakResident         uint64  `json:"peak_resident"`
}

// AnomalyKind distinguishes statistical outliers from sudden jumps.
type AnomalyKind string

const (
	AnomalyOutlier AnomalyKind = "outlier"
	AnomalySpike   AnomalyKind = "spike"
)

// Anomaly marks one unusual sample in a window.
type Anomaly struct {
	Kind       AnomalyKind `json:"kind"`
	Timestamp  time.Time   `json:"timestamp"`
	UsedMemory uint64      `json:"used_memory"`
	// Score is the z-score for outliers and the jump size in bytes for spikes.
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// Analysis is the narrative summary of a window.
type Analysis struct {
	Trend           Trend     `json:"trend"`
	Anomalies       []Anomaly `json:"anomalies"`
	Recommendations []string  `json:"recommendations"`
	RiskLevel       Severity  `json:"risk_level"`
}

// PerformanceAnalysis is the full result of PerformanceAnalyzer.Analyze.
type PerformanceAnalysis struct {
	Metrics         Stats            `json:"metrics"`
	Analysis        Analysis         `json:"analysis"`
	Bottlenecks     []Bottleneck     `json:"bottlenecks"`
	Recommendations []Recommendation `json:"recommendations"`
	Score           float64          `json:"score"`
}

// RealTimeAnalysis grades the most recent snapshot against its history.
type RealTimeAnalysis struct {
	PressureLevel          Severity         `json:"pressure_level"`
	Pressure               float64          `json:"pressure"`
	Analysis               Analysis         `json:"analysis"`
	ImmediateOptimizations []Recommendation `json:"immediate_optimizations"`
}

// AccessPattern classifies the paging behaviour over a window.
type AccessPattern string

const (
	PatternUnknown    AccessPattern = "unknown"
	PatternSequential AccessPattern = "sequential"
	PatternRandom     AccessPattern = "random"
	PatternLocalized  AccessPattern = "localized"
)

// AccessPatternAnalysis reports per-tick paging rates and the resulting pattern.
type AccessPatternAnalysis struct {
	Pattern            AccessPattern `json:"pattern"`
	FaultRate          float64       `json:"fault_rate"`
	PageInRate         float64       `json:"page_in_rate"`
	PageOutRate        float64       `json:"page_out_rate"`
	WorkingSetEstimate uint64        `json:"working_set_estimate"`
	CacheEfficiency    float64       `json:"cache_efficiency"`
}

// Prediction is a linear forecast of host usage.
type Prediction struct {
	PredictedPeak uint64        `json:"predicted_peak"`
	Horizon       time.Duration `json:"horizon"`
	Confidence    float64       `json:"confidence"`
	SafetyBuffer  uint64        `json:"safety_buffer"`
	TargetTime    time.Time     `json:"target_time"`
	// Slope is the fitted growth in bytes per second.
	Slope float64 `json:"slope"`
}

// LeakSite is one suspected leak location. Without stack capture the only
// site reported is the process resident set, so CallStack stays empty.
type LeakSite struct {
	Label        string    `json:"label"`
	SizeEstimate uint64    `json:"size_estimate"`
	AllocatedAt  time.Time `json:"allocated_at"`
	CallStack    []string  `json:"call_stack"`
}

// LeakSuspicion is the statistical leak verdict for a window.
type LeakSuspicion struct {
	Suspected          bool       `json:"suspected"`
	Sites              []LeakSite `json:"sites"`
	Confidence         float64    `json:"confidence"`
	TotalEstimatedSize uint64     `json:"total_estimated_size"`
	GrowthTicks        int        `json:"growth_ticks"`
	// GrowthRate is the mean resident growth per tick over the run, in bytes.
	GrowthRate float64 `json:"growth_rate"`
}
