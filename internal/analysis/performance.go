package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/agbru/memprof/internal/config"
	"github.com/agbru/memprof/internal/metrics"
)

const outlierZScore = 2.0

// PerformanceAnalyzer runs the bottleneck, recommendation and scoring rules
// against a fixed set of thresholds.
type PerformanceAnalyzer struct {
	th config.Thresholds
}

// NewPerformanceAnalyzer validates th and returns an analyzer.
func NewPerformanceAnalyzer(th config.Thresholds) (*PerformanceAnalyzer, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &PerformanceAnalyzer{th: th}, nil
}

// Thresholds returns the analyzer thresholds.
func (p *PerformanceAnalyzer) Thresholds() config.Thresholds { return p.th }

// Analyze produces the full performance analysis of a window.
func (p *PerformanceAnalyzer) Analyze(snaps []metrics.Snapshot) PerformanceAnalysis {
	snaps = usable(snaps)
	st := ComputeStats(snaps)
	bottlenecks := DetectBottlenecks(st, p.th)
	recs := RecommendationsFor(bottlenecks)
	return PerformanceAnalysis{
		Metrics:         st,
		Analysis:        p.summarize(snaps, bottlenecks, recs),
		Bottlenecks:     bottlenecks,
		Recommendations: recs,
		Score:           Score(st, bottlenecks, p.th),
	}
}

// AnalyzeHistory returns only the narrative summary of a window.
func (p *PerformanceAnalyzer) AnalyzeHistory(snaps []metrics.Snapshot) Analysis {
	return p.Analyze(snaps).Analysis
}

// AnalyzeRealtime grades current against history. current is appended to
// history unless it is already its last entry.
func (p *PerformanceAnalyzer) AnalyzeRealtime(current metrics.Snapshot, history []metrics.Snapshot) RealTimeAnalysis {
	window := history
	if n := len(history); n == 0 || !history[n-1].Timestamp.Equal(current.Timestamp) {
		window = make([]metrics.Snapshot, 0, n+1)
		window = append(window, history...)
		window = append(window, current)
	}

	pa := p.Analyze(window)
	pressure := current.MemoryPressure()
	immediate := []Recommendation{}
	for _, r := range pa.Recommendations {
		if r.Priority == LevelHigh {
			immediate = append(immediate, r)
		}
	}
	return RealTimeAnalysis{
		PressureLevel:          PressureLevel(pressure),
		Pressure:               pressure,
		Analysis:               pa.Analysis,
		ImmediateOptimizations: immediate,
	}
}

// PressureLevel bands a used/total ratio: <0.70 low, <0.85 medium, <0.95 high, else critical.
func PressureLevel(pressure float64) Severity {
	switch {
	case pressure < 0.70:
		return SeverityLow
	case pressure < 0.85:
		return SeverityMedium
	case pressure < 0.95:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func (p *PerformanceAnalyzer) summarize(snaps []metrics.Snapshot, bottlenecks []Bottleneck, recs []Recommendation) Analysis {
	texts := make([]string, len(recs))
	for i, r := range recs {
		texts[i] = r.Description
	}
	return Analysis{
		Trend:           TrendWindow(snaps, DefaultTrendWindow),
		Anomalies:       DetectAnomalies(snaps, p.th),
		Recommendations: texts,
		RiskLevel:       RiskLevel(bottlenecks),
	}
}

// DetectAnomalies reports usage samples more than two standard deviations
// from the window mean, and tick-to-tick usage jumps larger than the
// performance alert threshold. Results are in timestamp order.
func DetectAnomalies(snaps []metrics.Snapshot, th config.Thresholds) []Anomaly {
	snaps = usable(snaps)
	out := []Anomaly{}
	if len(snaps) < 2 {
		return out
	}

	used := usedSeries(snaps)
	mean := Mean(used)
	stddev := math.Sqrt(PopulationVariance(used))

	for i, s := range snaps {
		if stddev > 0 {
			z := (float64(s.UsedMemory) - mean) / stddev
			if math.Abs(z) > outlierZScore {
				out = append(out, Anomaly{
					Kind:        AnomalyOutlier,
					Timestamp:   s.Timestamp,
					UsedMemory:  s.UsedMemory,
					Score:       z,
					Description: fmt.Sprintf("usage %.1f standard deviations from the mean", z),
				})
			}
		}
		if i == 0 {
			continue
		}
		prev := snaps[i-1].UsedMemory
		if jump := absDiff(s.UsedMemory, prev); jump > th.PerformanceAlert {
			direction := "rose"
			if s.UsedMemory < prev {
				direction = "fell"
			}
			out = append(out, Anomaly{
				Kind:        AnomalySpike,
				Timestamp:   s.Timestamp,
				UsedMemory:  s.UsedMemory,
				Score:       float64(jump),
				Description: fmt.Sprintf("usage %s by %d bytes in %s", direction, jump, s.Timestamp.Sub(snaps[i-1].Timestamp).Round(time.Millisecond)),
			})
		}
	}
	return out
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
