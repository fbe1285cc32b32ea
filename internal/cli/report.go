package cli

import (
	"context"
	"time"

	"github.com/agbru/memprof/internal/analysis"
	"github.com/agbru/memprof/internal/metrics"
	"github.com/agbru/memprof/internal/profiler"
)

// ReportSource is the subset of the profiler a report is built from.
type ReportSource interface {
	Session() string
	History() []metrics.Snapshot
	CurrentStats() analysis.Stats
	AnalyzeHistory(ctx context.Context) analysis.PerformanceAnalysis
	DetectLeaks() analysis.LeakSuspicion
	Predict(horizon time.Duration) analysis.Prediction
	AccessPattern() analysis.AccessPatternAnalysis
	RealTime() analysis.RealTimeAnalysis
	Counters() profiler.Counters
}

var _ ReportSource = (*profiler.Profiler)(nil)

// Report is everything printed at the end of a watch or analyze run.
type Report struct {
	Session    string                         `json:"session"`
	Origin     string                         `json:"origin"`
	Elapsed    time.Duration                  `json:"elapsed"`
	Snapshots  int                            `json:"snapshots"`
	Latest     *metrics.Snapshot              `json:"latest,omitempty"`
	Stats      analysis.Stats                 `json:"stats"`
	Analysis   analysis.PerformanceAnalysis   `json:"analysis"`
	Leaks      analysis.LeakSuspicion         `json:"leaks"`
	Prediction analysis.Prediction            `json:"prediction"`
	Pattern    analysis.AccessPatternAnalysis `json:"access_pattern"`
	RealTime   analysis.RealTimeAnalysis      `json:"realtime"`
	Counters   profiler.Counters              `json:"counters"`

	// Usage is host usage in percent per retained snapshot, oldest first.
	Usage []float64 `json:"-"`
}

// BuildReport queries src once per section. origin names where the history
// came from, such as "live" or an archive path.
func BuildReport(ctx context.Context, src ReportSource, origin string, elapsed, horizon time.Duration) Report {
	history := src.History()
	r := Report{
		Session:    src.Session(),
		Origin:     origin,
		Elapsed:    elapsed,
		Snapshots:  len(history),
		Stats:      src.CurrentStats(),
		Analysis:   src.AnalyzeHistory(ctx),
		Leaks:      src.DetectLeaks(),
		Prediction: src.Predict(horizon),
		Pattern:    src.AccessPattern(),
		RealTime:   src.RealTime(),
		Counters:   src.Counters(),
		Usage:      make([]float64, 0, len(history)),
	}
	if n := len(history); n > 0 {
		latest := history[n-1]
		r.Latest = &latest
	}
	for _, s := range history {
		if s.IsZero() {
			continue
		}
		r.Usage = append(r.Usage, s.MemoryPressure()*100)
	}
	return r
}
