package analysis

import "github.com/agbru/memprof/internal/metrics"

// DefaultTrendWindow is the number of trailing snapshots used for trends.
const DefaultTrendWindow = 10

const (
	stableChange = 0.05
	rapidChange  = 0.20
)

// ClassifyTrend grades the relative change between the first and last usage
// values of the window: below 5% is stable, above 20% is rapid.
func ClassifyTrend(snaps []metrics.Snapshot) Trend {
	snaps = usable(snaps)
	if len(snaps) < 2 {
		return TrendInsufficientData
	}
	first := float64(snaps[0].UsedMemory)
	last := float64(snaps[len(snaps)-1].UsedMemory)

	if first == 0 {
		if last == 0 {
			return TrendStable
		}
		return TrendRapidlyIncreasing
	}

	change := (last - first) / first
	switch {
	case change > rapidChange:
		return TrendRapidlyIncreasing
	case change >= stableChange:
		return TrendGraduallyIncreasing
	case change < -rapidChange:
		return TrendRapidlyDecreasing
	case change <= -stableChange:
		return TrendGraduallyDecreasing
	default:
		return TrendStable
	}
}

// TrendWindow applies ClassifyTrend to the last n snapshots (DefaultTrendWindow if n <= 0).
func TrendWindow(snaps []metrics.Snapshot, n int) Trend {
	if n <= 0 {
		n = DefaultTrendWindow
	}
	if len(snaps) > n {
		snaps = snaps[len(snaps)-n:]
	}
	return ClassifyTrend(snaps)
}
