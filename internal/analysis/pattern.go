package analysis

import "github.com/agbru/memprof/internal/metrics"

const randomFaultsPerTick = 1000

// ClassifyAccessPattern derives per-tick paging rates from the cumulative
// counters at the ends of the window. A fault rate above 1000 per tick is
// random access, page-ins outpacing page-outs twofold is sequential, anything
// else is localized. Windows shorter than two samples are unknown.
func ClassifyAccessPattern(snaps []metrics.Snapshot) AccessPatternAnalysis {
	snaps = usable(snaps)
	result := AccessPatternAnalysis{
		Pattern:         PatternUnknown,
		CacheEfficiency: CacheHitRateEstimate(snaps),
	}
	if len(snaps) == 0 {
		return result
	}
	result.WorkingSetEstimate = uint64(Mean(residentSeries(snaps)))
	if len(snaps) < 2 {
		return result
	}

	first, last := snaps[0], snaps[len(snaps)-1]
	ticks := float64(len(snaps) - 1)
	result.FaultRate = counterRate(first.PageFaults, last.PageFaults, ticks)
	result.PageInRate = counterRate(first.PageIns, last.PageIns, ticks)
	result.PageOutRate = counterRate(first.PageOuts, last.PageOuts, ticks)

	switch {
	case result.FaultRate > randomFaultsPerTick:
		result.Pattern = PatternRandom
	case result.PageInRate > 2*result.PageOutRate:
		result.Pattern = PatternSequential
	default:
		result.Pattern = PatternLocalized
	}
	return result
}

func counterRate(first, last uint64, ticks float64) float64 {
	if last < first || ticks <= 0 {
		return 0
	}
	return float64(last-first) / ticks
}
