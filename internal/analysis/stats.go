package analysis

import (
	"math"

	"github.com/agbru/memprof/internal/metrics"
)

const (
	// defaultAllocationEfficiency is reported when a window is too short to
	// measure churn.
	defaultAllocationEfficiency = 0.8
	// cacheFaultScale is the fault count at which the cache-hit estimate
	// reaches one half. Placeholder heuristic, not derived from measurements.
	cacheFaultScale = 10000
)

// usable drops zero-filled snapshots left by failed captures.
func usable(snaps []metrics.Snapshot) []metrics.Snapshot {
	for i, s := range snaps {
		if s.IsZero() {
			out := make([]metrics.Snapshot, 0, len(snaps)-1)
			out = append(out, snaps[:i]...)
			for _, rest := range snaps[i+1:] {
				if !rest.IsZero() {
					out = append(out, rest)
				}
			}
			return out
		}
	}
	return snaps
}

func usedSeries(snaps []metrics.Snapshot) []uint64 {
	out := make([]uint64, len(snaps))
	for i, s := range snaps {
		out[i] = s.UsedMemory
	}
	return out
}

func residentSeries(snaps []metrics.Snapshot) []uint64 {
	out := make([]uint64, len(snaps))
	for i, s := range snaps {
		out[i] = s.ResidentSize
	}
	return out
}

// FragmentationRatio compares the host used ratio with the process
// resident/virtual ratio of the most recent snapshot, clamped to [0, 1].
func FragmentationRatio(snaps []metrics.Snapshot) float64 {
	snaps = usable(snaps)
	if len(snaps) == 0 {
		return 0
	}
	last := snaps[len(snaps)-1]
	if last.TotalMemory == 0 || last.VirtualSize == 0 {
		return 0
	}
	usedRatio := float64(last.UsedMemory) / float64(last.TotalMemory)
	residentRatio := float64(last.ResidentSize) / float64(last.VirtualSize)
	if residentRatio <= 0 || usedRatio <= 0 {
		return 0
	}
	return clamp01((usedRatio - residentRatio) / usedRatio)
}

// AllocationEfficiency is 1 - mean(|Δusage|)/mean(usage), clamped to [0, 1].
// Windows shorter than two samples report 0.8.
func AllocationEfficiency(snaps []metrics.Snapshot) float64 {
	snaps = usable(snaps)
	if len(snaps) < 2 {
		return defaultAllocationEfficiency
	}
	used := usedSeries(snaps)
	meanUsage := Mean(used)
	if meanUsage == 0 {
		return defaultAllocationEfficiency
	}
	deltas := make([]float64, len(used)-1)
	for i := 1; i < len(used); i++ {
		deltas[i-1] = math.Abs(float64(used[i]) - float64(used[i-1]))
	}
	return clamp01(1 - Mean(deltas)/meanUsage)
}

// CacheHitRateEstimate is 1 - f/(f+10000) for the latest cumulative fault count f.
func CacheHitRateEstimate(snaps []metrics.Snapshot) float64 {
	snaps = usable(snaps)
	if len(snaps) == 0 {
		return 1
	}
	faults := float64(snaps[len(snaps)-1].PageFaults)
	return 1 - faults/(faults+cacheFaultScale)
}

// UsageVariance is the population variance of host used bytes.
func UsageVariance(snaps []metrics.Snapshot) float64 {
	return PopulationVariance(usedSeries(usable(snaps)))
}

// PageFaultRate is the number of faults per minute between the first and last
// snapshot. It is 0 when the window spans no time or the counter went backwards.
func PageFaultRate(snaps []metrics.Snapshot) float64 {
	snaps = usable(snaps)
	if len(snaps) < 2 {
		return 0
	}
	first, last := snaps[0], snaps[len(snaps)-1]
	elapsed := last.Timestamp.Sub(first.Timestamp).Minutes()
	if elapsed <= 0 || last.PageFaults < first.PageFaults {
		return 0
	}
	return float64(last.PageFaults-first.PageFaults) / elapsed
}

// ComputeStats composes the statistics for a window.
func ComputeStats(snaps []metrics.Snapshot) Stats {
	snaps = usable(snaps)
	st := Stats{
		SampleCount:          len(snaps),
		AllocationEfficiency: AllocationEfficiency(snaps),
		CacheHitRate:         CacheHitRateEstimate(snaps),
	}
	if len(snaps) == 0 {
		return st
	}

	used := usedSeries(snaps)
	resident := residentSeries(snaps)
	st.AverageUsage = Mean(used)
	st.PeakUsage = maxOf(used)
	st.UsageVariance = PopulationVariance(used)
	st.PageFaultRate = PageFaultRate(snaps)
	st.FragmentationRatio = FragmentationRatio(snaps)
	st.MemoryPressure = snaps[len(snaps)-1].MemoryPressure()
	st.AverageResident = Mean(resident)
	st.PeakResident = maxOf(resident)
	return st
}

func maxOf(values []uint64) uint64 {
	var m uint64
	for _, v := range values {
		m = max(m, v)
	}
	return m
}
