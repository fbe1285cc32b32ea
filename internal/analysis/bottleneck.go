package analysis

import (
	"fmt"

	"github.com/agbru/memprof/internal/config"
)

const (
	criticalPressure        = 0.9
	minAllocationEfficiency = 0.7
)

// DetectBottlenecks applies the independent detection rules to stats. The
// result is ordered memory-pressure, page-faults, fragmentation, allocation.
func DetectBottlenecks(st Stats, th config.Thresholds) []Bottleneck {
	out := []Bottleneck{}
	if st.SampleCount == 0 {
		return out
	}

	if st.MemoryPressure > th.MemoryPressure {
		sev := SeverityHigh
		if st.MemoryPressure > criticalPressure {
			sev = SeverityCritical
		}
		out = append(out, Bottleneck{
			Kind:        BottleneckMemoryPressure,
			Severity:    sev,
			Description: fmt.Sprintf("memory pressure at %.1f%% exceeds %.1f%%", st.MemoryPressure*100, th.MemoryPressure*100),
			Impact:      "allocations may stall and the host may start swapping",
		})
	}
	if st.PageFaultRate > th.PageFault {
		out = append(out, Bottleneck{
			Kind:        BottleneckPageFaults,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%.0f page faults/min exceeds %.0f/min", st.PageFaultRate, th.PageFault),
			Impact:      "memory access latency rises as pages are mapped on demand",
		})
	}
	if st.FragmentationRatio > th.Fragmentation {
		out = append(out, Bottleneck{
			Kind:        BottleneckFragmentation,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("fragmentation ratio %.2f exceeds %.2f", st.FragmentationRatio, th.Fragmentation),
			Impact:      "reserved address space is poorly backed by resident pages",
		})
	}
	if st.AllocationEfficiency < minAllocationEfficiency {
		out = append(out, Bottleneck{
			Kind:        BottleneckAllocation,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("allocation efficiency %.2f below %.2f", st.AllocationEfficiency, minAllocationEfficiency),
			Impact:      "usage churns heavily between samples",
		})
	}
	return out
}

// RiskLevel is the highest bottleneck severity, or low when there is none.
func RiskLevel(bottlenecks []Bottleneck) Severity {
	risk := SeverityLow
	for _, b := range bottlenecks {
		risk = max(risk, b.Severity)
	}
	return risk
}
