package analysis

import "github.com/agbru/memprof/internal/config"

var severityPenalty = map[Severity]float64{
	SeverityLow:      0.05,
	SeverityMedium:   0.15,
	SeverityHigh:     0.30,
	SeverityCritical: 0.50,
}

const (
	extraPenalty             = 0.10
	faultRateMultiplier      = 5
	severeFragmentation      = 0.5
	poorAllocationEfficiency = 0.5
)

// Penalty is the score deduction for one bottleneck.
func Penalty(b Bottleneck) float64 { return severityPenalty[b.Severity] }

// Score rates a window in [0, 1]. It starts at 1, deducts a severity penalty
// per bottleneck and a further 0.10 for each of: fault rate above five times
// its threshold, fragmentation above 0.5, allocation efficiency below 0.5.
func Score(st Stats, bottlenecks []Bottleneck, th config.Thresholds) float64 {
	score := 1.0
	for _, b := range bottlenecks {
		score -= Penalty(b)
	}
	if st.PageFaultRate > faultRateMultiplier*th.PageFault {
		score -= extraPenalty
	}
	if st.FragmentationRatio > severeFragmentation {
		score -= extraPenalty
	}
	if st.AllocationEfficiency < poorAllocationEfficiency {
		score -= extraPenalty
	}
	return max(0, score)
}
