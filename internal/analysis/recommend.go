package analysis

var recommendationTable = map[BottleneckKind][]Recommendation{
	BottleneckMemoryPressure: {
		{
			Kind:                 RecommendMemoryOptimization,
			Priority:             LevelHigh,
			EstimatedImprovement: 0.30,
			Effort:               LevelMedium,
			Description:          "Reduce the working set: release caches and shrink long-lived buffers",
		},
		{
			Kind:                 RecommendGarbageCollection,
			Priority:             LevelMedium,
			EstimatedImprovement: 0.15,
			Effort:               LevelLow,
			Description:          "Tune the collector target (GOGC/GOMEMLIMIT) to return memory sooner",
		},
	},
	BottleneckPageFaults: {
		{
			Kind:                 RecommendCaching,
			Priority:             LevelHigh,
			EstimatedImprovement: 0.25,
			Effort:               LevelMedium,
			Description:          "Keep hot data resident with a bounded cache instead of re-reading it",
		},
		{
			Kind:                 RecommendMemoryLayout,
			Priority:             LevelMedium,
			EstimatedImprovement: 0.15,
			Effort:               LevelHigh,
			Description:          "Improve locality: group data accessed together into contiguous structures",
		},
	},
	BottleneckFragmentation: {
		{
			Kind:                 RecommendMemoryPooling,
			Priority:             LevelMedium,
			EstimatedImprovement: 0.20,
			Effort:               LevelMedium,
			Description:          "Pool fixed-size objects to reuse allocations instead of growing the heap",
		},
	},
	BottleneckAllocation: {
		{
			Kind:                 RecommendAllocationStrategy,
			Priority:             LevelMedium,
			EstimatedImprovement: 0.15,
			Effort:               LevelMedium,
			Description:          "Preallocate slices and maps to their expected size to cut churn",
		},
	},
}

// RecommendationsFor maps bottlenecks to recommendations through a fixed
// table, in bottleneck order. Each kind contributes at most once.
func RecommendationsFor(bottlenecks []Bottleneck) []Recommendation {
	out := []Recommendation{}
	seen := make(map[RecommendationKind]bool)
	for _, b := range bottlenecks {
		for _, r := range recommendationTable[b.Kind] {
			if seen[r.Kind] {
				continue
			}
			seen[r.Kind] = true
			out = append(out, r)
		}
	}
	return out
}
