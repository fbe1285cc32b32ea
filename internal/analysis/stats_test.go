package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/agbru/memprof/internal/metrics"
)

func TestFragmentationRatio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		snap metrics.Snapshot
		want float64
	}{
		{
			name: "used ratio above resident ratio",
			snap: metrics.Snapshot{TotalMemory: 100, UsedMemory: 80, ResidentSize: 40, VirtualSize: 100},
			want: 0.5,
		},
		{
			name: "resident ratio dominates",
			snap: metrics.Snapshot{TotalMemory: 100, UsedMemory: 20, ResidentSize: 90, VirtualSize: 100},
			want: 0,
		},
		{
			name: "zero resident",
			snap: metrics.Snapshot{TotalMemory: 100, UsedMemory: 50, VirtualSize: 100, PageFaults: 1},
			want: 0,
		},
		{
			name: "unknown virtual size",
			snap: metrics.Snapshot{TotalMemory: 100, UsedMemory: 50, ResidentSize: 10},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FragmentationRatio([]metrics.Snapshot{tt.snap})
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FragmentationRatio() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestAllocationEfficiency(t *testing.T) {
	t.Parallel()
	if got := AllocationEfficiency(series(gib)); got != 0.8 {
		t.Errorf("single sample = %g, want 0.8", got)
	}
	if got := AllocationEfficiency(series(gib, gib, gib)); got != 1 {
		t.Errorf("flat usage = %g, want 1", got)
	}
	// mean(|Δ|) = 100, mean(usage) = 1000 -> 0.9
	if got := AllocationEfficiency(series(900, 1000, 1100)); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("linear usage = %g, want 0.9", got)
	}
	if got := AllocationEfficiency(series(1, 10000, 1)); got != 0 {
		t.Errorf("extreme churn = %g, want 0 (clamped)", got)
	}
}

func TestCacheHitRateEstimate(t *testing.T) {
	t.Parallel()
	snaps := series(gib)
	if got := CacheHitRateEstimate(snaps); got != 1 {
		t.Errorf("no faults = %g, want 1", got)
	}
	snaps[0].PageFaults = 10000
	if got := CacheHitRateEstimate(snaps); got != 0.5 {
		t.Errorf("10000 faults = %g, want 0.5", got)
	}
}

func TestUsageVariance(t *testing.T) {
	t.Parallel()
	if got := UsageVariance(series(2, 4, 4, 4, 5, 5, 7, 9)); got != 4 {
		t.Errorf("UsageVariance() = %g, want 4", got)
	}
	if got := UsageVariance(series(5)); got != 0 {
		t.Errorf("single sample variance = %g, want 0", got)
	}
}

func TestPageFaultRate(t *testing.T) {
	t.Parallel()
	snaps := series(gib, gib, gib)
	snaps[0].PageFaults = 1000
	snaps[2].PageFaults = 1100
	snaps[2].Timestamp = snaps[0].Timestamp.Add(30 * time.Second)
	if got := PageFaultRate(snaps); got != 200 {
		t.Errorf("PageFaultRate() = %g, want 200/min", got)
	}

	snaps[2].PageFaults = 10
	if got := PageFaultRate(snaps); got != 0 {
		t.Errorf("counter reset should yield 0, got %g", got)
	}

	same := series(gib, gib)
	same[1].Timestamp = same[0].Timestamp
	same[1].PageFaults = 50
	if got := PageFaultRate(same); got != 0 {
		t.Errorf("zero elapsed should yield 0, got %g", got)
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()
	snaps := series(1*gib, 3*gib, 2*gib)
	snaps[1].ResidentSize = 300 << 20

	st := ComputeStats(snaps)
	if st.SampleCount != 3 {
		t.Errorf("SampleCount = %d", st.SampleCount)
	}
	if st.AverageUsage != 2*gib {
		t.Errorf("AverageUsage = %g", st.AverageUsage)
	}
	if st.PeakUsage != 3*gib {
		t.Errorf("PeakUsage = %d", st.PeakUsage)
	}
	if st.PeakResident != 300<<20 {
		t.Errorf("PeakResident = %d", st.PeakResident)
	}
	if st.MemoryPressure != 2.0/16 {
		t.Errorf("MemoryPressure = %g, want last sample's ratio", st.MemoryPressure)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	t.Parallel()
	st := ComputeStats(nil)
	if st.SampleCount != 0 || st.AverageUsage != 0 || st.PageFaultRate != 0 {
		t.Errorf("empty stats should be zero-valued: %+v", st)
	}
	if st.AllocationEfficiency != 0.8 || st.CacheHitRate != 1 {
		t.Errorf("empty stats should carry defaults: %+v", st)
	}
}

func TestComputeStats_IgnoresFailedCaptures(t *testing.T) {
	t.Parallel()
	snaps := series(gib, gib, gib)
	snaps[1] = metrics.Snapshot{Timestamp: snaps[1].Timestamp}
	st := ComputeStats(snaps)
	if st.SampleCount != 2 || st.AverageUsage != gib {
		t.Errorf("zero-filled snapshot should be skipped: %+v", st)
	}
	if st.AllocationEfficiency != 1 {
		t.Errorf("AllocationEfficiency = %g, want 1", st.AllocationEfficiency)
	}
}

func TestLinearRegression(t *testing.T) {
	t.Parallel()
	fit, ok := LinearRegression([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	if !ok {
		t.Fatal("expected a fit")
	}
	if math.Abs(fit.Slope-2) > 1e-9 || math.Abs(fit.Intercept-1) > 1e-9 || math.Abs(fit.R2-1) > 1e-9 {
		t.Errorf("unexpected fit: %+v", fit)
	}
	if got := fit.At(10); math.Abs(got-21) > 1e-9 {
		t.Errorf("At(10) = %g, want 21", got)
	}

	flat, ok := LinearRegression([]float64{0, 1, 2}, []float64{5, 5, 5})
	if !ok || flat.R2 != 1 || flat.Slope != 0 {
		t.Errorf("flat series fit = %+v, %v", flat, ok)
	}

	if _, ok := LinearRegression([]float64{1, 1, 1}, []float64{1, 2, 3}); ok {
		t.Error("x without spread should not fit")
	}
	if _, ok := LinearRegression([]float64{1}, []float64{1}); ok {
		t.Error("single point should not fit")
	}
	if _, ok := LinearRegression([]float64{1, 2}, []float64{1}); ok {
		t.Error("mismatched lengths should not fit")
	}
}
