package analysis

import "testing"

func TestClassifyTrend(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		used []uint64
		want Trend
	}{
		{"empty", nil, TrendInsufficientData},
		{"single", []uint64{gib}, TrendInsufficientData},
		{"flat", []uint64{1000, 1010, 1020}, TrendStable},
		{"gradual rise", []uint64{1000, 1050, 1100}, TrendGraduallyIncreasing},
		{"rapid rise", []uint64{1000, 1300}, TrendRapidlyIncreasing},
		{"gradual fall", []uint64{1000, 900}, TrendGraduallyDecreasing},
		{"rapid fall", []uint64{1000, 700}, TrendRapidlyDecreasing},
		{"exactly twenty percent", []uint64{1000, 1200}, TrendGraduallyIncreasing},
		{"from zero", []uint64{0, 10}, TrendRapidlyIncreasing},
		{"zero throughout", []uint64{0, 0}, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snaps := series(tt.used...)
			// series with zero usage still carries host totals, so it is not a failed capture.
			if got := ClassifyTrend(snaps); got != tt.want {
				t.Errorf("ClassifyTrend(%v) = %s, want %s", tt.used, got, tt.want)
			}
		})
	}
}

func TestClassifyTrend_LinearGigabyteExample(t *testing.T) {
	t.Parallel()
	snaps := linearUsage(10, gib, gib/10)
	if got := ClassifyTrend(snaps); got != TrendRapidlyIncreasing {
		t.Errorf("ClassifyTrend() = %s, want rapidly_increasing", got)
	}
}

func TestTrendWindow(t *testing.T) {
	t.Parallel()
	// Doubling early, flat over the last 10 samples.
	used := []uint64{1000, 2000}
	for range 10 {
		used = append(used, 2000)
	}
	snaps := series(used...)
	if got := TrendWindow(snaps, 0); got != TrendStable {
		t.Errorf("default window = %s, want stable", got)
	}
	if got := TrendWindow(snaps, len(snaps)); got != TrendRapidlyIncreasing {
		t.Errorf("full window = %s, want rapidly_increasing", got)
	}
}
