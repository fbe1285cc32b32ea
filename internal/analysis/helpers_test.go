package analysis

import (
	"time"

	"github.com/agbru/memprof/internal/config"
	"github.com/agbru/memprof/internal/metrics"
)

const gib = 1 << 30

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// series builds one snapshot per second with the given used bytes and a
// fixed 16 GiB host.
func series(used ...uint64) []metrics.Snapshot {
	out := make([]metrics.Snapshot, len(used))
	for i, u := range used {
		out[i] = metrics.Snapshot{
			Timestamp:    epoch.Add(time.Duration(i) * time.Second),
			TotalMemory:  16 * gib,
			UsedMemory:   u,
			FreeMemory:   16*gib - u,
			ResidentSize: 100 << 20,
			VirtualSize:  400 << 20,
		}
	}
	return out
}

// residentRun builds snapshots whose resident size follows rss.
func residentRun(rss ...uint64) []metrics.Snapshot {
	out := series(make([]uint64, len(rss))...)
	for i := range out {
		out[i].UsedMemory = 4 * gib
		out[i].ResidentSize = rss[i]
	}
	return out
}

func linearUsage(n int, start, step uint64) []metrics.Snapshot {
	used := make([]uint64, n)
	for i := range used {
		used[i] = start + uint64(i)*step
	}
	return series(used...)
}

func defaults() config.Thresholds { return config.DefaultThresholds() }
