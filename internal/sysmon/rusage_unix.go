//go:build linux || darwin || freebsd || netbsd || openbsd

package sysmon

import "golang.org/x/sys/unix"

type rusage struct {
	faults   uint64
	pageIns  uint64
	pageOuts uint64
}

// readRusage reads cumulative counters for the calling process. Major faults
// and block inputs count as page-ins; block outputs and swaps as page-outs.
func readRusage() (rusage, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return rusage{}, false
	}
	return rusage{
		faults:   nonNegative(int64(ru.Minflt)) + nonNegative(int64(ru.Majflt)),
		pageIns:  nonNegative(int64(ru.Majflt)) + nonNegative(int64(ru.Inblock)),
		pageOuts: nonNegative(int64(ru.Oublock)) + nonNegative(int64(ru.Nswap)),
	}, true
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
