//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package sysmon

type rusage struct {
	faults   uint64
	pageIns  uint64
	pageOuts uint64
}

func readRusage() (rusage, bool) { return rusage{}, false }
