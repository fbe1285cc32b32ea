//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks

package sysmon

// SystemMemory is the host-wide memory view in bytes.
type SystemMemory struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// ProcessMemory is the observed process's memory view. Resident and Virtual
// are bytes; the remaining counters are cumulative since process start.
type ProcessMemory struct {
	Resident uint64
	Virtual  uint64
	PageIns  uint64
	PageOuts uint64
	Faults   uint64
}

// Provider is the boundary to the operating system's memory-info facility.
type Provider interface {
	// Probe verifies that the facility is reachable. It returns an
	// apperrors.AccessDeniedError when it is not.
	Probe() error
	// ReadSystemMemory reads host-wide totals.
	ReadSystemMemory() (SystemMemory, error)
	// ReadProcessMemory reads the observed process's counters.
	ReadProcessMemory() (ProcessMemory, error)
}
