package sysmon

import (
	"runtime"

	apperrors "github.com/agbru/memprof/internal/errors"
)

// RuntimeProvider reports the Go runtime's own view of the process: memory
// obtained from the OS stands in for the virtual size and memory not yet
// returned to it for the resident size. Host totals still come from the OS.
type RuntimeProvider struct {
	host *HostProvider
	read func(*runtime.MemStats)
}

// NewRuntimeProvider returns a provider backed by runtime.ReadMemStats.
func NewRuntimeProvider() *RuntimeProvider {
	return &RuntimeProvider{host: NewHostProvider(), read: runtime.ReadMemStats}
}

// Probe checks that host totals are readable.
func (r *RuntimeProvider) Probe() error {
	if _, err := r.host.ReadSystemMemory(); err != nil {
		return apperrors.AccessDeniedError{Facility: "system memory", Cause: err}
	}
	return nil
}

// ReadSystemMemory delegates to the host provider.
func (r *RuntimeProvider) ReadSystemMemory() (SystemMemory, error) {
	return r.host.ReadSystemMemory()
}

// ReadProcessMemory never fails.
func (r *RuntimeProvider) ReadProcessMemory() (ProcessMemory, error) {
	var m runtime.MemStats
	r.read(&m)
	pm := ProcessMemory{
		Virtual:  m.Sys,
		Resident: m.Sys - m.HeapReleased,
	}
	if ru, ok := readRusage(); ok {
		pm.Faults = ru.faults
		pm.PageIns = ru.pageIns
		pm.PageOuts = ru.pageOuts
	}
	return pm, nil
}

// NewProvider selects a provider by name ("host" or "runtime").
func NewProvider(source string) (Provider, error) {
	switch source {
	case "", "host":
		return NewHostProvider(), nil
	case "runtime":
		return NewRuntimeProvider(), nil
	default:
		return nil, apperrors.NewConfigError("unknown source %q", source)
	}
}
