package sysmon

import (
	"fmt"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	apperrors "github.com/agbru/memprof/internal/errors"
)

// HostProvider reads memory counters from the operating system through
// gopsutil, with cumulative fault and paging counters taken from getrusage
// where the platform has it.
type HostProvider struct {
	pid int32

	once    sync.Once
	proc    *process.Process
	procErr error
}

// NewHostProvider returns a provider observing the current process.
func NewHostProvider() *HostProvider {
	return &HostProvider{pid: int32(os.Getpid())}
}

func (h *HostProvider) process() (*process.Process, error) {
	h.once.Do(func() {
		h.proc, h.procErr = process.NewProcess(h.pid)
	})
	return h.proc, h.procErr
}

// Probe performs one read of every counter and reports the first facility
// that cannot be reached.
func (h *HostProvider) Probe() error {
	if _, err := h.ReadSystemMemory(); err != nil {
		return apperrors.AccessDeniedError{Facility: "system memory", Cause: err}
	}
	if _, err := h.ReadProcessMemory(); err != nil {
		return apperrors.AccessDeniedError{Facility: "process memory", Cause: err}
	}
	return nil
}

// ReadSystemMemory reads host totals. Free reports the memory available to
// new allocations without swapping.
func (h *HostProvider) ReadSystemMemory() (SystemMemory, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return SystemMemory{}, err
	}
	if vm == nil || vm.Total == 0 {
		return SystemMemory{}, fmt.Errorf("virtual memory: empty reading")
	}
	return SystemMemory{Total: vm.Total, Used: vm.Used, Free: vm.Available}, nil
}

// ReadProcessMemory reads RSS/VMS for the observed process and its
// cumulative paging counters.
func (h *HostProvider) ReadProcessMemory() (ProcessMemory, error) {
	p, err := h.process()
	if err != nil {
		return ProcessMemory{}, err
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return ProcessMemory{}, err
	}
	pm := ProcessMemory{Resident: info.RSS, Virtual: info.VMS}

	if ru, ok := readRusage(); ok {
		pm.Faults = ru.faults
		pm.PageIns = ru.pageIns
		pm.PageOuts = ru.pageOuts
		return pm, nil
	}

	pf, err := p.PageFaults()
	if err != nil {
		return ProcessMemory{}, fmt.Errorf("page faults: %w", err)
	}
	pm.Faults = pf.MinorFaults + pf.MajorFaults
	pm.PageIns = pf.MajorFaults
	return pm, nil
}
