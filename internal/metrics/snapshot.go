// Package metrics defines the memory Snapshot and the bounded retention
// buffer that holds the captured history.
package metrics

import "time"

// Snapshot is one point-in-time memory reading. Byte counters describe the
// host (Total/Used/Free) and the observed process (ResidentSize/VirtualSize);
// PageIns, PageOuts and PageFaults are cumulative since process start.
type Snapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	TotalMemory  uint64    `json:"total_memory"`
	UsedMemory   uint64    `json:"used_memory"`
	FreeMemory   uint64    `json:"free_memory"`
	ResidentSize uint64    `json:"resident_size"`
	VirtualSize  uint64    `json:"virtual_size"`
	PageIns      uint64    `json:"page_ins"`
	PageOuts     uint64    `json:"page_outs"`
	PageFaults   uint64    `json:"page_faults"`
}

// MemoryPressure returns used/total clamped to [0, 1], or 0 when total is unknown.
func (s Snapshot) MemoryPressure() float64 {
	if s.TotalMemory == 0 {
		return 0
	}
	p := float64(s.UsedMemory) / float64(s.TotalMemory)
	if p > 1 {
		return 1
	}
	return p
}

// IsZero reports whether every counter is zero, as recorded after a failed capture.
func (s Snapshot) IsZero() bool {
	return s.TotalMemory == 0 && s.UsedMemory == 0 && s.FreeMemory == 0 &&
		s.ResidentSize == 0 && s.VirtualSize == 0 &&
		s.PageIns == 0 && s.PageOuts == 0 && s.PageFaults == 0
}
