package format

import (
	"fmt"
	"strings"
	"time"
)

// maxETA caps estimates so a stalled clock never prints absurd values.
const maxETA = 24 * time.Hour

// ProgressBar renders progress in [0, 1] as a bar of length cells.
// Out-of-range values are clamped.
func ProgressBar(progress float64, length int) string {
	if length <= 0 {
		return ""
	}
	progress = clamp01(progress)
	filled := int(progress * float64(length))
	if filled > length {
		filled = length
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

// FormatETA renders a remaining duration compactly ("45s", "2m30s", "1h15m").
// Non-positive durations mean the estimate is not available yet.
func FormatETA(eta time.Duration) string {
	if eta <= 0 {
		return "calculating..."
	}
	if eta < time.Second {
		return "< 1s"
	}
	eta = eta.Round(time.Second)
	h := int(eta / time.Hour)
	m := int(eta % time.Hour / time.Minute)
	s := int(eta % time.Minute / time.Second)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatProgressBarWithETA combines a bar, a percentage and the remaining time.
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	progress = clamp01(progress)
	return fmt.Sprintf("[%s] %5.1f%% ETA: %s", ProgressBar(progress, width), progress*100, FormatETA(eta))
}

// SamplingProgress tracks a bounded sampling run. Progress is elapsed over
// total wall time; the snapshot count is informational.
type SamplingProgress struct {
	start time.Time
	total time.Duration
	now   func() time.Time
}

// NewSamplingProgress starts tracking a run of the given total length.
// A nil clock selects time.Now.
func NewSamplingProgress(total time.Duration, now func() time.Time) *SamplingProgress {
	if now == nil {
		now = time.Now
	}
	return &SamplingProgress{start: now(), total: total, now: now}
}

// Progress returns the completed fraction in [0, 1]. Unbounded runs
// (total <= 0) always report 0.
func (p *SamplingProgress) Progress() float64 {
	if p.total <= 0 {
		return 0
	}
	return clamp01(float64(p.now().Sub(p.start)) / float64(p.total))
}

// ETA returns the remaining time, capped at maxETA, or 0 when unbounded.
func (p *SamplingProgress) ETA() time.Duration {
	if p.total <= 0 {
		return 0
	}
	remaining := p.total - p.now().Sub(p.start)
	if remaining < 0 {
		return 0
	}
	return min(remaining, maxETA)
}

// Status renders the spinner suffix for the current moment.
func (p *SamplingProgress) Status(snapshots int, width int) string {
	if p.total <= 0 {
		return fmt.Sprintf(" sampling... %s snapshots, %s elapsed",
			FormatCount(uint64(snapshots)), FormatExecutionDuration(p.now().Sub(p.start).Round(time.Second)))
	}
	return fmt.Sprintf(" %s %s snapshots", FormatProgressBarWithETA(p.Progress(), p.ETA(), width), FormatCount(uint64(snapshots)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
