package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/memprof/internal/format"
)

const (
	// ProgressRefreshRate defines the refresh frequency of the status line.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth defines the width in characters of the progress bar.
	ProgressBarWidth = 30
)

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// It defines the essential controls for a spinner: starting, stopping, and
// updating its status message.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

// UpdateSuffix takes the spinner lock since the animation goroutine reads
// the suffix concurrently.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// DisplaySamplingProgress animates a spinner with a progress bar and ETA
// until ctx is done. count reports the snapshots captured so far; total is
// the planned run length, zero when unbounded. wg.Done is called on return.
func DisplaySamplingProgress(ctx context.Context, wg *sync.WaitGroup, count func() int, total time.Duration, out io.Writer) {
	defer wg.Done()

	s := newSpinner(spinner.WithWriter(out), spinner.WithHiddenCursor(true))
	progress := format.NewSamplingProgress(total, nil)
	s.UpdateSuffix(progress.Status(count(), ProgressBarWidth))
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.UpdateSuffix(progress.Status(count(), ProgressBarWidth))
		}
	}
}
