// Package sampler captures memory snapshots at a fixed cadence into a bounded
// retention buffer and fans each snapshot out to subscribers.
package sampler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agbru/memprof/internal/analysis"
	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/logging"
	"github.com/agbru/memprof/internal/metrics"
	"github.com/agbru/memprof/internal/sysmon"
)

// Option configures a Sampler during construction.
type Option func(*Sampler)

// WithClock replaces the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Sampler) { s.clock = clock }
}

// WithQueueSize sets the per-subscriber queue size.
func WithQueueSize(n int) Option {
	return func(s *Sampler) { s.queueSize = n }
}

// WithCapacity sets the initial retention capacity.
func WithCapacity(n int) Option {
	return func(s *Sampler) { s.buf = metrics.NewBuffer(n) }
}

// Sampler owns the retention buffer. Capture, append and publish happen under
// one lock, so subscribers see snapshots in insertion order. Readers always
// receive copies.
type Sampler struct {
	provider  sysmon.Provider
	logger    logging.Logger
	clock     func() time.Time
	queueSize int

	captureMu sync.Mutex

	bufMu sync.RWMutex
	buf   *metrics.Buffer

	subMu sync.Mutex
	subs  map[*Subscription]struct{}

	lifeMu   sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration

	failures atomic.Uint64
}

// New creates a stopped sampler reading from provider.
func New(provider sysmon.Provider, logger logging.Logger, opts ...Option) *Sampler {
	s := &Sampler{
		provider:  provider,
		logger:    logger,
		clock:     time.Now,
		queueSize: DefaultQueueSize,
		buf:       metrics.NewBuffer(metrics.DefaultCapacity),
		subs:      make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start verifies the memory-info facility, sizes the buffer to capacity,
// records a first snapshot and begins sampling every interval until Stop is
// called or ctx is done. Starting a running sampler is a no-op.
//
// Returns:
//   - error: a ValidationError for a non-positive interval or capacity, or an
//     AccessDeniedError when the provider cannot be reached.
func (s *Sampler) Start(ctx context.Context, interval time.Duration, capacity int) error {
	if interval <= 0 {
		return apperrors.NewValidationError("interval", "must be positive, got %s", interval)
	}
	if capacity <= 0 {
		return apperrors.NewValidationError("capacity", "must be positive, got %d", capacity)
	}

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.runningLocked() {
		return nil
	}

	if err := s.provider.Probe(); err != nil {
		var denied apperrors.AccessDeniedError
		if !errors.As(err, &denied) {
			err = apperrors.AccessDeniedError{Facility: "memory info", Cause: err}
		}
		s.logger.Error("memory facility unavailable", err)
		return err
	}

	s.bufMu.Lock()
	s.buf.Resize(capacity)
	s.bufMu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done, s.interval = cancel, done, interval

	s.capture()
	go s.run(loopCtx, interval, done)

	s.logger.Info("sampler started",
		logging.Duration("interval", interval),
		logging.Int("capacity", capacity),
	)
	return nil
}

// Stop halts sampling and waits for the loop to exit. History is kept.
// Stopping a stopped sampler is a no-op.
func (s *Sampler) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.logger.Info("sampler stopped", logging.Int("retained", s.Len()))
}

// Running reports whether the sampling loop is active.
func (s *Sampler) Running() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.runningLocked()
}

func (s *Sampler) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Interval returns the interval of the current or last run.
func (s *Sampler) Interval() time.Duration {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.interval
}

func (s *Sampler) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.capture()
		}
	}
}

// SnapshotNow captures synchronously. The snapshot is appended and published
// exactly like a tick, whether or not the sampler is running.
func (s *Sampler) SnapshotNow() metrics.Snapshot {
	return s.capture()
}

func (s *Sampler) capture() metrics.Snapshot {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()

	snap := s.read()

	s.bufMu.Lock()
	s.buf.Push(snap)
	s.bufMu.Unlock()

	s.subMu.Lock()
	for sub := range s.subs {
		sub.publish(snap)
	}
	s.subMu.Unlock()
	return snap
}

// read never fails: a failed reading yields a zero-filled snapshot that
// keeps its timestamp.
func (s *Sampler) read() metrics.Snapshot {
	snap := metrics.Snapshot{Timestamp: s.clock().UTC()}

	sys, err := s.provider.ReadSystemMemory()
	if err != nil {
		s.captureFailed("system memory", err)
		return snap
	}
	proc, err := s.provider.ReadProcessMemory()
	if err != nil {
		s.captureFailed("process memory", err)
		return snap
	}

	snap.TotalMemory = sys.Total
	snap.UsedMemory = sys.Used
	snap.FreeMemory = sys.Free
	snap.ResidentSize = proc.Resident
	snap.VirtualSize = proc.Virtual
	snap.PageIns = proc.PageIns
	snap.PageOuts = proc.PageOuts
	snap.PageFaults = proc.Faults
	return snap
}

func (s *Sampler) captureFailed(op string, err error) {
	n := s.failures.Add(1)
	s.logger.Warn("capture failed, recording zero-filled snapshot",
		logging.Err(apperrors.MonitoringError{Operation: op, Cause: err}),
		logging.Uint64("failures", n),
	)
}

// Failures returns the number of captures that produced a zero-filled snapshot.
func (s *Sampler) Failures() uint64 { return s.failures.Load() }

// History returns a copy of the retained snapshots, oldest first.
func (s *Sampler) History() []metrics.Snapshot {
	s.bufMu.RLock()
	defer s.bufMu.RUnlock()
	return s.buf.Snapshots()
}

// Window returns a copy of the last n snapshots, oldest first.
func (s *Sampler) Window(n int) []metrics.Snapshot {
	s.bufMu.RLock()
	defer s.bufMu.RUnlock()
	return s.buf.Window(n)
}

// Latest returns the most recent snapshot, if any.
func (s *Sampler) Latest() (metrics.Snapshot, bool) {
	s.bufMu.RLock()
	defer s.bufMu.RUnlock()
	return s.buf.Last()
}

// Len returns the number of retained snapshots.
func (s *Sampler) Len() int {
	s.bufMu.RLock()
	defer s.bufMu.RUnlock()
	return s.buf.Len()
}

// Capacity returns the retention capacity.
func (s *Sampler) Capacity() int {
	s.bufMu.RLock()
	defer s.bufMu.RUnlock()
	return s.buf.Cap()
}

// ClearHistory empties the retention buffer.
func (s *Sampler) ClearHistory() {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	s.bufMu.Lock()
	s.buf.Reset()
	s.bufMu.Unlock()
}

// Load replaces the history with snaps, keeping the most recent Capacity()
// entries. Loaded snapshots are not published to subscribers.
func (s *Sampler) Load(snaps []metrics.Snapshot) {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	s.bufMu.Lock()
	s.buf.Load(snaps)
	s.bufMu.Unlock()
}

// Trend classifies usage over the last window snapshots (10 when window <= 0).
func (s *Sampler) Trend(window int) analysis.Trend {
	if window <= 0 {
		window = analysis.DefaultTrendWindow
	}
	return analysis.ClassifyTrend(s.Window(window))
}

// Subscribe registers a new bounded subscriber.
func (s *Sampler) Subscribe() *Subscription {
	sub := newSubscription(s.queueSize)
	s.subMu.Lock()
	s.subs[sub] = struct{}{}
	s.subMu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Unknown or already removed
// subscriptions are ignored.
func (s *Sampler) Unsubscribe(sub *Subscription) {
	s.subMu.Lock()
	_, ok := s.subs[sub]
	delete(s.subs, sub)
	s.subMu.Unlock()
	if ok {
		sub.close()
	}
}
