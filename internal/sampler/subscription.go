package sampler

import (
	"sync"
	"sync/atomic"

	"github.com/agbru/memprof/internal/metrics"
)

// DefaultQueueSize bounds each subscriber channel.
const DefaultQueueSize = 100

// Subscription is a bounded, ordered stream of snapshots. When the consumer
// falls behind, the oldest queued snapshot is discarded to make room for the
// newest one and the Dropped counter is incremented.
type Subscription struct {
	ch      chan metrics.Snapshot
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

func newSubscription(size int) *Subscription {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Subscription{ch: make(chan metrics.Snapshot, size)}
}

// C returns the receive channel. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan metrics.Snapshot { return s.ch }

// Dropped returns how many snapshots were discarded because the queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// publish enqueues snap, evicting the oldest entry if the queue is full.
// Callers serialize publish, so there is a single producer.
func (s *Subscription) publish(snap metrics.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
