// Package profiler is the facade of the memory profiling engine. A Profiler
// owns one Sampler, feeds every captured snapshot to the leak detector and the
// alerting rules, and answers synchronous queries against an immutable copy of
// the captured history.
//
// There is no package-level instance: callers construct a Profiler and pass
// it to whatever needs it.
package profiler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/memprof/internal/analysis"
	"github.com/agbru/memprof/internal/archive"
	"github.com/agbru/memprof/internal/logging"
	"github.com/agbru/memprof/internal/metrics"
	"github.com/agbru/memprof/internal/sampler"
	"github.com/agbru/memprof/internal/sysmon"
)

const tracerName = "github.com/agbru/memprof/internal/profiler"

// Option configures a Profiler during construction.
type Option func(*Profiler)

// WithTracer replaces the OpenTelemetry tracer. The default is the global
// provider's tracer, which is a no-op unless the program installs one.
func WithTracer(t trace.Tracer) Option {
	return func(p *Profiler) { p.tracer = t }
}

// WithSamplerOptions forwards options to the underlying Sampler.
func WithSamplerOptions(opts ...sampler.Option) Option {
	return func(p *Profiler) { p.samplerOpts = append(p.samplerOpts, opts...) }
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(p *Profiler) { p.session = id }
}

// Counters reports the profiler's running totals.
type Counters struct {
	// Snapshots is the number of snapshots the consumer has observed.
	Snapshots uint64 `json:"snapshots"`
	// Alerts counts usage jumps above the performance alert threshold.
	Alerts uint64 `json:"performance_alerts"`
	// CaptureFailures counts zero-filled snapshots recorded after a failed read.
	CaptureFailures uint64 `json:"capture_failures"`
	// Dropped counts snapshots the internal consumer lost to backpressure.
	Dropped uint64 `json:"dropped"`
}

// Profiler wires a Sampler to the analyzers.
type Profiler struct {
	cfg         Config
	session     string
	logger      logging.Logger
	tracer      trace.Tracer
	samplerOpts []sampler.Option

	sampler  *sampler.Sampler
	analyzer *analysis.PerformanceAnalyzer
	detector *analysis.LeakDetector

	lifeMu sync.Mutex
	sub    *sampler.Subscription
	done   chan struct{}

	stateMu  sync.RWMutex
	window   []metrics.Snapshot
	previous metrics.Snapshot
	leak     analysis.LeakSuspicion
	hasLeak  bool
	dropped  uint64

	obsMu     sync.RWMutex
	observers []func(metrics.Snapshot)

	observed atomic.Uint64
	alerts   atomic.Uint64
}

// New validates cfg and builds a stopped Profiler reading from provider.
//
// Returns:
//   - error: a ValidationError when cfg is out of range.
func New(cfg Config, provider sysmon.Provider, logger logging.Logger, opts ...Option) (*Profiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	analyzer, err := analysis.NewPerformanceAnalyzer(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	detector, err := analysis.NewLeakDetector(cfg.leakConfig())
	if err != nil {
		return nil, err
	}

	p := &Profiler{
		cfg:      cfg,
		logger:   logger,
		analyzer: analyzer,
		detector: detector,
		window:   make([]metrics.Snapshot, 0, cfg.LeakWindow),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.session == "" {
		p.session = uuid.NewString()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}

	samplerOpts := append([]sampler.Option{
		sampler.WithCapacity(cfg.Capacity),
		sampler.WithQueueSize(cfg.QueueSize),
	}, p.samplerOpts...)
	p.sampler = sampler.New(provider, logger, samplerOpts...)
	return p, nil
}

// Config returns the configuration the profiler was built with.
func (p *Profiler) Config() Config { return p.cfg }

// Session returns the identifier stamped on exported documents.
func (p *Profiler) Session() string { return p.session }

// Start begins sampling. Starting a running profiler is a no-op.
//
// Returns:
//   - error: an AccessDeniedError when the memory facility is unreachable.
func (p *Profiler) Start(ctx context.Context) error {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	if p.sub != nil {
		if p.sampler.Running() {
			return nil
		}
		// The sampling context ended on its own; release the old consumer.
		p.stopLocked()
	}

	sub := p.sampler.Subscribe()
	if err := p.sampler.Start(ctx, p.cfg.Interval, p.cfg.Capacity); err != nil {
		p.sampler.Unsubscribe(sub)
		return err
	}
	done := make(chan struct{})
	p.sub, p.done = sub, done
	go p.consume(sub, done)

	p.logger.Info("profiler started",
		logging.String("session", p.session),
		logging.Int("leak_window", p.cfg.LeakWindow),
	)
	return nil
}

// Stop halts sampling and waits until every delivered snapshot has been
// processed. History is kept. Stopping a stopped profiler is a no-op.
func (p *Profiler) Stop() {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.sub == nil {
		return
	}
	p.stopLocked()
	p.logger.Info("profiler stopped", logging.Uint64("snapshots", p.observed.Load()))
}

func (p *Profiler) stopLocked() {
	p.sampler.Stop()
	sub := p.sub
	p.sampler.Unsubscribe(sub)
	<-p.done

	p.stateMu.Lock()
	p.dropped += sub.Dropped()
	p.stateMu.Unlock()
	p.sub, p.done = nil, nil
}

// Running reports whether the sampling loop is active.
func (p *Profiler) Running() bool { return p.sampler.Running() }

func (p *Profiler) consume(sub *sampler.Subscription, done chan<- struct{}) {
	defer close(done)
	for snap := range sub.C() {
		p.observe(snap)
	}
}

// observe feeds one snapshot to the leak window, the alert rule and the
// registered observers.
func (p *Profiler) observe(snap metrics.Snapshot) {
	p.observed.Add(1)

	p.stateMu.Lock()
	if len(p.window) == p.cfg.LeakWindow {
		copy(p.window, p.window[1:])
		p.window = p.window[:len(p.window)-1]
	}
	p.window = append(p.window, snap)

	var (
		report     analysis.LeakSuspicion
		evaluated  bool
		wasLeaking = p.hasLeak && p.leak.Suspected
	)
	if len(p.window) == p.cfg.LeakWindow {
		report = p.detector.Detect(p.window)
		p.leak, p.hasLeak, evaluated = report, true, true
	}
	prev := p.previous
	if !snap.IsZero() {
		p.previous = snap
	}
	p.stateMu.Unlock()

	if evaluated {
		switch {
		case report.Suspected && !wasLeaking:
			p.logger.Warn("memory leak suspected",
				logging.Float64("confidence", report.Confidence),
				logging.Uint64("growth_bytes", report.TotalEstimatedSize),
				logging.Int("growth_ticks", report.GrowthTicks),
			)
		case !report.Suspected && wasLeaking:
			p.logger.Info("memory leak suspicion cleared")
		}
	}

	if !snap.IsZero() && !prev.IsZero() {
		if jump := absDiff(snap.UsedMemory, prev.UsedMemory); jump > p.cfg.Thresholds.PerformanceAlert {
			p.alerts.Add(1)
			p.logger.Warn("performance alert: memory usage jump",
				logging.Uint64("jump_bytes", jump),
				logging.Uint64("used_bytes", snap.UsedMemory),
			)
		}
	}

	p.obsMu.RLock()
	observers := p.observers
	p.obsMu.RUnlock()
	for _, fn := range observers {
		fn(snap)
	}
}

// OnSnapshot registers fn to be called with every observed snapshot, in
// capture order, from the consumer goroutine. fn must not call Start, Stop,
// SnapshotNow or Counters.
func (p *Profiler) OnSnapshot(fn func(metrics.Snapshot)) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	observers := make([]func(metrics.Snapshot), len(p.observers), len(p.observers)+1)
	copy(observers, p.observers)
	p.observers = append(observers, fn)
}

// SnapshotNow captures a snapshot immediately. While running, the snapshot
// reaches the analyzers through the consumer; otherwise it is observed
// directly. The lifecycle lock is held throughout so a concurrent Start
// cannot subscribe between the capture and the direct observation.
func (p *Profiler) SnapshotNow() metrics.Snapshot {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	snap := p.sampler.SnapshotNow()
	if p.sub == nil {
		p.observe(snap)
	}
	return snap
}

// CurrentSnapshot returns the most recent snapshot, if any.
func (p *Profiler) CurrentSnapshot() (metrics.Snapshot, bool) { return p.sampler.Latest() }

// History returns a copy of the retained snapshots, oldest first.
func (p *Profiler) History() []metrics.Snapshot { return p.sampler.History() }

// ClearHistory empties the retention buffer and the leak window.
func (p *Profiler) ClearHistory() {
	p.sampler.ClearHistory()
	p.resetLeakState(nil)
}

// CurrentStats computes statistics over the retained history.
func (p *Profiler) CurrentStats() analysis.Stats {
	return analysis.ComputeStats(p.sampler.History())
}

// AnalyzeHistory runs the performance analyzer over the retained history.
func (p *Profiler) AnalyzeHistory(ctx context.Context) analysis.PerformanceAnalysis {
	_, span := p.tracer.Start(ctx, "profiler.AnalyzeHistory")
	defer span.End()

	history := p.sampler.History()
	result := p.analyzer.Analyze(history)
	span.SetAttributes(
		attribute.Int("memprof.snapshots", len(history)),
		attribute.Int("memprof.bottlenecks", len(result.Bottlenecks)),
		attribute.Float64("memprof.score", result.Score),
	)
	return result
}

// DetectLeaks evaluates the trailing leak window of the retained history.
// Until that window is full the result is an empty, unsuspected report.
func (p *Profiler) DetectLeaks() analysis.LeakSuspicion {
	window := p.sampler.Window(p.cfg.LeakWindow)
	if len(window) < p.cfg.LeakWindow {
		return analysis.LeakSuspicion{Sites: []analysis.LeakSite{}}
	}
	return p.detector.Detect(window)
}

// LastLeakReport returns the report computed by the consumer for the most
// recent full window. ok is false until the window first fills.
func (p *Profiler) LastLeakReport() (report analysis.LeakSuspicion, ok bool) {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.leak, p.hasLeak
}

// Recommendations returns the recommendations for the retained history.
func (p *Profiler) Recommendations() []analysis.Recommendation {
	return p.analyzer.Analyze(p.sampler.History()).Recommendations
}

// RealTime grades the latest snapshot against the retained history.
func (p *Profiler) RealTime() analysis.RealTimeAnalysis {
	history := p.sampler.History()
	var current metrics.Snapshot
	if n := len(history); n > 0 {
		current = history[n-1]
	}
	return p.analyzer.AnalyzeRealtime(current, history)
}

// AccessPattern classifies the paging behavior of the retained history.
func (p *Profiler) AccessPattern() analysis.AccessPatternAnalysis {
	return analysis.ClassifyAccessPattern(p.sampler.History())
}

// Predict forecasts used memory horizon after the latest retained snapshot.
func (p *Profiler) Predict(horizon time.Duration) analysis.Prediction {
	return analysis.Predict(p.sampler.History(), horizon)
}

// Trend classifies usage over the default trend window.
func (p *Profiler) Trend() analysis.Trend { return p.sampler.Trend(analysis.DefaultTrendWindow) }

// Subscribe registers an external bounded subscriber on the sampler.
func (p *Profiler) Subscribe() *sampler.Subscription { return p.sampler.Subscribe() }

// Unsubscribe removes a subscriber obtained from Subscribe.
func (p *Profiler) Unsubscribe(sub *sampler.Subscription) { p.sampler.Unsubscribe(sub) }

// Counters returns the running totals.
func (p *Profiler) Counters() Counters {
	p.stateMu.RLock()
	dropped := p.dropped
	p.stateMu.RUnlock()

	p.lifeMu.Lock()
	if p.sub != nil {
		dropped += p.sub.Dropped()
	}
	p.lifeMu.Unlock()

	return Counters{
		Snapshots:       p.observed.Load(),
		Alerts:          p.alerts.Load(),
		CaptureFailures: p.sampler.Failures(),
		Dropped:         dropped,
	}
}

// Export writes the retained history to path.
//
// Returns:
//   - archive.Document: the written document.
//   - error: an ArchiveError, or the context error.
func (p *Profiler) Export(ctx context.Context, path string) (archive.Document, error) {
	ctx, span := p.tracer.Start(ctx, "profiler.Export",
		trace.WithAttributes(attribute.String("memprof.path", path)))
	defer span.End()

	doc, err := archive.Save(ctx, path, p.session, p.sampler.History())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("export failed", err, logging.String("path", path))
		return archive.Document{}, err
	}
	span.SetAttributes(attribute.Int("memprof.snapshots", doc.Count))
	p.logger.Info("history exported",
		logging.String("path", path),
		logging.Int("snapshots", doc.Count),
	)
	return doc, nil
}

// Import replaces the retained history with the document at path, keeping
// the most recent Capacity snapshots. Imported snapshots are not published
// to subscribers, but the leak window is rebuilt from them.
//
// Returns:
//   - archive.Document: the document as read.
//   - error: an ArchiveError, or the context error.
func (p *Profiler) Import(ctx context.Context, path string) (archive.Document, error) {
	ctx, span := p.tracer.Start(ctx, "profiler.Import",
		trace.WithAttributes(attribute.String("memprof.path", path)))
	defer span.End()

	doc, err := archive.Load(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("import failed", err, logging.String("path", path))
		return archive.Document{}, err
	}

	snaps := doc.Snapshots()
	p.sampler.Load(snaps)
	p.resetLeakState(p.sampler.Window(p.cfg.LeakWindow))

	span.SetAttributes(
		attribute.Int("memprof.snapshots", doc.Count),
		attribute.String("memprof.source_session", doc.SessionID),
	)
	p.logger.Info("history imported",
		logging.String("path", path),
		logging.String("source_session", doc.SessionID),
		logging.Int("snapshots", doc.Count),
		logging.Int("retained", p.sampler.Len()),
	)
	return doc, nil
}

// resetLeakState reseeds the leak window and previous-snapshot tracking.
func (p *Profiler) resetLeakState(window []metrics.Snapshot) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.window = append(p.window[:0], window...)
	p.previous = metrics.Snapshot{}
	p.leak, p.hasLeak = analysis.LeakSuspicion{}, false
	for i := len(window) - 1; i >= 0; i-- {
		if !window[i].IsZero() {
			p.previous = window[i]
			break
		}
	}
	if len(p.window) == p.cfg.LeakWindow {
		p.leak, p.hasLeak = p.detector.Detect(p.window), true
	}
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
