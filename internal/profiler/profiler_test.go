package profiler

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/agbru/memprof/internal/analysis"
	"github.com/agbru/memprof/internal/config"
	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/logging"
	"github.com/agbru/memprof/internal/metrics"
	"github.com/agbru/memprof/internal/sampler"
	"github.com/agbru/memprof/internal/sysmon"
	"github.com/agbru/memprof/internal/sysmon/mocks"
)

const (
	mib = 1 << 20
	gib = 1 << 30
)

// scriptedProvider serves used and resident values from queues, repeating
// the last value once a queue is exhausted.
type scriptedProvider struct {
	mu       sync.Mutex
	used     []uint64
	resident []uint64
	faults   uint64
}

func (s *scriptedProvider) Probe() error { return nil }

func (s *scriptedProvider) ReadSystemMemory() (sysmon.SystemMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := next(&s.used)
	return sysmon.SystemMemory{Total: 16 * gib, Used: u, Free: 16*gib - u}, nil
}

func (s *scriptedProvider) ReadProcessMemory() (sysmon.ProcessMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults += 5
	r := next(&s.resident)
	return sysmon.ProcessMemory{Resident: r, Virtual: r + r/10, Faults: s.faults, PageIns: s.faults / 5}, nil
}

func next(q *[]uint64) uint64 {
	v := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return v
}

func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	cfg.Capacity = 50
	cfg.LeakWindow = 5
	return cfg
}

func newProfiler(t *testing.T, cfg Config, p sysmon.Provider, logger logging.Logger) *Profiler {
	t.Helper()
	if logger == nil {
		logger = logging.Nop()
	}
	prof, err := New(cfg, p, logger,
		WithSamplerOptions(sampler.WithClock(stepClock())),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	)
	require.NoError(t, err)
	t.Cleanup(prof.Stop)
	return prof
}

func constant(v uint64) []uint64 { return []uint64{v} }

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval"},
		{"zero capacity", func(c *Config) { c.Capacity = 0 }, "capacity"},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }, "queue-size"},
		{"tiny leak window", func(c *Config) { c.LeakWindow = 1 }, "leak-window"},
		{"leak window above capacity", func(c *Config) { c.LeakWindow = c.Capacity + 1 }, "leak-window"},
		{"bad pressure", func(c *Config) { c.Thresholds.MemoryPressure = 2 }, "memory_pressure_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mut(&cfg)
			_, err := New(cfg, &scriptedProvider{used: constant(1)}, logging.Nop())
			var ve apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestConfigFromApp(t *testing.T) {
	t.Parallel()
	app := config.Default()
	app.Capacity = 77
	app.LeakWindow = 9
	cfg := ConfigFromApp(app)
	assert.Equal(t, 77, cfg.Capacity)
	assert.Equal(t, 9, cfg.LeakWindow)
	assert.Positive(t, cfg.Interval)
	assert.NoError(t, cfg.Validate())
}

func TestShortLeakWindowLowersMinimumRun(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.LeakWindow = 2
	assert.Equal(t, 1, cfg.leakConfig().MinGrowthTicks)
	_, err := New(cfg, &scriptedProvider{used: constant(1)}, logging.Nop())
	require.NoError(t, err)
}

func TestSession(t *testing.T) {
	t.Parallel()
	a := newProfiler(t, testConfig(), &scriptedProvider{used: constant(1)}, nil)
	b := newProfiler(t, testConfig(), &scriptedProvider{used: constant(1)}, nil)
	_, err := uuid.Parse(a.Session())
	require.NoError(t, err)
	assert.NotEqual(t, a.Session(), b.Session())

	c, err := New(testConfig(), &scriptedProvider{used: constant(1)}, logging.Nop(), WithSessionID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", c.Session())
}

func TestLeakWindowFillsBeforeDetection(t *testing.T) {
	var logs bytes.Buffer
	rss := []uint64{100 * mib, 101 * mib, 102 * mib, 103 * mib, 104 * mib, 90 * mib}
	prov := &scriptedProvider{used: constant(4 * gib), resident: rss}
	p := newProfiler(t, testConfig(), prov, logging.NewLogger(&logs, "profiler"))

	for range 4 {
		p.SnapshotNow()
	}
	_, ok := p.LastLeakReport()
	assert.False(t, ok, "no report before the window is full")
	assert.False(t, p.DetectLeaks().Suspected)
	assert.Empty(t, p.DetectLeaks().Sites)

	p.SnapshotNow()
	report, ok := p.LastLeakReport()
	require.True(t, ok)
	assert.True(t, report.Suspected)
	assert.Equal(t, 4, report.GrowthTicks)
	assert.InDelta(t, 1.0*(1-0.1), report.Confidence, 1e-9)
	assert.Equal(t, uint64(4*mib), report.TotalEstimatedSize)
	assert.Equal(t, report, p.DetectLeaks())
	assert.Contains(t, logs.String(), "memory leak suspected")

	p.SnapshotNow()
	report, _ = p.LastLeakReport()
	assert.False(t, report.Suspected)
	assert.Contains(t, logs.String(), "memory leak suspicion cleared")
	assert.Equal(t, 1, strings.Count(logs.String(), "memory leak suspected"))
}

func TestPerformanceAlerts(t *testing.T) {
	t.Parallel()
	used := []uint64{2 * gib, 2*gib + 10*mib, 2*gib + 300*mib, 2*gib + 310*mib, 2 * gib}
	p := newProfiler(t, testConfig(), &scriptedProvider{used: used, resident: constant(mib)}, nil)
	for range used {
		p.SnapshotNow()
	}
	c := p.Counters()
	assert.Equal(t, uint64(2), c.Alerts)
	assert.Equal(t, uint64(len(used)), c.Snapshots)
	assert.Zero(t, c.CaptureFailures)
}

func TestObserversSeeCaptureOrder(t *testing.T) {
	t.Parallel()
	p := newProfiler(t, testConfig(), &scriptedProvider{used: []uint64{1, 2, 3, 4}, resident: constant(mib)}, nil)
	var got []uint64
	p.OnSnapshot(func(s metrics.Snapshot) { got = append(got, s.UsedMemory) })
	for range 4 {
		p.SnapshotNow()
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, got)
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Capacity = 10_000
	p := newProfiler(t, cfg, &scriptedProvider{used: constant(gib), resident: constant(mib)}, nil)
	var mu sync.Mutex
	seen := 0
	p.OnSnapshot(func(metrics.Snapshot) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()), "second Start is a no-op")
	assert.True(t, p.Running())
	require.Eventually(t, func() bool { return p.Counters().Snapshots >= 3 }, 2*time.Second, time.Millisecond)

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	mu.Lock()
	defer mu.Unlock()
	history := p.History()
	assert.Equal(t, len(history), seen, "every captured snapshot reaches the consumer before Stop returns")
	assert.Equal(t, uint64(seen), p.Counters().Snapshots)
}

func TestSnapshotNowWhileRunningGoesThroughConsumer(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Interval = time.Hour
	p := newProfiler(t, cfg, &scriptedProvider{used: constant(gib), resident: constant(mib)}, nil)
	require.NoError(t, p.Start(context.Background()))
	p.SnapshotNow()
	p.Stop()
	assert.Equal(t, uint64(2), p.Counters().Snapshots, "initial capture plus one manual capture, each observed once")
}

func TestSnapshotNowRacingStartObservesOnce(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Interval = time.Hour
	cfg.Capacity = 10_000
	p := newProfiler(t, cfg, &scriptedProvider{used: constant(gib), resident: constant(mib)}, nil)

	for range 50 {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.SnapshotNow()
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Start(context.Background()))
		}()
		wg.Wait()
		p.Stop()
	}

	c := p.Counters()
	assert.Equal(t, uint64(len(p.History())), c.Snapshots+c.Dropped,
		"each capture is observed once, either directly or by the consumer")
}

func TestRestartAfterContextCancel(t *testing.T) {
	t.Parallel()
	p := newProfiler(t, testConfig(), &scriptedProvider{used: constant(gib), resident: constant(mib)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	cancel()
	require.Eventually(t, func() bool { return !p.Running() }, 2*time.Second, time.Millisecond)

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	p.Stop()
}

func TestStart_AccessDenied(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	prov := mocks.NewMockProvider(ctrl)
	prov.EXPECT().Probe().Return(errors.New("no /proc"))

	p := newProfiler(t, testConfig(), prov, nil)
	err := p.Start(context.Background())
	var denied apperrors.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.False(t, p.Running())
	assert.Equal(t, apperrors.ExitErrorAccessDenied, apperrors.ExitCodeFor(err))
	p.Stop()
}

func TestQueriesOnLinearGrowth(t *testing.T) {
	t.Parallel()
	used := make([]uint64, 10)
	for i := range used {
		used[i] = gib + uint64(i)*gib/10
	}
	p := newProfiler(t, testConfig(), &scriptedProvider{used: used, resident: constant(mib)}, nil)
	for range used {
		p.SnapshotNow()
	}

	assert.Equal(t, analysis.TrendRapidlyIncreasing, p.Trend())

	pred := p.Predict(time.Second)
	assert.InEpsilon(t, 2.0*gib, float64(pred.PredictedPeak), 0.01)
	assert.True(t, pred.TargetTime.After(p.History()[9].Timestamp))
	assert.Greater(t, pred.Confidence, 0.9)

	st := p.CurrentStats()
	assert.Equal(t, 10, st.SampleCount)
	assert.Equal(t, used[9], st.PeakUsage)

	pa := p.AnalyzeHistory(context.Background())
	assert.GreaterOrEqual(t, pa.Score, 0.0)
	assert.LessOrEqual(t, pa.Score, 1.0)
	assert.Equal(t, analysis.TrendRapidlyIncreasing, pa.Analysis.Trend)
	assert.Equal(t, pa.Recommendations, p.Recommendations())

	rt := p.RealTime()
	assert.Equal(t, analysis.SeverityLow, rt.PressureLevel)
	assert.InDelta(t, float64(used[9])/(16*gib), rt.Pressure, 1e-9)

	snap, ok := p.CurrentSnapshot()
	require.True(t, ok)
	assert.Equal(t, used[9], snap.UsedMemory)

	ap := p.AccessPattern()
	assert.Equal(t, analysis.PatternSequential, ap.Pattern)
}

func TestQueriesWithoutData(t *testing.T) {
	t.Parallel()
	p := newProfiler(t, testConfig(), &scriptedProvider{used: constant(1)}, nil)
	assert.Equal(t, analysis.TrendInsufficientData, p.Trend())
	assert.Zero(t, p.Predict(time.Minute).Confidence)
	assert.Zero(t, p.CurrentStats().SampleCount)
	assert.False(t, p.DetectLeaks().Suspected)
	_, ok := p.CurrentSnapshot()
	assert.False(t, ok)
	score := p.AnalyzeHistory(context.Background()).Score
	assert.False(t, math.IsNaN(score))
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()
	rss := make([]uint64, 12)
	for i := range rss {
		rss[i] = 100*mib + uint64(i)*mib
	}
	src := newProfiler(t, testConfig(), &scriptedProvider{used: constant(3 * gib), resident: rss}, nil)
	for range rss {
		src.SnapshotNow()
	}
	path := filepath.Join(t.TempDir(), "history.json")
	doc, err := src.Export(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 12, doc.Count)
	assert.Equal(t, src.Session(), doc.SessionID)

	dst := newProfiler(t, testConfig(), &scriptedProvider{used: constant(1)}, nil)
	_, err = dst.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, src.History(), dst.History())

	report, ok := dst.LastLeakReport()
	require.True(t, ok, "leak window rebuilt from imported history")
	assert.True(t, report.Suspected)
	assert.Zero(t, dst.Counters().Snapshots, "imported snapshots are not observed")
}

func TestImportTruncatesToCapacity(t *testing.T) {
	t.Parallel()
	rss := make([]uint64, 20)
	for i := range rss {
		rss[i] = uint64(i+1) * mib
	}
	src := newProfiler(t, testConfig(), &scriptedProvider{used: constant(gib), resident: rss}, nil)
	for range rss {
		src.SnapshotNow()
	}
	path := filepath.Join(t.TempDir(), "history.yaml")
	_, err := src.Export(context.Background(), path)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Capacity = 8
	dst := newProfiler(t, cfg, &scriptedProvider{used: constant(1)}, nil)
	_, err = dst.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, src.History()[12:], dst.History())
}

func TestEmptyExportImport(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "empty.json")
	src := newProfiler(t, testConfig(), &scriptedProvider{used: constant(1)}, nil)
	_, err := src.Export(context.Background(), path)
	require.NoError(t, err)

	dst := newProfiler(t, testConfig(), &scriptedProvider{used: constant(1), resident: constant(1)}, nil)
	dst.SnapshotNow()
	_, err = dst.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, dst.History())
}

func TestImportFailureKeepsHistory(t *testing.T) {
	t.Parallel()
	p := newProfiler(t, testConfig(), &scriptedProvider{used: constant(gib), resident: constant(mib)}, nil)
	p.SnapshotNow()
	before := p.History()

	_, err := p.Import(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	var archErr apperrors.ArchiveError
	require.ErrorAs(t, err, &archErr)
	assert.Equal(t, before, p.History())
}

func TestClearHistory(t *testing.T) {
	t.Parallel()
	rss := []uint64{mib, 2 * mib, 3 * mib, 4 * mib, 5 * mib}
	p := newProfiler(t, testConfig(), &scriptedProvider{used: constant(gib), resident: rss}, nil)
	for range rss {
		p.SnapshotNow()
	}
	_, ok := p.LastLeakReport()
	require.True(t, ok)

	p.ClearHistory()
	assert.Empty(t, p.History())
	_, ok = p.LastLeakReport()
	assert.False(t, ok)
}

func TestExternalSubscription(t *testing.T) {
	t.Parallel()
	p := newProfiler(t, testConfig(), &scriptedProvider{used: []uint64{7, 8}, resident: constant(mib)}, nil)
	sub := p.Subscribe()
	p.SnapshotNow()
	p.SnapshotNow()
	assert.Equal(t, uint64(7), (<-sub.C()).UsedMemory)
	assert.Equal(t, uint64(8), (<-sub.C()).UsedMemory)
	p.Unsubscribe(sub)
	_, open := <-sub.C()
	assert.False(t, open)
}

func TestArchiveSpans(t *testing.T) {
	t.Parallel()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prof, err := New(testConfig(), &scriptedProvider{used: constant(gib), resident: constant(64 * mib)}, logging.Nop(),
		WithTracer(tp.Tracer("test")))
	require.NoError(t, err)
	for range 3 {
		prof.SnapshotNow()
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "spans.json")
	_, err = prof.Export(context.Background(), path)
	require.NoError(t, err)
	_, err = prof.Import(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	export := spans[0]
	assert.Equal(t, "profiler.Export", export.Name)
	assert.Contains(t, export.Attributes, attribute.String("memprof.path", path))
	assert.Contains(t, export.Attributes, attribute.Int("memprof.snapshots", 3))
	assert.Equal(t, codes.Unset, export.Status.Code)

	imp := spans[1]
	assert.Equal(t, "profiler.Import", imp.Name)
	assert.Equal(t, codes.Error, imp.Status.Code)
	require.NotEmpty(t, imp.Events, "the error is recorded as a span event")
}
