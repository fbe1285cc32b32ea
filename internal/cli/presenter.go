package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/agbru/memprof/internal/analysis"
	"github.com/agbru/memprof/internal/format"
	"github.com/agbru/memprof/internal/ui"
)

// Chart geometry of the verbose usage section.
const (
	SparklineWidth = 60
	ChartRows      = 4
)

// DisplayReport writes the full text report.
func DisplayReport(out io.Writer, r Report, verbose bool) {
	displayHeader(out, r)
	if r.Snapshots == 0 {
		fmt.Fprintf(out, "\n%sNo snapshots captured.%s\n", ui.ColorYellow(), ui.ColorReset())
		return
	}
	displayMemory(out, r, verbose)
	displayStats(out, r.Stats)
	displayAnalysis(out, r.Analysis, verbose)
	displayLeaks(out, r.Leaks, verbose)
	displayForecast(out, r)
	displayCounters(out, r)
}

func section(out io.Writer, title string) {
	fmt.Fprintf(out, "\n%s--- %s ---%s\n", ui.ColorBold(), title, ui.ColorReset())
}

// newTable returns a tabwriter for plain label/value rows. Cells must not
// carry escape codes; colored rows go through padRight instead.
func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func displayHeader(out io.Writer, r Report) {
	fmt.Fprintf(out, "%s--- memprof report ---%s\n", ui.ColorBold(), ui.ColorReset())
	fmt.Fprintf(out, "Session %s%s%s from %s%s%s, %s%s%s snapshots over %s.\n",
		ui.ColorCyan(), r.Session, ui.ColorReset(),
		ui.ColorCyan(), r.Origin, ui.ColorReset(),
		ui.ColorCyan(), format.FormatCount(uint64(r.Snapshots)), ui.ColorReset(),
		format.FormatExecutionDuration(r.Elapsed))
}

func displayMemory(out io.Writer, r Report, verbose bool) {
	if r.Latest == nil {
		return
	}
	s := *r.Latest
	section(out, "Latest snapshot")
	tw := newTable(out)
	fmt.Fprintf(tw, "Captured\t%s\n", s.Timestamp.Format("2006-01-02 15:04:05.000 MST"))
	fmt.Fprintf(tw, "Host memory\t%s used of %s (%s), %s free\n",
		format.FormatBytes(s.UsedMemory), format.FormatBytes(s.TotalMemory),
		format.FormatPercent(s.MemoryPressure()), format.FormatBytes(s.FreeMemory))
	fmt.Fprintf(tw, "Process\t%s resident, %s virtual\n",
		format.FormatBytes(s.ResidentSize), format.FormatBytes(s.VirtualSize))
	fmt.Fprintf(tw, "Paging\t%s faults, %s in, %s out\n",
		format.FormatCount(s.PageFaults), format.FormatCount(s.PageIns), format.FormatCount(s.PageOuts))
	_ = tw.Flush()

	if verbose && len(r.Usage) > 1 {
		fmt.Fprintf(out, "\nUsage %s%s%s\n", ui.ColorBlue(),
			format.RenderSparkline(format.Downsample(r.Usage, SparklineWidth)), ui.ColorReset())
		for _, line := range format.RenderBrailleChart(r.Usage, SparklineWidth, ChartRows) {
			fmt.Fprintf(out, "      %s%s%s\n", ui.ColorGrey(), line, ui.ColorReset())
		}
	}
}

func displayStats(out io.Writer, st analysis.Stats) {
	section(out, "Statistics")
	tw := newTable(out)
	fmt.Fprintf(tw, "Samples\t%d\n", st.SampleCount)
	fmt.Fprintf(tw, "Average usage\t%s\n", format.FormatBytes(uint64(st.AverageUsage)))
	fmt.Fprintf(tw, "Peak usage\t%s\n", format.FormatBytes(st.PeakUsage))
	fmt.Fprintf(tw, "Std deviation\t%s\n", format.FormatBytes(uint64(math.Sqrt(st.UsageVariance))))
	fmt.Fprintf(tw, "Average resident\t%s (peak %s)\n", format.FormatBytes(uint64(st.AverageResident)), format.FormatBytes(st.PeakResident))
	fmt.Fprintf(tw, "Memory pressure\t%s\n", format.FormatPercent(st.MemoryPressure))
	fmt.Fprintf(tw, "Page faults\t%.1f/min\n", st.PageFaultRate)
	fmt.Fprintf(tw, "Fragmentation\t%s\n", format.FormatPercent(st.FragmentationRatio))
	fmt.Fprintf(tw, "Allocation efficiency\t%s\n", format.FormatPercent(st.AllocationEfficiency))
	fmt.Fprintf(tw, "Cache hit rate\t%s\n", format.FormatPercent(st.CacheHitRate))
	_ = tw.Flush()
}

func displayAnalysis(out io.Writer, pa analysis.PerformanceAnalysis, verbose bool) {
	section(out, "Performance")
	fmt.Fprintf(out, "Score %s  Trend %s%s%s  Risk %s\n",
		ui.Colorize(scoreColor(pa.Score), fmt.Sprintf("%.2f", pa.Score)),
		ui.ColorCyan(), strings.ReplaceAll(string(pa.Analysis.Trend), "_", " "), ui.ColorReset(),
		ui.Badge(pa.Analysis.RiskLevel.String()))

	if n := len(pa.Analysis.Anomalies); n > 0 {
		fmt.Fprintf(out, "%s%d anomalies%s in the window.\n", ui.ColorYellow(), n, ui.ColorReset())
		if verbose {
			for _, a := range pa.Analysis.Anomalies {
				fmt.Fprintf(out, "  %s %-7s %s\n", a.Timestamp.Format("15:04:05.000"), a.Kind, a.Description)
			}
		}
	}

	if len(pa.Bottlenecks) == 0 {
		fmt.Fprintf(out, "%sNo bottlenecks detected.%s\n", ui.ColorGreen(), ui.ColorReset())
	} else {
		fmt.Fprintf(out, "\n%sBottlenecks%s\n", ui.ColorUnderline(), ui.ColorReset())
		width := 0
		for _, b := range pa.Bottlenecks {
			width = max(width, len(b.Kind))
		}
		for _, b := range pa.Bottlenecks {
			fmt.Fprintf(out, "  %s %s%s%s%s  %s\n", ui.Badge(b.Severity.String()),
				ui.ColorBlue(), b.Kind, ui.ColorReset(), padRight("", width-len(b.Kind)), b.Description)
			if verbose {
				fmt.Fprintf(out, "      %s%s%s\n", ui.ColorGrey(), b.Impact, ui.ColorReset())
			}
		}
	}

	if len(pa.Recommendations) > 0 {
		fmt.Fprintf(out, "\n%sRecommendations%s\n", ui.ColorUnderline(), ui.ColorReset())
		for _, rec := range pa.Recommendations {
			fmt.Fprintf(out, "  %s %s%s%s: %s (est. %s, effort %s)\n",
				ui.Badge(rec.Priority.String()), ui.ColorBlue(), rec.Kind, ui.ColorReset(),
				rec.Description, format.FormatPercent(rec.EstimatedImprovement), rec.Effort)
		}
	}
	if verbose {
		for _, note := range pa.Analysis.Recommendations {
			fmt.Fprintf(out, "  - %s\n", note)
		}
	}
}

func displayLeaks(out io.Writer, leak analysis.LeakSuspicion, verbose bool) {
	section(out, "Leak detection")
	if !leak.Suspected {
		fmt.Fprintf(out, "%sNo leak suspected%s (confidence %.2f, %d growth ticks).\n",
			ui.ColorGreen(), ui.ColorReset(), leak.Confidence, leak.GrowthTicks)
		return
	}
	fmt.Fprintf(out, "%sLeak suspected%s with confidence %s%.2f%s: %s growth per tick over %d ticks, about %s retained.\n",
		ui.ColorRed(), ui.ColorReset(),
		ui.ColorYellow(), leak.Confidence, ui.ColorReset(),
		format.FormatSignedBytes(leak.GrowthRate), leak.GrowthTicks,
		format.FormatBytes(leak.TotalEstimatedSize))
	if !verbose {
		return
	}
	for _, site := range leak.Sites {
		fmt.Fprintf(out, "  %s: %s since %s\n", site.Label, format.FormatBytes(site.SizeEstimate),
			site.AllocatedAt.Format("15:04:05.000"))
		for _, frame := range site.CallStack {
			fmt.Fprintf(out, "      %s\n", frame)
		}
	}
}

func displayForecast(out io.Writer, r Report) {
	section(out, "Forecast")
	tw := newTable(out)
	p := r.Prediction
	if p.Confidence == 0 && p.PredictedPeak == 0 {
		fmt.Fprintf(tw, "Prediction\tnot enough data\n")
	} else {
		fmt.Fprintf(tw, "Predicted peak\t%s in %s (confidence %.2f)\n",
			format.FormatBytes(p.PredictedPeak), p.Horizon, p.Confidence)
		fmt.Fprintf(tw, "Safety buffer\t%s\n", format.FormatBytes(p.SafetyBuffer))
		fmt.Fprintf(tw, "Growth\t%s/s\n", format.FormatSignedBytes(p.Slope))
	}
	ap := r.Pattern
	fmt.Fprintf(tw, "Access pattern\t%s (%.1f faults, %.1f in, %.1f out per tick)\n",
		ap.Pattern, ap.FaultRate, ap.PageInRate, ap.PageOutRate)
	fmt.Fprintf(tw, "Working set\t%s, cache efficiency %s\n",
		format.FormatBytes(ap.WorkingSetEstimate), format.FormatPercent(ap.CacheEfficiency))
	_ = tw.Flush()
	fmt.Fprintf(out, "Current pressure %s %s\n", ui.Badge(r.RealTime.PressureLevel.String()),
		format.FormatPercent(r.RealTime.Pressure))
}

func displayCounters(out io.Writer, r Report) {
	c := r.Counters
	if c.Alerts == 0 && c.CaptureFailures == 0 && c.Dropped == 0 {
		return
	}
	section(out, "Events")
	if c.Alerts > 0 {
		fmt.Fprintf(out, "%s%d performance alerts%s\n", ui.ColorYellow(), c.Alerts, ui.ColorReset())
	}
	if c.CaptureFailures > 0 {
		fmt.Fprintf(out, "%s%d failed captures%s recorded as empty snapshots\n", ui.ColorRed(), c.CaptureFailures, ui.ColorReset())
	}
	if c.Dropped > 0 {
		fmt.Fprintf(out, "%d snapshots dropped by slow consumers\n", c.Dropped)
	}
}

func scoreColor(score float64) string {
	switch {
	case score >= 0.8:
		return ui.ColorGreen()
	case score >= 0.5:
		return ui.ColorYellow()
	default:
		return ui.ColorRed()
	}
}

// padRight returns s followed by length spaces.
func padRight(s string, length int) string {
	if length <= 0 {
		return s
	}
	return s + fmt.Sprintf("%*s", length, "")
}
