package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agbru/memprof/internal/cli"
	"github.com/agbru/memprof/internal/format"
	"github.com/agbru/memprof/internal/profiler"
	"github.com/agbru/memprof/internal/sysmon"
	"github.com/agbru/memprof/internal/ui"
)

// runWatch samples for the configured duration, or until interrupted, then
// prints the report and writes the optional export. An interrupt ends the
// run early but still produces the report.
func (a *Application) runWatch(ctx context.Context, p *profiler.Profiler, out io.Writer) error {
	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	runCtx, cancel := sigCtx, context.CancelFunc(func() {})
	if a.Config.Duration > 0 {
		runCtx, cancel = context.WithTimeout(sigCtx, a.Config.Duration)
	}
	defer cancel()

	if a.interactive() {
		a.printWatchHeader(out)
	}

	start := time.Now()
	if err := p.Start(runCtx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if a.interactive() {
		wg.Add(1)
		go cli.DisplaySamplingProgress(runCtx, &wg,
			func() int { return int(p.Counters().Snapshots) }, a.Config.Duration, out)
	}

	<-runCtx.Done()
	p.Stop()
	wg.Wait()
	elapsed := time.Since(start)

	// The run context is done by now; reporting and export must not inherit it.
	finishCtx := context.WithoutCancel(ctx)
	report := cli.BuildReport(finishCtx, p, "live", elapsed, a.Config.Horizon)
	if err := cli.DisplayReportWithConfig(out, report, a.outputConfig()); err != nil {
		return err
	}
	return a.export(finishCtx, p, out)
}

func (a *Application) printWatchHeader(out io.Writer) {
	length := "until interrupted"
	if a.Config.Duration > 0 {
		length = "for " + a.Config.Duration.String()
	}
	fmt.Fprintf(out, "--- Sampling Configuration ---\n")
	fmt.Fprintf(out, "Sampling %s%s%s memory every %s%s%s %s.\n",
		ui.ColorCyan(), a.Config.Source, ui.ColorReset(),
		ui.ColorYellow(), a.Config.Interval, ui.ColorReset(), length)
	fmt.Fprintf(out, "Retention: %s%d%s snapshots, leak window %s%d%s.\n",
		ui.ColorCyan(), a.Config.Capacity, ui.ColorReset(),
		ui.ColorCyan(), a.Config.LeakWindow, ui.ColorReset())
	if host := sysmon.Sample(); host.TotalBytes > 0 {
		fmt.Fprintf(out, "Host: %s%s%s total, %s%.1f%%%s in use, CPU %.1f%%.\n",
			ui.ColorCyan(), format.FormatBytes(host.TotalBytes), ui.ColorReset(),
			ui.ColorCyan(), host.MemPercent, ui.ColorReset(), host.CPUPercent)
	}
	fmt.Fprintf(out, "\n")
}

// export writes the retained history when --export is set.
func (a *Application) export(ctx context.Context, p *profiler.Profiler, out io.Writer) error {
	if a.Config.Export == "" {
		return nil
	}
	doc, err := p.Export(ctx, a.Config.Export)
	if err != nil {
		return err
	}
	if a.interactive() {
		cli.DisplayArchiveSaved(out, a.Config.Export, doc.Count)
	}
	return nil
}
