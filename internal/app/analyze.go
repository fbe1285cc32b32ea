package app

import (
	"context"
	"io"
	"time"

	"github.com/agbru/memprof/internal/cli"
	"github.com/agbru/memprof/internal/profiler"
)

// runAnalyze loads a captured archive and reports on it offline. With
// --export the imported history is written back out, which converts
// between JSON and YAML.
func (a *Application) runAnalyze(ctx context.Context, p *profiler.Profiler, out io.Writer) error {
	doc, err := p.Import(ctx, a.Config.Import)
	if err != nil {
		return err
	}

	var span time.Duration
	if history := p.History(); len(history) > 1 {
		span = history[len(history)-1].Timestamp.Sub(history[0].Timestamp)
	}

	report := cli.BuildReport(ctx, p, a.Config.Import, span, a.Config.Horizon)
	if doc.SessionID != "" {
		report.Session = doc.SessionID
	}
	if err := cli.DisplayReportWithConfig(out, report, a.outputConfig()); err != nil {
		return err
	}
	return a.export(ctx, p, out)
}
