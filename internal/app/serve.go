package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/logging"
	"github.com/agbru/memprof/internal/profiler"
	"github.com/agbru/memprof/internal/server"
	"github.com/agbru/memprof/internal/ui"
)

// runServe samples continuously and serves the HTTP API until a signal
// arrives, then exports the history when --export is set.
func (a *Application) runServe(ctx context.Context, p *profiler.Profiler, out io.Writer) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	srv := server.New(a.Config.Serve, p, a.logger, server.WithDefaultHorizon(a.Config.Horizon))

	g, gctx := errgroup.WithContext(ctx)
	if err := p.Start(gctx); err != nil {
		return err
	}
	if a.interactive() {
		fmt.Fprintf(out, "Serving session %s%s%s on %s%s%s (Ctrl+C to stop).\n",
			ui.ColorCyan(), p.Session(), ui.ColorReset(),
			ui.ColorCyan(), a.Config.Serve, ui.ColorReset())
	}

	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Stop()
		c := p.Counters()
		a.logger.Info("sampling finished",
			logging.Uint64("snapshots", c.Snapshots),
			logging.Uint64("alerts", c.Alerts),
			logging.Uint64("capture_failures", c.CaptureFailures),
		)
		return nil
	})

	if err := g.Wait(); err != nil && !apperrors.IsContextError(err) {
		return apperrors.WrapError(err, "serving %s", a.Config.Serve)
	}
	return a.export(context.WithoutCancel(ctx), p, out)
}
