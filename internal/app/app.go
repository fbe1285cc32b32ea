// Package app wires configuration, the profiler and the presentation layer
// into the memprof command.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agbru/memprof/internal/cli"
	"github.com/agbru/memprof/internal/config"
	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/logging"
	"github.com/agbru/memprof/internal/profiler"
	"github.com/agbru/memprof/internal/sysmon"
	"github.com/agbru/memprof/internal/telemetry"
	"github.com/agbru/memprof/internal/ui"
)

// telemetryShutdownTimeout bounds the final span flush.
const telemetryShutdownTimeout = 5 * time.Second

// ProviderFactory builds the memory-info provider for a --source value.
type ProviderFactory func(source string) (sysmon.Provider, error)

// Application represents the memprof application instance.
type Application struct {
	Config    config.AppConfig
	Providers ProviderFactory
	ErrWriter io.Writer

	logger       logging.Logger
	profilerOpts []profiler.Option
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithProviderFactory replaces the operating system providers.
func WithProviderFactory(f ProviderFactory) AppOption {
	return func(a *Application) { a.Providers = f }
}

// WithLogger replaces the logger built from --log-level.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.logger = l }
}

// WithProfilerOptions forwards options to every profiler the application builds.
func WithProfilerOptions(opts ...profiler.Option) AppOption {
	return func(a *Application) { a.profilerOpts = append(a.profilerOpts, opts...) }
}

// New creates a new Application instance by parsing command-line arguments.
// args[0] is the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}
	if app.Providers == nil {
		app.Providers = sysmon.NewProvider
	}

	programName := "memprof"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = config.ApplyAdaptiveDefaults(cfg)

	if app.logger == nil {
		app.logger = logging.New(logging.Config{
			Level:  app.Config.LogLevel,
			Pretty: app.Config.Format == "text",
			Output: errWriter,
		})
	}
	return app, nil
}

// Run executes the application based on the configured mode and returns
// the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Completion != "" {
		return a.runCompletion(out)
	}

	ui.InitTheme(a.Config.NoColor)

	p, err := a.newProfiler()
	if err != nil {
		return a.fail(err)
	}

	shutdown, err := telemetry.Setup(ctx, os.Getenv(telemetry.EndpointEnv), Version, p.Session())
	if err != nil {
		a.logger.Warn("tracing disabled", logging.Err(err))
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				a.logger.Warn("flushing traces", logging.Err(err))
			}
		}()
	}

	switch {
	case a.Config.Import != "":
		err = a.runAnalyze(ctx, p, out)
	case a.Config.Serve != "":
		err = a.runServe(ctx, p, out)
	default:
		err = a.runWatch(ctx, p, out)
	}
	if err != nil {
		return a.fail(err)
	}
	return apperrors.ExitSuccess
}

func (a *Application) newProfiler() (*profiler.Profiler, error) {
	provider, err := a.Providers(a.Config.Source)
	if err != nil {
		return nil, err
	}
	return profiler.New(profiler.ConfigFromApp(a.Config), provider, a.logger, a.profilerOpts...)
}

// fail reports err on ErrWriter and maps it to an exit code.
func (a *Application) fail(err error) int {
	fmt.Fprintf(a.ErrWriter, "%sError:%s %v\n", ui.ColorRed(), ui.ColorReset(), err)
	return apperrors.ExitCodeFor(err)
}

// outputConfig derives the report rendering from the configuration.
func (a *Application) outputConfig() cli.OutputConfig {
	return cli.OutputConfig{
		Format:  a.Config.Format,
		Quiet:   a.Config.Quiet,
		Verbose: a.Config.Verbose,
	}
}

// interactive reports whether progress and confirmations go to the terminal.
func (a *Application) interactive() bool {
	return !a.Config.Quiet && a.Config.Format == "text"
}

// runCompletion generates shell completion scripts.
func (a *Application) runCompletion(out io.Writer) int {
	if err := cli.GenerateCompletion(out, a.Config.Completion); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
