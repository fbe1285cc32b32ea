// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     They handle presentation logic and colorization.
//     Examples: [DisplayReport], [DisplayQuietReport], [DisplaySamplingProgress].
//
//   - Format* functions return a formatted string without performing I/O.
//     They are pure functions suitable for composition.
//     Examples: [FormatQuietReport].
//
//   - Write* functions emit machine-readable output.
//     Examples: [WriteReportJSON].

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/format"
	"github.com/agbru/memprof/internal/ui"
)

// OutputConfig holds configuration for report output.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string
	// Quiet reduces the text report to a single summary line.
	Quiet bool
	// Verbose adds the usage chart and per-item detail.
	Verbose bool
}

// WriteReportJSON writes r as indented JSON.
func WriteReportJSON(out io.Writer, r Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return apperrors.WrapError(err, "encoding report")
	}
	return nil
}

// FormatQuietReport formats a report as one line of key=value pairs
// suitable for scripting.
func FormatQuietReport(r Report) string {
	return fmt.Sprintf("snapshots=%d score=%.2f trend=%s risk=%s leak=%t leak_confidence=%.2f peak=%d predicted_peak=%d alerts=%d",
		r.Snapshots, r.Analysis.Score, r.Analysis.Analysis.Trend, r.Analysis.Analysis.RiskLevel,
		r.Leaks.Suspected, r.Leaks.Confidence, r.Stats.PeakUsage, r.Prediction.PredictedPeak, r.Counters.Alerts)
}

// DisplayQuietReport outputs the single-line summary.
func DisplayQuietReport(out io.Writer, r Report) {
	fmt.Fprintln(out, FormatQuietReport(r))
}

// DisplayReportWithConfig renders r according to config. JSON output
// ignores Quiet and Verbose.
func DisplayReportWithConfig(out io.Writer, r Report, config OutputConfig) error {
	switch {
	case config.Format == "json":
		return WriteReportJSON(out, r)
	case config.Quiet:
		DisplayQuietReport(out, r)
	default:
		DisplayReport(out, r, config.Verbose)
	}
	return nil
}

// DisplayArchiveSaved confirms an export.
func DisplayArchiveSaved(out io.Writer, path string, count int) {
	fmt.Fprintf(out, "\n%s✓ %s snapshots saved to: %s%s%s\n",
		ui.ColorGreen(), format.FormatCount(uint64(count)), ui.ColorCyan(), path, ui.ColorReset())
}
