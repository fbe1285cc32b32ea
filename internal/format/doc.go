// Package format holds the pure formatting helpers shared by the text
// report and the sampling status line: byte sizes, durations, progress bars
// and sparkline charts.
package format
