// Package ui provides theme and color support for memprof's text reports.
// It defines color schemes, ANSI escape code helpers and lipgloss severity
// badges shared by the CLI presentation layer.
package ui
