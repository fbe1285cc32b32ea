package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ColorRed returns the escape code for errors and critical readings.
func ColorRed() string { return GetCurrentTheme().Error }

// ColorGreen returns the escape code for healthy readings.
func ColorGreen() string { return GetCurrentTheme().Success }

// ColorYellow returns the escape code for warnings.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorBlue returns the primary accent.
func ColorBlue() string { return GetCurrentTheme().Primary }

// ColorCyan returns the informational accent.
func ColorCyan() string { return GetCurrentTheme().Info }

// ColorGrey returns the secondary accent.
func ColorGrey() string { return GetCurrentTheme().Secondary }

// ColorBold returns the bold escape code.
func ColorBold() string { return GetCurrentTheme().Bold }

// ColorUnderline returns the underline escape code.
func ColorUnderline() string { return GetCurrentTheme().Underline }

// ColorReset returns the escape code clearing all formatting.
func ColorReset() string { return GetCurrentTheme().Reset }

// Colorize wraps s in color and a reset. It returns s untouched when color is
// empty, so no-color output never carries stray reset codes.
func Colorize(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + ColorReset()
}

// SeverityColor maps a level name (low, medium, high, critical) to an
// escape code of the current theme.
func SeverityColor(level string) string {
	switch strings.ToLower(level) {
	case "low":
		return ColorGreen()
	case "medium":
		return ColorYellow()
	case "high", "critical":
		return ColorRed()
	default:
		return ColorGrey()
	}
}

// Badge renders level as an upper-case padded label. Colored themes paint
// it on a background matching the level; the no-color theme renders it in
// brackets.
func Badge(level string) string {
	t := GetCurrentTheme()
	label := strings.ToUpper(level)
	if t.Name == NoColorTheme.Name {
		return "[" + label + "]"
	}

	var bg lipgloss.TerminalColor
	switch strings.ToLower(level) {
	case "low":
		bg = t.Badges.Low
	case "medium":
		bg = t.Badges.Medium
	case "high":
		bg = t.Badges.High
	default:
		bg = t.Badges.Critical
	}
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(t.Badges.Text).
		Background(bg).
		Render(label)
}
