package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines a color scheme for text reports.
// Each field contains an ANSI escape code for the corresponding color category.
type Theme struct {
	// Name is the identifier of the theme.
	Name string
	// Primary is the accent for section titles.
	Primary string
	// Secondary is used for labels and secondary figures.
	Secondary string
	// Success marks healthy readings.
	Success string
	// Warning marks elevated readings.
	Warning string
	// Error marks critical readings and failures.
	Error string
	// Info is used for informational messages.
	Info string
	// Bold is the escape code for bold text.
	Bold string
	// Underline is the escape code for underlined text.
	Underline string
	// Reset clears all formatting.
	Reset string
	// Badges holds the lipgloss colors used for severity badges.
	Badges BadgePalette
}

// BadgePalette is the set of lipgloss colors behind the severity badges.
type BadgePalette struct {
	Text     lipgloss.TerminalColor
	Low      lipgloss.TerminalColor
	Medium   lipgloss.TerminalColor
	High     lipgloss.TerminalColor
	Critical lipgloss.TerminalColor
}

var (
	// DarkTheme is optimized for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "\033[38;5;39m",  // Bright blue
		Secondary: "\033[38;5;245m", // Grey
		Success:   "\033[38;5;82m",  // Bright green
		Warning:   "\033[38;5;220m", // Yellow
		Error:     "\033[38;5;196m", // Red
		Info:      "\033[38;5;141m", // Purple
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
		Badges: BadgePalette{
			Text:     lipgloss.Color("#000000"),
			Low:      lipgloss.Color("#9ece6a"),
			Medium:   lipgloss.Color("#FFB347"),
			High:     lipgloss.Color("#FF8C00"),
			Critical: lipgloss.Color("#FF4444"),
		},
	}

	// LightTheme is optimized for light terminal backgrounds.
	LightTheme = Theme{
		Name:      "light",
		Primary:   "\033[38;5;27m",  // Dark blue
		Secondary: "\033[38;5;240m", // Dark grey
		Success:   "\033[38;5;28m",  // Dark green
		Warning:   "\033[38;5;130m", // Orange
		Error:     "\033[38;5;124m", // Dark red
		Info:      "\033[38;5;54m",  // Dark purple
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
		Badges: BadgePalette{
			Text:     lipgloss.Color("#FFFFFF"),
			Low:      lipgloss.Color("#2E7D32"),
			Medium:   lipgloss.Color("#B26A00"),
			High:     lipgloss.Color("#C43E00"),
			Critical: lipgloss.Color("#B00020"),
		},
	}

	// NoColorTheme disables all color output.
	// Used when NO_COLOR is set or --no-color flag is provided.
	NoColorTheme = Theme{
		Name: "none",
		Badges: BadgePalette{
			Text:     lipgloss.NoColor{},
			Low:      lipgloss.NoColor{},
			Medium:   lipgloss.NoColor{},
			High:     lipgloss.NoColor{},
			Critical: lipgloss.NoColor{},
		},
	}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the currently active theme in a thread-safe manner.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme sets the currently active theme in a thread-safe manner.
// This is primarily used for testing purposes to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme changes the active theme by name.
// Valid names are: "dark", "light", "none". Unknown names default to dark.
func SetTheme(name string) {
	themeMutex.Lock()
	defer themeMutex.Unlock()

	switch name {
	case "light":
		currentTheme = LightTheme
	case "none":
		currentTheme = NoColorTheme
	default:
		currentTheme = DarkTheme
	}
}

// InitTheme initializes the theme based on the noColor flag and environment.
// It respects the NO_COLOR environment variable (https://no-color.org/).
// MEMPROF_THEME selects "light" or "dark" when colors are enabled.
func InitTheme(noColor bool) {
	if noColor {
		SetTheme("none")
		return
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		SetTheme("none")
		return
	}
	SetTheme(os.Getenv("MEMPROF_THEME"))
}
