package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetTheme(t *testing.T) {
	orig := GetCurrentTheme()
	t.Cleanup(func() { SetCurrentTheme(orig) })

	tests := []struct {
		name string
		want string
	}{
		{"dark", "dark"},
		{"light", "light"},
		{"none", "none"},
		{"bogus", "dark"},
		{"", "dark"},
	}
	for _, tt := range tests {
		SetTheme(tt.name)
		assert.Equal(t, tt.want, GetCurrentTheme().Name, tt.name)
	}
}

func TestInitTheme(t *testing.T) {
	orig := GetCurrentTheme()
	t.Cleanup(func() { SetCurrentTheme(orig) })

	t.Run("flag disables colors", func(t *testing.T) {
		InitTheme(true)
		assert.Equal(t, "none", GetCurrentTheme().Name)
	})

	t.Run("NO_COLOR disables colors", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		InitTheme(false)
		assert.Equal(t, "none", GetCurrentTheme().Name)
	})

	t.Run("MEMPROF_THEME selects light", func(t *testing.T) {
		t.Setenv("MEMPROF_THEME", "light")
		InitTheme(false)
		assert.Equal(t, "light", GetCurrentTheme().Name)
	})
}

func TestColorHelpersFollowTheme(t *testing.T) {
	orig := GetCurrentTheme()
	t.Cleanup(func() { SetCurrentTheme(orig) })

	SetCurrentTheme(DarkTheme)
	assert.Equal(t, DarkTheme.Error, ColorRed())
	assert.Equal(t, DarkTheme.Success, ColorGreen())
	assert.Equal(t, DarkTheme.Reset, ColorReset())
	assert.Equal(t, DarkTheme.Error+"x"+DarkTheme.Reset, Colorize(ColorRed(), "x"))

	SetCurrentTheme(NoColorTheme)
	for _, c := range []string{ColorRed(), ColorGreen(), ColorYellow(), ColorBlue(), ColorCyan(), ColorGrey(), ColorBold(), ColorUnderline(), ColorReset()} {
		assert.Empty(t, c)
	}
	assert.Equal(t, "x", Colorize(ColorRed(), "x"))
}

func TestSeverityColor(t *testing.T) {
	orig := GetCurrentTheme()
	t.Cleanup(func() { SetCurrentTheme(orig) })
	SetCurrentTheme(DarkTheme)

	assert.Equal(t, DarkTheme.Success, SeverityColor("low"))
	assert.Equal(t, DarkTheme.Warning, SeverityColor("MEDIUM"))
	assert.Equal(t, DarkTheme.Error, SeverityColor("high"))
	assert.Equal(t, DarkTheme.Error, SeverityColor("critical"))
	assert.Equal(t, DarkTheme.Secondary, SeverityColor("unknown"))
}

func TestBadge(t *testing.T) {
	orig := GetCurrentTheme()
	t.Cleanup(func() { SetCurrentTheme(orig) })

	SetCurrentTheme(NoColorTheme)
	assert.Equal(t, "[HIGH]", Badge("high"))

	SetCurrentTheme(DarkTheme)
	for _, level := range []string{"low", "medium", "high", "critical"} {
		got := Badge(level)
		assert.True(t, strings.Contains(got, strings.ToUpper(level)), got)
	}
}
