// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the chat screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// Settings panel
	Label     lipgloss.Style
	Value     lipgloss.Style
	ToggleOn  lipgloss.Style
	ToggleOff lipgloss.Style

	// Service status
	StatusOnline  lipgloss.Style
	StatusOffline lipgloss.Style
	StatusPending lipgloss.Style

	// Response area
	Document    lipgloss.Style
	Placeholder lipgloss.Style
	UserTurn    lipgloss.Style
	Assistant   lipgloss.Style

	// Footer
	Info           lipgloss.Style
	DebugInfo      lipgloss.Style
	DebugError     lipgloss.Style
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Spinner        lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
}

// NewTheme detects the terminal background and builds a theme for it.
func NewTheme() *Theme {
	return NewThemeFor(termenv.HasDarkBackground())
}

// NewThemeFor builds a theme with the background forced to dark or light.
// Adaptive colors rendered through the default renderer follow the choice.
func NewThemeFor(dark bool) *Theme {
	lipgloss.SetHasDarkBackground(dark)
	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Value = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	t.ToggleOn = lipgloss.NewStyle().Foreground(Emerald)
	t.ToggleOff = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusOnline = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.StatusOffline = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.StatusPending = lipgloss.NewStyle().Foreground(Amber)

	t.Document = lipgloss.NewStyle().Padding(0, 1)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.UserTurn = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Assistant = lipgloss.NewStyle().Foreground(Purple).Bold(true)

	t.Info = lipgloss.NewStyle().Foreground(TextMuted)
	t.DebugInfo = lipgloss.NewStyle().Foreground(TextSecondary)
	t.DebugError = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)

	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize records the terminal dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// Toggle renders an on/off setting.
func (t *Theme) Toggle(on bool) string {
	if on {
		return t.ToggleOn.Render("on")
	}
	return t.ToggleOff.Render("off")
}
