// Package console holds the stateless terminal formatting used by the
// harness: a lipgloss palette, status glyphs, and a markdown renderer
// for the run summary. Formatting only — no lifecycle, no state.
package console

import "github.com/charmbracelet/lipgloss"

// Status glyphs — convey meaning without relying on color alone.
const (
	GlyphPassed  = "✓"
	GlyphFailed  = "✗"
	GlyphSkipped = "○"
	GlyphWarning = "⚠"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorDim    = lipgloss.Color("240")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	scenarioStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	passedStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Header renders a section header.
func Header(s string) string { return headerStyle.Render(s) }

// Scenario renders a scenario title.
func Scenario(s string) string { return scenarioStyle.Render(s) }

// Passed renders a pass marker or message.
func Passed(s string) string { return passedStyle.Render(s) }

// Failed renders a failure marker or message.
func Failed(s string) string { return failedStyle.Render(s) }

// Command renders a command line being executed.
func Command(s string) string { return commandStyle.Render(s) }

// Warn renders a warning message.
func Warn(s string) string { return warnStyle.Render(s) }

// Dim renders secondary detail text.
func Dim(s string) string { return dimStyle.Render(s) }
