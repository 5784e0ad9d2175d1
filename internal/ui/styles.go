// Package ui renders the terminal banner and end-of-run summary.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorRed     = lipgloss.Color("#FF0055")
	ColorOrange  = lipgloss.Color("#FF8800")

	ColorDimText    = lipgloss.Color("#666666")
	ColorBrightText = lipgloss.Color("#FFFFFF")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMagenta).
			Padding(1, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorBrightText).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(ColorCyan)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(ColorDimText)

	// Finding severities
	SeverityHighStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	SeverityMediumStyle = lipgloss.NewStyle().
				Foreground(ColorOrange)

	SeverityLowStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	SeverityInfoStyle = lipgloss.NewStyle().
				Foreground(ColorDimText)
)

// RenderLabel renders a label with consistent styling
func RenderLabel(label string) string {
	return LabelStyle.Render(label + ":")
}

// RenderValue renders a value with consistent styling
func RenderValue(value string) string {
	return ValueStyle.Render(value)
}

// RenderLabelValue renders a label-value pair
func RenderLabelValue(label, value string) string {
	return RenderLabel(label) + " " + RenderValue(value)
}

// RenderError renders error text
func RenderError(text string) string {
	return ErrorStyle.Render(text)
}

// RenderWarning renders warning text
func RenderWarning(text string) string {
	return WarningStyle.Render(text)
}

// MiniBanner is printed above every run.
const MiniBanner = `┌─ FluxProbe ─ schema-driven protocol fuzzer ───────────────────┐`

// RenderBanner returns the styled banner followed by the run target.
func RenderBanner(protocol, target string, seed int64, dryRun bool) string {
	banner := lipgloss.NewStyle().
		Foreground(ColorCyan).
		Bold(true).
		Render(MiniBanner)

	line := RenderLabelValue("Protocol", protocol) + "\n" +
		RenderLabelValue("Target", target) + "\n" +
		RenderLabelValue("Seed", formatInt(seed))
	if dryRun {
		line += "\n" + RenderWarning("dry run: frames are generated but not sent")
	}
	return banner + "\n" + line
}
