// Package cli renders search results and progress for the terminal.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/workitem-scout/internal/model"
)

var (
	azureBlue = lipgloss.Color("#0078D4")
	teal      = lipgloss.Color("#4ECDC4")
	amber     = lipgloss.Color("#FFB900")
	red       = lipgloss.Color("#E74856")
	gray      = lipgloss.Color("#767676")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(azureBlue)
	goodStyle    = lipgloss.NewStyle().Foreground(teal)
	cautionStyle = lipgloss.NewStyle().Foreground(amber)
	badStyle     = lipgloss.NewStyle().Foreground(red)

	// SubtleStyle dims secondary text such as area paths and reasoning.
	SubtleStyle = lipgloss.NewStyle().Foreground(gray)

	// TableHeaderStyle is applied to every header cell.
	TableHeaderStyle = headingStyle.Underline(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(azureBlue).
			Padding(0, 1)
)

// Icons used in command output.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	RobotIcon   = "🤖"
	LinkIcon    = "🔗"
)

// FormatError prefixes message with the error icon.
func FormatError(message string) string {
	return badStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning prefixes message with the warning icon.
func FormatWarning(message string) string {
	return cautionStyle.Render(WarningIcon + " " + message)
}

// FormatInfo prefixes message with the info icon.
func FormatInfo(message string) string {
	return SubtleStyle.Render(InfoIcon + " " + message)
}

// ConfidenceStyle picks a color for a confidence label.
func ConfidenceStyle(c model.Confidence) lipgloss.Style {
	switch c {
	case model.ConfidenceHigh:
		return goodStyle.Bold(true)
	case model.ConfidenceMedium:
		return cautionStyle
	default:
		return SubtleStyle
	}
}

// RenderBox draws a bordered panel with a heading line above content.
func RenderBox(title, content string) string {
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headingStyle.Render(title), content))
}
