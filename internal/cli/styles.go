// Package cli holds the terminal presentation helpers shared by fxlens commands.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	AccentColor  = lipgloss.Color("#F4B942")
	OKColor      = lipgloss.Color("#4ECDC4")
	CautionColor = lipgloss.Color("#FFE66D")
	FailColor    = lipgloss.Color("#FF6B6B")
	NoteColor    = lipgloss.Color("#95E1D3")
	MutedColor   = lipgloss.Color("#666666")
)

var (
	// TitleStyle renders section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(OKColor)
	WarningStyle = lipgloss.NewStyle().Foreground(CautionColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(FailColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(NoteColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(MutedColor)

	// BoxStyle frames rate tables and preference listings.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).PaddingRight(2)
	TableCellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	LensIcon    = "💱"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }
func FormatError(message string) string   { return withIcon(ErrorStyle, ErrorIcon, message) }
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }
func FormatInfo(message string) string    { return withIcon(InfoStyle, InfoIcon, message) }

// FormatTitle prefixes title with the fxlens icon.
func FormatTitle(title string) string {
	return withIcon(TitleStyle, LensIcon, title)
}

// RenderBox draws content below a title inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
