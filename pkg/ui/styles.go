package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#00D4AA")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")

	// Outcome colors
	Blocked = lipgloss.Color("#00D26A") // protection did its job
	Bypass  = lipgloss.Color("#FF3838") // payload got through
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Primary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(20)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	BlockedStyle = lipgloss.NewStyle().Foreground(Blocked).Bold(true)
	BypassStyle  = lipgloss.NewStyle().Foreground(Bypass).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 2)
)

// GradeStyle colors a letter grade from green (A) to red (F).
func GradeStyle(grade string) lipgloss.Style {
	switch grade {
	case "A":
		return lipgloss.NewStyle().Foreground(Success).Bold(true)
	case "B":
		return lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	case "C":
		return lipgloss.NewStyle().Foreground(Warning).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	}
}
