package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the title line of command output.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle wraps a block of related figures.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is used for the left-hand column of key/value rows.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(18)

// ValueStyle is used for plain figures.
var ValueStyle = lipgloss.NewStyle().
	Bold(true)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// StatusStyle returns a color-coded style for a goal or work status.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case "active", "todo":
		return base.Foreground(ColorBlue)
	case "doing":
		return base.Foreground(ColorYellow)
	case "done":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// OverdueStyle highlights a non-zero overdue count.
func OverdueStyle(count int) lipgloss.Style {
	if count > 0 {
		return ValueStyle.Foreground(ColorRed)
	}
	return ValueStyle.Foreground(ColorGreen)
}

// ProgressStyle colors a done/total ratio: green when complete, yellow
// when started, gray otherwise.
func ProgressStyle(done, total int) lipgloss.Style {
	switch {
	case total > 0 && done == total:
		return ValueStyle.Foreground(ColorGreen)
	case done > 0:
		return ValueStyle.Foreground(ColorYellow)
	default:
		return ValueStyle.Foreground(ColorGray)
	}
}
