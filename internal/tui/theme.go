package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mi-lab/backend/internal/session"
)

// Session state colors.
var (
	colorIdle      = lipgloss.Color("#4b5563")
	colorPractice  = lipgloss.Color("#06b6d4")
	colorRunning   = lipgloss.Color("#22c55e")
	colorBreak     = lipgloss.Color("#d97706")
	colorCompleted = lipgloss.Color("#16a34a")
	colorAborted   = lipgloss.Color("#dc2626")
	colorDefault   = lipgloss.Color("#9ca3af")
)

// Phase colors.
var (
	colorBaseline = lipgloss.Color("#6b7280")
	colorCue      = lipgloss.Color("#f59e0b")
	colorMI       = lipgloss.Color("#3b82f6")
	colorRest     = lipgloss.Color("#4b5563")
)

// UI chrome colors.
var (
	colorBorder  = lipgloss.Color("#4b5563")
	colorDimmed  = lipgloss.Color("#6b7280")
	colorBright  = lipgloss.Color("#f9fafb")
	colorHealthy = lipgloss.Color("#22c55e")
	colorWarning = lipgloss.Color("#d97706")
	colorDanger  = lipgloss.Color("#dc2626")
	colorLeft    = lipgloss.Color("#a855f7")
	colorRight   = lipgloss.Color("#2563eb")
)

// Reusable styles.
var (
	styleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBright)

	styleDimmed = lipgloss.NewStyle().
			Foreground(colorDimmed)
)

// stateColor returns the color for a session state.
func stateColor(s session.State) lipgloss.Color {
	switch s {
	case session.Idle:
		return colorIdle
	case session.Practice:
		return colorPractice
	case session.Running:
		return colorRunning
	case session.Break:
		return colorBreak
	case session.Completed:
		return colorCompleted
	case session.Aborted:
		return colorAborted
	default:
		return colorDefault
	}
}

// phaseColor returns the color for a trial phase.
func phaseColor(p session.Phase) lipgloss.Color {
	switch p {
	case session.PhaseBaseline:
		return colorBaseline
	case session.PhaseCue:
		return colorCue
	case session.PhaseMI:
		return colorMI
	case session.PhaseRest:
		return colorRest
	case session.PhaseBreak:
		return colorBreak
	default:
		return colorDimmed
	}
}

// phaseGlyph returns a Unicode glyph representing a trial phase.
func phaseGlyph(p session.Phase) string {
	switch p {
	case session.PhaseBaseline:
		return "◌"
	case session.PhaseCue:
		return "◎"
	case session.PhaseMI:
		return "●"
	case session.PhaseRest:
		return "○"
	case session.PhaseBreak:
		return "⏸"
	default:
		return "·"
	}
}
