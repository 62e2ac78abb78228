// Package tui is a terminal dashboard for observing a running
// motor imagery session. It polls the orchestrator over HTTP on a
// fixed tick and renders the status and neurofeedback documents.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mi-lab/backend/internal/client"
	"github.com/mi-lab/backend/internal/session"
	"github.com/mi-lab/backend/internal/supervisor"
)

const pollInterval = 500 * time.Millisecond

type tickMsg time.Time

// pollMsg carries one round of polled documents.
type pollMsg struct {
	status   session.Status
	feedback session.Feedback
	health   supervisor.Health
	err      error
}

type stopDoneMsg struct{ err error }

// Model is the root Bubble Tea model.
type Model struct {
	api  *client.Client
	keys KeyMap

	width  int
	height int

	status   session.Status
	feedback session.Feedback
	health   supervisor.Health

	pollErr error
	stopErr error
}

// New creates the root model.
func New(api *client.Client) Model {
	return Model{
		api:      api,
		keys:     DefaultKeyMap(),
		status:   session.IdleStatus(),
		feedback: session.DisconnectedFeedback("waiting for first poll"),
	}
}

// Init schedules the first poll.
func (m Model) Init() tea.Cmd {
	return m.poll()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Stop):
			return m, m.stopSession()
		}
		return m, nil

	case pollMsg:
		if msg.err != nil {
			m.pollErr = msg.err
		} else {
			m.pollErr = nil
			m.status = msg.status
			m.feedback = msg.feedback
			m.health = msg.health
		}
		return m, tick()

	case stopDoneMsg:
		m.stopErr = msg.err
		return m, nil

	case tickMsg:
		return m, m.poll()
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// poll fetches all three documents in one command. A failure on any
// endpoint surfaces as a single poll error; the previous snapshot
// stays on screen.
func (m Model) poll() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		st, err := api.GetStatus()
		if err != nil {
			return pollMsg{err: err}
		}
		fb, err := api.GetFeedback()
		if err != nil {
			return pollMsg{err: err}
		}
		h, err := api.GetHealth()
		if err != nil {
			return pollMsg{err: err}
		}
		return pollMsg{status: st, feedback: fb, health: h}
	}
}

func (m Model) stopSession() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		return stopDoneMsg{err: api.StopSession()}
	}
}

// View renders the full dashboard.
func (m Model) View() string {
	width := m.width
	if width < 60 {
		width = 60
	}

	sections := []string{
		m.renderHeader(width),
		m.renderSessionPane(width),
		m.renderFeedbackPane(width),
		m.renderFooter(width),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader shows the session state and process health in one row.
func (m Model) renderHeader(width int) string {
	stateStr := lipgloss.NewStyle().Bold(true).Foreground(stateColor(m.status.State)).
		Render(strings.ToUpper(string(m.status.State)))

	procs := procBadge("stimulus", m.health.Running) + " " +
		procBadge("feedback", m.health.FeedbackRunning)

	left := styleHeader.Render("MI Session") + "  " + stateStr
	gap := width - lipgloss.Width(left) - lipgloss.Width(procs) - 4
	if gap < 1 {
		gap = 1
	}

	return styleBorder.Width(width - 2).Padding(0, 1).
		Render(left + strings.Repeat(" ", gap) + procs)
}

func procBadge(name string, up bool) string {
	if up {
		return lipgloss.NewStyle().Foreground(colorHealthy).Render("● " + name)
	}
	return lipgloss.NewStyle().Foreground(colorDimmed).Render("○ " + name)
}

// renderSessionPane shows trial and block progress.
func (m Model) renderSessionPane(width int) string {
	st := m.status

	if st.State == session.Idle {
		return styleBorder.Width(width - 2).Padding(0, 1).
			Render(styleDimmed.Render("No session running"))
	}

	phaseStr := lipgloss.NewStyle().Foreground(phaseColor(st.Phase)).
		Render(phaseGlyph(st.Phase) + " " + string(st.Phase))

	barWidth := width - 30
	lines := []string{
		fmt.Sprintf("%s  %s", styleHeader.Render("Phase"), phaseStr),
		fmt.Sprintf("Trial %3d/%-3d %s", st.CurrentTrial, st.TotalTrials,
			renderProgress(ratio(st.CurrentTrial, st.TotalTrials), barWidth)),
		fmt.Sprintf("Block %3d/%-3d %s", st.CurrentBlock, st.TotalBlocks,
			renderProgress(ratio(st.CurrentBlock, st.TotalBlocks), barWidth)),
		styleDimmed.Render(fmt.Sprintf("bad trials: %d   elapsed: %s",
			st.BadTrials, formatElapsed(st.ElapsedSeconds))),
	}
	if st.OutputFile != "" {
		lines = append(lines, styleDimmed.Render("output: "+st.OutputFile))
	}

	return styleBorder.Width(width - 2).Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderFeedbackPane shows band power and laterality from the
// feedback processor.
func (m Model) renderFeedbackPane(width int) string {
	fb := m.feedback

	if !fb.Connected {
		msg := "feedback processor not connected"
		if fb.Error != nil {
			msg = *fb.Error
		}
		return styleBorder.Width(width - 2).Padding(0, 1).
			Render(styleDimmed.Render("◌ " + msg))
	}

	stream := ""
	if fb.StreamName != nil {
		stream = *fb.StreamName
	}

	barWidth := width - 34
	lines := []string{
		styleHeader.Render("Neurofeedback") + styleDimmed.Render("  stream: "+stream),
	}
	for _, ch := range []string{"C3", "C4"} {
		bp, ok := fb.Channels[ch]
		if !ok {
			continue
		}
		color := colorLeft
		if ch == "C4" {
			color = colorRight
		}
		label := lipgloss.NewStyle().Foreground(color).Render(ch)
		lines = append(lines, fmt.Sprintf("%s  mu %6.2f %s  beta %6.2f",
			label, bp.MuPower, renderBar(bp.MuPower, 30, barWidth, color), bp.BetaPower))
	}
	lines = append(lines,
		fmt.Sprintf("laterality %+.3f   mu suppression %+.1f%%",
			fb.LateralityIndex, fb.MuSuppression*100))

	return styleBorder.Width(width - 2).Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderFooter(width int) string {
	help := styleDimmed.Render("q quit   x stop session")
	if m.pollErr != nil {
		return lipgloss.NewStyle().Foreground(colorDanger).
			Render("poll error: "+m.pollErr.Error()) + "  " + help
	}
	if m.stopErr != nil {
		return lipgloss.NewStyle().Foreground(colorWarning).
			Render("stop failed: "+m.stopErr.Error()) + "  " + help
	}
	return help
}

// renderProgress draws a fill bar for a 0..1 ratio.
func renderProgress(pct float64, barWidth int) string {
	if barWidth < 8 {
		barWidth = 8
	}
	filled := int(pct * float64(barWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := lipgloss.NewStyle().Foreground(colorRunning).
		Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(colorBorder).
		Render(strings.Repeat("░", barWidth-filled))
	return bar
}

// renderBar draws a magnitude bar scaled against a fixed ceiling.
func renderBar(value, ceiling float64, barWidth int, color lipgloss.Color) string {
	if barWidth < 8 {
		barWidth = 8
	}
	pct := value / ceiling
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(barWidth))
	bar := lipgloss.NewStyle().Foreground(color).
		Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(colorBorder).
		Render(strings.Repeat("░", barWidth-filled))
	return bar
}

func ratio(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(current) / float64(total)
}

func formatElapsed(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
