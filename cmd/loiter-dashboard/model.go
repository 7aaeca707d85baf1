package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/detector"
	"github.com/unklstewy/ads-loiter/pkg/loiter"
)

const visibleRows = 12

// cycleRunner is the part of the pipeline the dashboard drives.
type cycleRunner interface {
	RunCycle(ctx context.Context, area coordinates.Area) (*loiter.CycleResult, error)
}

// logTail keeps the last lines written through the standard logger so they
// can be shown under the table instead of corrupting the screen.
type logTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func (t *logTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		t.lines = append(t.lines, line)
	}
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
	return len(p), nil
}

func (t *logTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

type tickMsg time.Time

type cycleDoneMsg struct {
	res *loiter.CycleResult
	err error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	runner   cycleRunner
	area     coordinates.Area
	interval time.Duration
	logs     *logTail

	result   *loiter.CycleResult
	err      error
	running  bool
	cycles   int
	recorded int
	nextRun  time.Time
	selected int
	now      time.Time
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.startCycle())
}

func (m *model) startCycle() tea.Cmd {
	runner, area := m.runner, m.area
	return func() tea.Msg {
		res, err := runner.RunCycle(context.Background(), area)
		return cycleDoneMsg{res: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if !m.running {
				m.running = true
				return m, m.startCycle()
			}
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.result != nil && m.selected < len(m.result.Outcomes)-1 {
				m.selected++
			}
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		if !m.running && !m.nextRun.IsZero() && !m.now.Before(m.nextRun) {
			m.running = true
			return m, tea.Batch(tick(), m.startCycle())
		}
		return m, tick()

	case cycleDoneMsg:
		m.running = false
		m.cycles++
		m.err = msg.err
		if msg.res != nil && msg.err == nil {
			m.result = msg.res
			m.recorded += len(msg.res.Recorded)
			if m.selected >= len(msg.res.Outcomes) {
				m.selected = 0
			}
		}
		m.nextRun = time.Now().Add(m.interval)
		return m, nil
	}

	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("237"))

	reasonColors = map[detector.Reason]lipgloss.Color{
		detector.ReasonLoitering:           "46",
		detector.ReasonNoReversal:          "75",
		detector.ReasonAltitudeOutOfBand:   "226",
		detector.ReasonInsufficientSamples: "244",
		detector.ReasonMalformed:           "196",
	}
)

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LOITERING FLIGHT DASHBOARD"))
	s.WriteString("\n\n")

	status := fmt.Sprintf("Area %.4f, %.4f r=%.0f m | cycles %d | recorded %d",
		m.area.Center.Latitude, m.area.Center.Longitude, m.area.RadiusMeters, m.cycles, m.recorded)
	switch {
	case m.running:
		status += " | running..."
	case !m.nextRun.IsZero() && !m.now.IsZero():
		status += fmt.Sprintf(" | next in %s", m.nextRun.Sub(m.now).Truncate(time.Second))
	}
	s.WriteString(status)
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderTable())
	s.WriteString("\n")

	for _, line := range m.logs.Lines() {
		s.WriteString(helpStyle.Render(line))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: Select  R: Run now  Q: Quit"))
	s.WriteString("\n")
	return s.String()
}

func (m model) renderTable() string {
	var t strings.Builder

	if m.result == nil {
		t.WriteString(helpStyle.Render("  Waiting for first cycle..."))
		t.WriteString("\n")
		return t.String()
	}

	t.WriteString(headerStyle.Render(fmt.Sprintf("Candidates (%d found, %d excluded, %d skipped)",
		m.result.Found, m.result.Excluded, len(m.result.Skipped))))
	t.WriteString("\n\n")

	if len(m.result.Outcomes) == 0 {
		t.WriteString(helpStyle.Render("  No candidate flights in the area"))
		t.WriteString("\n")
		return t.String()
	}

	t.WriteString(fmt.Sprintf("  %-9s %-22s %5s %5s %7s %8s  %-20s\n",
		"Callsign", "Model", "Mode1", "Mode2", "Alt m", "Samples", "Reason"))

	start := 0
	if m.selected >= visibleRows {
		start = m.selected - visibleRows + 1
	}
	end := start + visibleRows
	if end > len(m.result.Outcomes) {
		end = len(m.result.Outcomes)
	}

	for i := start; i < end; i++ {
		o := m.result.Outcomes[i]
		prefix := "  "
		if i == m.selected {
			prefix = "→ "
		}
		reason := lipgloss.NewStyle().Foreground(reasonColors[o.Reason]).Render(fmt.Sprintf("%-20s", o.Reason))
		if o.Recorded {
			reason += " [NEW]"
		}

		line := fmt.Sprintf("%s%-9s %-22s %5s %5s %7.0f %8d  ",
			prefix, truncate(o.Callsign, 9), truncate(o.Model, 22),
			modeText(o, o.Summary.Half1), modeText(o, o.Summary.Half2),
			o.Summary.MeanAltitudeM, o.Samples)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		t.WriteString(line + reason + "\n")
	}
	return t.String()
}

// modeText shows the half's mode, or a dash when no statistics were computed.
func modeText(o loiter.Outcome, h detector.HalfStats) string {
	if o.Reason == detector.ReasonInsufficientSamples || o.Reason == detector.ReasonMalformed || h.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%d°", h.Mode)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
