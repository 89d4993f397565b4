package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relabs-tech/eagle_eye/internal/vision"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginBottom(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))
)

type positionDueMsg struct{}

type visionDueMsg struct{}

// Timing is the fixed delay between the end of one tick of a feed and the
// start of the next.
type Timing struct {
	Position time.Duration
	Vision   time.Duration
}

// Model is the bubbletea model driving the dashboard.
type Model struct {
	d         *Dashboard
	title     string
	imageCols int
	timing    Timing

	width     int
	fixes     int
	frames    int
	skipped   int
	dropped   uint64
	lastError string
	feedLost  string
}

func NewModel(d *Dashboard, title string, imageCols int, timing Timing) Model {
	return Model{d: d, title: title, imageCols: imageCols, timing: timing}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.armPosition(),
		m.armVision(),
	)
}

func (m Model) armPosition() tea.Cmd {
	return tea.Tick(m.timing.Position, func(time.Time) tea.Msg {
		return positionDueMsg{}
	})
}

func (m Model) armVision() tea.Cmd {
	return tea.Tick(m.timing.Vision, func(time.Time) tea.Msg {
		return visionDueMsg{}
	})
}

func (m Model) pollPosition() tea.Msg {
	return m.d.pollPosition()
}

func (m Model) pollVision() tea.Msg {
	return m.d.pollVision()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case positionDueMsg:
		return m, m.pollPosition

	case positionPolledMsg:
		m.d.applyPosition(msg)
		m.fixes += len(msg.fixes)
		m.dropped = msg.dropped
		m.feedLost = ""
		if msg.lost != nil {
			m.feedLost = "GPS receiver stopped: " + msg.lost.Error()
		}
		if n := len(msg.errs); n > 0 {
			m.lastError = msg.errs[n-1].Error()
		}
		return m, m.armPosition()

	case visionDueMsg:
		return m, m.pollVision

	case visionPolledMsg:
		if m.d.applyVision(msg) {
			m.frames++
			if msg.frame.DetectErr != nil {
				m.lastError = msg.frame.DetectErr.Error()
			}
		} else {
			m.skipped++
			if msg.err != nil && !errors.Is(msg.err, vision.ErrNoFrame) {
				m.lastError = msg.err.Error()
			}
		}
		return m, m.armVision()
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	cols := m.imageCols
	if m.width > 0 && m.width < cols {
		cols = m.width
	}
	if img := m.d.surface.Render(cols); img != "" {
		b.WriteString(img)
	} else {
		b.WriteString(dimStyle.Render("Waiting for camera..."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.d.table.View())
	b.WriteString("\n\n")

	stats := fmt.Sprintf("fixes %d  rows %d/%d  frames %d  skipped %d",
		m.fixes, m.d.window.Len(), m.d.window.Cap(), m.frames, m.skipped)
	if m.dropped > 0 {
		stats += fmt.Sprintf("  dropped %d", m.dropped)
	}
	b.WriteString(statStyle.Render(stats))
	if m.lastError != "" {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(m.lastError))
	}
	b.WriteString("\n")
	if m.feedLost != "" {
		b.WriteString(errorStyle.Render(m.feedLost))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("Press 'q' to quit"))

	return b.String()
}
