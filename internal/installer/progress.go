package installer

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ── Console styles ───────────────────────────────────────

var (
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	runStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// ── Install progress TUI ─────────────────────────────────

type stepStatus int

const (
	stepPending stepStatus = iota
	stepRunning
	stepDone
	stepFailed
)

type progressStep struct {
	installStep
	status stepStatus
	err    error
}

type stepDoneMsg struct {
	index int
	err   error
}

type progressModel struct {
	ctx     context.Context
	cancel  context.CancelFunc
	inst    *Installer
	steps   []progressStep
	current int
	done    bool
	failed  int
	aborted bool
	width   int
	height  int
}

var (
	progTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")).
			Padding(0, 2)

	progBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(1, 2)

	progDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	progRunStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	progPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	progFailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	progDimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	progGoodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

const progWidth = 75

func (m progressModel) Init() tea.Cmd {
	return m.runStep(0)
}

func (m progressModel) runStep(index int) tea.Cmd {
	return func() tea.Msg {
		if index >= len(m.steps) {
			return stepDoneMsg{index: index}
		}
		res := m.inst.execStep(m.ctx, m.steps[index].installStep)
		return stepDoneMsg{index: index, err: res.Err}
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.aborted = true
			// stops the running step's command
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "enter", "q":
			if m.done {
				return m, tea.Quit
			}
		}

	case stepDoneMsg:
		if msg.index >= len(m.steps) {
			m.done = true
			return m, nil
		}
		if msg.err != nil {
			m.steps[msg.index].status = stepFailed
			m.steps[msg.index].err = msg.err
			m.failed++
			if m.inst.strict {
				m.done = true
				return m, nil
			}
		} else {
			m.steps[msg.index].status = stepDone
		}

		next := msg.index + 1
		if next < len(m.steps) {
			m.current = next
			m.steps[next].status = stepRunning
			return m, m.runStep(next)
		}

		m.done = true
		return m, nil
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	boxWidth := minInt(m.width-4, progWidth)

	title := progTitleStyle.Width(boxWidth).Align(lipgloss.Center).
		Render(fmt.Sprintf(" Job Scraper Installer v%s ", m.inst.version))

	var lines []string
	for i, s := range m.steps {
		var style lipgloss.Style
		var indicator string

		switch s.status {
		case stepDone:
			style = progDoneStyle
			indicator = "✓"
		case stepRunning:
			style = progRunStyle
			indicator = "⟳"
		case stepFailed:
			style = progFailStyle
			indicator = "✗"
		default:
			style = progPendingStyle
			indicator = "○"
		}

		lines = append(lines,
			style.Render(fmt.Sprintf("  %s [%d/%d] %s",
				indicator, i+1, len(m.steps), s.name)))

		if s.status == stepFailed && s.err != nil {
			lines = append(lines,
				progFailStyle.Render(fmt.Sprintf("      Error: %v", s.err)))
		}
	}

	content := strings.Join(lines, "\n")
	box := progBoxStyle.Width(boxWidth).Render(content)

	var footer string
	switch {
	case m.done && m.failed == 0:
		footer = progGoodStyle.Render("  ✓ Installation complete — press Enter to continue  ")
	case m.done:
		footer = progFailStyle.Render(fmt.Sprintf("  %d step(s) failed. Press q to see the summary.  ", m.failed))
	default:
		footer = progDimStyle.Render("  Installing... please wait  ")
	}

	full := lipgloss.JoinVertical(lipgloss.Center,
		"", title, "", box, "", footer)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center, full)
}

// runProgressTUI runs the steps behind the full-screen progress view.
// Steps report into the installer's report exactly as in plain mode.
func (i *Installer) runProgressTUI(ctx context.Context, steps []installStep) error {
	if len(steps) == 0 {
		return nil
	}

	ps := make([]progressStep, len(steps))
	for n, s := range steps {
		ps[n] = progressStep{installStep: s}
	}
	ps[0].status = stepRunning

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := progressModel{ctx: ctx, cancel: cancel, inst: i, steps: ps}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("install TUI error: %w", err)
	}

	if final := result.(progressModel); final.aborted {
		return fmt.Errorf("installation interrupted at step %q", final.steps[final.current].name)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
