// Package installer — prompt.go
//
// The one question the installer asks: the Google Sheet key written
// to GOOGLE_SHEETS_KEY. Terminals get a bubbletea text input with a
// confirmation summary; pipes get a plain line prompt.
package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Prompter asks the operator for the Google Sheet key. ok is false
// when the operator cancels.
type Prompter interface {
	SheetKey(ctx context.Context) (key string, ok bool, err error)
}

// ── Line prompt ──────────────────────────────────────────

// LinePrompter reads the answer from a line of input.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a prompter reading r and writing questions to w.
func NewLinePrompter(r io.Reader, w io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(r), out: w}
}

// SheetKey implements Prompter. EOF without any input cancels.
func (p *LinePrompter) SheetKey(ctx context.Context) (string, bool, error) {
	fmt.Fprint(p.out, "Enter your Google Sheet key (or the sheet URL): ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), true, nil
		}
		if errors.Is(err, io.EOF) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(line), true, nil
}

// ── TUI prompt ───────────────────────────────────────────

var (
	tuiTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")).
			Padding(0, 2)

	tuiSectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)

	tuiSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220")).
				Bold(true)

	tuiDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	tuiWarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	tuiBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(1, 2)

	tuiSummaryKeyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(18).
				Align(lipgloss.Right)

	tuiSummaryValStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Bold(true)
)

type promptPhase int

const (
	phaseInput promptPhase = iota
	phaseSummary
	phaseConfirmed
	phaseCancelled
)

const tuiContentWidth = 64

type promptModel struct {
	input   textinput.Model
	phase   promptPhase
	summary []summaryRow
	width   int
	height  int
}

type summaryRow struct{ key, val string }

func newPromptModel(summary []summaryRow) promptModel {
	ti := textinput.New()
	ti.Placeholder = "1AbC...xyz or https://docs.google.com/spreadsheets/d/..."
	ti.CharLimit = 256
	ti.Width = tuiContentWidth - 4
	ti.Focus()
	return promptModel{input: ti, summary: summary}
}

func (m promptModel) Init() tea.Cmd { return textinput.Blink }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.phase = phaseCancelled
			return m, tea.Quit
		case "enter":
			if m.phase == phaseSummary {
				m.phase = phaseConfirmed
				return m, tea.Quit
			}
			m.phase = phaseSummary
			m.input.Blur()
			return m, nil
		case "backspace":
			if m.phase == phaseSummary {
				m.phase = phaseInput
				return m, m.input.Focus()
			}
		}
	}

	if m.phase != phaseInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(tuiTitleStyle.Width(tuiContentWidth).Align(lipgloss.Center).
		Render(" Job Scraper Installer "))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseInput:
		b.WriteString(tuiSectionStyle.Render("Google Sheet"))
		b.WriteString("\n\n")
		b.WriteString(tuiDimStyle.Render("Paste the sheet key or its URL. Jobs are appended to the"))
		b.WriteString("\n")
		b.WriteString(tuiDimStyle.Render("'Vagas' worksheet; share the sheet with the service account."))
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(tuiDimStyle.Render("enter continue • esc quit"))
	case phaseSummary:
		b.WriteString(m.renderSummary())
		b.WriteString("\n")
		b.WriteString(tuiDimStyle.Render("enter install • backspace edit • esc cancel"))
	}

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center, b.String())
}

func (m promptModel) renderSummary() string {
	var b strings.Builder
	b.WriteString(tuiSectionStyle.Render("Installation Summary"))
	b.WriteString("\n\n")

	key := NormalizeSheetKey(m.input.Value())
	rows := append([]summaryRow{{"Google Sheet", key}}, m.summary...)

	var content strings.Builder
	for _, row := range rows {
		content.WriteString(tuiSummaryKeyStyle.Render(row.key+":") +
			tuiSummaryValStyle.Render(" "+row.val) + "\n")
	}
	b.WriteString(tuiBoxStyle.Render(content.String()))
	b.WriteString("\n\n")
	if key == "" {
		b.WriteString(tuiWarningStyle.Render("WARNING: no sheet key, edit .env before starting"))
		b.WriteString("\n")
	}
	b.WriteString(tuiSelectedStyle.Render("Press Enter to install"))
	return b.String()
}

// TUIPrompter asks for the sheet key in a full-screen text input.
type TUIPrompter struct {
	// Summary rows shown under the key before the operator confirms.
	Summary [][2]string
}

// SheetKey implements Prompter.
func (p TUIPrompter) SheetKey(ctx context.Context) (string, bool, error) {
	rows := make([]summaryRow, 0, len(p.Summary))
	for _, r := range p.Summary {
		rows = append(rows, summaryRow{key: r[0], val: r[1]})
	}

	prog := tea.NewProgram(newPromptModel(rows), tea.WithAltScreen(), tea.WithContext(ctx))
	result, err := prog.Run()
	if err != nil {
		return "", false, fmt.Errorf("prompt TUI error: %w", err)
	}

	final := result.(promptModel)
	if final.phase != phaseConfirmed {
		return "", false, nil
	}
	return strings.TrimSpace(final.input.Value()), true, nil
}
