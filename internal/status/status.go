// Package status displays the post-install dashboard. Provides three tabs:
//   - Service: unit state, install record, configuration checks
//   - Logs: tail of the service log file
//   - Sheet: the Google Sheet the scraper writes to, with a QR code
//
// Press esc to quit.
package status

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ripsline/job-scraper-node/internal/installer"
)

// ── Styles ───────────────────────────────────────────────

var (
	wTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")).
			Padding(0, 2)

	wActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")).
			Padding(0, 2)

	wInactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	wHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)

	wLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	wValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	wGreenDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	wRedDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	wDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	wBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245"))

	wWarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

const wContentWidth = 76

type tab int

const (
	tabService tab = iota
	tabLogs
	tabSheet
)

// ── Model ────────────────────────────────────────────────

// Model is the bubbletea dashboard.
type Model struct {
	ctx       context.Context
	collector Collector
	snap      Snapshot
	version   string
	activeTab tab
	logOffset int // 0 = newest
	width     int
	height    int
}

// NewModel collects a first snapshot and returns the dashboard.
func NewModel(ctx context.Context, c Collector, version string) Model {
	return Model{
		ctx:       ctx,
		collector: c,
		snap:      c.Collect(ctx),
		version:   version,
	}
}

// Show runs the dashboard until the operator quits.
func Show(ctx context.Context, c Collector, version string) error {
	p := tea.NewProgram(NewModel(ctx, c, version), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) boxHeight() int {
	h := m.height - 12
	if h < 10 {
		h = 10
	}
	if h > 30 {
		h = 30
	}
	return h
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c", "q":
			return m, tea.Quit
		case "tab", "right":
			m.activeTab = (m.activeTab + 1) % 3
		case "shift+tab", "left":
			m.activeTab = (m.activeTab + 2) % 3
		case "1":
			m.activeTab = tabService
		case "2":
			m.activeTab = tabLogs
		case "3":
			m.activeTab = tabSheet
		case "r":
			m.snap = m.collector.Collect(m.ctx)
			m.logOffset = 0
		case "up", "k":
			if m.activeTab == tabLogs {
				maxOffset := len(m.snap.LogLines) - m.logsVisible()
				if m.logOffset < maxOffset {
					m.logOffset++
				}
			}
		case "down", "j":
			if m.activeTab == tabLogs && m.logOffset > 0 {
				m.logOffset--
			}
		}
	}
	return m, nil
}

func (m Model) logsVisible() int {
	v := m.boxHeight() - 2
	if v < 5 {
		v = 5
	}
	return v
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	boxWidth := minInt(m.width-4, wContentWidth)

	var content string
	switch m.activeTab {
	case tabService:
		content = m.renderService(boxWidth)
	case tabLogs:
		content = m.renderLogs(boxWidth)
	case tabSheet:
		content = m.renderSheet(boxWidth)
	}

	title := wTitleStyle.Width(boxWidth).Align(lipgloss.Center).
		Render(" Job Scraper v" + m.version + " ")
	footer := wDimStyle.Render("  ← → tabs • ↑↓ scroll logs • r refresh • esc quit  ")

	full := lipgloss.JoinVertical(lipgloss.Center,
		"", title, "", m.renderTabs(boxWidth), "", content, "", footer)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Top, full)
}

func (m Model) renderTabs(totalWidth int) string {
	names := []string{"Service", "Logs", "Sheet"}
	tabWidth := totalWidth / len(names)
	var rendered []string
	for i, name := range names {
		style := wInactiveTabStyle
		if tab(i) == m.activeTab {
			style = wActiveTabStyle
		}
		rendered = append(rendered, style.Width(tabWidth).Align(lipgloss.Center).Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) pad(content string, boxWidth int) string {
	if h := lipgloss.Height(content); h < m.boxHeight() {
		content += strings.Repeat("\n", m.boxHeight()-h)
	}
	return wBorderStyle.Width(boxWidth).Padding(1, 2).Render(content)
}

// ── Service tab ──────────────────────────────────────────

func (m Model) renderService(boxWidth int) string {
	return m.pad(strings.Join(serviceLines(m.snap, true), "\n"), boxWidth)
}

// serviceLines renders the service summary; styled selects lipgloss
// output for the dashboard over plain text for Print.
func serviceLines(s Snapshot, styled bool) []string {
	label := renderer(wLabelStyle, styled)
	value := renderer(wValueStyle, styled)
	header := renderer(wHeaderStyle, styled)
	warn := renderer(wWarningStyle, styled)

	dot := func(ok bool) string {
		switch {
		case !styled && ok:
			return "[ok]"
		case !styled:
			return "[!!]"
		case ok:
			return wGreenDotStyle.Render("●")
		default:
			return wRedDotStyle.Render("●")
		}
	}

	lines := []string{
		header("Service"),
		"",
		"  " + dot(s.Active == "active") + " " + value(s.Settings.UnitName()) +
			label("  active: ") + value(s.Active) + label("  enabled: ") + value(s.Enabled),
		"",
		header("Files"),
		"",
		"  " + dot(s.EnvErr == nil) + " " + value(s.Settings.EnvFile()),
		"  " + dot(s.Credentials) + " " + value(s.Settings.CredentialsPath()),
		"  " + dot(s.Venv) + " " + value(s.Settings.Python()),
		"",
		header("Schedule"),
		"",
	}

	if s.EnvErr != nil {
		lines = append(lines, "  "+warn("environment file unreadable: "+s.EnvErr.Error()))
	} else {
		lines = append(lines,
			"  "+label("Runs at: ")+value(s.Env[installer.EnvScheduleTime1]+" and "+s.Env[installer.EnvScheduleTime2]),
			"  "+label("Run on start: ")+value(s.Env[installer.EnvRunOnStart]))
	}

	if s.Record != nil {
		lines = append(lines, "", header("Install"), "",
			"  "+label("Installed: ")+value(s.Record.InstalledAt.Format("2006-01-02 15:04 MST"))+
				label("  version ")+value(s.Record.Version))
		for _, step := range s.Record.FailedSteps {
			lines = append(lines, "  "+warn("failed: "+step))
		}
	}
	return lines
}

// ── Logs tab ─────────────────────────────────────────────

func (m Model) renderLogs(boxWidth int) string {
	lines := m.snap.LogLines
	visible := m.logsVisible()
	total := len(lines)

	start := total - visible - m.logOffset
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > total {
		end = total
	}

	var display []string
	if total == 0 {
		display = []string{wDimStyle.Render("No logs available. Press r to refresh.")}
	} else {
		for _, line := range lines[start:end] {
			display = append(display, wDimStyle.Render(truncate(line, boxWidth-6)))
		}
	}

	head := wHeaderStyle.Render(m.snap.Settings.ServiceLog())
	if m.logOffset > 0 {
		head += wDimStyle.Render(fmt.Sprintf("  ↑ %d more lines above", start))
	}
	return m.pad(head+"\n\n"+strings.Join(display, "\n"), boxWidth)
}

// ── Sheet tab ────────────────────────────────────────────

func (m Model) renderSheet(boxWidth int) string {
	key := m.snap.SheetKey()
	if key == "" {
		return m.pad(wWarningStyle.Render("No Google Sheet key configured in "+
			m.snap.Settings.EnvFile()), boxWidth)
	}

	url := installer.SheetURL(key)
	parts := []string{
		wHeaderStyle.Render("Google Sheet"),
		"",
		wValueStyle.Render(url),
		"",
	}
	if qr := renderQRCode(url); qr != "" {
		parts = append(parts, qr)
	}
	return m.pad(lipgloss.JoinVertical(lipgloss.Left, parts...), boxWidth)
}

// ── Plain output ─────────────────────────────────────────

// Print writes the service summary without the TUI, for pipes and cron.
func Print(w io.Writer, s Snapshot) {
	for _, line := range serviceLines(s, false) {
		fmt.Fprintln(w, line)
	}
	if key := s.SheetKey(); key != "" {
		fmt.Fprintf(w, "\nGoogle Sheet: %s\n", installer.SheetURL(key))
	}
}

// ── QR rendering ─────────────────────────────────────────

func renderQRCode(data string) string {
	qr, err := qrcode.New(data, qrcode.Low)
	if err != nil {
		return ""
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := len(bitmap[0])

	var b strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bottom := false
			if y+1 < rows {
				bottom = bitmap[y+1][x]
			}
			switch {
			case top && bottom:
				b.WriteString("█")
			case top && !bottom:
				b.WriteString("▀")
			case !top && bottom:
				b.WriteString("▄")
			default:
				b.WriteString(" ")
			}
		}
		if y+2 < rows {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ── Helpers ──────────────────────────────────────────────

func renderer(style lipgloss.Style, styled bool) func(string) string {
	if !styled {
		return func(v string) string { return v }
	}
	return func(v string) string { return style.Render(v) }
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
