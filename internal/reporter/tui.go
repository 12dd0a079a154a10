package reporter

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/costscan/internal/scan"
)

// TUI styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

// TUIModel is the Bubbletea model for the findings browser. Results come
// from getResult on every tick, so a watcher rescanning in the background
// shows up without restarting the view.
type TUIModel struct {
	getResult func() *scan.Result

	result       *scan.Result
	scrollOffset int
	minSeverity  scan.Severity // 0 = show all
	expanded     bool          // show cost consideration lines
	width        int
	height       int
}

// NewTUIModel creates a findings browser fed by getResult.
func NewTUIModel(getResult func() *scan.Result) TUIModel {
	return TUIModel{getResult: getResult}
}

// Init implements tea.Model.
func (m TUIModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "f":
			// cycle all → high → high+medium → all
			switch m.minSeverity {
			case 0:
				m.minSeverity = scan.SeverityHigh
			case scan.SeverityHigh:
				m.minSeverity = scan.SeverityMedium
			default:
				m.minSeverity = 0
			}
			m.scrollOffset = 0

		case "c":
			m.expanded = !m.expanded

		case "j", "down":
			m.scrollDown(1)

		case "k", "up":
			m.scrollUp(1)

		case "g", "home":
			m.scrollOffset = 0

		case "G", "end":
			m.scrollOffset = m.maxScroll()

		case "pgdown":
			m.scrollDown(m.visibleLines())

		case "pgup":
			m.scrollUp(m.visibleLines())
		}

	case tickMsg:
		m.result = m.getResult()
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m *TUIModel) scrollDown(n int) {
	m.scrollOffset += n
	if max := m.maxScroll(); m.scrollOffset > max {
		m.scrollOffset = max
	}
}

func (m *TUIModel) scrollUp(n int) {
	m.scrollOffset -= n
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m TUIModel) visibleLines() int {
	// header(1) + summary(1) + blank(1) + help(1) = 4 reserved lines
	avail := m.height - 4
	if avail < 3 {
		return 3
	}
	return avail
}

func (m TUIModel) maxScroll() int {
	total := len(m.buildLines())
	vis := m.visibleLines()
	if total <= vis {
		return 0
	}
	return total - vis
}

func (m TUIModel) filtered() []scan.Finding {
	if m.result == nil {
		return nil
	}
	if m.minSeverity == 0 {
		return m.result.Findings
	}
	var out []scan.Finding
	for _, f := range m.result.Findings {
		if f.Severity <= m.minSeverity {
			out = append(out, f)
		}
	}
	return out
}

// View implements tea.Model.
func (m TUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	header := "costscan"
	if m.result != nil {
		header = fmt.Sprintf("costscan: %s", m.result.Root)
	}
	if m.minSeverity != 0 {
		header += "  " + mediumStyle.Render(fmt.Sprintf("[filter: %s+]", m.minSeverity))
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.summaryLine())
	b.WriteString("\n")

	lines := m.buildLines()

	vis := m.visibleLines()
	start := m.scrollOffset
	if start > len(lines) {
		start = len(lines)
	}
	end := start + vis
	if end > len(lines) {
		end = len(lines)
	}

	if start > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more above", start)))
		b.WriteString("\n")
	}
	for i := start; i < end; i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
	}
	if end < len(lines) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more below", len(lines)-end)))
		b.WriteString("\n")
	}

	used := 2 + (end - start) + 1
	if start > 0 {
		used++
	}
	if end < len(lines) {
		used++
	}
	for i := used; i < m.height-1; i++ {
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("  ↑↓/jk: scroll  g/G: top/bottom  f: filter severity  c: cost notes  q: quit"))

	return b.String()
}

func (m TUIModel) summaryLine() string {
	if m.result == nil {
		return dimStyle.Render("  scanning...")
	}
	var high, medium, info int
	for _, f := range m.result.Findings {
		switch f.Severity {
		case scan.SeverityHigh:
			high++
		case scan.SeverityMedium:
			medium++
		case scan.SeverityInfo:
			info++
		}
	}
	var parts []string
	if high > 0 {
		parts = append(parts, highStyle.Render(fmt.Sprintf("%d high", high)))
	}
	if medium > 0 {
		parts = append(parts, mediumStyle.Render(fmt.Sprintf("%d medium", medium)))
	}
	if info > 0 {
		parts = append(parts, infoStyle.Render(fmt.Sprintf("%d info", info)))
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("%d files", m.result.Meta.FilesScanned)))
	return "  " + strings.Join(parts, "  ")
}

func (m TUIModel) buildLines() []string {
	findings := m.filtered()
	var lines []string
	lastFile := ""

	for _, f := range findings {
		if f.File != lastFile {
			lines = append(lines, headerStyle.Render("  "+f.File))
			lastFile = f.File
		}
		style := severityStyle(f.Severity)
		lines = append(lines, style.Render(fmt.Sprintf("    %-6s L%-5d %-35s %s",
			f.Severity, f.Line, f.Kind, f.Description)))
		if m.expanded && f.CostConsideration != "" {
			lines = append(lines, dimStyle.Render("           "+f.CostConsideration))
		}
	}

	if len(lines) == 0 && m.result != nil {
		lines = append(lines, dimStyle.Render("  no findings"))
	}
	return lines
}

func severityStyle(s scan.Severity) lipgloss.Style {
	switch s {
	case scan.SeverityHigh:
		return highStyle
	case scan.SeverityMedium:
		return mediumStyle
	default:
		return infoStyle
	}
}
