package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/flatmap/pkg/diag"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// DiagnosticsModel - Interactive diagnostics browser
// =============================================================================

// Diagnostic filters cycled with tab.
const (
	filterAll = iota
	filterErrors
	filterWarnings
	filterCount
)

var filterNames = [filterCount]string{"all", "errors", "warnings"}

// DiagnosticsModel is the bubbletea model for browsing build diagnostics.
type DiagnosticsModel struct {
	Items  []diag.Diagnostic
	Cursor int
	Height int
	Offset int
	Filter int
}

// NewDiagnosticsModel creates a new diagnostics browser.
func NewDiagnosticsModel(items []diag.Diagnostic) DiagnosticsModel {
	return DiagnosticsModel{
		Items:  items,
		Height: 15,
	}
}

// visible returns the diagnostics passing the current filter.
func (m DiagnosticsModel) visible() []diag.Diagnostic {
	if m.Filter == filterAll {
		return m.Items
	}
	want := diag.SeverityError
	if m.Filter == filterWarnings {
		want = diag.SeverityWarning
	}
	var out []diag.Diagnostic
	for _, d := range m.Items {
		if d.Severity == want {
			out = append(out, d)
		}
	}
	return out
}

func (m DiagnosticsModel) Init() tea.Cmd {
	return nil
}

func (m DiagnosticsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		n := len(m.visible())
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < n-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab":
			m.Filter = (m.Filter + 1) % filterCount
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m DiagnosticsModel) View() string {
	var b strings.Builder

	items := m.visible()

	b.WriteString(StyleTitle.Render("Diagnostics"))
	b.WriteString(listDimStyle.Render(" · " + filterNames[m.Filter]))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab filter  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(items) {
		end = len(items)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		d := items[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		subject := d.ShapeID
		if d.PathID != "" {
			subject = "path " + d.PathID
		}
		if subject == "" {
			subject = "-"
		}
		rows = append(rows, []string{cursor, string(d.Code), subject, d.Message})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Code", "Subject", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(items) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 1 {
				if items[idx].Severity == diag.SeverityError {
					base = base.Foreground(colorRed)
				} else {
					base = base.Foreground(colorYellow)
				}
			} else if col == 3 {
				base = base.Foreground(colorGray)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	pos := 0
	if len(items) > 0 {
		pos = m.Cursor + 1
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", pos, len(items))))

	return b.String()
}
