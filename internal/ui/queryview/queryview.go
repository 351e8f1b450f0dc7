// Package queryview shows the full text of a query from the activity or
// statements views, highlighted and wrapped to the screen.
package queryview

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pgtop/internal/theme"
)

// Model is the query viewer overlay.
type Model struct {
	title     string
	query     string
	formatted bool
	visible   bool
	width     int
	height    int

	hl *Highlighter
	vp viewport.Model
}

// New creates a hidden viewer.
func New() Model {
	return Model{hl: NewHighlighter(), vp: viewport.New(0, 0)}
}

// Show opens the viewer on query. title names the row it came from, such
// as "pid 4242".
func (m *Model) Show(title, query string) {
	m.title = title
	m.query = query
	m.formatted = false
	m.visible = true
	m.refresh()
	m.vp.GotoTop()
}

// Hide closes the viewer.
func (m *Model) Hide() { m.visible = false }

// Visible reports whether the viewer is shown.
func (m Model) Visible() bool { return m.visible }

// Query returns the raw query text being shown.
func (m Model) Query() string { return m.query }

// SetSize sets the screen area the overlay may use.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.refresh()
}

func (m Model) innerWidth() int {
	return max(m.width-8, 20)
}

func (m *Model) refresh() {
	m.vp.Width = m.innerWidth()
	m.vp.Height = max(m.height-10, 3)

	text := m.query
	if m.formatted {
		text = m.hl.Format(text)
	}
	body := m.hl.Highlight(text, theme.Current)
	m.vp.SetContent(lipgloss.NewStyle().Width(m.vp.Width).Render(body))
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd { return nil }

// Update scrolls the text, toggles reformatting with f and closes on esc,
// q or enter.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc", "q", "enter":
			m.visible = false
			return m, nil
		case "f":
			m.formatted = !m.formatted
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// View renders the viewer box.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current
	hint := "esc:close  f:format  ↑/↓:scroll"
	if !m.vp.AtBottom() || !m.vp.AtTop() {
		hint += fmt.Sprintf("  %3.f%%", m.vp.ScrollPercent()*100)
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render(m.title),
		m.vp.View(),
		"",
		th.MutedText.Render(hint),
	)
	return th.DialogBorder.Width(m.innerWidth() + 4).Render(content)
}
