// Package tabs draws the bar of open connection tabs above the header.
package tabs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sadopc/pgtop/internal/theme"
)

// Tab is one connection slot as shown in the bar.
type Tab struct {
	Index int
	Title string
	// Live is false for tabs that are disconnected or reconnecting.
	Live bool
	// State is shown next to the title when the tab is not live.
	State string
}

// Label returns the text drawn for the tab.
func (t Tab) Label() string {
	s := fmt.Sprintf("%d %s", t.Index+1, t.Title)
	if !t.Live && t.State != "" {
		s += " [" + t.State + "]"
	}
	return s
}

// Model mirrors the controller's tabs. It holds no state of its own
// beyond what SetTabs gives it.
type Model struct {
	tabs   []Tab
	active int
	slots  int
	width  int
}

// New creates an empty bar for at most slots tabs.
func New(slots int) Model {
	return Model{slots: slots}
}

// SetSize sets the bar width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetTabs replaces the shown tabs. active is clamped to the list.
func (m *Model) SetTabs(tabs []Tab, active int) {
	m.tabs = tabs
	m.active = max(min(active, len(tabs)-1), 0)
}

// Active returns the highlighted index.
func (m Model) Active() int {
	return m.active
}

// Tabs returns the shown tabs.
func (m Model) Tabs() []Tab {
	return m.tabs
}

// View renders the bar, or "" before the first SetSize. Labels are cut to
// share the width evenly once they no longer fit; the used/free slot
// counter stays at the right edge.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	th := theme.Current

	counter := th.TabInactive.Render(fmt.Sprintf("%d/%d", len(m.tabs), m.slots))
	avail := m.width - lipgloss.Width(counter)

	labels := make([]string, len(m.tabs))
	used := 0
	for i, t := range m.tabs {
		labels[i] = t.Label()
		used += runewidth.StringWidth(labels[i]) + 2
	}
	if used > avail && len(labels) > 0 {
		per := max(avail/len(labels)-2, 1)
		for i := range labels {
			labels[i] = runewidth.Truncate(labels[i], per, "…")
		}
	}

	var b strings.Builder
	for i, label := range labels {
		style := th.TabInactive
		switch {
		case i == m.active:
			style = th.TabActive
		case !m.tabs[i].Live:
			style = th.TabDisconnected
		}
		b.WriteString(style.Render(label))
	}
	bar := b.String()
	if gap := avail - lipgloss.Width(bar); gap > 0 {
		bar += th.TabBar.Render(strings.Repeat(" ", gap))
	}
	return th.TabBar.MaxWidth(m.width).Render(bar + counter)
}
