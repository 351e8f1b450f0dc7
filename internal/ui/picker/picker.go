// Package picker is the fuzzy finder over the monitored views.
package picker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"github.com/sadopc/pgtop/internal/theme"
	"github.com/sadopc/pgtop/internal/view"
)

const maxVisible = 10

// PickedMsg is sent when a view is chosen.
type PickedMsg struct {
	ID view.ID
}

// item is one selectable view.
type item struct {
	id    view.ID
	key   string
	label string
}

// items implements fuzzy.Source over the labels.
type items []item

func (s items) String(i int) string { return strings.ToLower(s[i].label) }
func (s items) Len() int            { return len(s) }

// match is a filtered item with the label positions that matched.
type match struct {
	item
	indexes []int
}

// Model is the view picker overlay.
type Model struct {
	all      items
	matches  []match
	selected int
	input    textinput.Model
	visible  bool
	width    int
}

// New creates a hidden picker.
func New() Model {
	ti := textinput.New()
	ti.Prompt = "view> "
	ti.Placeholder = "type to filter"
	ti.CharLimit = 64
	return Model{input: ti, width: 60}
}

// Show opens the picker over the views supported by a server of version
// (0 when unknown, which lists every view).
func (m *Model) Show(version int) tea.Cmd {
	m.all = m.all[:0]
	for _, v := range view.All() {
		if version > 0 && !view.Supported(v.ID, version) {
			continue
		}
		m.all = append(m.all, item{
			id:    v.ID,
			key:   v.Key,
			label: fmt.Sprintf("%-20s %s", v.Name, v.Title),
		})
	}
	m.input.SetValue("")
	m.visible = true
	m.refilter()
	return m.input.Focus()
}

// Hide closes the picker.
func (m *Model) Hide() {
	m.visible = false
	m.input.Blur()
}

// Visible reports whether the picker is shown.
func (m Model) Visible() bool { return m.visible }

// SetSize sets the screen width the overlay may use.
func (m *Model) SetSize(w, _ int) {
	m.width = min(max(w-10, 30), 72)
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd { return nil }

// Update handles navigation, selection and typing.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "up", "ctrl+p":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.selected < len(m.matches)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			if m.selected < len(m.matches) {
				id := m.matches[m.selected].id
				m.Hide()
				return m, func() tea.Msg { return PickedMsg{ID: id} }
			}
			return m, nil
		case "esc", "ctrl+c":
			m.Hide()
			return m, nil
		}
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != prev {
		m.refilter()
	}
	return m, cmd
}

func (m *Model) refilter() {
	m.selected = 0
	q := strings.ToLower(strings.TrimSpace(m.input.Value()))
	m.matches = m.matches[:0]
	if q == "" {
		for _, it := range m.all {
			m.matches = append(m.matches, match{item: it})
		}
		return
	}
	found := fuzzy.FindFrom(q, m.all)
	sort.SliceStable(found, func(i, j int) bool { return found[i].Score > found[j].Score })
	for _, f := range found {
		m.matches = append(m.matches, match{item: m.all[f.Index], indexes: f.MatchedIndexes})
	}
}

// Matches returns the ids of the views currently listed, best first.
func (m Model) Matches() []view.ID {
	out := make([]view.ID, len(m.matches))
	for i, mt := range m.matches {
		out[i] = mt.id
	}
	return out
}

// View renders the picker box.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current

	lines := []string{th.DialogTitle.Render("Switch view"), m.input.View(), ""}
	offset := 0
	if m.selected >= maxVisible {
		offset = m.selected - maxVisible + 1
	}
	end := min(offset+maxVisible, len(m.matches))
	for i := offset; i < end; i++ {
		mt := m.matches[i]
		line := fmt.Sprintf("%-2s ", mt.key) + highlight(mt.label, mt.indexes, i == m.selected, th)
		if i == m.selected {
			line = th.PickerSelected.Render(line)
		}
		lines = append(lines, line)
	}
	if len(m.matches) == 0 {
		lines = append(lines, th.MutedText.Render("no matching view"))
	}
	lines = append(lines, "", th.MutedText.Render("enter:switch  esc:close"))

	return th.DialogBorder.Width(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// highlight styles the matched byte positions of label.
func highlight(label string, idx []int, selected bool, th *theme.Theme) string {
	if selected {
		return label
	}
	if len(idx) == 0 {
		return th.PickerItem.Render(label)
	}
	hit := make(map[int]bool, len(idx))
	for _, i := range idx {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range label {
		s := string(r)
		if hit[i] {
			b.WriteString(th.PickerMatch.Render(s))
		} else {
			b.WriteString(th.PickerItem.Render(s))
		}
	}
	return b.String()
}
