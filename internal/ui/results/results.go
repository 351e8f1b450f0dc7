package results

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sadopc/pgtop/internal/stat"
	"github.com/sadopc/pgtop/internal/theme"
)

const (
	// colGap is the blank space printed after every column.
	colGap = 2
	// minColWidth keeps short headers such as "pid" readable.
	minColWidth = 4
	// DefaultMaxColumnWidth caps every column but the last.
	DefaultMaxColumnWidth = 50
	ellipsis              = "…"
)

// ColumnAttr is the display attribute of one grid column.
type ColumnAttr struct {
	// Name is the header text; filtered columns carry a trailing "*".
	Name string
	// Width is the printed width in cells. Zero means the column does not
	// fit on screen.
	Width  int
	Sorted bool
	// Numeric columns are right aligned.
	Numeric bool
}

// Layout computes the column widths of a grid from its header and cell
// contents. Every column is at least as wide as its header and capped at
// maxColWidth, except the last one which keeps its natural width. Columns
// are then fitted left to right into totalWidth: the column that reaches
// the right edge is truncated to the remaining width and the ones after it
// get width zero. A non-positive totalWidth disables fitting.
func Layout(columns []string, rows [][]string, sortKey int, filters stat.Filters, totalWidth, maxColWidth int) []ColumnAttr {
	attrs := make([]ColumnAttr, len(columns))
	last := len(columns) - 1

	for j, name := range columns {
		if filters[j] != "" {
			name += "*"
		}
		w := runewidth.StringWidth(name)
		for _, row := range rows {
			if j < len(row) {
				if cw := runewidth.StringWidth(row[j]); cw > w {
					w = cw
				}
			}
		}
		if w < minColWidth {
			w = minColWidth
		}
		if maxColWidth > 0 && w > maxColWidth && j != last {
			w = maxColWidth
		}

		numeric := false
		if len(rows) > 0 && j < len(rows[0]) {
			numeric = stat.Classify(rows[0][j]) != stat.Text
		}
		attrs[j] = ColumnAttr{Name: name, Width: w, Sorted: j == sortKey, Numeric: numeric}
	}

	if totalWidth <= 0 {
		return attrs
	}
	used := 0
	for j := range attrs {
		remaining := totalWidth - used
		if remaining <= 0 {
			attrs[j].Width = 0
			continue
		}
		if attrs[j].Width > remaining {
			attrs[j].Width = remaining
		}
		used += attrs[j].Width + colGap
	}
	return attrs
}

// keyMap holds the grid navigation bindings.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "ctrl+p")),
	Down:     key.NewBinding(key.WithKeys("down", "ctrl+n")),
	PageUp:   key.NewBinding(key.WithKeys("pgup")),
	PageDown: key.NewBinding(key.WithKeys("pgdown")),
	Top:      key.NewBinding(key.WithKeys("home")),
	Bottom:   key.NewBinding(key.WithKeys("end")),
}

// Model renders the statistics grid of the current frame with a row
// cursor.
type Model struct {
	title   string
	grid    *stat.Grid
	sortKey int
	desc    bool
	filters stat.Filters
	attrs   []ColumnAttr
	errText string

	cursor int
	offset int
	// selected is the first cell of the row under the cursor; it keeps
	// the cursor on the same backend or relation across refreshes.
	selected string

	width       int
	height      int
	maxColWidth int
}

// New creates an empty grid.
func New() Model {
	return Model{sortKey: stat.NoSort, maxColWidth: DefaultMaxColumnWidth}
}

// SetMaxColumnWidth sets the width cap applied to every column but the
// last. Non-positive values restore the default.
func (m *Model) SetMaxColumnWidth(w int) {
	if w <= 0 {
		w = DefaultMaxColumnWidth
	}
	m.maxColWidth = w
	m.relayout()
}

// SetSize sets the area available to the grid, title line included.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.relayout()
	m.clampOffset()
}

// SetData replaces the displayed grid. The cursor follows the previously
// selected row when it is still present.
func (m *Model) SetData(title string, g *stat.Grid, sortKey int, desc bool, filters stat.Filters) {
	m.title = title
	m.grid = g
	m.sortKey = sortKey
	m.desc = desc
	m.filters = filters
	m.errText = ""
	m.relayout()

	n := g.NumRows()
	if m.selected != "" {
		for i := 0; i < n; i++ {
			if g.Cell(i, 0) == m.selected {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.remember()
	m.clampOffset()
}

// SetError shows the first line of text above the last good grid.
func (m *Model) SetError(text string) {
	m.errText = text
}

// Clear drops the grid, for example after a view switch.
func (m *Model) Clear() {
	m.grid = nil
	m.attrs = nil
	m.errText = ""
	m.cursor = 0
	m.offset = 0
	m.selected = ""
}

// Grid returns the displayed grid.
func (m Model) Grid() *stat.Grid { return m.grid }

// Columns returns the current column attributes.
func (m Model) Columns() []ColumnAttr { return m.attrs }

// Cursor returns the index of the selected row.
func (m Model) Cursor() int { return m.cursor }

// SelectedRow returns the row under the cursor, or nil when the grid is
// empty.
func (m Model) SelectedRow() []string {
	if m.grid.NumRows() == 0 {
		return nil
	}
	return m.grid.Rows[m.cursor]
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update moves the cursor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	n := m.grid.NumRows()
	if n == 0 {
		return m, nil
	}
	page := max(m.bodyHeight(), 1)
	switch {
	case key.Matches(km, keys.Up):
		m.cursor--
	case key.Matches(km, keys.Down):
		m.cursor++
	case key.Matches(km, keys.PageUp):
		m.cursor -= page
	case key.Matches(km, keys.PageDown):
		m.cursor += page
	case key.Matches(km, keys.Top):
		m.cursor = 0
	case key.Matches(km, keys.Bottom):
		m.cursor = n - 1
	default:
		return m, nil
	}
	m.cursor = min(max(m.cursor, 0), n-1)
	m.remember()
	m.clampOffset()
	return m, nil
}

// View renders the title line, the header and the visible rows.
func (m Model) View() string {
	t := theme.Current
	var b strings.Builder

	title := t.GridTitle.Render(m.title)
	if m.errText != "" {
		title += "  " + t.ErrorText.Render(firstLine(m.errText))
	}
	b.WriteString(truncateStyled(title, m.width))

	if m.grid == nil {
		b.WriteString("\n")
		b.WriteString(t.MutedText.Render("waiting for data..."))
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(m.renderHeader())

	if m.grid.NumRows() == 0 {
		b.WriteString("\n")
		msg := "(no rows)"
		if m.filters.Active() {
			msg = "(no rows match the filters)"
		}
		b.WriteString(t.MutedText.Render(msg))
		return b.String()
	}

	end := min(m.offset+m.bodyHeight(), m.grid.NumRows())
	for i := m.offset; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(i))
	}
	return b.String()
}

func (m Model) renderHeader() string {
	t := theme.Current
	var parts []string
	for _, a := range m.attrs {
		if a.Width == 0 {
			break
		}
		name := a.Name
		if a.Sorted {
			if m.desc {
				name += "↓"
			} else {
				name += "↑"
			}
		}
		cell := fit(name, a.Width, a.Numeric)
		style := t.GridHeader
		if a.Sorted {
			style = t.GridSortedHeader
		}
		parts = append(parts, style.Render(cell))
	}
	return strings.Join(parts, t.GridHeader.Render(strings.Repeat(" ", colGap)))
}

func (m Model) renderRow(i int) string {
	t := theme.Current
	style := t.GridCell
	if i%2 == 1 {
		style = t.GridCellAlt
	}
	if i == m.cursor {
		style = t.GridSelectedRow
	}

	row := m.grid.Rows[i]
	var b strings.Builder
	for j, a := range m.attrs {
		if a.Width == 0 {
			break
		}
		if j > 0 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		b.WriteString(fit(cell, a.Width, a.Numeric))
	}
	return style.Render(b.String())
}

func (m *Model) relayout() {
	if m.grid == nil {
		m.attrs = nil
		return
	}
	m.attrs = Layout(m.grid.Columns, m.grid.Rows, m.sortKey, m.filters, m.width, m.maxColWidth)
}

func (m *Model) remember() {
	if m.grid.NumRows() == 0 {
		m.selected = ""
		return
	}
	m.selected = m.grid.Cell(m.cursor, 0)
}

// bodyHeight is the number of data rows that fit under the title and
// header lines.
func (m Model) bodyHeight() int {
	if m.height <= 0 {
		return m.grid.NumRows()
	}
	return max(m.height-2, 1)
}

func (m *Model) clampOffset() {
	h := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if maxOff := m.grid.NumRows() - h; m.offset > maxOff {
		m.offset = max(maxOff, 0)
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// fit truncates s to w cells and pads it, on the left for numbers.
func fit(s string, w int, right bool) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, ellipsis)
	}
	pad := w - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", pad) + s
	}
	return s + strings.Repeat(" ", pad)
}

func truncateStyled(s string, w int) string {
	if w <= 0 || lipgloss.Width(s) <= w {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(w).Render(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

