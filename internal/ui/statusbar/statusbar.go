package statusbar

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	appmsg "github.com/sadopc/pgtop/internal/msg"
	"github.com/sadopc/pgtop/internal/theme"
)

// ClearAfter is how long a transient message stays visible.
const ClearAfter = 5 * time.Second

// ClearStatusMsg is sent after a timeout to revert the status bar to key
// hints. Gen ties it to the message it was scheduled for.
type ClearStatusMsg struct {
	Gen uint64
}

// Info is the per-frame state shown in the status bar.
type Info struct {
	View     string
	SortCol  string
	Desc     bool
	Filters  int
	Rows     int
	Interval time.Duration
	Paused   bool
	Duration time.Duration
	State    string
}

// Model is the status bar component.
type Model struct {
	width   int
	info    Info
	message string
	isError bool
	gen     uint64
}

// New creates a new status bar.
func New() Model {
	return Model{info: Info{Rows: -1}}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.StatusMsg:
		m.message = msg.Text
		m.isError = msg.IsError
		if msg.Duration > 0 {
			m.info.Duration = msg.Duration
		}
		m.gen++
		gen := m.gen
		return m, tea.Tick(ClearAfter, func(time.Time) tea.Msg {
			return ClearStatusMsg{Gen: gen}
		})

	case ClearStatusMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.message = ""
		m.isError = false
	}

	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current

	// Left: view title and sort column
	label := m.info.View
	if label == "" {
		label = "pgtop"
	}
	left := th.StatusBarKey.Render(" " + label + " ")
	if m.info.SortCol != "" {
		arrow := "▲"
		if m.info.Desc {
			arrow = "▼"
		}
		left += th.StatusBarValue.Render(fmt.Sprintf(" %s %s ", arrow, m.info.SortCol))
	}
	if m.info.Filters > 0 {
		left += th.StatusBarValue.Render(fmt.Sprintf(" %d filter(s) ", m.info.Filters))
	}

	// Right: state, rows, query time, interval
	var right string
	if m.info.State != "" {
		right += th.StatusBarError.Render(" " + m.info.State + " ")
	}
	if m.info.Rows >= 0 {
		right += th.StatusBarValue.Render(fmt.Sprintf(" %s rows ", humanize.Comma(int64(m.info.Rows))))
	}
	if m.info.Duration > 0 {
		right += th.StatusBarValue.Render(" " + formatDuration(m.info.Duration) + " ")
	}
	interval := "every " + formatInterval(m.info.Interval)
	if m.info.Paused {
		interval = "paused"
	}
	right += th.StatusBarKey.Render(" " + interval + " ")

	// Center: message or key hints
	room := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	var center string
	switch {
	case m.message != "" && m.isError:
		center = th.StatusBarError.Render(" " + truncate(m.message, room) + " ")
	case m.message != "":
		center = th.StatusBarSuccess.Render(" " + truncate(m.message, room) + " ")
	default:
		center = m.hints(room)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	leftGap := gap / 2
	rightGap := gap - leftGap

	bar := left +
		th.StatusBar.Render(strings.Repeat(" ", leftGap)) +
		center +
		th.StatusBar.Render(strings.Repeat(" ", rightGap)) +
		right

	return th.StatusBar.Width(m.width).Render(bar)
}

func (m Model) hints(room int) string {
	th := theme.Current
	pairs := [][2]string{{"?", "Help"}, {"p", "Views"}, {"←→", "Sort"}, {"/", "Filter"}, {"q", "Quit"}}
	var b strings.Builder
	used := 0
	for _, p := range pairs {
		w := runewidth.StringWidth(p[0]) + runewidth.StringWidth(p[1]) + 3
		if used+w > room {
			break
		}
		b.WriteString(th.StatusBarValue.Render(p[0]))
		b.WriteString(th.StatusBar.Render(" " + p[1] + " "))
		used += w
	}
	return b.String()
}

// SetSize sets the status bar width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetInfo replaces the per-frame state.
func (m *Model) SetInfo(info Info) {
	m.info = info
}

// Info returns the per-frame state.
func (m Model) Info() Info {
	return m.info
}

// Message returns the transient message and whether it is an error.
func (m Model) Message() (string, bool) {
	return m.message, m.isError
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatInterval(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
