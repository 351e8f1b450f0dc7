// Package dialog holds the modal layers drawn over the monitor: a yes/no
// confirmation for operator actions and a one-line text prompt.
package dialog

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/sadopc/pgtop/internal/theme"
)

const confirmWidth = 60

// Model asks the operator to confirm one action. It starts on No.
type Model struct {
	title   string
	body    string
	onYes   func() tea.Msg
	yes     bool
	visible bool
	width   int
	boxW    int
}

// Confirm creates a confirmation whose Yes answer runs onYes.
func Confirm(title, body string, onYes func() tea.Msg) Model {
	return Model{title: title, body: body, onYes: onYes, boxW: confirmWidth}
}

// Update handles keys while the dialog is shown. Left/right and tab move
// between the answers, y and n answer directly.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !m.visible || !ok {
		return m, nil
	}
	switch km.String() {
	case "left", "right", "tab", "shift+tab", "h", "l":
		m.yes = !m.yes
	case "enter":
		return m.answer(m.yes)
	case "y", "Y":
		return m.answer(true)
	case "esc", "n", "N", "q":
		return m.answer(false)
	}
	return m, nil
}

func (m Model) answer(yes bool) (Model, tea.Cmd) {
	m.visible = false
	if !yes || m.onYes == nil {
		return m, nil
	}
	return m, m.onYes
}

// View renders the dialog box, or "" when hidden.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current
	inner := max(m.boxW-4, 10)

	yes, no := th.DialogButton, th.DialogButtonActive
	if m.yes {
		yes, no = th.DialogButtonActive, th.DialogButton
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, yes.Render(" Yes "), "  ", no.Render(" No "))

	return th.DialogBorder.Render(lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render(m.title),
		lipgloss.NewStyle().Width(inner).Render(m.body),
		"",
		lipgloss.NewStyle().Width(inner).Align(lipgloss.Center).Render(buttons),
		th.MutedText.Render("y/n, enter answers the focused button"),
	))
}

// Show displays the dialog with No focused.
func (m *Model) Show() {
	m.visible = true
	m.yes = false
}

// Hide closes the dialog without answering.
func (m *Model) Hide() { m.visible = false }

// Visible reports whether the dialog is shown.
func (m Model) Visible() bool { return m.visible }

// SetSize records the screen width and narrows the box to fit it.
func (m *Model) SetSize(width, _ int) {
	m.width = width
	m.boxW = min(confirmWidth, max(width-4, 0))
}

// Overlay draws the dialog over background when it is shown.
func (m Model) Overlay(background string) string {
	if !m.visible {
		return background
	}
	return Overlay(background, m.View(), m.width)
}

// Overlay centers box over background, a screen width cells wide. The
// background stays visible, with its styling, on both sides of the box.
func Overlay(background, box string, width int) string {
	screen := strings.Split(background, "\n")
	rows := strings.Split(box, "\n")
	top := max((len(screen)-len(rows))/2, 0)
	left := max((width-lipgloss.Width(box))/2, 0)

	for i, row := range rows {
		y := top + i
		if y >= len(screen) {
			break
		}
		line := screen[y]
		lw := ansi.StringWidth(line)
		out := ansi.Truncate(line, left, "")
		if lw < left {
			out += strings.Repeat(" ", left-lw)
		}
		out += row
		if right := left + ansi.StringWidth(row); right < lw {
			out += ansi.TruncateLeft(line, right, "")
		}
		screen[y] = out
	}
	return strings.Join(screen, "\n")
}
