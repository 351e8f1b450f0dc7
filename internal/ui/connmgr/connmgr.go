// Package connmgr is the new tab form: it lists the bookmarked servers and
// lets the operator enter or edit connection parameters.
package connmgr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/audit"
	appmsg "github.com/sadopc/pgtop/internal/msg"
	"github.com/sadopc/pgtop/internal/theme"
)

// State tracks the connection manager screen.
type State int

const (
	StateList State = iota
	StateForm
	StateTesting
)

// testTimeout bounds a connection test from the form.
const testTimeout = 10 * time.Second

// BookmarksUpdatedMsg is sent when the bookmark list is modified. It is
// written to disk only on request.
type BookmarksUpdatedMsg struct {
	Bookmarks []adapter.Params
}

// Model is the connection manager modal.
type Model struct {
	state     State
	bookmarks []adapter.Params
	cursor    int
	visible   bool
	width     int
	height    int
	dialer    adapter.Dialer

	// Form fields
	inputs    [fieldCount]textinput.Model
	formFocus int
	editing   int // index of bookmark being edited, -1 for new
	message   string
	isError   bool
}

const (
	fieldHost = iota
	fieldPort
	fieldUser
	fieldDBName
	fieldPassword
	fieldCount
)

// formFields describes the inputs in display order.
var formFields = [fieldCount]struct {
	label       string
	placeholder string
	limit       int
	secret      bool
}{
	fieldHost:     {"Host", "localhost or socket dir", 255, false},
	fieldPort:     {"Port", "5432", 5, false},
	fieldUser:     {"User", "postgres", 63, false},
	fieldDBName:   {"Database", "postgres", 63, false},
	fieldPassword: {"Password", "empty prompts on connect", 256, true},
}

// New creates a connection manager over bookmarks. A nil dialer disables
// the connection test.
func New(bookmarks []adapter.Params, dialer adapter.Dialer) Model {
	m := Model{bookmarks: bookmarks, dialer: dialer, editing: -1}
	for i, f := range formFields {
		in := textinput.New()
		in.Prompt = fmt.Sprintf("%-9s ", f.label+":")
		in.Placeholder = f.placeholder
		in.CharLimit = f.limit
		in.Width = 40
		if f.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '*'
		}
		m.inputs[i] = in
	}
	return m
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles connection manager messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch m.state {
	case StateList:
		return m.updateList(msg)
	case StateForm:
		return m.updateForm(msg)
	case StateTesting:
		return m.updateTesting(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch km.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.bookmarks) {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.bookmarks) {
			p := m.bookmarks[m.cursor]
			m.visible = false
			return m, func() tea.Msg { return appmsg.OpenTabMsg{Params: p} }
		}
		m.startForm(-1)
		return m, textinput.Blink
	case "n":
		m.startForm(-1)
		return m, textinput.Blink
	case "e":
		if m.cursor < len(m.bookmarks) {
			m.startForm(m.cursor)
			return m, textinput.Blink
		}
	case "d":
		if m.cursor < len(m.bookmarks) {
			m.bookmarks = append(m.bookmarks[:m.cursor], m.bookmarks[m.cursor+1:]...)
			if m.cursor >= len(m.bookmarks) && m.cursor > 0 {
				m.cursor--
			}
			return m, m.updated()
		}
	case "esc", "q":
		m.visible = false
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInput(msg)
	}
	switch km.String() {
	case "esc":
		m.state = StateList
		return m, nil
	case "tab", "down":
		m.focus(m.formFocus + 1)
		return m, textinput.Blink
	case "shift+tab", "up":
		m.focus(m.formFocus - 1)
		return m, textinput.Blink
	case "enter":
		cmd := m.submit(m.open)
		return m, cmd
	case "ctrl+s":
		cmd := m.submit(m.save)
		return m, cmd
	case "ctrl+t":
		cmd := m.submit(m.test)
		return m, cmd
	}
	return m.updateInput(msg)
}

func (m Model) updateInput(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.formFocus], cmd = m.inputs[m.formFocus].Update(msg)
	return m, cmd
}

// submit validates the form and hands the parameters to then.
func (m *Model) submit(then func(adapter.Params) tea.Cmd) tea.Cmd {
	p, err := m.formToParams()
	if err != nil {
		m.message, m.isError = err.Error(), true
		return nil
	}
	return then(p)
}

func (m *Model) open(p adapter.Params) tea.Cmd {
	m.visible = false
	m.state = StateList
	return func() tea.Msg { return appmsg.OpenTabMsg{Params: p} }
}

func (m *Model) save(p adapter.Params) tea.Cmd {
	if m.editing >= 0 && m.editing < len(m.bookmarks) {
		m.bookmarks[m.editing] = p
	} else {
		m.bookmarks = append(m.bookmarks, p)
		m.cursor = len(m.bookmarks) - 1
	}
	m.state = StateList
	return m.updated()
}

func (m *Model) test(p adapter.Params) tea.Cmd {
	if m.dialer == nil {
		m.message, m.isError = "connection test unavailable", true
		return nil
	}
	m.state = StateTesting
	return testConnection(m.dialer, p)
}

func (m Model) updateTesting(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case testResultMsg:
		if msg.err != nil {
			m.message = "Connection failed: " + audit.SanitizeConnInfo(msg.err.Error())
			m.isError = true
		} else {
			m.message = "Connection successful"
			m.isError = false
		}
		m.state = StateForm
	case tea.KeyMsg:
		if msg.String() == "esc" {
			m.state = StateForm
		}
	}
	return m, nil
}

type testResultMsg struct{ err error }

func testConnection(d adapter.Dialer, p adapter.Params) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		c, err := d.Dial(ctx, p)
		if err != nil {
			return testResultMsg{err: err}
		}
		err = c.Ping(ctx)
		c.Close()
		return testResultMsg{err: err}
	}
}

func (m Model) updated() tea.Cmd {
	bm := make([]adapter.Params, len(m.bookmarks))
	copy(bm, m.bookmarks)
	return func() tea.Msg { return BookmarksUpdatedMsg{Bookmarks: bm} }
}

// View renders the connection manager.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	th := theme.Current

	switch m.state {
	case StateList:
		return m.viewList(th)
	case StateForm:
		return m.viewForm(th)
	case StateTesting:
		return th.DialogBorder.Render("\n  Testing connection...\n")
	}
	return ""
}

func (m Model) viewList(th *theme.Theme) string {
	rows := make([]string, 0, len(m.bookmarks)+1)
	for i, p := range m.bookmarks {
		rows = append(rows, fmt.Sprintf("%d  %-28s %-12s %s", i+1, hostPort(p), p.DBName, p.User))
	}
	rows = append(rows, "+  new connection")
	for i, r := range rows {
		if i == m.cursor {
			rows[i] = th.PickerSelected.Render(r)
		} else {
			rows[i] = th.PickerItem.Render(r)
		}
	}

	return th.DialogBorder.Width(m.dialogWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render("Open tab"),
		th.MutedText.Render(fmt.Sprintf("   %-28s %-12s %s", "server", "database", "user")),
		strings.Join(rows, "\n"),
		"",
		th.MutedText.Render("enter open  n new  e edit  d delete  esc close"),
	))
}

func hostPort(p adapter.Params) string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = adapter.DefaultPort
	}
	return host + ":" + strconv.Itoa(port)
}

func (m Model) viewForm(th *theme.Theme) string {
	title := "New connection"
	if m.editing >= 0 {
		title = "Edit bookmark"
	}
	lines := []string{th.DialogTitle.Render(title), ""}
	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	switch {
	case m.message == "":
	case m.isError:
		lines = append(lines, "", th.ErrorText.Render(m.message))
	default:
		lines = append(lines, "", th.SuccessText.Render(m.message))
	}
	lines = append(lines, "", th.MutedText.Render("enter open tab  ctrl+s bookmark  ctrl+t test  esc back"))
	return th.DialogBorder.Width(m.dialogWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) dialogWidth() int {
	w := 64
	if m.width > 0 && w > m.width-4 {
		w = m.width - 4
	}
	return w
}

func (m *Model) startForm(editing int) {
	m.state = StateForm
	m.editing = editing
	if editing >= 0 && editing < len(m.bookmarks) {
		m.loadIntoForm(m.bookmarks[editing])
	} else {
		m.clearForm()
	}
	m.focus(0)
}

func (m *Model) focus(i int) {
	m.inputs[m.formFocus].Blur()
	m.formFocus = (i%fieldCount + fieldCount) % fieldCount
	m.inputs[m.formFocus].Focus()
}

func (m *Model) clearForm() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.formFocus = 0
	m.message = ""
}

func (m *Model) loadIntoForm(p adapter.Params) {
	m.clearForm()
	m.inputs[fieldHost].SetValue(p.Host)
	if p.Port > 0 {
		m.inputs[fieldPort].SetValue(strconv.Itoa(p.Port))
	}
	m.inputs[fieldUser].SetValue(p.User)
	m.inputs[fieldDBName].SetValue(p.DBName)
	m.inputs[fieldPassword].SetValue(p.Password)
}

func (m Model) formToParams() (adapter.Params, error) {
	p := adapter.Params{
		Host:     strings.TrimSpace(m.inputs[fieldHost].Value()),
		User:     strings.TrimSpace(m.inputs[fieldUser].Value()),
		DBName:   strings.TrimSpace(m.inputs[fieldDBName].Value()),
		Password: m.inputs[fieldPassword].Value(),
	}
	if s := strings.TrimSpace(m.inputs[fieldPort].Value()); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil || port < 1 || port > 65535 {
			return adapter.Params{}, fmt.Errorf("invalid port %q", s)
		}
		p.Port = port
	}
	return p, nil
}

// Show makes the connection manager visible.
func (m *Model) Show() {
	m.visible = true
	m.state = StateList
	m.cursor = 0
}

// Hide hides the connection manager.
func (m *Model) Hide() {
	m.visible = false
}

// Visible returns whether the connection manager is shown.
func (m Model) Visible() bool { return m.visible }

// SetSize sets the available space.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Bookmarks returns the current bookmark list.
func (m Model) Bookmarks() []adapter.Params {
	return m.bookmarks
}

// SetBookmarks replaces the bookmark list.
func (m *Model) SetBookmarks(bm []adapter.Params) {
	m.bookmarks = bm
	if m.cursor > len(bm) {
		m.cursor = len(bm)
	}
}
