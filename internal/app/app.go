package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/audit"
	"github.com/sadopc/pgtop/internal/config"
	"github.com/sadopc/pgtop/internal/logger"
	appmsg "github.com/sadopc/pgtop/internal/msg"
	"github.com/sadopc/pgtop/internal/session"
	"github.com/sadopc/pgtop/internal/theme"
	"github.com/sadopc/pgtop/internal/ui/connmgr"
	"github.com/sadopc/pgtop/internal/ui/dialog"
	"github.com/sadopc/pgtop/internal/ui/header"
	"github.com/sadopc/pgtop/internal/ui/picker"
	"github.com/sadopc/pgtop/internal/ui/queryview"
	"github.com/sadopc/pgtop/internal/ui/results"
	"github.com/sadopc/pgtop/internal/ui/statusbar"
	"github.com/sadopc/pgtop/internal/ui/subtab"
	"github.com/sadopc/pgtop/internal/ui/tabs"
	"github.com/sadopc/pgtop/internal/view"
)

// Options are the collaborators and startup parameters of the root model.
type Options struct {
	Dialer adapter.Dialer
	// Tabs are opened and dialed at startup, in order.
	Tabs []adapter.Params
	// Bookmarks fill the new tab form; BookmarksPath is where W writes
	// them, empty for the default location.
	Bookmarks     []adapter.Params
	BookmarksPath string
	// NoPassword never prompts; a server asking for one fails the tab.
	NoPassword bool
	Logger     *slog.Logger
	Audit      *audit.Logger
}

// Model is the root application model.
type Model struct {
	// Layout
	width  int
	height int
	gridW  int
	gridH  int

	// Components
	tabs      tabs.Model
	statusbar statusbar.Model
	results   results.Model
	connMgr   connmgr.Model
	picker    picker.Model
	queryView queryview.Model
	prompt    dialog.Prompt
	promptFor promptKind
	confirm   dialog.Model
	help      help.Model
	spinner   spinner.Model

	// Session
	ctrl     *session.Controller
	frame    *session.Frame
	now      time.Time
	interval time.Duration
	paused   bool
	tickSeq  uint64

	// Connecting
	noPassword   bool
	pwTab        uint64
	pwTried      map[uint64]bool
	pending      map[uint64]bool
	connectedAny bool
	initCmds     []tea.Cmd

	cfg           *config.Config
	keys          KeyMap
	log           *slog.Logger
	audit         *audit.Logger
	bookmarksPath string

	showHelp bool
	quitting bool
	err      error
}

// New creates the root model and opens a tab for every startup parameter
// set. With none, the new tab form is shown first.
func New(cfg *config.Config, opts Options) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if t := theme.Get(cfg.Theme); t != nil {
		theme.Current = t
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	h := help.New()
	th := theme.Current
	h.Styles.FullKey = th.HelpKey
	h.Styles.FullDesc = th.HelpDesc
	h.Styles.FullSeparator = th.MutedText
	h.ShowAll = true

	ctrl := session.New(opts.Dialer, log)
	ctrl.QueryTimeout = pollTimeout

	m := Model{
		tabs:      tabs.New(session.MaxTabs),
		statusbar: statusbar.New(),
		results:   results.New(),
		connMgr:   connmgr.New(opts.Bookmarks, opts.Dialer),
		picker:    picker.New(),
		queryView: queryview.New(),
		help:      h,
		spinner:   s,

		ctrl:     ctrl,
		now:      time.Now(),
		interval: cfg.PollInterval(),

		noPassword: opts.NoPassword,
		pwTried:    make(map[uint64]bool),
		pending:    make(map[uint64]bool),

		cfg:           cfg,
		keys:          DefaultKeyMap(),
		log:           log,
		audit:         opts.Audit,
		bookmarksPath: opts.BookmarksPath,
	}
	m.results.SetMaxColumnWidth(cfg.Results.MaxColumnWidth)

	minAge := view.DefaultMinAge
	if cfg.MinAge != "" && view.ValidateMinAge(cfg.MinAge) == nil {
		minAge = cfg.MinAge
	}
	for _, p := range opts.Tabs {
		idx, err := ctrl.OpenTab(p)
		if err != nil {
			log.Warn("tab not opened", slog.String("tab", p.String()), slog.String("error", err.Error()))
			break
		}
		t := ctrl.Tab(idx)
		t.MinAge = minAge
		m.pending[t.ID()] = true
		m.initCmds = append(m.initCmds, m.connect(idx, ""))
	}
	if ctrl.Count() == 0 {
		m.connMgr.Show()
	}
	m.syncTabs()
	return m
}

// Init starts the spinner, the startup connects and the tick chain.
func (m Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{m.spinner.Tick, m.scheduleTick()}, m.initCmds...)
	return tea.Batch(cmds...)
}

// Controller returns the session controller. The caller closes it after
// the program exits.
func (m Model) Controller() *session.Controller {
	return m.ctrl
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error {
	return m.err
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case appmsg.TickMsg:
		if msg.Seq != m.tickSeq {
			break
		}
		m.now = msg.At
		cmds = append(cmds, m.scheduleTick(), m.startPoll())

	case appmsg.PollMsg:
		cmds = append(cmds, m.handlePoll(msg.Result))

	case appmsg.ConnectMsg:
		cmds = append(cmds, m.handleConnect(msg.Result))

	case appmsg.ActionMsg:
		cmds = append(cmds, m.handleAction(msg.Result))

	case appmsg.OpenTabMsg:
		cmds = append(cmds, m.openTab(msg.Params))

	case appmsg.SwitchTabMsg:
		cmds = append(cmds, m.switchTab(msg.Index))

	case appmsg.CloseTabMsg:
		cmds = append(cmds, m.closeTab(msg.Index))

	case actionPlanMsg:
		cmds = append(cmds, m.act(msg.plan))

	case passwordMsg:
		if idx := m.indexOf(msg.tabID); idx >= 0 {
			cmds = append(cmds, m.connect(idx, msg.password))
		}

	case filterMsg:
		cmds = append(cmds, m.applyFilter(msg))

	case minAgeMsg:
		if err := m.ctrl.SetMinAge(msg.age); err != nil {
			cmds = append(cmds, m.fail(err))
			break
		}
		m.results.Clear()
		cmds = append(cmds, m.pollNow())

	case signalMaskMsg:
		if err := m.ctrl.SetSignals(msg.mask); err != nil {
			cmds = append(cmds, m.fail(err))
			break
		}
		cmds = append(cmds, m.status("signal mask set to "+strconv.Quote(msg.mask), false))

	case intervalMsg:
		m.interval = msg.interval
		m.tickSeq++
		if !m.paused {
			cmds = append(cmds, m.scheduleTick())
		}

	case picker.PickedMsg:
		cmds = append(cmds, m.switchView(msg.ID))

	case connmgr.BookmarksUpdatedMsg:
		cmds = append(cmds, m.status(fmt.Sprintf("%d bookmarks, press W to save", len(msg.Bookmarks)), false))

	case appmsg.EditorDoneMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.status("external command: "+msg.Err.Error(), true))
		}

	case appmsg.ExportCompleteMsg:
		cmds = append(cmds, m.status(fmt.Sprintf("exported %d rows to %s", msg.RowCount, msg.Path), false))

	case appmsg.ExportErrMsg:
		cmds = append(cmds, m.status("export failed: "+msg.Err.Error(), true))

	case appmsg.BookmarksSavedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.status("write bookmarks: "+msg.Err.Error(), true))
			break
		}
		cmds = append(cmds, m.status(fmt.Sprintf("wrote %d bookmarks to %s", msg.Count, msg.Path), false))

	case appmsg.StatusMsg, statusbar.ClearStatusMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		// Cursor blinks and connection test results for the open overlay.
		cmds = append(cmds, m.routeToOverlay(msg))
	}

	m.syncTabs()
	m.fitGrid()
	m.updateStatus()
	return m, tea.Batch(cmds...)
}

func (m *Model) routeToOverlay(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.overlay() {
	case appmsg.OverlayConnMgr:
		m.connMgr, cmd = m.connMgr.Update(msg)
	case appmsg.OverlayPicker:
		m.picker, cmd = m.picker.Update(msg)
	case appmsg.OverlayPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	}
	return cmd
}

// overlay returns the modal layer that receives keys, in priority order.
func (m Model) overlay() appmsg.Overlay {
	switch {
	case m.connMgr.Visible():
		return appmsg.OverlayConnMgr
	case m.picker.Visible():
		return appmsg.OverlayPicker
	case m.queryView.Visible():
		return appmsg.OverlayQuery
	case m.prompt.Visible():
		return appmsg.OverlayPrompt
	case m.confirm.Visible():
		return appmsg.OverlayConfirm
	case m.showHelp:
		return appmsg.OverlayHelp
	}
	return appmsg.OverlayNone
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.overlay() {
	case appmsg.OverlayConnMgr:
		m.connMgr, cmd = m.connMgr.Update(msg)
		if !m.connMgr.Visible() && cmd == nil && m.ctrl.Count() == 0 {
			m.quitting = true
			return tea.Quit
		}
		return cmd

	case appmsg.OverlayPicker:
		m.picker, cmd = m.picker.Update(msg)
		return cmd

	case appmsg.OverlayQuery:
		m.queryView, cmd = m.queryView.Update(msg)
		return cmd

	case appmsg.OverlayPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
		if !m.prompt.Visible() && cmd == nil && m.promptFor == promptPassword {
			return m.connectFailed(m.pwTab, adapter.ErrNeedsPassword)
		}
		return cmd

	case appmsg.OverlayConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
		return cmd

	case appmsg.OverlayHelp:
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" || msg.String() == "q" {
			m.showHelp = false
		}
		return nil
	}

	return m.handleMonitorKey(msg)
}

func (m *Model) handleMonitorKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = true
		return nil
	case key.Matches(msg, k.NewTab):
		m.connMgr.Show()
		return nil
	case key.Matches(msg, k.GotoTab):
		n, _ := strconv.Atoi(msg.String())
		return m.switchTab(n - 1)
	case key.Matches(msg, k.NextTab):
		return m.cycleTab(1)
	case key.Matches(msg, k.PrevTab):
		return m.cycleTab(-1)
	case key.Matches(msg, k.CloseTab):
		return m.closeTab(m.ctrl.CurrentIndex())
	case key.Matches(msg, k.WriteBookmarks):
		return m.writeBookmarks()
	case key.Matches(msg, k.Pause):
		return m.togglePause()
	case key.Matches(msg, k.Interval):
		return m.askInterval()
	case key.Matches(msg, k.Export):
		return m.exportFrame()
	}

	t := m.ctrl.Current()
	if t == nil {
		return nil
	}
	switch {
	case key.Matches(msg, k.Picker):
		return m.picker.Show(t.Server.VersionNum)
	case key.Matches(msg, k.Statements):
		return m.switchView(view.NextStatements(t.Current))
	case key.Matches(msg, k.SortNext):
		return m.resort(m.ctrl.CycleSort(1))
	case key.Matches(msg, k.SortPrev):
		return m.resort(m.ctrl.CycleSort(-1))
	case key.Matches(msg, k.ToggleOrder):
		return m.resort(m.ctrl.ToggleOrder())
	case key.Matches(msg, k.Filter):
		return m.askFilter(t)
	case key.Matches(msg, k.ClearFilter):
		if err := m.ctrl.ClearFilters(); err != nil {
			return m.fail(err)
		}
		return m.status("filters cleared", false)
	case key.Matches(msg, k.ShowQuery):
		m.showQuery(t)
		return nil
	case key.Matches(msg, k.MinAge):
		return m.askMinAge(t)
	case key.Matches(msg, k.SignalMask):
		return m.askSignals(t)
	case key.Matches(msg, k.ToggleSystem):
		if err := m.ctrl.ToggleSystem(); err != nil {
			return m.fail(err)
		}
		m.results.Clear()
		return m.pollNow()
	case key.Matches(msg, k.DiskStats):
		return m.toggleSubtab(session.SubtabDisk)
	case key.Matches(msg, k.NetStats):
		return m.toggleSubtab(session.SubtabNet)
	case key.Matches(msg, k.LogTail):
		return m.toggleSubtab(session.SubtabLog)
	case key.Matches(msg, k.Cancel):
		return m.askPID(t, view.Cancel)
	case key.Matches(msg, k.Terminate):
		return m.askPID(t, view.Terminate)
	case key.Matches(msg, k.GroupCancel):
		return m.confirmGroup(t, view.Cancel)
	case key.Matches(msg, k.GroupTerminate):
		return m.confirmGroup(t, view.Terminate)
	case key.Matches(msg, k.ResetStats):
		m.showConfirm("Reset statistics",
			"Reset the statistics counters of "+t.Params.String()+"?",
			(*session.Controller).ResetStats)
		return nil
	case key.Matches(msg, k.ReloadConf):
		m.showConfirm("Reload configuration",
			"Ask "+t.Params.String()+" to reload its configuration files?",
			(*session.Controller).ReloadConf)
		return nil
	case key.Matches(msg, k.EditConf):
		return m.act(configFile("config_file"))
	case key.Matches(msg, k.EditHBA):
		return m.act(configFile("hba_file"))
	case key.Matches(msg, k.EditIdent):
		return m.act(configFile("ident_file"))
	case key.Matches(msg, k.ShowLog):
		return m.act((*session.Controller).LogFile)
	}

	if id, ok := ViewFor(msg.String()); ok {
		return m.switchView(id)
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return cmd
}

func configFile(name string) actionFunc {
	return func(c *session.Controller) (session.ActionRequest, error) {
		return c.ConfigFile(name)
	}
}

func (m *Model) toggleSubtab(s session.Subtab) tea.Cmd {
	if err := m.ctrl.ToggleSubtab(s); err != nil {
		if errors.Is(err, session.ErrNotLocal) {
			return m.status(s.String()+" subtab: "+err.Error(), true)
		}
		return m.fail(err)
	}
	return nil
}

func (m *Model) togglePause() tea.Cmd {
	m.paused = !m.paused
	if m.paused {
		m.tickSeq++
		return nil
	}
	return m.pollNow()
}

func (m *Model) status(text string, isError bool) tea.Cmd {
	var cmd tea.Cmd
	m.statusbar, cmd = m.statusbar.Update(appmsg.StatusMsg{Text: text, IsError: isError})
	return cmd
}

func (m *Model) fail(err error) tea.Cmd {
	return m.status(err.Error(), true)
}

// ---------------------------------------------------------------------------
// Derived state
// ---------------------------------------------------------------------------

func (m *Model) syncTabs() {
	var out []tabs.Tab
	for _, t := range m.ctrl.Tabs() {
		out = append(out, tabs.Tab{
			Index: t.Index,
			Title: t.Params.String(),
			Live:  t.State.Live(),
			State: t.State.String(),
		})
	}
	m.tabs.SetTabs(out, m.ctrl.CurrentIndex())
}

func (m *Model) updateStatus() {
	info := statusbar.Info{Rows: -1, Interval: m.interval, Paused: m.paused}
	t := m.ctrl.Current()
	if t == nil {
		m.statusbar.SetInfo(info)
		return
	}
	if v, err := view.Get(t.Current); err == nil {
		info.View = v.Name
	}
	if !t.State.Live() {
		info.State = t.State.String()
	}
	vs := t.ViewState(t.Current)
	info.Desc = vs.Desc
	for _, p := range vs.Filters {
		if p != "" {
			info.Filters++
		}
	}
	if g := m.results.Grid(); g != nil {
		if vs.SortKey >= 0 && vs.SortKey < g.NumCols() {
			info.SortCol = g.Columns[vs.SortKey]
		}
		info.Rows = g.NumRows()
	}
	if f := m.currentFrame(); f != nil {
		info.Duration = f.Duration
	}
	m.statusbar.SetInfo(info)
}

func (m Model) currentFrame() *session.Frame {
	if m.frame != nil && m.frame.Tab == m.ctrl.CurrentIndex() {
		return m.frame
	}
	return nil
}

// ---------------------------------------------------------------------------
// Layout
// ---------------------------------------------------------------------------

// resize propagates a new terminal size to every component.
func (m *Model) resize() {
	m.tabs.SetSize(m.width)
	m.statusbar.SetSize(m.width)
	m.connMgr.SetSize(m.width, m.height)
	m.picker.SetSize(m.width, m.height)
	m.queryView.SetSize(m.width, m.height)
	m.prompt.SetSize(m.width, m.height)
	m.confirm.SetSize(m.width, m.height)
	m.help.Width = m.width
	m.fitGrid()
}

// fitGrid gives the grid whatever the header, tab bar, subtab and status
// bar leave over.
func (m *Model) fitGrid() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.gridHeight()
	if h == m.gridH && m.width == m.gridW {
		return
	}
	m.gridW, m.gridH = m.width, h
	m.results.SetSize(m.width, h)
}

func (m Model) gridHeight() int {
	h := m.height - lipgloss.Height(m.tabs.View()) - header.Height - 1
	if t := m.ctrl.Current(); t != nil && t.Subtab != session.SubtabNone {
		h -= subtab.Height
	}
	return max(h, 3)
}

// View renders the entire application.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	t := m.ctrl.Current()
	sections := []string{m.tabs.View(), m.renderHeader(t), m.renderBody(t)}
	if t != nil && t.Subtab != session.SubtabNone {
		sections = append(sections, subtab.Render(t.Subtab, m.currentFrame(), m.width))
	}
	sections = append(sections, m.statusbar.View())
	screen := lipgloss.JoinVertical(lipgloss.Left, sections...)

	switch m.overlay() {
	case appmsg.OverlayConnMgr:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.connMgr.View())
	case appmsg.OverlayHelp:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderHelp())
	case appmsg.OverlayPicker:
		return dialog.Overlay(screen, m.picker.View(), m.width)
	case appmsg.OverlayQuery:
		return dialog.Overlay(screen, m.queryView.View(), m.width)
	case appmsg.OverlayPrompt:
		return dialog.Overlay(screen, m.prompt.View(), m.width)
	case appmsg.OverlayConfirm:
		return m.confirm.Overlay(screen)
	}
	return screen
}

func (m Model) renderHeader(t *session.Tab) string {
	if t == nil {
		return strings.Repeat("\n", header.Height-1)
	}
	in := header.Info{
		Conn:   t.Params.String(),
		State:  t.State.String(),
		Now:    m.now,
		Server: t.Server,
	}
	if f := m.currentFrame(); f != nil {
		in.Summary = f.Summary
		in.Host = f.Host
	}
	return header.Render(in, m.width)
}

func (m Model) renderBody(t *session.Tab) string {
	th := theme.Current
	box := lipgloss.NewStyle().Height(m.gridH).MaxHeight(m.gridH)
	switch {
	case t == nil:
		return box.Render(th.MutedText.Render("no connection, press O to open one"))
	case t.State == session.Connecting:
		return box.Render(m.spinner.View() + " connecting to " + t.Params.String())
	case t.State == session.Disconnected:
		msg := "disconnected"
		if t.LastErr != nil {
			msg += ": " + audit.SanitizeConnInfo(t.LastErr.Error())
		}
		return box.Render(th.ErrorText.Render(msg) + "\n" +
			th.MutedText.Render(fmt.Sprintf("press %d to retry", t.Index+1)))
	case t.State == session.Reconnecting && m.results.Grid() == nil:
		return box.Render(m.spinner.View() + " reconnecting to " + t.Params.String())
	}
	return box.Render(m.results.View())
}

func (m Model) renderHelp() string {
	th := theme.Current
	content := lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render("pgtop keys"),
		"",
		m.help.View(m.keys),
		"",
		th.MutedText.Render("press ? or esc to close"),
	)
	return th.DialogBorder.Render(content)
}
