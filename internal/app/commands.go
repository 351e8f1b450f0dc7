package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/adapter/postgres"
	"github.com/sadopc/pgtop/internal/audit"
	"github.com/sadopc/pgtop/internal/bookmarks"
	appmsg "github.com/sadopc/pgtop/internal/msg"
	"github.com/sadopc/pgtop/internal/session"
	"github.com/sadopc/pgtop/internal/stat"
	"github.com/sadopc/pgtop/internal/ui/results"
	"github.com/sadopc/pgtop/internal/view"
)

const (
	connectTimeout = 15 * time.Second
	actionTimeout  = 30 * time.Second
	pollTimeout    = 30 * time.Second
)

// ---------------------------------------------------------------------------
// Polling
// ---------------------------------------------------------------------------

func (m *Model) scheduleTick() tea.Cmd {
	seq := m.tickSeq
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return appmsg.TickMsg{Seq: seq, At: t}
	})
}

// startPoll runs one tick of the foreground tab unless polling is paused
// or the tab is busy.
func (m *Model) startPoll() tea.Cmd {
	if m.paused {
		return nil
	}
	req, ok := m.ctrl.BeginPoll()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return appmsg.PollMsg{Result: req.Run(context.Background())}
	}
}

// pollNow polls at once and restarts the tick chain from here, so the
// next diff covers a full interval.
func (m *Model) pollNow() tea.Cmd {
	m.tickSeq++
	if m.paused {
		return nil
	}
	return tea.Batch(m.startPoll(), m.scheduleTick())
}

func (m *Model) handlePoll(res session.PollResult) tea.Cmd {
	f, err := m.ctrl.CompletePoll(res)
	if errors.Is(err, session.ErrStale) {
		// The view or tab changed under the query; ask again right away.
		if t := m.ctrl.Current(); t != nil && t.ID() == res.TabID {
			return m.startPoll()
		}
		return nil
	}
	if err != nil {
		return m.fail(err)
	}
	if f.Tab != m.ctrl.CurrentIndex() {
		return nil
	}
	m.now = f.At
	if f.Err != nil {
		m.results.SetError(postgres.ErrorMessage(f.Err))
		return nil
	}
	m.frame = f
	m.results.SetData(f.Title, f.Grid, f.SortKey, f.Desc, f.Filters)
	return nil
}

// ---------------------------------------------------------------------------
// Connecting
// ---------------------------------------------------------------------------

func (m *Model) connect(idx int, password string) tea.Cmd {
	req, err := m.ctrl.BeginConnect(idx, password)
	if err != nil {
		return m.fail(err)
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return appmsg.ConnectMsg{Index: idx, Result: req.Run(ctx)}
	}
}

func (m *Model) handleConnect(res session.ConnectResult) tea.Cmd {
	err := m.ctrl.FinishConnect(res)
	if errors.Is(err, session.ErrStale) {
		return nil
	}
	idx := m.indexOf(res.TabID)
	if idx < 0 {
		return nil
	}
	t := m.ctrl.Tab(idx)
	if err == nil {
		delete(m.pending, res.TabID)
		m.connectedAny = true
		cmd := m.status(fmt.Sprintf("connected to %s (PostgreSQL %s)", t.Params, t.Server.Version), false)
		if idx == m.ctrl.CurrentIndex() {
			return tea.Batch(cmd, m.pollNow())
		}
		return cmd
	}
	if errors.Is(err, adapter.ErrNeedsPassword) && !m.noPassword && !m.pwTried[res.TabID] {
		m.pwTried[res.TabID] = true
		return m.askPassword(res.TabID, t.Params.String())
	}
	return m.connectFailed(res.TabID, err)
}

// connectFailed reports a failed connect. When every tab given at startup
// has failed, there is nothing to monitor and the program ends with the
// error.
func (m *Model) connectFailed(tabID uint64, err error) tea.Cmd {
	text := audit.SanitizeConnInfo(err.Error())
	if m.pending[tabID] {
		delete(m.pending, tabID)
		if len(m.pending) == 0 && !m.connectedAny {
			m.err = fmt.Errorf("connect: %s", text)
			m.quitting = true
			return tea.Quit
		}
	}
	return m.status("connect: "+text, true)
}

func (m *Model) indexOf(tabID uint64) int {
	for _, t := range m.ctrl.Tabs() {
		if t.ID() == tabID {
			return t.Index
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Tabs
// ---------------------------------------------------------------------------

func (m *Model) openTab(p adapter.Params) tea.Cmd {
	idx, err := m.ctrl.OpenTab(p)
	if err != nil {
		return m.fail(err)
	}
	if err := m.ctrl.SwitchTab(idx); err != nil {
		return m.fail(err)
	}
	m.resetScreen()
	return m.connect(idx, "")
}

// switchTab brings tab idx forward. A tab whose connect failed is dialed
// again.
func (m *Model) switchTab(idx int) tea.Cmd {
	t := m.ctrl.Tab(idx)
	if t == nil {
		return nil
	}
	if idx == m.ctrl.CurrentIndex() && t.State != session.Disconnected {
		return nil
	}
	if err := m.ctrl.SwitchTab(idx); err != nil {
		return m.fail(err)
	}
	m.resetScreen()
	if t.State == session.Disconnected {
		return m.connect(idx, "")
	}
	return m.pollNow()
}

func (m *Model) cycleTab(dir int) tea.Cmd {
	n := m.ctrl.Count()
	if n < 2 {
		return nil
	}
	return m.switchTab(((m.ctrl.CurrentIndex()+dir)%n + n) % n)
}

// closeTab closes tab idx; closing the last one quits.
func (m *Model) closeTab(idx int) tea.Cmd {
	wasCurrent := idx == m.ctrl.CurrentIndex()
	err := m.ctrl.CloseTab(idx)
	if errors.Is(err, session.ErrLastTab) {
		m.quitting = true
		return tea.Quit
	}
	if err != nil {
		return m.fail(err)
	}
	if !wasCurrent {
		if m.frame != nil && m.frame.Tab > idx {
			m.frame.Tab--
		}
		return nil
	}
	m.resetScreen()
	return m.pollNow()
}

func (m *Model) resetScreen() {
	m.results.Clear()
	m.frame = nil
}

// ---------------------------------------------------------------------------
// Views and grid
// ---------------------------------------------------------------------------

func (m *Model) switchView(id view.ID) tea.Cmd {
	if err := m.ctrl.SwitchView(id); err != nil {
		return m.fail(err)
	}
	m.results.Clear()
	return m.pollNow()
}

// regrid applies a sort or filter change to the grid on screen so the
// operator sees it before the next poll.
func (m *Model) regrid(apply func(g *stat.Grid, vs *session.ViewState, key int) *stat.Grid) tea.Cmd {
	t := m.ctrl.Current()
	g := m.results.Grid()
	if t == nil || g == nil {
		return nil
	}
	r, err := m.ctrl.Resolved()
	if err != nil {
		return m.fail(err)
	}
	vs := t.ViewState(t.Current)
	key := vs.SortKey
	if !r.SortInRange(key) {
		key = stat.NoSort
	}
	filters := make(stat.Filters, len(vs.Filters))
	for c, p := range vs.Filters {
		filters[c] = p
	}
	m.results.SetData(r.Title, apply(g, vs, key), key, vs.Desc, filters)
	return nil
}

func (m *Model) resort(err error) tea.Cmd {
	if err != nil {
		return m.fail(err)
	}
	return m.regrid(func(g *stat.Grid, vs *session.ViewState, key int) *stat.Grid {
		return stat.Sort(g, key, vs.Desc)
	})
}

// applyFilter narrows the grid on screen at once; a cleared or widened
// filter shows its extra rows from the next poll.
func (m *Model) applyFilter(msg filterMsg) tea.Cmd {
	if err := m.ctrl.SetFilter(msg.col, msg.pattern); err != nil {
		return m.fail(err)
	}
	return m.regrid(func(g *stat.Grid, vs *session.ViewState, _ int) *stat.Grid {
		return stat.Filter(g, vs.Filters)
	})
}

func (m *Model) showQuery(t *session.Tab) {
	if !view.HasQueryText(t.Current) {
		return
	}
	row := m.results.SelectedRow()
	if len(row) == 0 {
		return
	}
	title := "query"
	if view.HasPID(t.Current) {
		title = "pid " + row[0]
	}
	m.queryView.SetSize(m.width, m.height)
	m.queryView.Show(title, row[len(row)-1])
}

// ---------------------------------------------------------------------------
// Operator actions
// ---------------------------------------------------------------------------

func (m *Model) act(plan actionFunc) tea.Cmd {
	req, err := plan(m.ctrl)
	if err != nil {
		return m.fail(err)
	}
	m.log.Debug("action started", slog.String("action", req.Kind.String()), slog.String("tab", req.Target.String()))
	return tea.Batch(m.status(req.Kind.String()+"...", false), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return appmsg.ActionMsg{Result: req.Run(ctx)}
	})
}

func (m *Model) handleAction(res session.ActionResult) tea.Cmd {
	m.ctrl.FinishAction(res)
	if res.Kind.Mutating() {
		e := audit.Entry{
			Action:     res.Kind.String(),
			Query:      res.Query,
			Target:     res.Target.String(),
			Detail:     res.Detail,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			e.IsError = true
			e.Error = res.Err.Error()
		}
		m.audit.Log(e)
	}
	if res.Err != nil {
		m.log.Warn("action failed",
			slog.String("action", res.Kind.String()),
			slog.String("tab", res.Target.String()),
			slog.String("error", res.Err.Error()))
		return m.status(res.Kind.String()+": "+postgres.ErrorMessage(res.Err), true)
	}
	m.log.Info("action",
		slog.String("action", res.Kind.String()),
		slog.String("tab", res.Target.String()),
		slog.String("detail", res.Detail))

	switch res.Kind {
	case session.ActionConfigFile:
		return m.openExternal(m.cfg.EditorCommand(), res.Detail)
	case session.ActionLogFile:
		return m.openExternal(m.cfg.PagerCommand(), res.Detail)
	case session.ActionResetStats:
		m.results.Clear()
		return tea.Batch(m.status(res.Detail, false), m.pollNow())
	}
	return m.status(res.Detail, false)
}

// openExternal hands the terminal to command with path as its last
// argument. command may carry its own arguments, as in "code -w".
func (m *Model) openExternal(command, path string) tea.Cmd {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return m.status("no editor or pager configured", true)
	}
	c := exec.Command(argv[0], append(argv[1:], path)...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return appmsg.EditorDoneMsg{Path: path, Err: err}
	})
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func (m *Model) exportFrame() tea.Cmd {
	t := m.ctrl.Current()
	g := m.results.Grid()
	if t == nil || g == nil {
		return m.status("nothing to export", true)
	}
	snap := results.Snapshot{
		View:    "grid",
		Server:  t.Params.String(),
		TakenAt: m.now,
		Grid:    g.Clone(),
	}
	if v, err := view.Get(t.Current); err == nil {
		snap.View = v.Name
	}
	return func() tea.Msg {
		dir, err := os.Getwd()
		if err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		path := results.ExportPath(dir, snap)
		n, err := results.Export(path, snap)
		if err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		return appmsg.ExportCompleteMsg{Path: path, RowCount: int64(n)}
	}
}

// writeBookmarks saves the connection manager's list plus every open tab
// not yet on it.
func (m *Model) writeBookmarks() tea.Cmd {
	list := append([]adapter.Params(nil), m.connMgr.Bookmarks()...)
	for _, t := range m.ctrl.Tabs() {
		if !containsServer(list, t.Params) {
			list = append(list, t.Params)
		}
	}
	m.connMgr.SetBookmarks(list)

	path := m.bookmarksPath
	return func() tea.Msg {
		if path == "" {
			p, err := bookmarks.DefaultPath()
			if err != nil {
				return appmsg.BookmarksSavedMsg{Err: err}
			}
			path = p
		}
		err := bookmarks.Write(path, list)
		return appmsg.BookmarksSavedMsg{Path: path, Count: len(list), Err: err}
	}
}

func containsServer(list []adapter.Params, p adapter.Params) bool {
	for _, b := range list {
		if b.Host == p.Host && b.Port == p.Port && b.User == p.User && b.DBName == p.DBName {
			return true
		}
	}
	return false
}
