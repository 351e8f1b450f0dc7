package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/stat"
	"github.com/sadopc/pgtop/internal/sysstat"
	"github.com/sadopc/pgtop/internal/view"
)

// ErrNoLogFile is returned when the server does not write a log file this
// client can locate.
var ErrNoLogFile = errors.New("server log file unknown (logging_collector off?)")

// PollRequest is one tick of the foreground tab. Run it off the owning
// goroutine and hand the result to CompletePoll.
type PollRequest struct {
	tabID     uint64
	gen       uint64
	conn      adapter.Connection
	mu        *sync.Mutex
	viewID    view.ID
	opts      view.Options
	version   int
	reconnect bool
	host      sysstat.Source
	wantLog   bool
	logPath   string
	timeout   time.Duration
}

// PollResult carries everything a tick fetched.
type PollResult struct {
	TabID    uint64
	Gen      uint64
	View     view.Resolved
	At       time.Time
	Grid     *stat.Grid
	Err      error
	Duration time.Duration

	Reconnected bool
	Server      ServerInfo
	Host        HostInfo

	Summary    []string
	SummaryErr error

	HostSnap *sysstat.Snapshot
	HostErr  error

	LogPath string
	Log     []string
	LogErr  error
}

// BeginPoll prepares a tick for the foreground tab. It reports false when
// the tab cannot poll now: no tab, not connected, or a poll already in
// flight on its connection.
func (c *Controller) BeginPoll() (PollRequest, bool) {
	t := c.Current()
	if t == nil || t.conn == nil || t.inflight {
		return PollRequest{}, false
	}
	switch t.State {
	case Connected, PollingFirst, PollingSteady, Reconnecting:
	default:
		return PollRequest{}, false
	}

	t.inflight = true
	req := PollRequest{
		tabID:     t.id,
		gen:       t.Gen,
		conn:      t.conn,
		mu:        t.execMu,
		viewID:    t.Current,
		opts:      t.Options(),
		version:   t.Server.VersionNum,
		reconnect: t.State == Reconnecting,
		timeout:   c.QueryTimeout,
	}
	if t.Host.Available {
		req.host = t.source()
	}
	if t.Subtab == SubtabLog && t.Server.Local {
		req.wantLog = true
		req.logPath = t.LogPath
	}
	return req, true
}

// Run executes the tick on the tab's connection.
func (r PollRequest) Run(ctx context.Context) PollResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res := PollResult{TabID: r.tabID, Gen: r.gen}

	if r.reconnect {
		if err := r.conn.Reset(ctx); err != nil {
			res.Err = fmt.Errorf("reconnect: %w", err)
			res.At = time.Now()
			return res
		}
		server, host, err := fetchMetadata(ctx, r.conn)
		if err != nil {
			res.Err = fmt.Errorf("reconnect: %w", err)
			res.At = time.Now()
			return res
		}
		res.Reconnected = true
		res.Server, res.Host = server, host
		r.version = server.VersionNum
		r.host = nil
		if host.Available {
			r.host = sysstat.RemoteSource{Conn: r.conn}
			if server.Local {
				r.host = sysstat.LocalSource{}
			}
		}
	}

	resolved, err := view.Resolve(r.viewID, r.version, r.opts)
	if err != nil {
		res.Err = err
		res.At = time.Now()
		return res
	}
	res.View = resolved

	start := time.Now()
	qr, err := r.conn.Execute(ctx, resolved.Query, resolved.Args...)
	res.At = time.Now()
	res.Duration = res.At.Sub(start)
	if err != nil {
		res.Err = err
		return res
	}
	res.Grid = stat.FromResult(qr.ColumnNames(), qr.Rows)

	if sr, err := r.conn.Execute(ctx, view.SummaryQuery(r.version)); err != nil {
		res.SummaryErr = err
	} else if len(sr.Rows) > 0 {
		res.Summary = sr.Rows[0]
	}

	if r.host != nil {
		res.HostSnap, res.HostErr = sysstat.Collect(ctx, r.host)
	}

	if r.wantLog {
		path := r.logPath
		if path == "" {
			path, res.LogErr = locateLog(ctx, r.conn, r.version)
		}
		if res.LogErr == nil {
			res.LogPath = path
			res.Log, res.LogErr = sysstat.LogTail(path, LogTailLines)
		}
	}
	return res
}

// locateLog finds the current server log file on disk.
func locateLog(ctx context.Context, conn adapter.Connection, version int) (string, error) {
	res, err := conn.Execute(ctx, view.LogFileQuery(version))
	if err != nil {
		return "", fmt.Errorf("log file: %w", err)
	}
	name := res.Value()
	if name == "" {
		return "", ErrNoLogFile
	}
	dd, err := conn.Execute(ctx, view.DataDirectoryQuery)
	if err != nil {
		return "", fmt.Errorf("data directory: %w", err)
	}
	return sysstat.LogPath(dd.Value(), name), nil
}

// Summary is the server activity header of one frame.
type Summary struct {
	Valid        bool
	Total        int
	Idle         int
	IdleXact     int
	Active       int
	Waiting      int
	Other        int
	Autovacuum   int
	Prepared     int
	XactMaxTime  string
	QueryMaxTime string
	Uptime       string
	// TPS is committed plus rolled back transactions per second since the
	// previous frame.
	TPS int64
}

// Frame is the display-ready outcome of one tick.
type Frame struct {
	Tab      int
	View     view.ID
	Title    string
	Grid     *stat.Grid
	SortKey  int
	Desc     bool
	Filters  stat.Filters
	Status   stat.Status
	Elapsed  uint
	At       time.Time
	Duration time.Duration
	// Err is a failed tick; the grid is nil and the previous frame stays
	// on screen.
	Err error

	Server  ServerInfo
	Summary Summary
	Host    *sysstat.Stats
	HostErr error

	Subtab Subtab
	Log    []string
	LogErr error
}

// CompletePoll feeds a tick result through the snapshot pipeline: store,
// diff, sort and filter. Results for a closed tab or an older generation
// return ErrStale.
func (c *Controller) CompletePoll(res PollResult) (*Frame, error) {
	t := c.byID(res.TabID)
	if t == nil {
		if conn, ok := c.draining[res.TabID]; ok {
			conn.Close()
			delete(c.draining, res.TabID)
		}
		return nil, ErrStale
	}
	t.inflight = false
	if res.Gen != t.Gen {
		return nil, ErrStale
	}

	if res.Reconnected {
		t.Server = res.Server
		t.Host = res.Host
		t.State = Connected
		t.restart()
		c.log.Info("reconnected", slog.String("tab", t.Params.String()))
	}

	f := &Frame{
		Tab:      t.Index,
		View:     t.Current,
		Title:    res.View.Title,
		At:       res.At,
		Duration: res.Duration,
		Server:   t.Server,
		Subtab:   t.Subtab,
	}

	if res.Err != nil {
		t.LastErr = res.Err
		f.Err = res.Err
		if t.conn != nil && t.conn.Status() == adapter.StatusBad {
			if t.State != Reconnecting {
				c.log.Warn("connection lost", slog.String("tab", t.Params.String()), slog.String("error", res.Err.Error()))
			}
			t.State = Reconnecting
			t.store.Reset()
		} else {
			c.log.Debug("poll failed", slog.String("tab", t.Params.String()), slog.String("error", res.Err.Error()))
		}
		return f, nil
	}
	t.LastErr = nil

	elapsed := elapsedSeconds(t.lastPoll, res.At)
	t.lastPoll = res.At

	status := t.store.Put(res.Grid)
	var out *stat.Grid
	if status == stat.StatusReady && t.State == PollingSteady {
		out = stat.Diff(t.store.Previous(), t.store.Current(), res.View.Diff, elapsed)
		t.store.Adopt()
	} else {
		out = t.store.Current().Clone()
	}
	t.State = PollingSteady

	vs := t.ViewState(t.Current)
	key := vs.SortKey
	if !res.View.Sort.Contains(key) {
		key = stat.NoSort
	}
	out = stat.Sort(out, key, vs.Desc)
	out = stat.Filter(out, vs.Filters)

	f.Grid = out
	f.SortKey = key
	f.Desc = vs.Desc
	f.Filters = copyFilters(vs.Filters)
	f.Status = status
	f.Elapsed = elapsed
	f.Summary = t.summarize(res.Summary, res.At)

	if res.HostSnap != nil {
		st := sysstat.Compare(t.prevHost, res.HostSnap)
		f.Host = &st
		t.prevHost = res.HostSnap
	}
	f.HostErr = res.HostErr

	if res.LogPath != "" {
		t.LogPath = res.LogPath
	}
	f.Log, f.LogErr = res.Log, res.LogErr
	return f, nil
}

// Tick runs BeginPoll, Run and CompletePoll in one go. It returns a nil
// frame when the foreground tab cannot poll.
func (c *Controller) Tick(ctx context.Context) (*Frame, error) {
	req, ok := c.BeginPoll()
	if !ok {
		return nil, nil
	}
	return c.CompletePoll(req.Run(ctx))
}

func (t *Tab) summarize(row []string, at time.Time) Summary {
	if len(row) <= view.SumUptime {
		return Summary{}
	}
	atoi := func(i int) int {
		n, _ := strconv.Atoi(row[i])
		return n
	}
	s := Summary{
		Valid:        true,
		Total:        atoi(view.SumTotal),
		Idle:         atoi(view.SumIdle),
		IdleXact:     atoi(view.SumIdleXact),
		Active:       atoi(view.SumActive),
		Waiting:      atoi(view.SumWaiting),
		Other:        atoi(view.SumOther),
		Autovacuum:   atoi(view.SumAutovacuum),
		Prepared:     atoi(view.SumPrepared),
		XactMaxTime:  row[view.SumXactMaxTime],
		QueryMaxTime: row[view.SumQueryMaxTime],
		Uptime:       row[view.SumUptime],
	}

	xacts, err := strconv.ParseInt(row[view.SumXacts], 10, 64)
	if err != nil {
		return s
	}
	if !t.prevXAt.IsZero() && xacts >= t.prevXacts {
		s.TPS = (xacts - t.prevXacts) / int64(elapsedSeconds(t.prevXAt, at))
	}
	t.prevXacts = xacts
	t.prevXAt = at
	return s
}

// elapsedSeconds is the rounded interval between two polls, floored at
// one second.
func elapsedSeconds(prev, now time.Time) uint {
	if prev.IsZero() {
		return 1
	}
	secs := math.Round(now.Sub(prev).Seconds())
	if secs < 1 {
		return 1
	}
	return uint(secs)
}

func copyFilters(f stat.Filters) stat.Filters {
	out := make(stat.Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
