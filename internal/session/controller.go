package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/logger"
	"github.com/sadopc/pgtop/internal/stat"
	"github.com/sadopc/pgtop/internal/sysstat"
	"github.com/sadopc/pgtop/internal/view"
)

var (
	ErrLastTab    = errors.New("cannot close the last tab")
	ErrNoFreeSlot = errors.New("all tab slots are in use")
	ErrNoTab      = errors.New("no such tab")
	ErrStale      = errors.New("result belongs to a previous generation")
	ErrNotLocal   = errors.New("only available for a server on this host")
)

// Controller owns the tab slots and the foreground tab.
type Controller struct {
	dialer adapter.Dialer
	log    *slog.Logger

	// QueryTimeout bounds one poll. Zero means no limit beyond the
	// caller's context.
	QueryTimeout time.Duration

	tabs    [MaxTabs]Tab
	current int
	nextID  uint64

	// draining holds connections of closed tabs whose poll is still
	// running; they are closed once the poll returns.
	draining map[uint64]adapter.Connection
}

// New creates a controller with empty slots. A nil logger discards.
func New(dialer adapter.Dialer, log *slog.Logger) *Controller {
	if log == nil {
		log = logger.Noop()
	}
	c := &Controller{
		dialer:   dialer,
		log:      log,
		draining: make(map[uint64]adapter.Connection),
	}
	for i := range c.tabs {
		c.tabs[i].Index = i
	}
	return c
}

// OpenTab fills the first free slot with p and returns its index. The tab
// starts Disconnected.
func (c *Controller) OpenTab(p adapter.Params) (int, error) {
	for i := range c.tabs {
		if c.tabs[i].Used {
			continue
		}
		c.nextID++
		c.tabs[i] = Tab{
			Index:   i,
			Params:  p,
			Used:    true,
			State:   Disconnected,
			Views:   make(map[view.ID]*ViewState),
			Current: view.Databases,
			MinAge:  view.DefaultMinAge,
			id:      c.nextID,
			execMu:  &sync.Mutex{},
		}
		return i, nil
	}
	return -1, ErrNoFreeSlot
}

// Tab returns the tab in slot idx, or nil if the slot is unused.
func (c *Controller) Tab(idx int) *Tab {
	if idx < 0 || idx >= MaxTabs || !c.tabs[idx].Used {
		return nil
	}
	return &c.tabs[idx]
}

// Current returns the foreground tab, or nil when no tab is open.
func (c *Controller) Current() *Tab {
	return c.Tab(c.current)
}

// CurrentIndex returns the slot of the foreground tab.
func (c *Controller) CurrentIndex() int { return c.current }

// Count returns the number of used slots. Used slots are always the lowest
// ones.
func (c *Controller) Count() int {
	n := 0
	for i := range c.tabs {
		if c.tabs[i].Used {
			n++
		}
	}
	return n
}

// Tabs returns the used tabs in slot order.
func (c *Controller) Tabs() []*Tab {
	var out []*Tab
	for i := range c.tabs {
		if c.tabs[i].Used {
			out = append(out, &c.tabs[i])
		}
	}
	return out
}

func (c *Controller) byID(id uint64) *Tab {
	for i := range c.tabs {
		if c.tabs[i].Used && c.tabs[i].id == id {
			return &c.tabs[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Connecting
// ---------------------------------------------------------------------------

// ConnectRequest dials one tab. Run it off the owning goroutine and hand
// the result to FinishConnect.
type ConnectRequest struct {
	tabID  uint64
	gen    uint64
	params adapter.Params
	dialer adapter.Dialer
}

// ConnectResult is the outcome of ConnectRequest.Run.
type ConnectResult struct {
	TabID  uint64
	Gen    uint64
	Conn   adapter.Connection
	Server ServerInfo
	Host   HostInfo
	Err    error
}

// BeginConnect moves tab idx to Connecting. A non-empty password replaces
// the stored one.
func (c *Controller) BeginConnect(idx int, password string) (ConnectRequest, error) {
	t := c.Tab(idx)
	if t == nil {
		return ConnectRequest{}, fmt.Errorf("%w: %d", ErrNoTab, idx)
	}
	if password != "" {
		t.Params.Password = password
	}
	t.Gen++
	t.State = Connecting
	t.LastErr = nil
	return ConnectRequest{tabID: t.id, gen: t.Gen, params: t.Params, dialer: c.dialer}, nil
}

// Run dials and reads the server and host metadata.
func (r ConnectRequest) Run(ctx context.Context) ConnectResult {
	res := ConnectResult{TabID: r.tabID, Gen: r.gen}
	conn, err := r.dialer.Dial(ctx, r.params)
	if err != nil {
		res.Err = err
		return res
	}
	res.Server, res.Host, err = fetchMetadata(ctx, conn)
	if err != nil {
		conn.Close()
		res.Err = err
		return res
	}
	res.Conn = conn
	return res
}

// FinishConnect installs a dialed connection. A failed attempt leaves the
// tab Disconnected with LastErr set and returns the error, which matches
// adapter.ErrNeedsPassword when the caller should prompt and retry.
func (c *Controller) FinishConnect(res ConnectResult) error {
	t := c.byID(res.TabID)
	if t == nil || t.Gen != res.Gen {
		if res.Conn != nil {
			res.Conn.Close()
		}
		return ErrStale
	}
	if res.Err != nil {
		t.State = Disconnected
		t.LastErr = res.Err
		c.log.Warn("connect failed", slog.String("tab", t.Params.String()), slog.String("error", res.Err.Error()))
		return res.Err
	}
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = res.Conn
	t.Server = res.Server
	t.Host = res.Host
	t.State = Connected
	t.restart()
	c.log.Info("connected",
		slog.String("tab", t.Params.String()),
		slog.String("version", t.Server.Version),
		slog.Bool("local", t.Server.Local))
	return nil
}

// Connect dials tab idx synchronously.
func (c *Controller) Connect(ctx context.Context, idx int, password string) error {
	req, err := c.BeginConnect(idx, password)
	if err != nil {
		return err
	}
	return c.FinishConnect(req.Run(ctx))
}

func fetchMetadata(ctx context.Context, conn adapter.Connection) (ServerInfo, HostInfo, error) {
	res, err := conn.Execute(ctx, view.ServerInfoQuery)
	if err != nil {
		return ServerInfo{}, HostInfo{}, fmt.Errorf("server info: %w", err)
	}
	if len(res.Rows) == 0 {
		return ServerInfo{}, HostInfo{}, errors.New("server info: empty result")
	}
	info := serverInfoFromRow(res.Rows[0])

	host := HostInfo{ClockTicks: sysstat.ClockTicks}
	var src sysstat.Source = sysstat.RemoteSource{Conn: conn}
	if info.Local {
		src = sysstat.LocalSource{}
	}
	if snap, err := sysstat.Collect(ctx, src); err == nil {
		host.Available = true
		host.Devices = len(snap.Disks)
		host.Interfaces = len(snap.Nets)
	}
	return info, host, nil
}

// ---------------------------------------------------------------------------
// Tabs
// ---------------------------------------------------------------------------

// CloseTab closes tab idx and shifts the higher tabs down. Closing the only
// tab returns ErrLastTab and leaves it open.
func (c *Controller) CloseTab(idx int) error {
	t := c.Tab(idx)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrNoTab, idx)
	}
	if c.Count() == 1 {
		return ErrLastTab
	}
	c.release(t)

	for j := idx; j < MaxTabs-1; j++ {
		c.tabs[j] = c.tabs[j+1]
		c.tabs[j].Index = j
	}
	c.tabs[MaxTabs-1] = Tab{Index: MaxTabs - 1}

	switch {
	case idx < c.current:
		c.current--
	case idx == c.current:
		if n := c.Count(); c.current >= n {
			c.current = n - 1
		}
		if cur := c.Current(); cur != nil {
			cur.restart()
		}
	}
	return nil
}

func (c *Controller) release(t *Tab) {
	if t.conn != nil {
		if t.inflight {
			_ = t.conn.Cancel()
			c.draining[t.id] = t.conn
		} else {
			t.conn.Close()
		}
	}
	t.store.Reset()
	t.conn = nil
	t.State = Closed
	c.log.Info("tab closed", slog.String("tab", t.Params.String()))
}

// Close releases every tab.
func (c *Controller) Close() {
	for i := range c.tabs {
		if c.tabs[i].Used {
			c.release(&c.tabs[i])
		}
	}
	for id, conn := range c.draining {
		conn.Close()
		delete(c.draining, id)
	}
}

// SwitchTab brings tab idx to the foreground. Its next poll starts over.
func (c *Controller) SwitchTab(idx int) error {
	t := c.Tab(idx)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrNoTab, idx)
	}
	if idx == c.current {
		return nil
	}
	c.current = idx
	t.restart()
	return nil
}

// CycleTab moves the foreground by dir slots, wrapping around.
func (c *Controller) CycleTab(dir int) error {
	n := c.Count()
	if n == 0 {
		return ErrNoTab
	}
	return c.SwitchTab(((c.current+dir)%n + n) % n)
}

// ---------------------------------------------------------------------------
// View state of the foreground tab
// ---------------------------------------------------------------------------

func (c *Controller) active() (*Tab, error) {
	t := c.Current()
	if t == nil {
		return nil, ErrNoTab
	}
	return t, nil
}

// SwitchView shows view id on the foreground tab. The next poll starts
// over.
func (c *Controller) SwitchView(id view.ID) error {
	t, err := c.active()
	if err != nil {
		return err
	}
	v, err := view.Get(id)
	if err != nil {
		return err
	}
	if t.Server.VersionNum > 0 && !view.Supported(id, t.Server.VersionNum) {
		return fmt.Errorf("%w: %s on %s", view.ErrUnsupported, v.Name, view.FormatVersion(t.Server.VersionNum))
	}
	t.Current = id
	t.ViewState(id)
	t.restart()
	return nil
}

// Resolved resolves the foreground view for the connected server.
func (c *Controller) Resolved() (view.Resolved, error) {
	t, err := c.active()
	if err != nil {
		return view.Resolved{}, err
	}
	return view.Resolve(t.Current, t.Server.VersionNum, t.Options())
}

// CycleSort moves the sort key by dir columns within the view's sort range,
// wrapping at both ends. It takes effect on the next poll without a
// resync.
func (c *Controller) CycleSort(dir int) error {
	t, err := c.active()
	if err != nil {
		return err
	}
	r, err := c.Resolved()
	if err != nil {
		return err
	}
	if !r.Sort.Valid() {
		return nil
	}
	vs := t.ViewState(t.Current)
	key := vs.SortKey
	switch {
	case !r.Sort.Contains(key) && dir >= 0:
		key = r.Sort.Min
	case !r.Sort.Contains(key):
		key = r.Sort.Max
	default:
		key += dir
		if key > r.Sort.Max {
			key = r.Sort.Min
		} else if key < r.Sort.Min {
			key = r.Sort.Max
		}
	}
	vs.SortKey = key
	return nil
}

// ToggleOrder flips the sort direction of the foreground view.
func (c *Controller) ToggleOrder() error {
	t, err := c.active()
	if err != nil {
		return err
	}
	vs := t.ViewState(t.Current)
	vs.Desc = !vs.Desc
	return nil
}

// SetFilter sets the substring filter on column col of the foreground
// view. An empty pattern clears it.
func (c *Controller) SetFilter(col int, pattern string) error {
	t, err := c.active()
	if err != nil {
		return err
	}
	if col < 0 {
		return fmt.Errorf("invalid filter column %d", col)
	}
	t.ViewState(t.Current).Filters.Set(col, pattern)
	return nil
}

// ClearFilters drops every filter of the foreground view.
func (c *Controller) ClearFilters() error {
	t, err := c.active()
	if err != nil {
		return err
	}
	t.ViewState(t.Current).Filters = stat.Filters{}
	return nil
}

// SetMinAge sets the age threshold used by long running views and group
// signals.
func (c *Controller) SetMinAge(age string) error {
	t, err := c.active()
	if err != nil {
		return err
	}
	if err := view.ValidateMinAge(age); err != nil {
		return err
	}
	t.MinAge = age
	t.restart()
	return nil
}

// SetSignals sets the group signal mask from its letter form.
func (c *Controller) SetSignals(mask string) error {
	t, err := c.active()
	if err != nil {
		return err
	}
	m, err := ParseSignalMask(mask)
	if err != nil {
		return err
	}
	t.Signals = m
	return nil
}

// ToggleSystem switches between user and all objects.
func (c *Controller) ToggleSystem() error {
	t, err := c.active()
	if err != nil {
		return err
	}
	t.ShowSystem = !t.ShowSystem
	t.restart()
	return nil
}

// ToggleSubtab shows s below the grid, or hides it when it is already
// shown. The log subtab needs a local server.
func (c *Controller) ToggleSubtab(s Subtab) error {
	t, err := c.active()
	if err != nil {
		return err
	}
	if t.Subtab == s {
		t.Subtab = SubtabNone
		return nil
	}
	if s == SubtabLog && !t.Server.Local {
		return ErrNotLocal
	}
	t.Subtab = s
	return nil
}
