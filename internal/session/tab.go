package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/stat"
	"github.com/sadopc/pgtop/internal/sysstat"
	"github.com/sadopc/pgtop/internal/view"
)

// MaxTabs is the number of tab slots.
const MaxTabs = 8

// ServerInfo describes the server behind a tab. It is fetched on connect
// and reconnect.
type ServerInfo struct {
	Version              string
	VersionNum           int
	InRecovery           bool
	MaxConnections       int
	MaxAutovacuumWorkers int
	MaxPreparedXacts     int
	Local                bool
}

func serverInfoFromRow(row []string) ServerInfo {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	atoi := func(i int) int {
		n, _ := strconv.Atoi(cell(i))
		return n
	}
	return ServerInfo{
		Version:              cell(view.InfoVersion),
		VersionNum:           atoi(view.InfoVersionNum),
		InRecovery:           cell(view.InfoRecovery) == "true",
		MaxConnections:       atoi(view.InfoMaxConnections),
		MaxAutovacuumWorkers: atoi(view.InfoMaxAutovacuum),
		MaxPreparedXacts:     atoi(view.InfoMaxPrepared),
		Local:                cell(view.InfoLocal) == "true",
	}
}

// HostInfo describes the host the server runs on, as far as it can be
// read. Device and interface counts size the subtab buffers.
type HostInfo struct {
	ClockTicks int
	Devices    int
	Interfaces int
	// Available is false when neither local nor remote proc files can be
	// read.
	Available bool
}

// ViewState is the per-view display state of a tab.
type ViewState struct {
	SortKey int
	Desc    bool
	Filters stat.Filters
}

// Subtab is the auxiliary panel shown below the grid.
type Subtab int

const (
	SubtabNone Subtab = iota
	SubtabLog
	SubtabDisk
	SubtabNet
)

func (s Subtab) String() string {
	switch s {
	case SubtabLog:
		return "log"
	case SubtabDisk:
		return "disk"
	case SubtabNet:
		return "net"
	default:
		return "none"
	}
}

// LogTailLines is how many log lines the log subtab keeps.
const LogTailLines = 15

// Tab is one monitored connection slot.
type Tab struct {
	Index  int
	Params adapter.Params
	Used   bool
	State  State

	Server ServerInfo
	Host   HostInfo

	Views      map[view.ID]*ViewState
	Current    view.ID
	MinAge     string
	Signals    SignalMask
	ShowSystem bool
	Subtab     Subtab
	// LogPath is the resolved server log file, set when the log subtab is
	// opened on a local server.
	LogPath string

	// Gen changes whenever an in-flight result must be dropped.
	Gen     uint64
	LastErr error

	id       uint64
	conn     adapter.Connection
	execMu   *sync.Mutex
	inflight bool
	store    stat.Store
	lastPoll time.Time

	prevHost  *sysstat.Snapshot
	prevXacts int64
	prevXAt   time.Time
}

// ID is the stable identity of the tab; Index changes when lower tabs
// close.
func (t *Tab) ID() uint64 { return t.id }

// Conn returns the tab's connection, nil when disconnected.
func (t *Tab) Conn() adapter.Connection { return t.conn }

// Inflight reports whether a poll is running on the tab's connection.
func (t *Tab) Inflight() bool { return t.inflight }

// ViewState returns the display state of id, creating it with the view's
// defaults.
func (t *Tab) ViewState(id view.ID) *ViewState {
	if t.Views == nil {
		t.Views = make(map[view.ID]*ViewState)
	}
	if vs, ok := t.Views[id]; ok {
		return vs
	}
	vs := &ViewState{SortKey: stat.NoSort, Filters: stat.Filters{}}
	if v, err := view.Get(id); err == nil {
		vs.SortKey = v.DefaultSort
		vs.Desc = v.DefaultDesc
	}
	t.Views[id] = vs
	return vs
}

// Options returns the view options derived from the tab's switches.
func (t *Tab) Options() view.Options {
	return view.Options{ShowSystem: t.ShowSystem, MinAge: t.MinAge}
}

// source picks where host metrics come from.
func (t *Tab) source() sysstat.Source {
	if t.Server.Local {
		return sysstat.LocalSource{}
	}
	return sysstat.RemoteSource{Conn: t.conn}
}

// restart drops snapshots so the next poll starts over.
func (t *Tab) restart() {
	t.store.Reset()
	t.prevHost = nil
	t.prevXacts = 0
	t.prevXAt = time.Time{}
	t.lastPoll = time.Time{}
	t.Gen++
	if t.State.Live() {
		t.State = PollingFirst
	}
}
