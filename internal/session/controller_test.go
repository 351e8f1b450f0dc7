package session

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/stat"
	"github.com/sadopc/pgtop/internal/view"
)

var ctx = context.Background()

// dbColumns mirrors the 17 columns of the databases view.
var dbColumns = []string{
	"database", "commits", "rollbacks", "reads", "hits", "returned", "fetched",
	"inserts", "updates", "deletes", "conflicts", "deadlocks", "temp_files",
	"temp_bytes", "read_t", "write_t", "stats_age",
}

func dbRow(name string, commits int) []string {
	row := make([]string, len(dbColumns))
	row[0] = name
	for j := 1; j < len(row)-1; j++ {
		row[j] = "0"
	}
	row[1] = strconv.Itoa(commits)
	row[len(row)-1] = "1 day"
	return row
}

func setup(t *testing.T, hosts ...string) (*Controller, map[string]*fakeConn) {
	t.Helper()
	if len(hosts) == 0 {
		hosts = []string{"db1"}
	}
	conns := make(map[string]*fakeConn)
	for _, h := range hosts {
		conns[h] = newFakeConn()
	}
	c := New(&fakeDialer{conns: conns}, nil)
	for i, h := range hosts {
		idx, err := c.OpenTab(adapter.Params{Host: h, User: "postgres"})
		require.NoError(t, err)
		require.Equal(t, i, idx)
		require.NoError(t, c.Connect(ctx, idx, ""))
	}
	return c, conns
}

// poll runs one tick with a fixed sample time.
func poll(t *testing.T, c *Controller, at time.Time) *Frame {
	t.Helper()
	req, ok := c.BeginPoll()
	require.True(t, ok, "tab should be able to poll")
	res := req.Run(ctx)
	res.At = at
	f, err := c.CompletePoll(res)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func TestConnect(t *testing.T) {
	c, _ := setup(t)
	tab := c.Current()
	require.NotNil(t, tab)
	assert.Equal(t, PollingFirst, tab.State)
	assert.Equal(t, testVersion, tab.Server.VersionNum)
	assert.Equal(t, 100, tab.Server.MaxConnections)
	assert.False(t, tab.Server.Local)
	assert.False(t, tab.Host.Available, "pg_read_file is denied by the fake")
	assert.Equal(t, 100, tab.Host.ClockTicks)
}

func TestConnect_NeedsPassword(t *testing.T) {
	d := &fakeDialer{conns: map[string]*fakeConn{"db1": newFakeConn()}, wantPassword: "s3cret"}
	c := New(d, nil)
	idx, err := c.OpenTab(adapter.Params{Host: "db1"})
	require.NoError(t, err)

	err = c.Connect(ctx, idx, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrNeedsPassword))
	assert.Equal(t, Disconnected, c.Tab(idx).State)
	assert.Equal(t, err, c.Tab(idx).LastErr)

	require.NoError(t, c.Connect(ctx, idx, "s3cret"))
	assert.Equal(t, PollingFirst, c.Tab(idx).State)
	assert.Equal(t, "s3cret", c.Tab(idx).Params.Password)
	assert.Nil(t, c.Tab(idx).LastErr)
}

func TestConnect_Refused(t *testing.T) {
	c := New(&fakeDialer{}, nil)
	idx, err := c.OpenTab(adapter.Params{Host: "nowhere"})
	require.NoError(t, err)
	assert.Error(t, c.Connect(ctx, idx, ""))
	assert.Equal(t, Disconnected, c.Tab(idx).State)

	_, ok := c.BeginPoll()
	assert.False(t, ok, "disconnected tab does not poll")
}

func TestFinishConnect_Stale(t *testing.T) {
	c, _ := setup(t)
	req, err := c.BeginConnect(0, "")
	require.NoError(t, err)
	res := req.Run(ctx)

	// A second attempt supersedes the first.
	_, err = c.BeginConnect(0, "")
	require.NoError(t, err)
	assert.ErrorIs(t, c.FinishConnect(res), ErrStale)
}

func TestOpenTab_NoFreeSlot(t *testing.T) {
	c := New(&fakeDialer{}, nil)
	for i := 0; i < MaxTabs; i++ {
		_, err := c.OpenTab(adapter.Params{Host: "h"})
		require.NoError(t, err)
	}
	_, err := c.OpenTab(adapter.Params{Host: "h"})
	assert.ErrorIs(t, err, ErrNoFreeSlot)
	assert.Equal(t, MaxTabs, c.Count())
}

func TestFirstPollRendersRaw(t *testing.T) {
	c, conns := setup(t)
	conns["db1"].setGrid(dbColumns, dbRow("app", 100), dbRow("postgres", 7))

	f := poll(t, c, time.Now())
	assert.Equal(t, stat.StatusFirst, f.Status)
	assert.Equal(t, view.Databases, f.View)
	require.Equal(t, 2, f.Grid.NumRows())
	// Sorted by commits descending, values untouched.
	assert.Equal(t, "app", f.Grid.Cell(0, 0))
	assert.Equal(t, "100", f.Grid.Cell(0, 1))
	assert.Equal(t, "7", f.Grid.Cell(1, 1))
	assert.Equal(t, PollingSteady, c.Current().State)
}

func TestSteadyPollDiffs(t *testing.T) {
	c, conns := setup(t)
	conn := conns["db1"]
	base := time.Now()

	conn.setGrid(dbColumns, dbRow("app", 100), dbRow("postgres", 10))
	poll(t, c, base)

	conn.setGrid(dbColumns, dbRow("app", 150), dbRow("postgres", 40))
	f := poll(t, c, base.Add(5*time.Second))

	assert.Equal(t, stat.StatusReady, f.Status)
	assert.EqualValues(t, 5, f.Elapsed)
	assert.Equal(t, "10", f.Grid.Cell(0, 1), "(150-100)/5")
	assert.Equal(t, "6", f.Grid.Cell(1, 1), "(40-10)/5")
	assert.Equal(t, "1 day", f.Grid.Cell(0, 16), "outside the diff range")

	// The next tick diffs against the adopted snapshot.
	conn.setGrid(dbColumns, dbRow("app", 160), dbRow("postgres", 40))
	f = poll(t, c, base.Add(6*time.Second))
	assert.Equal(t, "10", f.Grid.Cell(0, 1))
	assert.Equal(t, "0", f.Grid.Cell(1, 1))
}

func TestRowGrowthResyncs(t *testing.T) {
	c, conns := setup(t)
	conn := conns["db1"]
	base := time.Now()

	conn.setGrid(dbColumns, dbRow("app", 100))
	poll(t, c, base)

	conn.setGrid(dbColumns, dbRow("app", 200), dbRow("new", 50))
	f := poll(t, c, base.Add(time.Second))
	assert.Equal(t, stat.StatusResync, f.Status)
	assert.Equal(t, "200", f.Grid.Cell(0, 1), "resync renders raw")

	conn.setGrid(dbColumns, dbRow("app", 210), dbRow("new", 50))
	f = poll(t, c, base.Add(2*time.Second))
	assert.Equal(t, stat.StatusReady, f.Status)
	assert.Equal(t, "10", f.Grid.Cell(0, 1))
}

func TestElapsedFloor(t *testing.T) {
	c, conns := setup(t)
	conn := conns["db1"]
	base := time.Now()

	conn.setGrid(dbColumns, dbRow("app", 100))
	poll(t, c, base)
	conn.setGrid(dbColumns, dbRow("app", 103))
	f := poll(t, c, base.Add(100*time.Millisecond))
	assert.EqualValues(t, 1, f.Elapsed)
	assert.Equal(t, "3", f.Grid.Cell(0, 1))
}

func TestSortAndFilterApplied(t *testing.T) {
	c, conns := setup(t)
	conns["db1"].setGrid(dbColumns, dbRow("postgres", 9), dbRow("app", 10), dbRow("template1", 1))

	require.NoError(t, c.ToggleOrder())
	f := poll(t, c, time.Now())
	assert.False(t, f.Desc)
	assert.Equal(t, "template1", f.Grid.Cell(0, 0))

	require.NoError(t, c.SetFilter(0, "post"))
	f = poll(t, c, time.Now().Add(time.Second))
	require.Equal(t, 1, f.Grid.NumRows())
	assert.Equal(t, "postgres", f.Grid.Cell(0, 0))
	assert.Equal(t, "post", f.Filters[0])

	require.NoError(t, c.ClearFilters())
	f = poll(t, c, time.Now().Add(2*time.Second))
	assert.Equal(t, 3, f.Grid.NumRows())
}

func TestSwitchViewDropsStaleResult(t *testing.T) {
	c, conns := setup(t)
	conns["db1"].setGrid(dbColumns, dbRow("app", 1))
	poll(t, c, time.Now())

	req, ok := c.BeginPoll()
	require.True(t, ok)
	_, ok = c.BeginPoll()
	assert.False(t, ok, "one poll at a time per connection")

	res := req.Run(ctx)
	require.NoError(t, c.SwitchView(view.Tables))
	assert.Equal(t, PollingFirst, c.Current().State)

	_, err := c.CompletePoll(res)
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, c.Current().Inflight())

	conns["db1"].setGrid([]string{"relation"}, []string{"public.t"})
	f := poll(t, c, time.Now())
	assert.Equal(t, view.Tables, f.View)
	assert.Equal(t, stat.StatusFirst, f.Status)
}

func TestSwitchView_Unknown(t *testing.T) {
	c, _ := setup(t)
	assert.ErrorIs(t, c.SwitchView(view.ID(99)), view.ErrUnknownView)
}

func TestQueryErrorIsInline(t *testing.T) {
	c, conns := setup(t)
	conn := conns["db1"]
	conn.onQuery = func(string, []any) (*adapter.QueryResult, error) {
		return nil, errors.New("relation does not exist")
	}

	f := poll(t, c, time.Now())
	require.Error(t, f.Err)
	assert.Nil(t, f.Grid)
	assert.Equal(t, PollingFirst, c.Current().State, "a query error does not advance the state")
	assert.Equal(t, f.Err, c.Current().LastErr)
}

func TestReconnect(t *testing.T) {
	c, conns := setup(t)
	conn := conns["db1"]
	base := time.Now()
	conn.setGrid(dbColumns, dbRow("app", 100))
	poll(t, c, base)

	conn.onQuery = func(string, []any) (*adapter.QueryResult, error) {
		conn.status = adapter.StatusBad
		return nil, errors.New("connection reset by peer")
	}
	f := poll(t, c, base.Add(time.Second))
	require.Error(t, f.Err)
	assert.Equal(t, Reconnecting, c.Current().State)

	conn.onQuery = nil
	conn.resetErr = errors.New("still down")
	f = poll(t, c, base.Add(2*time.Second))
	require.Error(t, f.Err)
	assert.Equal(t, 1, conn.resets)
	assert.Equal(t, Reconnecting, c.Current().State)

	conn.resetErr = nil
	conn.setGrid(dbColumns, dbRow("app", 500))
	f = poll(t, c, base.Add(3*time.Second))
	require.NoError(t, f.Err)
	assert.Equal(t, 2, conn.resets)
	assert.Equal(t, stat.StatusFirst, f.Status, "first frame after reconnect is raw")
	assert.Equal(t, "500", f.Grid.Cell(0, 1))
	assert.Equal(t, PollingSteady, c.Current().State)
}

func TestCloseTab(t *testing.T) {
	c, conns := setup(t, "db1", "db2", "db3")
	require.NoError(t, c.SwitchTab(2))

	require.NoError(t, c.CloseTab(1))
	assert.Equal(t, 2, c.Count())
	assert.True(t, conns["db2"].closed)
	assert.Equal(t, "db3", c.Tab(1).Params.Host, "higher tab shifted down")
	assert.Equal(t, 1, c.Tab(1).Index)
	assert.Nil(t, c.Tab(2), "top slot cleared")
	assert.Equal(t, 1, c.CurrentIndex(), "foreground follows the shifted tab")
	assert.Equal(t, "db3", c.Current().Params.Host)

	require.NoError(t, c.CloseTab(1))
	assert.Equal(t, 0, c.CurrentIndex())
	assert.ErrorIs(t, c.CloseTab(0), ErrLastTab)
	assert.Equal(t, 1, c.Count())
	assert.ErrorIs(t, c.CloseTab(5), ErrNoTab)
}

func TestCloseTab_InflightDrains(t *testing.T) {
	c, conns := setup(t, "db1", "db2")
	conns["db1"].setGrid(dbColumns, dbRow("app", 1))

	req, ok := c.BeginPoll()
	require.True(t, ok)
	require.NoError(t, c.CloseTab(0))
	assert.True(t, conns["db1"].canceled)
	assert.False(t, conns["db1"].closed, "closed once the poll returns")

	_, err := c.CompletePoll(req.Run(ctx))
	assert.ErrorIs(t, err, ErrStale)
	assert.True(t, conns["db1"].closed)
}

func TestSwitchTabAndCycle(t *testing.T) {
	c, conns := setup(t, "db1", "db2")
	conns["db1"].setGrid(dbColumns, dbRow("app", 1))
	poll(t, c, time.Now())

	require.NoError(t, c.CycleTab(1))
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, PollingFirst, c.Current().State)
	require.NoError(t, c.CycleTab(1))
	assert.Equal(t, 0, c.CurrentIndex())
	require.NoError(t, c.CycleTab(-1))
	assert.Equal(t, 1, c.CurrentIndex())
	assert.ErrorIs(t, c.SwitchTab(4), ErrNoTab)
}

func TestCycleSort(t *testing.T) {
	c, _ := setup(t)
	require.NoError(t, c.SwitchView(view.Activity))
	vs := c.Current().ViewState(view.Activity)
	assert.Equal(t, stat.NoSort, vs.SortKey, "activity keeps server order")

	require.NoError(t, c.CycleSort(1))
	assert.Equal(t, 0, vs.SortKey)
	require.NoError(t, c.CycleSort(-1))
	assert.Equal(t, 8, vs.SortKey, "wraps to the last sortable column")
	require.NoError(t, c.CycleSort(1))
	assert.Equal(t, 0, vs.SortKey)

	require.NoError(t, c.SwitchView(view.Vacuum))
	require.NoError(t, c.CycleSort(1))
	assert.Equal(t, stat.NoSort, c.Current().ViewState(view.Vacuum).SortKey, "vacuum is never sorted")
}

func TestMinAgeAndSignals(t *testing.T) {
	c, conns := setup(t)
	require.NoError(t, c.SwitchView(view.Activity))
	assert.ErrorIs(t, c.SetMinAge("5 minutes"), view.ErrBadMinAge)
	require.NoError(t, c.SetMinAge("00:05:00"))

	conns["db1"].setGrid([]string{"pid"}, []string{"42"})
	poll(t, c, time.Now())
	_, args := conns["db1"].lastQuery()
	assert.Equal(t, []any{"00:05:00"}, args)

	require.NoError(t, c.SetSignals("ix"))
	assert.Equal(t, "ix", c.Current().Signals.String())
	assert.Error(t, c.SetSignals("z"))
}

func TestSummaryTPS(t *testing.T) {
	c, conns := setup(t)
	conn := conns["db1"]
	base := time.Now()
	conn.setGrid(dbColumns, dbRow("app", 1))

	conn.xacts = 1000
	f := poll(t, c, base)
	require.True(t, f.Summary.Valid)
	assert.Equal(t, 10, f.Summary.Total)
	assert.Equal(t, 3, f.Summary.Active)
	assert.Zero(t, f.Summary.TPS)

	conn.xacts = 1500
	f = poll(t, c, base.Add(5*time.Second))
	assert.EqualValues(t, 100, f.Summary.TPS)
}

func TestToggleSubtab(t *testing.T) {
	c, _ := setup(t)
	assert.ErrorIs(t, c.ToggleSubtab(SubtabLog), ErrNotLocal)
	require.NoError(t, c.ToggleSubtab(SubtabDisk))
	assert.Equal(t, SubtabDisk, c.Current().Subtab)
	require.NoError(t, c.ToggleSubtab(SubtabDisk))
	assert.Equal(t, SubtabNone, c.Current().Subtab)
}

func TestToggleSystemRestarts(t *testing.T) {
	c, conns := setup(t)
	conns["db1"].setGrid(dbColumns, dbRow("app", 1))
	poll(t, c, time.Now())

	require.NoError(t, c.ToggleSystem())
	assert.True(t, c.Current().ShowSystem)
	assert.Equal(t, PollingFirst, c.Current().State)
}

func TestTick(t *testing.T) {
	c, conns := setup(t)
	conns["db1"].setGrid(dbColumns, dbRow("app", 1))
	f, err := c.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, stat.StatusFirst, f.Status)

	empty := New(&fakeDialer{}, nil)
	f, err = empty.Tick(ctx)
	assert.NoError(t, err)
	assert.Nil(t, f)
}

func TestClose(t *testing.T) {
	c, conns := setup(t, "db1", "db2")
	c.Close()
	assert.True(t, conns["db1"].closed)
	assert.True(t, conns["db2"].closed)
}
