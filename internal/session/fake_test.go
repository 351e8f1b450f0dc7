package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/view"
)

const testVersion = 160002

// fakeConn answers the metadata queries itself and everything else from
// the grid or the onQuery hook.
type fakeConn struct {
	mu      sync.Mutex
	params  adapter.Params
	status  adapter.Status
	local   bool
	columns []string
	rows    [][]string
	xacts   int64
	onQuery func(query string, args []any) (*adapter.QueryResult, error)

	queries  []string
	args     [][]any
	resets   int
	resetErr error
	closed   bool
	canceled bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{status: adapter.StatusOK}
}

func result(columns []string, rows ...[]string) *adapter.QueryResult {
	meta := make([]adapter.ColumnMeta, len(columns))
	for i, c := range columns {
		meta[i] = adapter.ColumnMeta{Name: c}
	}
	return &adapter.QueryResult{Columns: meta, Rows: rows, RowCount: int64(len(rows))}
}

func (c *fakeConn) setGrid(columns []string, rows ...[]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.columns = columns
	c.rows = rows
}

func (c *fakeConn) Execute(_ context.Context, query string, args ...any) (*adapter.QueryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)

	switch {
	case query == view.ServerInfoQuery:
		return result([]string{"version", "version_num", "recovery", "max_connections", "max_autovacuum_workers", "max_prepared_xacts", "local", "uptime"},
			[]string{"16.2", strconv.Itoa(testVersion), "false", "100", "3", "0", strconv.FormatBool(c.local), "01:00:00"}), nil
	case strings.HasPrefix(query, "SELECT pg_read_file"):
		return nil, errors.New("permission denied for function pg_read_file")
	case query == view.SummaryQuery(testVersion):
		row := []string{"10", "5", "1", "3", "0", "1", "1", "00:00:05", "00:00:02", "0", strconv.FormatInt(c.xacts, 10), "01:00:00"}
		return result(make([]string, len(row)), row), nil
	}
	if c.onQuery != nil {
		return c.onQuery(query, args)
	}
	return result(c.columns, c.rows...), nil
}

func (c *fakeConn) lastQuery() (string, []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.queries) - 1; i >= 0; i-- {
		if c.queries[i] != view.SummaryQuery(testVersion) {
			return c.queries[i], c.args[i]
		}
	}
	return "", nil
}

func (c *fakeConn) Cancel() error {
	c.canceled = true
	return nil
}

func (c *fakeConn) Ping(context.Context) error { return nil }

func (c *fakeConn) Reset(context.Context) error {
	c.resets++
	if c.resetErr != nil {
		return c.resetErr
	}
	c.status = adapter.StatusOK
	return nil
}

func (c *fakeConn) Status() adapter.Status { return c.status }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) Host() string   { return c.params.Host }
func (c *fakeConn) Port() int      { return c.params.Port }
func (c *fakeConn) User() string   { return c.params.User }
func (c *fakeConn) DBName() string { return c.params.DBName }

// fakeDialer hands out prepared connections per host and can insist on a
// password.
type fakeDialer struct {
	conns        map[string]*fakeConn
	wantPassword string
	dials        int
}

func (d *fakeDialer) Dial(_ context.Context, p adapter.Params) (adapter.Connection, error) {
	d.dials++
	if d.wantPassword != "" && p.Password != d.wantPassword {
		return nil, adapter.ErrNeedsPassword
	}
	c, ok := d.conns[p.Host]
	if !ok {
		return nil, errors.New("connection refused")
	}
	c.params = p
	return c, nil
}
