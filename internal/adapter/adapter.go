package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotConnected  = errors.New("not connected to database")
	ErrCancelled     = errors.New("query cancelled")
	ErrNeedsPassword = errors.New("password required")
)

// DefaultPort is the PostgreSQL port used when none is given.
const DefaultPort = 5432

// Status is the health of a connection as last observed.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusBad
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBad:
		return "bad"
	default:
		return "unknown"
	}
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, p Params) (Connection, error)
}

// Connection is an open server connection used by exactly one tab.
type Connection interface {
	Execute(ctx context.Context, query string, args ...any) (*QueryResult, error)
	Cancel() error

	// Lifecycle
	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
	Status() Status
	Close() error

	// Info
	Host() string
	Port() int
	User() string
	DBName() string
}

// QueryResult holds the result of a query execution with every cell
// rendered as a string.
type QueryResult struct {
	Columns  []ColumnMeta
	Rows     [][]string
	RowCount int64
	Duration time.Duration
}

// ColumnNames returns the result's column names in order.
func (r *QueryResult) ColumnNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Value returns the first cell of the first row, or "" if there is none.
func (r *QueryResult) Value() string {
	if r == nil || len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return ""
	}
	return r.Rows[0][0]
}

// ColumnMeta holds metadata about a result column.
type ColumnMeta struct {
	Name string
	Type string
}

// Params are the connection settings of one tab.
type Params struct {
	Host     string
	Port     int
	User     string
	DBName   string
	Password string
}

// ConnString assembles a keyword/value connection string. Empty fields are
// left out so the driver falls back to its own defaults.
func (p Params) ConnString() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+quoteValue(v))
		}
	}
	add("host", p.Host)
	if p.Port > 0 {
		add("port", strconv.Itoa(p.Port))
	}
	add("user", p.User)
	add("dbname", p.DBName)
	add("password", p.Password)
	return strings.Join(parts, " ")
}

// String renders the parameters without the password.
func (p Params) String() string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}
	s := fmt.Sprintf("%s:%d", host, port)
	if p.User != "" {
		s = p.User + "@" + s
	}
	if p.DBName != "" {
		s += "/" + p.DBName
	}
	return s
}

// quoteValue quotes a connection string value when it contains spaces,
// quotes or backslashes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
