// Package postgres implements the adapter interfaces on top of pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sadopc/pgtop/internal/adapter"
)

// SQLSTATE codes that mean the server wants a (different) password.
const (
	codeInvalidPassword      = "28P01"
	codeInvalidAuthorization = "28000"
)

// Dialer opens single pgx connections. Each tab owns one connection, so no
// pool is involved.
type Dialer struct {
	ConnectTimeout time.Duration
}

// Dial connects using p.
func (d Dialer) Dial(ctx context.Context, p adapter.Params) (adapter.Connection, error) {
	return d.DialString(ctx, p.ConnString())
}

// DialString connects using a libpq style connection string or URL.
func (d Dialer) DialString(ctx context.Context, connString string) (adapter.Connection, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if d.ConnectTimeout > 0 {
		cfg.ConnectTimeout = d.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, classifyConnectError(err)
	}
	return &pgConn{conn: conn, cfg: cfg}, nil
}

// classifyConnectError maps authentication failures to
// adapter.ErrNeedsPassword and wraps everything else.
func classifyConnectError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidPassword:
			return fmt.Errorf("%w: %s", adapter.ErrNeedsPassword, pgErr.Message)
		case codeInvalidAuthorization:
			if strings.Contains(pgErr.Message, "password") {
				return fmt.Errorf("%w: %s", adapter.ErrNeedsPassword, pgErr.Message)
			}
		}
	}
	return fmt.Errorf("postgres connect: %w", err)
}

// pgConn implements adapter.Connection.
type pgConn struct {
	mu       sync.Mutex
	conn     *pgx.Conn
	cfg      *pgx.ConnConfig
	cancelFn context.CancelFunc
}

func (c *pgConn) Host() string   { return c.cfg.Host }
func (c *pgConn) Port() int      { return int(c.cfg.Port) }
func (c *pgConn) User() string   { return c.cfg.User }
func (c *pgConn) DBName() string { return c.cfg.Database }

func (c *pgConn) current() *pgx.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *pgConn) Ping(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return adapter.ErrNotConnected
	}
	return conn.Ping(ctx)
}

// Status reports StatusBad once the underlying connection has been closed
// by a fatal error or Close.
func (c *pgConn) Status() adapter.Status {
	conn := c.current()
	if conn == nil || conn.IsClosed() {
		return adapter.StatusBad
	}
	return adapter.StatusOK
}

// Reset drops the current connection and dials again with the same
// configuration.
func (c *pgConn) Reset(ctx context.Context) error {
	c.mu.Lock()
	old := c.conn
	c.conn = nil
	c.mu.Unlock()

	if old != nil {
		closeCtx, cancel := context.WithTimeout(ctx, time.Second)
		_ = old.Close(closeCtx)
		cancel()
	}

	conn, err := pgx.ConnectConfig(ctx, c.cfg.Copy())
	if err != nil {
		return classifyConnectError(err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *pgConn) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return conn.Close(ctx)
}

// Cancel cancels the currently running query, if any.
func (c *pgConn) Cancel() error {
	c.mu.Lock()
	fn := c.cancelFn
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (c *pgConn) setCancel(fn context.CancelFunc) {
	c.mu.Lock()
	c.cancelFn = fn
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Query Execution
// ---------------------------------------------------------------------------

// Execute runs query and renders every cell as a string.
func (c *pgConn) Execute(ctx context.Context, query string, args ...any) (*adapter.QueryResult, error) {
	conn := c.current()
	if conn == nil {
		return nil, adapter.ErrNotConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	c.setCancel(cancel)
	defer func() {
		c.setCancel(nil)
		cancel()
	}()

	start := time.Now()
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols := fieldDescToMeta(rows.FieldDescriptions())

	var result [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("execute values: %w", err)
		}
		result = append(result, valuesToStrings(vals))
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute rows: %w", err)
	}

	return &adapter.QueryResult{
		Columns:  cols,
		Rows:     result,
		RowCount: int64(len(result)),
		Duration: time.Since(start),
	}, nil
}

// ErrorMessage extracts the server's message from err when it carries one,
// so inline errors read like psql output.
func ErrorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Hint != "" {
			return fmt.Sprintf("%s: %s (%s)", pgErr.Severity, pgErr.Message, pgErr.Hint)
		}
		return fmt.Sprintf("%s: %s", pgErr.Severity, pgErr.Message)
	}
	return err.Error()
}

// fieldDescToMeta converts pgx field descriptions to adapter ColumnMeta.
func fieldDescToMeta(fds []pgconn.FieldDescription) []adapter.ColumnMeta {
	cols := make([]adapter.ColumnMeta, len(fds))
	for i, fd := range fds {
		cols[i] = adapter.ColumnMeta{
			Name: fd.Name,
			Type: pgTypeOIDToName(fd.DataTypeOID),
		}
	}
	return cols
}

// valuesToStrings converts a row of decoded values to strings.
func valuesToStrings(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = valueToString(v)
	}
	return out
}

// valueToString renders a single decoded value the way psql would show it
// for the types the statistics views return.
func valueToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case time.Duration:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int16, int32, int64, uint32:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case pgtype.Numeric:
		if !val.Valid {
			return ""
		}
		if f, err := val.Float64Value(); err == nil && f.Valid {
			return trimFloat(f.Float64)
		}
		return ""
	case pgtype.Interval:
		return formatInterval(val)
	case []string:
		return "{" + strings.Join(val, ",") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// trimFloat prints f without exponent and without trailing zeros.
func trimFloat(f float64) string {
	s := fmt.Sprintf("%f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// formatInterval renders an interval as [N days ]HH:MM:SS.
func formatInterval(iv pgtype.Interval) string {
	if !iv.Valid {
		return ""
	}
	us := iv.Microseconds
	sign := ""
	if us < 0 {
		sign = "-"
		us = -us
	}
	secs := us / 1_000_000
	clock := fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, secs/60%60, secs%60)
	days := int(iv.Days) + int(iv.Months)*30
	if days != 0 {
		return fmt.Sprintf("%d days %s", days, clock)
	}
	return clock
}

// pgTypeOIDToName maps the type OIDs seen in statistics views to names.
func pgTypeOIDToName(oid uint32) string {
	switch oid {
	case pgtype.BoolOID:
		return "bool"
	case pgtype.Int8OID:
		return "int8"
	case pgtype.Int2OID:
		return "int2"
	case pgtype.Int4OID:
		return "int4"
	case pgtype.TextOID:
		return "text"
	case pgtype.OIDOID:
		return "oid"
	case pgtype.NameOID:
		return "name"
	case pgtype.Float4OID:
		return "float4"
	case pgtype.Float8OID:
		return "float8"
	case pgtype.VarcharOID:
		return "varchar"
	case pgtype.TimestamptzOID:
		return "timestamptz"
	case pgtype.IntervalOID:
		return "interval"
	case pgtype.NumericOID:
		return "numeric"
	case pgtype.InetOID:
		return "inet"
	default:
		return fmt.Sprintf("oid:%d", oid)
	}
}
