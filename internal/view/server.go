package view

import (
	"errors"
	"fmt"
	"strings"
)

// ServerInfoQuery returns one row describing the server: version string,
// version number, recovery flag, connection and worker limits, and whether
// the client runs on the server's host.
const ServerInfoQuery = `SELECT current_setting('server_version') AS version,
    current_setting('server_version_num')::int AS version_num,
    pg_is_in_recovery() AS recovery,
    current_setting('max_connections')::int AS max_connections,
    current_setting('autovacuum_max_workers')::int AS max_autovacuum_workers,
    current_setting('max_prepared_transactions')::int AS max_prepared_xacts,
    COALESCE(inet_client_addr() = inet_server_addr(), TRUE)
      OR (inet_server_addr() << '127.0.0.0/8' AND inet_client_addr() << '127.0.0.0/8') AS local,
    date_trunc('seconds', now() - pg_postmaster_start_time())::text AS uptime`

// Column positions of ServerInfoQuery.
const (
	InfoVersion = iota
	InfoVersionNum
	InfoRecovery
	InfoMaxConnections
	InfoMaxAutovacuum
	InfoMaxPrepared
	InfoLocal
	InfoUptime
)

const summaryQuery = `SELECT count(*) AS total,
    count(*) FILTER (WHERE state = 'idle') AS idle,
    count(*) FILTER (WHERE state IN ('idle in transaction', 'idle in transaction (aborted)')) AS idle_xact,
    count(*) FILTER (WHERE state = 'active') AS active,
    count(*) FILTER (WHERE %s) AS waiting,
    count(*) FILTER (WHERE state IS NULL OR state NOT IN ('idle', 'idle in transaction', 'idle in transaction (aborted)', 'active')) AS other,
    (SELECT count(*) FROM pg_stat_activity WHERE %s) AS autovacuum,
    coalesce(date_trunc('seconds', max(clock_timestamp() - xact_start))::text, '00:00:00') AS xact_maxtime,
    coalesce(date_trunc('seconds', max(clock_timestamp() - query_start) FILTER (WHERE state = 'active'))::text, '00:00:00') AS query_maxtime,
    (SELECT count(*) FROM pg_prepared_xacts) AS prepared,
    (SELECT coalesce(sum(xact_commit + xact_rollback), 0)::bigint FROM pg_stat_database) AS xacts,
    date_trunc('seconds', now() - pg_postmaster_start_time())::text AS uptime
  FROM pg_stat_activity
  WHERE pid <> pg_backend_pid()%s`

// Column positions of the summary query.
const (
	SumTotal = iota
	SumIdle
	SumIdleXact
	SumActive
	SumWaiting
	SumOther
	SumAutovacuum
	SumXactMaxTime
	SumQueryMaxTime
	SumPrepared
	SumXacts
	SumUptime
)

// SummaryQuery returns the connection and transaction summary shown in the
// header for the given server version.
func SummaryQuery(version int) string {
	switch {
	case version >= pgv10:
		return fmt.Sprintf(summaryQuery, "wait_event_type = 'Lock'", "backend_type = 'autovacuum worker'", clientOnly10)
	case version >= pgv96:
		return fmt.Sprintf(summaryQuery, "wait_event_type = 'Lock'", "query ~* '^autovacuum:'", "")
	default:
		return fmt.Sprintf(summaryQuery, "waiting", "query ~* '^autovacuum:'", "")
	}
}

// Signal is a backend signalling function.
type Signal int

const (
	Cancel Signal = iota
	Terminate
)

func (s Signal) String() string {
	if s == Terminate {
		return "terminate"
	}
	return "cancel"
}

func (s Signal) function() string {
	if s == Terminate {
		return "pg_terminate_backend"
	}
	return "pg_cancel_backend"
}

// BackendClass groups backends for bulk signalling.
type BackendClass int

const (
	ClassActive BackendClass = iota
	ClassIdle
	ClassIdleXact
	ClassWaiting
	ClassOther
)

// ErrNoClasses is returned when a group signal selects no backends.
var ErrNoClasses = errors.New("signal mask is empty")

// SignalQuery signals one backend given as $1.
func SignalQuery(sig Signal) string {
	return fmt.Sprintf("SELECT %s($1::int)", sig.function())
}

// GroupSignalQuery signals every backend in one of classes whose
// transaction or query is older than $1. It returns the number of
// backends signalled.
func GroupSignalQuery(version int, sig Signal, classes []BackendClass) (string, error) {
	if len(classes) == 0 {
		return "", ErrNoClasses
	}
	conds := make([]string, 0, len(classes))
	for _, c := range classes {
		switch c {
		case ClassActive:
			conds = append(conds, "state = 'active'")
		case ClassIdle:
			conds = append(conds, "state = 'idle'")
		case ClassIdleXact:
			conds = append(conds, "state IN ('idle in transaction', 'idle in transaction (aborted)')")
		case ClassWaiting:
			if version >= pgv96 {
				conds = append(conds, "wait_event_type = 'Lock'")
			} else {
				conds = append(conds, "waiting")
			}
		case ClassOther:
			conds = append(conds, "state IN ('fastpath function call', 'disabled')")
		}
	}
	extra := ""
	if version >= pgv10 {
		extra = clientOnly10
	}
	return fmt.Sprintf(`SELECT count(%s(pid))
  FROM pg_stat_activity
  WHERE pid <> pg_backend_pid()
    AND (%s)
    AND clock_timestamp() - coalesce(xact_start, query_start) > $1::interval%s`,
		sig.function(), strings.Join(conds, " OR "), extra), nil
}

// Operator actions.
const (
	ResetStatsQuery      = `SELECT pg_stat_reset()`
	ResetStatementsQuery = `SELECT pg_stat_statements_reset()`
	ReloadConfQuery      = `SELECT pg_reload_conf()`
	StatementsInstalled  = `SELECT count(*) FROM pg_extension WHERE extname = 'pg_stat_statements'`
	DataDirectoryQuery   = `SELECT current_setting('data_directory')`
)

// ConfigFileQuery returns the path of a server configuration file. name is
// one of config_file, hba_file or ident_file.
func ConfigFileQuery(name string) (string, error) {
	switch name {
	case "config_file", "hba_file", "ident_file":
		return fmt.Sprintf("SELECT current_setting('%s')", name), nil
	}
	return "", fmt.Errorf("unknown configuration file %q", name)
}

// LogFileQuery returns the query locating the current server log file.
// Before 10 the path is built from log_directory and log_filename, which
// only works for logs without time based rotation patterns.
func LogFileQuery(version int) string {
	if version >= pgv10 {
		return `SELECT coalesce(pg_current_logfile(), '')`
	}
	return `SELECT current_setting('log_directory') || '/' || current_setting('log_filename')`
}
