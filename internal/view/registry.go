package view

import (
	"fmt"

	"github.com/sadopc/pgtop/internal/stat"
)

const databasesQuery = `SELECT datname AS database,
    xact_commit AS commits, xact_rollback AS rollbacks,
    blks_read AS reads, blks_hit AS hits,
    tup_returned AS returned, tup_fetched AS fetched,
    tup_inserted AS inserts, tup_updated AS updates, tup_deleted AS deletes,
    conflicts, deadlocks, temp_files, temp_bytes,
    round(blk_read_time)::bigint AS read_t, round(blk_write_time)::bigint AS write_t,
    coalesce(date_trunc('seconds', now() - stats_reset)::text, '') AS stats_age
  FROM pg_stat_database
  WHERE datname IS NOT NULL
  ORDER BY datname`

const replicationQuery94 = `SELECT pid, coalesce(host(client_addr), 'local') AS client,
    usename AS user, application_name AS name, state, sync_state AS mode,
    pg_xlog_location_diff(pg_current_xlog_location(), sent_location)::bigint AS pending,
    pg_xlog_location_diff(sent_location, write_location)::bigint AS write,
    pg_xlog_location_diff(write_location, flush_location)::bigint AS flush,
    pg_xlog_location_diff(flush_location, replay_location)::bigint AS replay,
    pg_xlog_location_diff(pg_current_xlog_location(), replay_location)::bigint AS total_lag
  FROM pg_stat_replication
  ORDER BY pid`

const replicationQuery10 = `SELECT pid, coalesce(host(client_addr), 'local') AS client,
    usename AS user, application_name AS name, state, sync_state AS mode,
    pg_wal_lsn_diff(pg_current_wal_lsn(), sent_lsn)::bigint AS pending,
    pg_wal_lsn_diff(sent_lsn, write_lsn)::bigint AS write,
    pg_wal_lsn_diff(write_lsn, flush_lsn)::bigint AS flush,
    pg_wal_lsn_diff(flush_lsn, replay_lsn)::bigint AS replay,
    pg_wal_lsn_diff(pg_current_wal_lsn(), replay_lsn)::bigint AS total_lag,
    coalesce(date_trunc('milliseconds', write_lag)::text, '') AS write_lag,
    coalesce(date_trunc('milliseconds', flush_lag)::text, '') AS flush_lag,
    coalesce(date_trunc('milliseconds', replay_lag)::text, '') AS replay_lag
  FROM pg_stat_replication
  ORDER BY pid`

const tablesQuery = `SELECT schemaname || '.' || relname AS relation,
    seq_scan, seq_tup_read, coalesce(idx_scan, 0) AS idx_scan,
    coalesce(idx_tup_fetch, 0) AS idx_tup_fetch,
    n_tup_ins AS inserts, n_tup_upd AS updates, n_tup_del AS deletes,
    n_tup_hot_upd AS hot_updates, n_live_tup AS live, n_dead_tup AS dead
  FROM %s
  ORDER BY relid`

const tablesIOQuery = `SELECT schemaname || '.' || relname AS relation,
    coalesce(heap_blks_read, 0) AS heap_read, coalesce(heap_blks_hit, 0) AS heap_hit,
    coalesce(idx_blks_read, 0) AS idx_read, coalesce(idx_blks_hit, 0) AS idx_hit,
    coalesce(toast_blks_read, 0) AS toast_read, coalesce(toast_blks_hit, 0) AS toast_hit,
    coalesce(tidx_blks_read, 0) AS tidx_read, coalesce(tidx_blks_hit, 0) AS tidx_hit
  FROM %s
  ORDER BY relid`

const indexesQuery = `SELECT s.schemaname || '.' || s.relname || '.' || s.indexrelname AS index_name,
    s.idx_scan, s.idx_tup_read, s.idx_tup_fetch,
    coalesce(i.idx_blks_read, 0) AS blks_read, coalesce(i.idx_blks_hit, 0) AS blks_hit
  FROM %s s
  JOIN %s i ON i.indexrelid = s.indexrelid
  ORDER BY s.indexrelid`

const sizesQuery = `SELECT n.nspname || '.' || c.relname AS relation,
    pg_total_relation_size(c.oid) / 1024 AS total_kb,
    pg_relation_size(c.oid) / 1024 AS rel_kb,
    (pg_total_relation_size(c.oid) - pg_relation_size(c.oid)) / 1024 AS idx_kb,
    pg_total_relation_size(c.oid) AS total_change,
    pg_relation_size(c.oid) AS rel_change,
    pg_total_relation_size(c.oid) - pg_relation_size(c.oid) AS idx_change
  FROM pg_class c
  JOIN pg_namespace n ON n.oid = c.relnamespace
  WHERE c.relkind IN ('r', 'm')%s
  ORDER BY c.oid`

const userSchemas = `
    AND n.nspname NOT IN ('pg_catalog', 'information_schema')
    AND n.nspname !~ '^pg_toast'`

const functionsQuery = `SELECT funcid, schemaname || '.' || funcname AS function,
    calls, round(total_time)::bigint AS total_t, round(self_time)::bigint AS self_t,
    round(total_time / greatest(calls, 1))::bigint AS avg_t,
    round(self_time / greatest(calls, 1))::bigint AS avg_self_t
  FROM pg_stat_user_functions
  ORDER BY funcid`

const activityQuery = `SELECT pid, coalesce(host(client_addr), 'local') AS client,
    usename AS user, datname AS database, state, %s AS wait,
    coalesce(date_trunc('seconds', clock_timestamp() - xact_start)::text, '') AS xact_age,
    coalesce(date_trunc('seconds', clock_timestamp() - query_start)::text, '') AS query_age,
    regexp_replace(query, '\s+', ' ', 'g') AS query
  FROM pg_stat_activity
  WHERE pid <> pg_backend_pid()
    AND state <> 'idle'%s
    AND clock_timestamp() - coalesce(xact_start, query_start) > $1::interval
  ORDER BY coalesce(xact_start, query_start)`

const (
	waitColumn94 = `CASE WHEN waiting THEN 'waiting' ELSE '' END`
	waitColumn96 = `coalesce(wait_event_type || '.' || wait_event, '')`
	clientOnly10 = `
    AND backend_type = 'client backend'`
)

const vacuumQuery = `SELECT p.pid,
    coalesce(date_trunc('seconds', clock_timestamp() - a.xact_start)::text, '') AS age,
    p.datname AS database, p.relid::regclass::text AS relation, p.phase,
    p.heap_blks_total AS total, p.heap_blks_scanned AS scanned,
    p.heap_blks_vacuumed AS vacuumed,
    round(100.0 * p.heap_blks_scanned / greatest(p.heap_blks_total, 1), 1) AS scanned_pct
  FROM pg_stat_progress_vacuum p
  JOIN pg_stat_activity a ON a.pid = p.pid
  ORDER BY a.xact_start`

// statementsQuery assembles a pg_stat_statements query from the columns
// between the owner columns and the trailing queryid and query text.
func statementsQuery(columns string) string {
	return `SELECT pg_get_userbyid(p.userid) AS user, d.datname AS database,
    ` + columns + `,
    p.queryid::text AS queryid,
    regexp_replace(p.query, '\s+', ' ', 'g') AS query
  FROM pg_stat_statements p
  JOIN pg_database d ON d.oid = p.dbid
  ORDER BY p.userid, p.dbid, p.queryid`
}

// timingColumns lists totals followed by the same values as per-second
// rates. total, read and write are the server's column expressions.
func timingColumns(total, read, write string) string {
	cpu := fmt.Sprintf("%s - %s - %s", total, read, write)
	return fmt.Sprintf(`round(%[1]s)::bigint AS t_all_t, round(%[2]s)::bigint AS t_read_t,
    round(%[3]s)::bigint AS t_write_t, round(%[4]s)::bigint AS t_cpu_t,
    round(%[1]s)::bigint AS all_t, round(%[2]s)::bigint AS read_t,
    round(%[3]s)::bigint AS write_t, round(%[4]s)::bigint AS cpu_t,
    p.calls AS calls`, total, read, write, cpu)
}

const (
	generalColumns = `p.calls AS t_calls, p.rows AS t_rows, p.calls AS calls, p.rows AS rows`
	ioColumns      = `p.shared_blks_hit AS hit, p.shared_blks_read AS read,
    p.shared_blks_dirtied AS dirtied, p.shared_blks_written AS written`
	tempColumns  = `p.temp_blks_read AS read, p.temp_blks_written AS written, p.calls AS calls`
	localColumns = `p.local_blks_hit AS hit, p.local_blks_read AS read,
    p.local_blks_dirtied AS dirtied, p.local_blks_written AS written`
)

var registry = map[ID]*View{
	Databases: {
		ID: Databases, Name: "databases", Title: "pg_stat_database", Key: "d",
		DefaultSort: 1, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: databasesQuery, Diff: stat.Range{Min: 1, Max: 15}, Sort: cols(17)},
		},
	},
	Replication: {
		ID: Replication, Name: "replication", Title: "pg_stat_replication", Key: "r",
		DefaultSort: 6, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: replicationQuery94, Diff: stat.NoRange, Sort: cols(11)},
			{MinVersion: pgv10, Query: replicationQuery10, Diff: stat.NoRange, Sort: cols(14)},
		},
	},
	Tables: {
		ID: Tables, Name: "tables", Title: "pg_stat_user_tables", Key: "t",
		DefaultSort: 1, DefaultDesc: true,
		Variants: []Variant{
			{
				MinVersion:  pgv94,
				Query:       fmt.Sprintf(tablesQuery, "pg_stat_user_tables"),
				SystemQuery: fmt.Sprintf(tablesQuery, "pg_stat_all_tables"),
				Diff:        stat.Range{Min: 1, Max: 8},
				Sort:        cols(11),
			},
		},
	},
	TablesIO: {
		ID: TablesIO, Name: "tables-io", Title: "pg_statio_user_tables", Key: "T",
		DefaultSort: 1, DefaultDesc: true,
		Variants: []Variant{
			{
				MinVersion:  pgv94,
				Query:       fmt.Sprintf(tablesIOQuery, "pg_statio_user_tables"),
				SystemQuery: fmt.Sprintf(tablesIOQuery, "pg_statio_all_tables"),
				Diff:        stat.Range{Min: 1, Max: 8},
				Sort:        cols(9),
			},
		},
	},
	Indexes: {
		ID: Indexes, Name: "indexes", Title: "pg_stat_user_indexes", Key: "i",
		DefaultSort: 1, DefaultDesc: true,
		Variants: []Variant{
			{
				MinVersion:  pgv94,
				Query:       fmt.Sprintf(indexesQuery, "pg_stat_user_indexes", "pg_statio_user_indexes"),
				SystemQuery: fmt.Sprintf(indexesQuery, "pg_stat_all_indexes", "pg_statio_all_indexes"),
				Diff:        stat.Range{Min: 1, Max: 5},
				Sort:        cols(6),
			},
		},
	},
	Sizes: {
		ID: Sizes, Name: "sizes", Title: "relation sizes", Key: "s",
		DefaultSort: 1, DefaultDesc: true,
		Variants: []Variant{
			{
				MinVersion:  pgv94,
				Query:       fmt.Sprintf(sizesQuery, userSchemas),
				SystemQuery: fmt.Sprintf(sizesQuery, ""),
				Diff:        stat.Range{Min: 4, Max: 6},
				Sort:        cols(7),
			},
		},
	},
	Functions: {
		ID: Functions, Name: "functions", Title: "pg_stat_user_functions", Key: "f",
		DefaultSort: 3, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: functionsQuery, Diff: stat.Range{Min: 2, Max: 4}, Sort: cols(7)},
		},
	},
	Activity: {
		ID: Activity, Name: "activity", Title: "long running activity", Key: "a",
		DefaultSort: stat.NoSort, MinAge: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: fmt.Sprintf(activityQuery, waitColumn94, ""), Diff: stat.NoRange, Sort: cols(9)},
			{MinVersion: pgv96, Query: fmt.Sprintf(activityQuery, waitColumn96, ""), Diff: stat.NoRange, Sort: cols(9)},
			{MinVersion: pgv10, Query: fmt.Sprintf(activityQuery, waitColumn96, clientOnly10), Diff: stat.NoRange, Sort: cols(9)},
		},
	},
	Vacuum: {
		ID: Vacuum, Name: "vacuum", Title: "pg_stat_progress_vacuum", Key: "v",
		DefaultSort: stat.NoSort,
		Variants: []Variant{
			{MinVersion: pgv96, Query: vacuumQuery, Diff: stat.NoRange, Sort: stat.NoRange},
		},
	},
	StatementsTimings: {
		ID: StatementsTimings, Name: "statements-timings", Title: "pg_stat_statements timings", Key: "x",
		DefaultSort: 6, DefaultDesc: true,
		Variants: []Variant{
			{
				MinVersion: pgv94,
				Query:      statementsQuery(timingColumns("p.total_time", "p.blk_read_time", "p.blk_write_time")),
				Diff:       stat.Range{Min: 6, Max: 10},
				Sort:       cols(13),
			},
			{
				MinVersion: pgv13,
				Query:      statementsQuery(timingColumns("(p.total_plan_time + p.total_exec_time)", "p.blk_read_time", "p.blk_write_time")),
				Diff:       stat.Range{Min: 6, Max: 10},
				Sort:       cols(13),
			},
			{
				MinVersion: pgv17,
				Query:      statementsQuery(timingColumns("(p.total_plan_time + p.total_exec_time)", "p.shared_blk_read_time", "p.shared_blk_write_time")),
				Diff:       stat.Range{Min: 6, Max: 10},
				Sort:       cols(13),
			},
		},
	},
	StatementsGeneral: {
		ID: StatementsGeneral, Name: "statements-general", Title: "pg_stat_statements general", Key: "x",
		DefaultSort: 4, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: statementsQuery(generalColumns), Diff: stat.Range{Min: 4, Max: 5}, Sort: cols(8)},
		},
	},
	StatementsIO: {
		ID: StatementsIO, Name: "statements-io", Title: "pg_stat_statements shared I/O", Key: "x",
		DefaultSort: 3, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: statementsQuery(ioColumns), Diff: stat.Range{Min: 2, Max: 5}, Sort: cols(8)},
		},
	},
	StatementsTemp: {
		ID: StatementsTemp, Name: "statements-temp", Title: "pg_stat_statements temp files", Key: "x",
		DefaultSort: 3, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: statementsQuery(tempColumns), Diff: stat.Range{Min: 2, Max: 4}, Sort: cols(7)},
		},
	},
	StatementsLocal: {
		ID: StatementsLocal, Name: "statements-local", Title: "pg_stat_statements local I/O", Key: "x",
		DefaultSort: 3, DefaultDesc: true,
		Variants: []Variant{
			{MinVersion: pgv94, Query: statementsQuery(localColumns), Diff: stat.Range{Min: 2, Max: 5}, Sort: cols(8)},
		},
	},
}
