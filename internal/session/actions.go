package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/view"
)

var (
	ErrBadPID    = errors.New("invalid backend pid")
	ErrNoBackend = errors.New("backend not signalled (no such pid or not permitted)")
)

// ActionKind identifies an operator action.
type ActionKind int

const (
	ActionCancel ActionKind = iota
	ActionTerminate
	ActionGroupCancel
	ActionGroupTerminate
	ActionResetStats
	ActionReloadConf
	ActionConfigFile
	ActionLogFile
)

func (k ActionKind) String() string {
	switch k {
	case ActionCancel:
		return "cancel"
	case ActionTerminate:
		return "terminate"
	case ActionGroupCancel:
		return "group-cancel"
	case ActionGroupTerminate:
		return "group-terminate"
	case ActionResetStats:
		return "reset-stats"
	case ActionReloadConf:
		return "reload-conf"
	case ActionConfigFile:
		return "config-file"
	case ActionLogFile:
		return "log-file"
	default:
		return "unknown"
	}
}

// Mutating reports whether the action changes server state and must be
// audited.
func (k ActionKind) Mutating() bool {
	switch k {
	case ActionConfigFile, ActionLogFile:
		return false
	}
	return true
}

// ActionRequest is an operator action bound to the foreground tab's
// connection. Run it off the owning goroutine.
type ActionRequest struct {
	Kind   ActionKind
	Query  string
	Target adapter.Params

	tabID uint64
	conn  adapter.Connection
	mu    *sync.Mutex
	run   func(ctx context.Context, conn adapter.Connection) (string, error)
}

// ActionResult is the outcome of ActionRequest.Run. Detail is a short
// human readable outcome; for file actions it is the file path.
type ActionResult struct {
	Kind     ActionKind
	Query    string
	Target   adapter.Params
	TabID    uint64
	Detail   string
	Err      error
	Duration time.Duration
}

// Run executes the action.
func (r ActionRequest) Run(ctx context.Context) ActionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	detail, err := r.run(ctx, r.conn)
	return ActionResult{
		Kind:     r.Kind,
		Query:    r.Query,
		Target:   r.Target,
		TabID:    r.tabID,
		Detail:   detail,
		Err:      err,
		Duration: time.Since(start),
	}
}

// FinishAction applies the side effects of a completed action. A stats
// reset restarts the tab since every counter went back to zero.
func (c *Controller) FinishAction(res ActionResult) {
	if res.Err != nil || res.Kind != ActionResetStats {
		return
	}
	if t := c.byID(res.TabID); t != nil {
		t.restart()
	}
}

func (c *Controller) newAction(kind ActionKind, query string, run func(context.Context, adapter.Connection) (string, error)) (ActionRequest, error) {
	t, err := c.active()
	if err != nil {
		return ActionRequest{}, err
	}
	if t.conn == nil || !t.State.Live() {
		return ActionRequest{}, adapter.ErrNotConnected
	}
	return ActionRequest{
		Kind:   kind,
		Query:  query,
		Target: t.Params,
		tabID:  t.id,
		conn:   t.conn,
		mu:     t.execMu,
		run:    run,
	}, nil
}

// SignalBackend cancels or terminates one backend.
func (c *Controller) SignalBackend(sig view.Signal, pid int) (ActionRequest, error) {
	if pid <= 0 {
		return ActionRequest{}, fmt.Errorf("%w: %d", ErrBadPID, pid)
	}
	kind := ActionCancel
	if sig == view.Terminate {
		kind = ActionTerminate
	}
	q := view.SignalQuery(sig)
	return c.newAction(kind, q, func(ctx context.Context, conn adapter.Connection) (string, error) {
		res, err := conn.Execute(ctx, q, pid)
		if err != nil {
			return "", err
		}
		if res.Value() != "true" {
			return "", fmt.Errorf("%w: %d", ErrNoBackend, pid)
		}
		return fmt.Sprintf("%s sent to backend %d", sig, pid), nil
	})
}

// SignalGroup cancels or terminates every backend selected by the tab's
// signal mask whose transaction or query is older than the tab's min age.
func (c *Controller) SignalGroup(sig view.Signal) (ActionRequest, error) {
	t, err := c.active()
	if err != nil {
		return ActionRequest{}, err
	}
	q, err := view.GroupSignalQuery(t.Server.VersionNum, sig, t.Signals.Classes())
	if err != nil {
		return ActionRequest{}, err
	}
	age := t.MinAge
	if age == "" {
		age = view.DefaultMinAge
	}
	mask := t.Signals.String()
	kind := ActionGroupCancel
	if sig == view.Terminate {
		kind = ActionGroupTerminate
	}
	return c.newAction(kind, q, func(ctx context.Context, conn adapter.Connection) (string, error) {
		res, err := conn.Execute(ctx, q, age)
		if err != nil {
			return "", err
		}
		n, _ := strconv.Atoi(res.Value())
		return fmt.Sprintf("%s sent to %d backends (mask %s, older than %s)", sig, n, mask, age), nil
	})
}

// ResetStats resets the statistics counters of the current database, and
// pg_stat_statements when it is installed.
func (c *Controller) ResetStats() (ActionRequest, error) {
	return c.newAction(ActionResetStats, view.ResetStatsQuery, func(ctx context.Context, conn adapter.Connection) (string, error) {
		if _, err := conn.Execute(ctx, view.ResetStatsQuery); err != nil {
			return "", err
		}
		res, err := conn.Execute(ctx, view.StatementsInstalled)
		if err != nil {
			return "", err
		}
		if n, _ := strconv.Atoi(res.Value()); n == 0 {
			return "statistics reset", nil
		}
		if _, err := conn.Execute(ctx, view.ResetStatementsQuery); err != nil {
			return "", fmt.Errorf("pg_stat_statements reset: %w", err)
		}
		return "statistics and pg_stat_statements reset", nil
	})
}

// ReloadConf asks the server to reload its configuration.
func (c *Controller) ReloadConf() (ActionRequest, error) {
	return c.newAction(ActionReloadConf, view.ReloadConfQuery, func(ctx context.Context, conn adapter.Connection) (string, error) {
		res, err := conn.Execute(ctx, view.ReloadConfQuery)
		if err != nil {
			return "", err
		}
		if res.Value() != "true" {
			return "", errors.New("pg_reload_conf() returned false")
		}
		return "configuration reloaded", nil
	})
}

// ConfigFile looks up the path of a server configuration file (config_file,
// hba_file or ident_file) so it can be opened in an editor. Local servers
// only.
func (c *Controller) ConfigFile(name string) (ActionRequest, error) {
	if t := c.Current(); t != nil && !t.Server.Local {
		return ActionRequest{}, ErrNotLocal
	}
	q, err := view.ConfigFileQuery(name)
	if err != nil {
		return ActionRequest{}, err
	}
	return c.newAction(ActionConfigFile, q, func(ctx context.Context, conn adapter.Connection) (string, error) {
		res, err := conn.Execute(ctx, q)
		if err != nil {
			return "", err
		}
		if res.Value() == "" {
			return "", fmt.Errorf("%s is not set", name)
		}
		return res.Value(), nil
	})
}

// LogFile looks up the server's current log file so it can be opened in a
// pager. Local servers only.
func (c *Controller) LogFile() (ActionRequest, error) {
	t := c.Current()
	if t != nil && !t.Server.Local {
		return ActionRequest{}, ErrNotLocal
	}
	version := 0
	if t != nil {
		version = t.Server.VersionNum
	}
	return c.newAction(ActionLogFile, view.LogFileQuery(version), func(ctx context.Context, conn adapter.Connection) (string, error) {
		return locateLog(ctx, conn, version)
	})
}
