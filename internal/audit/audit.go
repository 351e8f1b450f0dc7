// Package audit records operator actions that change server state as JSON
// Lines.
package audit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Backups is the number of rotated files kept next to the live log, named
// path.1 (newest) through path.Backups.
const Backups = 3

// Entry is one operator action.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Query      string    `json:"query"`
	Target     string    `json:"target"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	IsError    bool      `json:"is_error"`
	Error      string    `json:"error,omitempty"`
}

// Logger appends entries to a file. A nil *Logger discards everything.
type Logger struct {
	mu    sync.Mutex
	path  string
	limit int64 // bytes; 0 disables rotation
	f     *os.File
	size  int64
}

// New opens path for appending, creating the directory 0700 and the file
// 0600. A positive maxSizeMB rotates the file before it would grow past
// that size.
func New(path string, maxSizeMB int) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	l := &Logger{path: path, limit: int64(maxSizeMB) << 20}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("audit: open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("audit: stat file: %w", err)
	}
	l.f, l.size = f, info.Size()
	return nil
}

// Log appends e as one JSON line. A zero Timestamp is set to now and the
// password is stripped from Target. Write errors are dropped.
func (l *Logger) Log(e Entry) {
	if l == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Target = SanitizeConnInfo(e.Target)
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	if l.limit > 0 && l.size > 0 && l.size+int64(len(line)) > l.limit {
		if err := l.rotate(); err != nil {
			return
		}
	}
	n, _ := l.f.Write(line)
	l.size += int64(n)
}

// rotate shifts path.N-1 to path.N down to path to path.1 and reopens an
// empty live file. The oldest backup is overwritten.
func (l *Logger) rotate() error {
	l.f.Close()
	l.f = nil
	for i := Backups - 1; i >= 1; i-- {
		_ = os.Rename(backupName(l.path, i), backupName(l.path, i+1))
	}
	_ = os.Rename(l.path, backupName(l.path, 1))
	return l.open()
}

func backupName(path string, i int) string {
	return path + "." + strconv.Itoa(i)
}

// Path returns the live log file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the file. Later Log calls are dropped.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// SanitizeConnInfo strips the password from a PostgreSQL URL or
// keyword/value connection string. Anything else is searched for
// password=... pairs, which also covers driver error messages.
func SanitizeConnInfo(conninfo string) string {
	lower := strings.ToLower(conninfo)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return redactURL(conninfo)
	}
	return keywordPassword.ReplaceAllString(conninfo, "password=***")
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return keywordPassword.ReplaceAllString(raw, "password=***")
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	if q := u.Query(); q.Has("password") {
		q.Set("password", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// password='quoted \' value' or password=bare
var keywordPassword = regexp.MustCompile(`password\s*=\s*('(?:[^'\\]|\\.)*'|\S+)`)
