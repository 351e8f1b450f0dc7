// Package logger provides the debug log shared by pgtop components.
// The terminal belongs to the TUI, so records go to a file or nowhere.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// EnvDebug enables the debug log when set to any non-empty value.
const EnvDebug = "PGTOP_DEBUG"

// Enabled reports whether debug logging was requested by the environment
// or by the configuration flag.
func Enabled(configured bool) bool {
	return configured || os.Getenv(EnvDebug) != ""
}

// File is a debug log backed by a file. Close it on exit.
type File struct {
	*slog.Logger
	f *os.File
}

// Open creates a JSON debug logger writing to path. The parent directory is
// created 0700 and the file 0600.
func Open(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("logger: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("logger: open file: %w", err)
	}
	return &File{Logger: New(f, slog.LevelDebug), f: f}, nil
}

// Close closes the underlying file. Safe on nil.
func (l *File) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}

// New returns a JSON logger writing to w at level and above.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop returns a logger that discards all records.
func Noop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var (
	mu            sync.RWMutex
	defaultLogger = Noop()
)

// Default returns the package-level logger. It discards records until
// SetDefault installs another one.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level logger. A nil logger restores the
// no-op default.
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = Noop()
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}
