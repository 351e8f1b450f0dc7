package sysstat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
)

// Proc file paths read by Collect.
const (
	PathStat      = "/proc/stat"
	PathLoadAvg   = "/proc/loadavg"
	PathMemInfo   = "/proc/meminfo"
	PathDiskStats = "/proc/diskstats"
	PathNetDev    = "/proc/net/dev"
	PathUptime    = "/proc/uptime"
)

// ErrUnavailable means the source cannot provide host metrics, for example
// a remote server without pg_read_file privileges.
var ErrUnavailable = errors.New("host metrics unavailable")

// Source reads a text file from the monitored host.
type Source interface {
	ReadFile(ctx context.Context, path string) (string, error)
}

// LocalSource reads files from this machine. Root, when set, is prefixed to
// every path.
type LocalSource struct {
	Root string
}

func (s LocalSource) ReadFile(_ context.Context, path string) (string, error) {
	if s.Root != "" {
		path = filepath.Join(s.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(data), nil
}

const readFileQuery = `SELECT pg_read_file($1)`

// RemoteSource reads files on the server host through pg_read_file.
type RemoteSource struct {
	Conn adapter.Connection
}

func (s RemoteSource) ReadFile(ctx context.Context, path string) (string, error) {
	if s.Conn == nil {
		return "", adapter.ErrNotConnected
	}
	res, err := s.Conn.Execute(ctx, readFileQuery, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	return res.Value(), nil
}

// Collect reads and parses every proc file from src.
func Collect(ctx context.Context, src Source) (*Snapshot, error) {
	snap := &Snapshot{Time: time.Now()}

	steps := []struct {
		path  string
		parse func(string) error
	}{
		{PathStat, func(s string) (err error) { snap.CPU, err = ParseCPU(s); return }},
		{PathLoadAvg, func(s string) (err error) { snap.Load, err = ParseLoadAvg(s); return }},
		{PathMemInfo, func(s string) (err error) { snap.Mem, err = ParseMemInfo(s); return }},
		{PathDiskStats, func(s string) (err error) { snap.Disks, err = ParseDiskStats(s); return }},
		{PathNetDev, func(s string) (err error) { snap.Nets, err = ParseNetDev(s); return }},
		{PathUptime, func(s string) (err error) { snap.Uptime, err = ParseUptime(s); return }},
	}
	for _, st := range steps {
		content, err := src.ReadFile(ctx, st.path)
		if err != nil {
			return nil, err
		}
		if err := st.parse(content); err != nil {
			return nil, err
		}
	}
	return snap, nil
}
