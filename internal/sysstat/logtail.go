package sysstat

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// tailChunk is how far back from the end of the file LogTail reads.
const tailChunk = 64 * 1024

// LogPath resolves the server's log file name against its data directory.
func LogPath(dataDir, logFile string) string {
	if logFile == "" || filepath.IsAbs(logFile) {
		return logFile
	}
	return filepath.Join(dataDir, logFile)
}

// LogTail returns at most n trailing lines of the file at path.
func LogTail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("log tail: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("log tail: %w", err)
	}
	off := max(info.Size()-tailChunk, 0)
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("log tail: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("log tail: %w", err)
	}
	if off > 0 {
		// Drop the partial first line.
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		}
	}
	return lastLines(string(data), n), nil
}

func lastLines(s string, n int) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
