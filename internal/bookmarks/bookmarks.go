// Package bookmarks reads and writes the connection bookmarks file. Each
// non-comment line is host:port:dbname:user:password; the password field
// may be empty and may itself contain colons.
package bookmarks

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sadopc/pgtop/internal/adapter"
)

// DefaultName is the bookmarks file name in the home directory.
const DefaultName = ".pgtoprc"

var (
	// ErrMalformed is returned for a line that does not follow the format.
	ErrMalformed = errors.New("malformed bookmark")
	// ErrUnrepresentable is returned by Write for a connection the format
	// cannot hold: a colon in host, dbname or user (an IPv6 address, for
	// example), or a line break anywhere.
	ErrUnrepresentable = errors.New("bookmark cannot be written")
)

// DefaultPath returns ~/.pgtoprc.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("bookmarks: home dir: %w", err)
	}
	return filepath.Join(home, DefaultName), nil
}

// Read loads bookmarks from path in file order. A missing file returns an
// error matching os.ErrNotExist.
func Read(path string) ([]adapter.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bookmarks: %w", err)
	}
	return Parse(data)
}

// Parse decodes bookmarks file contents. Blank lines and lines starting
// with # are skipped.
func Parse(data []byte) ([]adapter.Params, error) {
	var out []adapter.Params
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, n, err)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("bookmarks: %w", err)
	}
	return out, nil
}

func parseLine(line string) (adapter.Params, error) {
	f := strings.SplitN(line, ":", 5)
	if len(f) < 4 {
		return adapter.Params{}, fmt.Errorf("want host:port:dbname:user:password, got %d fields", len(f))
	}
	p := adapter.Params{Host: f[0], DBName: f[2], User: f[3]}
	if len(f) == 5 {
		p.Password = f[4]
	}
	if f[1] != "" {
		port, err := strconv.Atoi(f[1])
		if err != nil || port < 1 || port > 65535 {
			return adapter.Params{}, fmt.Errorf("bad port %q", f[1])
		}
		p.Port = port
	}
	return p, nil
}

// Format encodes params one per line.
func Format(params []adapter.Params) []byte {
	var b bytes.Buffer
	for _, p := range params {
		port := ""
		if p.Port > 0 {
			port = strconv.Itoa(p.Port)
		}
		fmt.Fprintf(&b, "%s:%s:%s:%s:%s\n", p.Host, port, p.DBName, p.User, p.Password)
	}
	return b.Bytes()
}

// Check reports whether p survives a Format then Parse round trip.
func Check(p adapter.Params) error {
	for name, v := range map[string]string{"host": p.Host, "dbname": p.DBName, "user": p.User} {
		if strings.Contains(v, ":") {
			return fmt.Errorf("%w: %s %q contains ':'", ErrUnrepresentable, name, v)
		}
	}
	if strings.ContainsAny(p.Host+p.DBName+p.User+p.Password, "\r\n") {
		return fmt.Errorf("%w: %s contains a line break", ErrUnrepresentable, p)
	}
	return nil
}

// Write replaces path with params. The file is created with mode 0600.
// Nothing is written when any entry fails Check.
func Write(path string, params []adapter.Params) error {
	for _, p := range params {
		if err := Check(p); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("bookmarks: create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Format(params), 0o600); err != nil {
		return fmt.Errorf("bookmarks: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("bookmarks: write: %w", err)
	}
	return nil
}
