package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		configured bool
		want       bool
	}{
		{name: "env set", envValue: "1", want: true},
		{name: "config set", configured: true, want: true},
		{name: "neither", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDebug, tt.envValue)
			assert.Equal(t, tt.want, Enabled(tt.configured))
		})
	}
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug)
	l.Debug("poll", slog.String("view", "activity"), slog.Int("rows", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "poll", rec["msg"])
	assert.Equal(t, "activity", rec["view"])
	assert.EqualValues(t, 3, rec["rows"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestOpen_CreatesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "debug.log")
	l, err := Open(path)
	require.NoError(t, err)

	l.Info("connected", slog.String("host", "db1"))
	require.NoError(t, l.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"host":"db1"`)
}

func TestFile_CloseNil(t *testing.T) {
	var l *File
	assert.NoError(t, l.Close())
}

func TestDefault(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	assert.NotNil(t, Default())

	var buf bytes.Buffer
	SetDefault(New(&buf, slog.LevelInfo))
	Default().Info("hello")
	assert.Contains(t, buf.String(), "hello")

	SetDefault(nil)
	assert.NotNil(t, Default())
}
