package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Interval != 1 {
		t.Errorf("Interval = %d, want %d", cfg.Interval, 1)
	}
	if cfg.Theme != "default" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "default")
	}
	if cfg.Results.MaxColumnWidth != 50 {
		t.Errorf("Results.MaxColumnWidth = %d, want %d", cfg.Results.MaxColumnWidth, 50)
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled = false, want true")
	}
	if cfg.Audit.MaxSizeMB != 10 {
		t.Errorf("Audit.MaxSizeMB = %d, want %d", cfg.Audit.MaxSizeMB, 10)
	}
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `interval: 5
theme: monokai
bookmarks: /etc/pgtop/bookmarks
min_age: "00:00:10"
results:
  max_column_width: 80
audit:
  enabled: false
  path: /var/log/pgtop.jsonl
  max_size_mb: 2
debug_log: /tmp/pgtop.log
editor: nano
pager: more
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		Interval:  5,
		Theme:     "monokai",
		Bookmarks: "/etc/pgtop/bookmarks",
		MinAge:    "00:00:10",
		Results:   ResultsConfig{MaxColumnWidth: 80},
		Audit: AuditConfig{
			Enabled:   false,
			Path:      "/var/log/pgtop.jsonl",
			MaxSizeMB: 2,
		},
		DebugLog: "/tmp/pgtop.log",
		Editor:   "nano",
		Pager:    "more",
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing file", err)
	}

	def := DefaultConfig()
	if !reflect.DeepEqual(cfg, def) {
		t.Errorf("Load(missing) = %+v, want DefaultConfig %+v", cfg, def)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	content := "theme: [\ninvalid:\n  - {broken\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load(invalid YAML) error = nil, want error")
	}
}

func TestLoadPartialYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")

	yaml := `theme: light
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Theme != "light" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "light")
	}
	if cfg.Interval != DefaultInterval {
		t.Errorf("Interval = %d, want default %d", cfg.Interval, DefaultInterval)
	}
	if cfg.Results.MaxColumnWidth != 50 {
		t.Errorf("Results.MaxColumnWidth = %d, want default %d", cfg.Results.MaxColumnWidth, 50)
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled = false, want default true")
	}
}

func TestLoadClampsInterval(t *testing.T) {
	tests := []struct {
		yaml string
		want int
	}{
		{"interval: 0\n", 1},
		{"interval: -4\n", 1},
		{"interval: 30\n", 30},
		{"interval: 301\n", 300},
		{"interval: 100000\n", 300},
	}
	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatalf("write temp file: %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Interval != tt.want {
				t.Errorf("Interval = %d, want %d", cfg.Interval, tt.want)
			}
		})
	}
}

func TestPollInterval(t *testing.T) {
	cfg := &Config{Interval: 7}
	if got := cfg.PollInterval(); got != 7*time.Second {
		t.Errorf("PollInterval() = %v, want %v", got, 7*time.Second)
	}
	cfg.Interval = 0
	if got := cfg.PollInterval(); got != time.Second {
		t.Errorf("PollInterval() with 0 = %v, want %v", got, time.Second)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.yaml")

	original := &Config{
		Interval:  10,
		Theme:     "monokai",
		Bookmarks: "/home/dba/.pgtoprc",
		Results:   ResultsConfig{MaxColumnWidth: 100},
		Audit: AuditConfig{
			Enabled:   true,
			Path:      "/tmp/audit.jsonl",
			MaxSizeMB: 5,
		},
		Editor: "vim",
	}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(original, loaded) {
		t.Errorf("roundtrip mismatch:\n  saved:  %+v\n  loaded: %+v", original, loaded)
	}
}

func TestDefaultPathAndLoadDefault(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpHome, ".config"))

	cfg := DefaultConfig()
	cfg.Theme = "light"
	cfg.Interval = 3

	path, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(tmpHome, ".config", "pgtop", "config.yaml"); path != want {
		t.Errorf("DefaultPath() = %q, want %q", path, want)
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}

	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("LoadDefault() = %+v, want %+v", loaded, cfg)
	}
}

func TestAuditPath(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpHome, ".config"))

	cfg := DefaultConfig()
	got, err := cfg.AuditPath()
	if err != nil {
		t.Fatalf("AuditPath() error = %v", err)
	}
	want := filepath.Join(tmpHome, ".config", "pgtop", "audit.jsonl")
	if got != want {
		t.Errorf("AuditPath() = %q, want %q", got, want)
	}

	cfg.Audit.Path = "~/logs/audit.jsonl"
	got, err = cfg.AuditPath()
	if err != nil {
		t.Fatalf("AuditPath() error = %v", err)
	}
	want = filepath.Join(tmpHome, "logs", "audit.jsonl")
	if got != want {
		t.Errorf("AuditPath() = %q, want %q", got, want)
	}
}

func TestDebugLogPath(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpHome, ".config"))

	cfg := DefaultConfig()
	got, err := cfg.DebugLogPath()
	if err != nil {
		t.Fatalf("DebugLogPath() error = %v", err)
	}
	if want := filepath.Join(tmpHome, ".config", "pgtop", "debug.log"); got != want {
		t.Errorf("DebugLogPath() = %q, want %q", got, want)
	}

	cfg.DebugLog = "/var/tmp/pgtop.log"
	got, err = cfg.DebugLogPath()
	if err != nil {
		t.Fatalf("DebugLogPath() error = %v", err)
	}
	if got != "/var/tmp/pgtop.log" {
		t.Errorf("DebugLogPath() = %q, want %q", got, "/var/tmp/pgtop.log")
	}
}

func TestEditorAndPagerCommand(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("PAGER", "")

	cfg := DefaultConfig()
	if got := cfg.EditorCommand(); got != "vi" {
		t.Errorf("EditorCommand() = %q, want %q", got, "vi")
	}
	if got := cfg.PagerCommand(); got != "less" {
		t.Errorf("PagerCommand() = %q, want %q", got, "less")
	}

	t.Setenv("EDITOR", "emacs")
	t.Setenv("PAGER", "most")
	if got := cfg.EditorCommand(); got != "emacs" {
		t.Errorf("EditorCommand() = %q, want %q", got, "emacs")
	}
	if got := cfg.PagerCommand(); got != "most" {
		t.Errorf("PagerCommand() = %q, want %q", got, "most")
	}

	cfg.Editor = "nano"
	cfg.Pager = "bat"
	if got := cfg.EditorCommand(); got != "nano" {
		t.Errorf("EditorCommand() = %q, want %q", got, "nano")
	}
	if got := cfg.PagerCommand(); got != "bat" {
		t.Errorf("PagerCommand() = %q, want %q", got, "bat")
	}
}

func TestConfigDir(t *testing.T) {
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if filepath.Base(dir) != "pgtop" {
		t.Errorf("ConfigDir() base = %q, want %q", filepath.Base(dir), "pgtop")
	}
}
