package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/session"
)

func TestStartupTabs(t *testing.T) {
	marks := []adapter.Params{{Host: "db1", Port: 5432}, {Host: "db2", Port: 5433}}

	tests := []struct {
		name  string
		args  []string
		marks []adapter.Params
		env   map[string]string
		want  []adapter.Params
	}{
		{
			name:  "flags win over bookmarks",
			args:  []string{"-h", "db9", "-p", "6432", "-U", "admin"},
			marks: marks,
			want:  []adapter.Params{{Host: "db9", Port: 6432, User: "admin"}},
		},
		{
			name:  "bookmarks win over environment",
			marks: marks,
			env:   map[string]string{"PGHOST": "envhost"},
			want:  marks,
		},
		{
			name: "environment as last resort",
			env:  map[string]string{"PGHOST": "envhost", "PGPORT": "5544", "PGUSER": "u", "PGDATABASE": "app", "PGPASSWORD": "pw"},
			want: []adapter.Params{{Host: "envhost", Port: 5544, User: "u", DBName: "app", Password: "pw"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGPASSWORD"} {
				t.Setenv(k, tt.env[k])
			}
			cmd := newRootCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			f := flags{}
			f.host, _ = cmd.Flags().GetString("host")
			f.port, _ = cmd.Flags().GetInt("port")
			f.user, _ = cmd.Flags().GetString("username")
			f.dbname, _ = cmd.Flags().GetString("dbname")

			got, err := startupTabs(cmd, f, tt.marks)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tabs, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tab %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStartupTabs_CapsBookmarks(t *testing.T) {
	var marks []adapter.Params
	for i := 0; i < session.MaxTabs+3; i++ {
		marks = append(marks, adapter.Params{Host: "db", Port: 5432 + i})
	}
	got, err := startupTabs(newRootCmd(), flags{}, marks)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != session.MaxTabs {
		t.Errorf("tabs = %d, want %d", len(got), session.MaxTabs)
	}
}

func TestEnvParams_BadPort(t *testing.T) {
	t.Setenv("PGPORT", "70000")
	if _, err := envParams(); err == nil {
		t.Error("expected an error for PGPORT=70000")
	}
}

func TestRootCmd_InvalidPort(t *testing.T) {
	for _, args := range [][]string{{"-p", "abc"}, {"-p", "0"}, {"--port", "65536"}} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestRootCmd_PasswordFlagsExclusive(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"-W", "-w"})
	if err := cmd.Execute(); err == nil {
		t.Error("-W and -w together should be rejected")
	}
}

func TestBookmarksPath(t *testing.T) {
	if got, _ := bookmarksPath("a", "b"); got != "a" {
		t.Errorf("flag path = %s", got)
	}
	if got, _ := bookmarksPath("", "b"); got != "b" {
		t.Errorf("configured path = %s", got)
	}
	t.Setenv("HOME", "/home/op")
	if got, _ := bookmarksPath("", ""); got != "/home/op/.pgtoprc" {
		t.Errorf("default path = %s", got)
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgtop", "config.yaml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init-config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("output = %q", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "interval: 1") {
		t.Errorf("config = %s", data)
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"init-config", path})
	if err := cmd.Execute(); err == nil {
		t.Error("overwrote an existing file without --force")
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"init-config", "--force", path})
	if err := cmd.Execute(); err != nil {
		t.Errorf("--force: %v", err)
	}
}

func TestRootCmd_HelpAndVersionSucceed(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"--help"}, []string{"pgtop [dbname [username]]", "-h, --host", "--help"}},
		{[]string{"--version"}, []string{"pgtop version dev"}},
		{[]string{"version"}, []string{"pgtop dev (commit: none"}},
	}
	for _, tt := range tests {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(tt.args)
		if err := cmd.Execute(); err != nil {
			t.Errorf("%v: %v", tt.args, err)
			continue
		}
		for _, want := range tt.want {
			if !strings.Contains(out.String(), want) {
				t.Errorf("%v: output missing %q:\n%s", tt.args, want, out.String())
			}
		}
	}
}
