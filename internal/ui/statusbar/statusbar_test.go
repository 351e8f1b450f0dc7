package statusbar

import (
	"strings"
	"testing"
	"time"

	appmsg "github.com/sadopc/pgtop/internal/msg"
	"github.com/sadopc/pgtop/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func TestNew(t *testing.T) {
	m := New()

	if m.info.Rows != -1 {
		t.Fatalf("expected Rows=-1, got %d", m.info.Rows)
	}
	if msg, isErr := m.Message(); msg != "" || isErr {
		t.Fatalf("expected no message, got %q (error=%v)", msg, isErr)
	}
}

func TestInit(t *testing.T) {
	if cmd := New().Init(); cmd != nil {
		t.Fatal("expected nil cmd from Init")
	}
}

func TestUpdate_StatusMsg(t *testing.T) {
	m := New()
	m, cmd := m.Update(appmsg.StatusMsg{Text: "configuration reloaded", Duration: 12 * time.Millisecond})
	if cmd == nil {
		t.Fatal("expected clear timer cmd")
	}
	msg, isErr := m.Message()
	if msg != "configuration reloaded" || isErr {
		t.Errorf("Message() = %q, %v", msg, isErr)
	}
	if m.Info().Duration != 12*time.Millisecond {
		t.Errorf("Duration = %v, want 12ms", m.Info().Duration)
	}
}

func TestUpdate_StatusMsg_Error(t *testing.T) {
	m := New()
	m, _ = m.Update(appmsg.StatusMsg{Text: "permission denied", IsError: true})
	if _, isErr := m.Message(); !isErr {
		t.Error("expected error message")
	}
}

func TestUpdate_StatusMsg_NoDuration(t *testing.T) {
	m := New()
	m.SetInfo(Info{Duration: time.Second, Rows: 3})
	m, _ = m.Update(appmsg.StatusMsg{Text: "hello"})
	if m.Info().Duration != time.Second {
		t.Errorf("Duration overwritten: %v", m.Info().Duration)
	}
}

func TestUpdate_ClearStatusMsg_StaleIgnored(t *testing.T) {
	m := New()

	m, _ = m.Update(appmsg.StatusMsg{Text: "first"})
	first := ClearStatusMsg{Gen: m.gen}
	m, _ = m.Update(appmsg.StatusMsg{Text: "second"})
	second := ClearStatusMsg{Gen: m.gen}

	if first.Gen == second.Gen {
		t.Fatalf("expected different generations, got %d and %d", first.Gen, second.Gen)
	}

	m, _ = m.Update(first)
	if m.message != "second" {
		t.Fatalf("stale timer cleared newer message: got %q, want %q", m.message, "second")
	}

	m, _ = m.Update(second)
	if m.message != "" {
		t.Fatalf("fresh timer should clear message, got %q", m.message)
	}
}

func TestView_ZeroWidth(t *testing.T) {
	if got := New().View(); got != "" {
		t.Errorf("View() = %q, want empty", got)
	}
}

func TestView_Info(t *testing.T) {
	m := New()
	m.SetSize(160)
	m.SetInfo(Info{
		View:     "databases",
		SortCol:  "commits",
		Desc:     true,
		Filters:  2,
		Rows:     1234,
		Interval: 5 * time.Second,
		Duration: 42 * time.Millisecond,
	})
	out := m.View()
	for _, want := range []string{"databases", "▼ commits", "2 filter(s)", "1,234 rows", "42ms", "every 5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestView_PausedAndState(t *testing.T) {
	m := New()
	m.SetSize(120)
	m.SetInfo(Info{View: "activity", Rows: -1, Interval: time.Minute, Paused: true, State: "reconnecting"})
	out := m.View()
	if !strings.Contains(out, "paused") {
		t.Errorf("View() missing paused:\n%s", out)
	}
	if !strings.Contains(out, "reconnecting") {
		t.Errorf("View() missing state:\n%s", out)
	}
	if strings.Contains(out, "rows") {
		t.Errorf("View() shows rows for Rows=-1:\n%s", out)
	}
}

func TestView_Hints(t *testing.T) {
	m := New()
	m.SetSize(160)
	out := m.View()
	if !strings.Contains(out, "Help") {
		t.Errorf("idle View() missing key hints:\n%s", out)
	}
}

func TestView_WithError(t *testing.T) {
	m := New()
	m.SetSize(100)
	m, _ = m.Update(appmsg.StatusMsg{Text: "connection refused", IsError: true})
	if !strings.Contains(m.View(), "connection refused") {
		t.Error("error message not rendered")
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{time.Second, "1s"},
		{90 * time.Second, "90s"},
		{2 * time.Minute, "2m"},
	}
	for _, tt := range tests {
		if got := formatInterval(tt.d); got != tt.want {
			t.Errorf("formatInterval(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a very long status message", 10); got != "a very ..." {
		t.Errorf("truncate long = %q", got)
	}
}
