package dialog

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pgtop/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

type confirmedMsg struct{}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func shown() Model {
	d := Confirm("Terminate backend", "Terminate backend 4242 on postgres@db1:5432?",
		func() tea.Msg { return confirmedMsg{} })
	d.SetSize(100, 30)
	d.Show()
	return d
}

func TestConfirm_Keys(t *testing.T) {
	tests := []struct {
		name    string
		keys    []tea.KeyMsg
		confirm bool
	}{
		{"enter starts on no", []tea.KeyMsg{{Type: tea.KeyEnter}}, false},
		{"move then enter", []tea.KeyMsg{{Type: tea.KeyLeft}, {Type: tea.KeyEnter}}, true},
		{"move twice then enter", []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyTab}, {Type: tea.KeyEnter}}, false},
		{"y", []tea.KeyMsg{runes("y")}, true},
		{"Y", []tea.KeyMsg{runes("Y")}, true},
		{"n", []tea.KeyMsg{runes("n")}, false},
		{"esc", []tea.KeyMsg{{Type: tea.KeyEsc}}, false},
		{"q", []tea.KeyMsg{runes("q")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := shown()
			var cmd tea.Cmd
			for _, k := range tt.keys {
				d, cmd = d.Update(k)
			}
			if d.Visible() {
				t.Fatal("dialog still visible after answering")
			}
			if got := cmd != nil; got != tt.confirm {
				t.Fatalf("confirmed = %v, want %v", got, tt.confirm)
			}
			if cmd != nil {
				if _, ok := cmd().(confirmedMsg); !ok {
					t.Fatal("yes did not run the action")
				}
			}
		})
	}
}

func TestConfirm_ShowResetsFocus(t *testing.T) {
	d := shown()
	d, _ = d.Update(tea.KeyMsg{Type: tea.KeyRight})
	d.Hide()
	d.Show()
	if _, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("focus should return to No when shown again")
	}
}

func TestConfirm_HiddenIgnoresKeys(t *testing.T) {
	d := Confirm("Reset", "Reset statistics?", func() tea.Msg { return confirmedMsg{} })
	if _, cmd := d.Update(runes("y")); cmd != nil {
		t.Fatal("hidden dialog answered")
	}
}

func TestConfirm_NilAction(t *testing.T) {
	d := Confirm("Reset", "body", nil)
	d.Show()
	d, cmd := d.Update(runes("y"))
	if cmd != nil || d.Visible() {
		t.Fatal("yes without an action should just close")
	}
}

func TestView(t *testing.T) {
	d := Confirm("Terminate backend", "Terminate backend 4242?", nil)
	if d.View() != "" {
		t.Fatal("expected empty view when hidden")
	}
	d.Show()
	out := d.View()
	for _, want := range []string{"Terminate backend", "4242", "Yes", "No"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestSetSize(t *testing.T) {
	tests := []struct{ width, want int }{
		{200, confirmWidth},
		{40, 36},
		{2, 0},
	}
	for _, tt := range tests {
		d := Confirm("t", "b", nil)
		d.SetSize(tt.width, 20)
		if d.boxW != tt.want {
			t.Errorf("SetSize(%d): box width = %d, want %d", tt.width, d.boxW, tt.want)
		}
	}
}

func TestOverlay_Hidden(t *testing.T) {
	d := Confirm("t", "b", nil)
	background := "line1\nline2\nline3"
	if got := d.Overlay(background); got != background {
		t.Fatal("hidden dialog changed the background")
	}
}

func TestOverlay_Visible(t *testing.T) {
	d := Confirm("Cancel backends", "Cancel 3 idle backends?", nil)
	d.SetSize(80, 24)
	d.Show()

	lines := make([]string, 24)
	for i := range lines {
		lines[i] = strings.Repeat("x", 80)
	}
	bg := strings.Join(lines, "\n")

	out := d.Overlay(bg)
	got := strings.Split(out, "\n")
	if len(got) != 24 {
		t.Fatalf("overlay changed line count to %d", len(got))
	}
	if got[0] != lines[0] {
		t.Error("overlay clobbered the first background line")
	}
	if !strings.Contains(out, "Cancel 3 idle backends?") {
		t.Error("dialog body missing from the overlay")
	}
}

func TestOverlay_ShortLines(t *testing.T) {
	out := Overlay("a\nb\nc", "BOX", 11)
	lines := strings.Split(out, "\n")
	if lines[1] != "b   BOX" {
		t.Fatalf("padded line = %q, want %q", lines[1], "b   BOX")
	}
	if lines[0] != "a" || lines[2] != "c" {
		t.Fatalf("untouched lines changed: %q", lines)
	}
}

func TestOverlay_KeepsRightSide(t *testing.T) {
	out := Overlay("0123456789", "AB", 10)
	if out != "0123AB6789" {
		t.Fatalf("Overlay = %q", out)
	}
}

type submittedMsg struct{ value string }

func TestPrompt_Submit(t *testing.T) {
	p := NewPrompt("Min age", "HH:MM:SS", "00:00:00", nil, func(v string) tea.Msg {
		return submittedMsg{value: v}
	})
	p.Show()
	if !p.Visible() {
		t.Fatal("prompt not visible after Show")
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	p, _ = p.Update(runes("5"))
	if p.Value() != "00:00:05" {
		t.Fatalf("Value() = %q, want %q", p.Value(), "00:00:05")
	}

	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.Visible() {
		t.Fatal("prompt still visible after enter")
	}
	if cmd == nil {
		t.Fatal("expected submit cmd")
	}
	if got := cmd().(submittedMsg); got.value != "00:00:05" {
		t.Fatalf("submitted %q", got.value)
	}
}

func TestPrompt_ValidationKeepsOpen(t *testing.T) {
	errBad := errors.New("bad value")
	p := NewPrompt("Signal mask", "", "q", func(string) error { return errBad }, func(string) tea.Msg { return nil })
	p.Show()

	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !p.Visible() {
		t.Fatal("prompt closed on invalid value")
	}
	if cmd != nil {
		t.Fatal("invalid value produced a cmd")
	}
	if p.Err() != "bad value" {
		t.Fatalf("Err() = %q", p.Err())
	}
	if !strings.Contains(p.View(), "bad value") {
		t.Fatal("validation error not rendered")
	}
}

func TestPrompt_Escape(t *testing.T) {
	p := NewPrompt("Filter", "", "", nil, func(string) tea.Msg { return submittedMsg{} })
	p.Show()
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if p.Visible() || cmd != nil {
		t.Fatalf("escape: visible=%v cmd=%v", p.Visible(), cmd != nil)
	}
	if p.View() != "" {
		t.Fatal("hidden prompt rendered")
	}
}

func TestPrompt_Masked(t *testing.T) {
	p := NewPrompt("Password", "", "", nil, nil)
	p.Masked()
	p.Show()
	p, _ = p.Update(runes("secret"))
	if strings.Contains(p.View(), "secret") {
		t.Fatal("masked prompt shows the password")
	}
	if p.Value() != "secret" {
		t.Fatalf("Value() = %q", p.Value())
	}
}
