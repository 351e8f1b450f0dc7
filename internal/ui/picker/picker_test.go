package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pgtop/internal/theme"
	"github.com/sadopc/pgtop/internal/view"
)

func init() {
	theme.Current = theme.Default()
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestShowListsAllViews(t *testing.T) {
	m := New()
	m.Show(0)
	if !m.Visible() {
		t.Fatal("expected visible")
	}
	if got, want := len(m.Matches()), len(view.All()); got != want {
		t.Errorf("matches = %d, want %d", got, want)
	}
}

func TestShowHidesUnsupportedViews(t *testing.T) {
	m := New()
	m.Show(9_04_00)
	for _, id := range m.Matches() {
		if !view.Supported(id, 9_04_00) {
			t.Errorf("view %d listed for 9.4", id)
		}
	}
}

func TestFuzzyFilter(t *testing.T) {
	m := New()
	m.Show(0)
	m = typeText(m, "repl")

	got := m.Matches()
	if len(got) == 0 || got[0] != view.Replication {
		t.Fatalf("best match = %v, want replication first", got)
	}
	if !strings.Contains(m.View(), "pg_stat_replication") {
		t.Errorf("view missing the match:\n%s", m.View())
	}

	m = typeText(m, "zzzz")
	if len(m.Matches()) != 0 {
		t.Errorf("expected no matches, got %v", m.Matches())
	}
	if !strings.Contains(m.View(), "no matching view") {
		t.Error("empty result should say so")
	}
}

func TestEnterPicksSelected(t *testing.T) {
	m := New()
	m.Show(0)
	m = typeText(m, "vacuum")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Visible() {
		t.Error("picker should close after a pick")
	}
	if cmd == nil {
		t.Fatal("expected a command")
	}
	picked, ok := cmd().(PickedMsg)
	if !ok || picked.ID != view.Vacuum {
		t.Errorf("picked = %#v, want vacuum", cmd())
	}
}

func TestNavigation(t *testing.T) {
	m := New()
	m.Show(0)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Errorf("selected moved above the first item: %d", m.selected)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 2 {
		t.Errorf("selected = %d, want 2", m.selected)
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd().(PickedMsg).ID != m.all[2].id {
		t.Error("enter should pick the selected row")
	}
}

func TestEscapeCloses(t *testing.T) {
	m := New()
	m.Show(0)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if m.Visible() || cmd != nil {
		t.Error("esc should close without picking")
	}
	if m.View() != "" {
		t.Error("hidden picker should render nothing")
	}
}
