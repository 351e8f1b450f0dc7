package app

import (
	"reflect"
	"testing"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sadopc/pgtop/internal/view"
)

// bindings returns every binding of km by field name.
func bindings(km KeyMap) map[string]key.Binding {
	out := make(map[string]key.Binding)
	v := reflect.ValueOf(km)
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		switch b := v.Field(i).Interface().(type) {
		case key.Binding:
			out[name] = b
		case []key.Binding:
			for j, vb := range b {
				out[name+"["+vb.Help().Key+"]"] = b[j]
			}
		}
	}
	return out
}

func TestDefaultKeyMap_AllBound(t *testing.T) {
	for name, b := range bindings(DefaultKeyMap()) {
		if len(b.Keys()) == 0 {
			t.Errorf("%s has no keys", name)
		}
		if b.Help().Desc == "" {
			t.Errorf("%s has no help text", name)
		}
	}
}

func TestDefaultKeyMap_NoDuplicates(t *testing.T) {
	seen := make(map[string]string)
	for name, b := range bindings(DefaultKeyMap()) {
		for _, k := range b.Keys() {
			if other, ok := seen[k]; ok {
				t.Errorf("key %q bound by %s and %s", k, other, name)
			}
			seen[k] = name
		}
	}
}

func TestDefaultKeyMap_ViewsSkipStatements(t *testing.T) {
	km := DefaultKeyMap()
	for _, b := range km.Views {
		id, ok := ViewFor(b.Keys()[0])
		if !ok {
			t.Errorf("view binding %q does not resolve", b.Keys()[0])
			continue
		}
		if view.IsStatements(id) {
			t.Errorf("statements view %v has its own binding", id)
		}
	}
	want := 0
	for _, v := range view.All() {
		if !view.IsStatements(v.ID) {
			want++
		}
	}
	if len(km.Views) != want {
		t.Errorf("view bindings = %d, want %d", len(km.Views), want)
	}
}

func TestViewFor(t *testing.T) {
	tests := []struct {
		key  string
		want view.ID
		ok   bool
	}{
		{"d", view.Databases, true},
		{"t", view.Tables, true},
		{"x", 0, false},
		{"q", 0, false},
	}
	for _, tt := range tests {
		got, ok := ViewFor(tt.key)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ViewFor(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHelpGroups(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("short help is empty")
	}
	groups := km.FullHelp()
	if len(groups) != 4 {
		t.Fatalf("full help groups = %d, want 4", len(groups))
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Errorf("group %d is empty", i)
		}
	}
}
