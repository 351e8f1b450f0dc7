package app

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/sadopc/pgtop/internal/view"
)

// KeyMap defines all application keybindings.
type KeyMap struct {
	// Views
	Views      []key.Binding
	Statements key.Binding
	Picker     key.Binding

	// Grid
	SortNext    key.Binding
	SortPrev    key.Binding
	ToggleOrder key.Binding
	Filter      key.Binding
	ClearFilter key.Binding
	ShowQuery   key.Binding
	Export      key.Binding

	// Session switches
	MinAge       key.Binding
	SignalMask   key.Binding
	ToggleSystem key.Binding
	Pause        key.Binding
	Interval     key.Binding

	// Subtabs
	DiskStats key.Binding
	NetStats  key.Binding
	LogTail   key.Binding

	// Server actions
	Cancel         key.Binding
	Terminate      key.Binding
	GroupCancel    key.Binding
	GroupTerminate key.Binding
	ResetStats     key.Binding
	ReloadConf     key.Binding
	EditConf       key.Binding
	EditHBA        key.Binding
	EditIdent      key.Binding
	ShowLog        key.Binding

	// Tabs
	NewTab         key.Binding
	CloseTab       key.Binding
	NextTab        key.Binding
	PrevTab        key.Binding
	GotoTab        key.Binding
	WriteBookmarks key.Binding

	// App
	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the keybindings. The view keys come from the view
// registry so the two never drift apart.
func DefaultKeyMap() KeyMap {
	km := KeyMap{
		Statements: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "pg_stat_statements (cycle)"),
		),
		Picker: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pick view"),
		),
		SortNext: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "sort next column"),
		),
		SortPrev: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "sort previous column"),
		),
		ToggleOrder: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "asc/desc"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter sort column"),
		),
		ClearFilter: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "clear filters"),
		),
		ShowQuery: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show query"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export csv"),
		),
		MinAge: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "min age"),
		),
		SignalMask: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "signal mask"),
		),
		ToggleSystem: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "system objects"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause"),
		),
		Interval: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "refresh interval"),
		),
		DiskStats: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "disk I/O"),
		),
		NetStats: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "network I/O"),
		),
		LogTail: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log tail"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel backend"),
		),
		Terminate: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "terminate backend"),
		),
		GroupCancel: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "cancel group"),
		),
		GroupTerminate: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "terminate group"),
		),
		ResetStats: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset statistics"),
		),
		ReloadConf: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "reload config"),
		),
		EditConf: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit postgresql.conf"),
		),
		EditHBA: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "edit pg_hba.conf"),
		),
		EditIdent: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "edit pg_ident.conf"),
		),
		ShowLog: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "open log in pager"),
		),
		NewTab: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "new tab"),
		),
		CloseTab: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "close tab"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "ctrl+]"),
			key.WithHelp("tab/ctrl+]", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "ctrl+["),
			key.WithHelp("shift+tab", "prev tab"),
		),
		GotoTab: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"),
			key.WithHelp("1-8", "go to tab"),
		),
		WriteBookmarks: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "write bookmarks"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?", "help"),
		),
	}

	for _, v := range view.All() {
		if view.IsStatements(v.ID) {
			continue
		}
		km.Views = append(km.Views, key.NewBinding(
			key.WithKeys(v.Key),
			key.WithHelp(v.Key, v.Title),
		))
	}
	return km
}

// ViewFor returns the view bound to k, if any. The statements key is
// handled separately since it cycles.
func ViewFor(k string) (view.ID, bool) {
	for _, v := range view.All() {
		if v.Key == k && !view.IsStatements(v.ID) {
			return v.ID, true
		}
	}
	return 0, false
}

// ShortHelp returns a subset of keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Picker, k.SortNext, k.Filter, k.Pause, k.Quit, k.Help}
}

// FullHelp returns all keybindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	views := append(append([]key.Binding{}, k.Views...), k.Statements, k.Picker)
	return [][]key.Binding{
		views,
		{k.SortNext, k.SortPrev, k.ToggleOrder, k.Filter, k.ClearFilter, k.ShowQuery, k.Export,
			k.MinAge, k.SignalMask, k.ToggleSystem, k.Pause, k.Interval},
		{k.Cancel, k.Terminate, k.GroupCancel, k.GroupTerminate, k.ResetStats, k.ReloadConf,
			k.EditConf, k.EditHBA, k.EditIdent, k.ShowLog, k.DiskStats, k.NetStats, k.LogTail},
		{k.NewTab, k.CloseTab, k.NextTab, k.PrevTab, k.GotoTab, k.WriteBookmarks, k.Help, k.Quit},
	}
}
