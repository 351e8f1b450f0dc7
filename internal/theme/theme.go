// Package theme provides the styling used across the pgtop terminal UI.
// Every visual element references a lipgloss.Style held in a Theme so the
// look can be swapped at runtime.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds lipgloss.Style values for every UI element.
type Theme struct {
	Name string

	// Header (host and server summary)
	HeaderLabel lipgloss.Style
	HeaderValue lipgloss.Style
	HeaderWarn  lipgloss.Style
	HeaderTitle lipgloss.Style

	// Statistics grid
	GridHeader       lipgloss.Style
	GridSortedHeader lipgloss.Style
	GridCell         lipgloss.Style
	GridCellAlt      lipgloss.Style
	GridSelectedRow  lipgloss.Style
	GridTitle        lipgloss.Style

	// Subtab panel
	SubtabBorder lipgloss.Style
	SubtabTitle  lipgloss.Style

	// Query text highlighting
	SQLKeyword    lipgloss.Style
	SQLString     lipgloss.Style
	SQLNumber     lipgloss.Style
	SQLComment    lipgloss.Style
	SQLOperator   lipgloss.Style
	SQLFunction   lipgloss.Style
	SQLType       lipgloss.Style
	SQLIdentifier lipgloss.Style

	// Tab bar
	TabActive       lipgloss.Style
	TabInactive     lipgloss.Style
	TabDisconnected lipgloss.Style
	TabBar          lipgloss.Style

	// Status bar
	StatusBar        lipgloss.Style
	StatusBarKey     lipgloss.Style
	StatusBarValue   lipgloss.Style
	StatusBarError   lipgloss.Style
	StatusBarSuccess lipgloss.Style

	// Picker
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
	PickerMatch    lipgloss.Style

	// Dialog/Modal
	DialogBorder       lipgloss.Style
	DialogTitle        lipgloss.Style
	DialogButton       lipgloss.Style
	DialogButtonActive lipgloss.Style

	// Help screen
	HelpSection lipgloss.Style
	HelpKey     lipgloss.Style
	HelpDesc    lipgloss.Style

	// General
	ErrorText   lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	MutedText   lipgloss.Style
}

// palette is the small set of colors a theme is derived from.
type palette struct {
	fg, muted, border      string
	accent, accent2, label string
	selFg, selBg           string
	headerBg, altBg        string
	ok, warn, err          string

	keyword, str, num, comment, op, fn, typ string
}

func build(name string, p palette) *Theme {
	c := func(s string) lipgloss.Color { return lipgloss.Color(s) }
	fg := lipgloss.NewStyle().Foreground(c(p.fg))

	return &Theme{
		Name: name,

		HeaderLabel: lipgloss.NewStyle().Foreground(c(p.label)),
		HeaderValue: fg.Bold(true),
		HeaderWarn:  lipgloss.NewStyle().Bold(true).Foreground(c(p.warn)),
		HeaderTitle: lipgloss.NewStyle().Bold(true).Foreground(c(p.accent)),

		GridHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.fg)).
			Background(c(p.headerBg)),
		GridSortedHeader: lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(c(p.accent2)).
			Background(c(p.headerBg)),
		GridCell:    fg,
		GridCellAlt: fg.Background(c(p.altBg)),
		GridSelectedRow: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)),
		GridTitle: lipgloss.NewStyle().Bold(true).Foreground(c(p.accent)),

		SubtabBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(c(p.border)),
		SubtabTitle: lipgloss.NewStyle().Bold(true).Foreground(c(p.accent2)),

		SQLKeyword:    lipgloss.NewStyle().Bold(true).Foreground(c(p.keyword)),
		SQLString:     lipgloss.NewStyle().Foreground(c(p.str)),
		SQLNumber:     lipgloss.NewStyle().Foreground(c(p.num)),
		SQLComment:    lipgloss.NewStyle().Italic(true).Foreground(c(p.comment)),
		SQLOperator:   lipgloss.NewStyle().Foreground(c(p.op)),
		SQLFunction:   lipgloss.NewStyle().Foreground(c(p.fn)),
		SQLType:       lipgloss.NewStyle().Foreground(c(p.typ)),
		SQLIdentifier: fg,

		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 1),
		TabInactive: lipgloss.NewStyle().
			Foreground(c(p.muted)).
			Background(c(p.headerBg)).
			Padding(0, 1),
		TabDisconnected: lipgloss.NewStyle().
			Foreground(c(p.err)).
			Background(c(p.headerBg)).
			Padding(0, 1),
		TabBar: lipgloss.NewStyle().Background(c(p.headerBg)),

		StatusBar: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.headerBg)),
		StatusBarKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 1),
		StatusBarValue: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.headerBg)).
			Padding(0, 1),
		StatusBarError: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.err)).
			Background(c(p.headerBg)).
			Padding(0, 1),
		StatusBarSuccess: lipgloss.NewStyle().
			Foreground(c(p.ok)).
			Background(c(p.headerBg)).
			Padding(0, 1),

		PickerItem: fg,
		PickerSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)),
		PickerMatch: lipgloss.NewStyle().Bold(true).Underline(true).Foreground(c(p.accent2)),

		DialogBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.accent)).
			Padding(1, 2),
		DialogTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.accent)).
			MarginBottom(1),
		DialogButton: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.border)).
			Padding(0, 2),
		DialogButtonActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 2),

		HelpSection: lipgloss.NewStyle().Bold(true).Foreground(c(p.fn)).MarginTop(1),
		HelpKey:     lipgloss.NewStyle().Bold(true).Foreground(c(p.str)),
		HelpDesc:    fg,

		ErrorText:   lipgloss.NewStyle().Foreground(c(p.err)),
		SuccessText: lipgloss.NewStyle().Foreground(c(p.ok)),
		WarningText: lipgloss.NewStyle().Foreground(c(p.warn)),
		MutedText:   lipgloss.NewStyle().Foreground(c(p.muted)),
	}
}

// ---------------------------------------------------------------------------
// Theme definitions
// ---------------------------------------------------------------------------

func newDefaultTheme() *Theme {
	return build("default", palette{
		fg: "#D4D4D4", muted: "#808080", border: "#3C3C3C",
		accent: "#569CD6", accent2: "#4EC9B0", label: "#9CDCFE",
		selFg: "#FFFFFF", selBg: "#264F78",
		headerBg: "#252526", altBg: "#2A2D2E",
		ok: "#6A9955", warn: "#D7BA7D", err: "#F44747",
		keyword: "#569CD6", str: "#CE9178", num: "#B5CEA8", comment: "#6A9955",
		op: "#D4D4D4", fn: "#DCDCAA", typ: "#4EC9B0",
	})
}

func newLightTheme() *Theme {
	return build("light", palette{
		fg: "#1E1E1E", muted: "#A0A0A0", border: "#D4D4D4",
		accent: "#0451A5", accent2: "#267F99", label: "#001080",
		selFg: "#FFFFFF", selBg: "#0060C0",
		headerBg: "#F3F3F3", altBg: "#F7F7F7",
		ok: "#008000", warn: "#BF8803", err: "#CD3131",
		keyword: "#0000FF", str: "#A31515", num: "#098658", comment: "#008000",
		op: "#1E1E1E", fn: "#795E26", typ: "#267F99",
	})
}

func newMonokaiTheme() *Theme {
	return build("monokai", palette{
		fg: "#F8F8F2", muted: "#75715E", border: "#49483E",
		accent: "#F92672", accent2: "#A6E22E", label: "#66D9EF",
		selFg: "#F8F8F2", selBg: "#49483E",
		headerBg: "#3E3D32", altBg: "#2F302A",
		ok: "#A6E22E", warn: "#E6DB74", err: "#F92672",
		keyword: "#F92672", str: "#E6DB74", num: "#AE81FF", comment: "#75715E",
		op: "#F92672", fn: "#A6E22E", typ: "#66D9EF",
	})
}

// ---------------------------------------------------------------------------
// Registry and accessors
// ---------------------------------------------------------------------------

// Themes maps theme names to their Theme definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"monokai": newMonokaiTheme(),
}

// Current is the currently active theme. It is initialized to Default.
var Current = Themes["default"]

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme identified by name. If no theme with that name exists
// it falls back to the default theme.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}

// Names returns the registered theme names in display order.
func Names() []string {
	return []string{"default", "light", "monokai"}
}
