package stat

import "strings"

// Filters maps a column index to the substring its cells must contain.
type Filters map[int]string

// Active reports whether at least one pattern is non-empty.
func (f Filters) Active() bool {
	for _, p := range f {
		if p != "" {
			return true
		}
	}
	return false
}

// Set stores pattern for column col; an empty pattern clears it.
func (f Filters) Set(col int, pattern string) {
	if pattern == "" {
		delete(f, col)
		return
	}
	f[col] = pattern
}

// Visible reports whether row satisfies every non-empty pattern.
func (f Filters) Visible(row []string) bool {
	for col, p := range f {
		if p == "" {
			continue
		}
		if col < 0 || col >= len(row) || !strings.Contains(row[col], p) {
			return false
		}
	}
	return true
}

// Filter returns a grid holding only the visible rows of g. Row slices are
// shared with g.
func Filter(g *Grid, f Filters) *Grid {
	if g == nil || !f.Active() {
		return g
	}
	out := &Grid{Columns: g.Columns}
	for _, row := range g.Rows {
		if f.Visible(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
