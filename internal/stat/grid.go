// Package stat holds the snapshot pipeline that turns two successive
// statistics query results into the rows shown on screen: classification,
// snapshot bookkeeping, rate diffing, sorting and filtering.
package stat

// Grid is a rectangular snapshot of stringified cells. Every row has
// len(Columns) cells.
type Grid struct {
	Columns []string
	Rows    [][]string
}

// NewGrid allocates an empty grid of the given dimensions.
func NewGrid(rows, cols int) *Grid {
	g := &Grid{
		Columns: make([]string, cols),
		Rows:    make([][]string, rows),
	}
	for i := range g.Rows {
		g.Rows[i] = make([]string, cols)
	}
	return g
}

// FromResult builds a grid from a query result. Short rows are padded with
// empty cells and long rows truncated so the grid stays rectangular.
func FromResult(columns []string, rows [][]string) *Grid {
	g := NewGrid(len(rows), len(columns))
	copy(g.Columns, columns)
	for i, row := range rows {
		copy(g.Rows[i], row)
	}
	return g
}

// NumRows returns the row count. A nil grid has zero rows.
func (g *Grid) NumRows() int {
	if g == nil {
		return 0
	}
	return len(g.Rows)
}

// NumCols returns the column count. A nil grid has zero columns.
func (g *Grid) NumCols() int {
	if g == nil {
		return 0
	}
	return len(g.Columns)
}

// Cell returns the value at row i, column j, or "" when out of range.
func (g *Grid) Cell(i, j int) string {
	if g == nil || i < 0 || i >= len(g.Rows) || j < 0 || j >= len(g.Rows[i]) {
		return ""
	}
	return g.Rows[i][j]
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	return FromResult(g.Columns, g.Rows)
}

// Release drops the grid's storage. Reading a released grid yields an empty
// grid, never stale cells.
func (g *Grid) Release() {
	if g == nil {
		return
	}
	g.Columns = nil
	g.Rows = nil
}
