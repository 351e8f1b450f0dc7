package stat

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Sort orders the rows of g by column key. The comparator is chosen from
// the type of the key cell in the first row: Integer and Float compare
// numerically with unparseable cells as the minimum, Text compares bytes.
// A key of NoSort, or one outside the grid, returns g unchanged. The input
// row order is never modified; equal keys have no guaranteed order.
func Sort(g *Grid, key int, desc bool) *Grid {
	if g == nil || key < 0 || key >= g.NumCols() || g.NumRows() < 2 {
		return g
	}

	out := &Grid{
		Columns: g.Columns,
		Rows:    make([][]string, len(g.Rows)),
	}
	copy(out.Rows, g.Rows)

	var less func(a, b string) bool
	switch Classify(g.Cell(0, key)) {
	case Integer, Float:
		less = func(a, b string) bool { return parseNumber(a) < parseNumber(b) }
	default:
		less = func(a, b string) bool { return strings.Compare(a, b) < 0 }
	}

	sort.Slice(out.Rows, func(i, j int) bool {
		a, b := cell(out.Rows[i], key), cell(out.Rows[j], key)
		if desc {
			return less(b, a)
		}
		return less(a, b)
	})
	return out
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return math.Inf(-1)
	}
	return f
}

func cell(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}
