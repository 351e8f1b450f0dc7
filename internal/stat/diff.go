package stat

import "strconv"

// Range is an inclusive column interval. NoRange disables the operation it
// configures.
type Range struct {
	Min, Max int
}

// NoRange is the sentinel for "never diff" or "never sort".
var NoRange = Range{Min: -1, Max: -1}

// NoSort is the sentinel sort key that keeps server order.
const NoSort = -1

// Valid reports whether r selects at least one column.
func (r Range) Valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

// Contains reports whether column j lies in r.
func (r Range) Contains(j int) bool {
	return r.Valid() && j >= r.Min && j <= r.Max
}

// Diff computes per-second deltas between prev and curr for the columns in
// r and copies every other column from curr. elapsed is floored at one
// second. Cells that do not parse as integers count as zero. Only the rows
// present in both grids are diffed; extra rows of curr are copied as is.
func Diff(prev, curr *Grid, r Range, elapsed uint) *Grid {
	if elapsed == 0 {
		elapsed = 1
	}
	out := curr.Clone()
	if out == nil || !r.Valid() {
		return out
	}

	n := min(prev.NumRows(), curr.NumRows())
	div := int64(elapsed)
	for i := 0; i < n; i++ {
		row := out.Rows[i]
		for j := r.Min; j <= r.Max && j < len(row); j++ {
			delta := parseInt(curr.Cell(i, j)) - parseInt(prev.Cell(i, j))
			row[j] = strconv.FormatInt(delta/div, 10)
		}
	}
	return out
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
