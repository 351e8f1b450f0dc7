package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterConjunction(t *testing.T) {
	g := grid([]string{"db", "x"}, []string{"postgres", "a"}, []string{"mysql", "b"})

	f := Filters{0: "post"}
	out := Filter(g, f)
	assert.Equal(t, [][]string{{"postgres", "a"}}, out.Rows)

	f.Set(1, "zzz")
	out = Filter(g, f)
	assert.Empty(t, out.Rows)
}

func TestFilterNoPatterns(t *testing.T) {
	g := grid([]string{"db"}, []string{"a"}, []string{"b"})

	assert.Same(t, g, Filter(g, nil))
	assert.Same(t, g, Filter(g, Filters{0: ""}))
	assert.True(t, Filters{}.Visible([]string{"anything"}))
}

func TestFiltersSet(t *testing.T) {
	f := Filters{}
	f.Set(2, "idle")
	assert.True(t, f.Active())
	f.Set(2, "")
	assert.False(t, f.Active())
	assert.Empty(t, f)
}

func TestFilterMissingColumn(t *testing.T) {
	assert.False(t, Filters{3: "x"}.Visible([]string{"x"}))
}
