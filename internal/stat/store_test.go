package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFirstPut(t *testing.T) {
	var s Store
	g := grid([]string{"n"}, []string{"1"})

	assert.True(t, s.Empty())
	assert.Equal(t, StatusFirst, s.Put(g))
	assert.Same(t, g, s.Previous())
	assert.Same(t, g, s.Current())
}

func TestStoreReadyAndAdopt(t *testing.T) {
	var s Store
	first := grid([]string{"n"}, []string{"1"})
	second := grid([]string{"n"}, []string{"2"})

	s.Put(first)
	require.Equal(t, StatusReady, s.Put(second))
	assert.Same(t, first, s.Previous())
	assert.Same(t, second, s.Current())

	s.Adopt()
	assert.Same(t, second, s.Previous())
	assert.Zero(t, first.NumRows(), "released grid must be empty")
}

func TestStoreResyncOnRowGrowth(t *testing.T) {
	var s Store
	s.Put(grid([]string{"n"}, []string{"1"}))
	s.Adopt()

	grown := grid([]string{"n"}, []string{"1"}, []string{"2"})
	assert.Equal(t, StatusResync, s.Put(grown))
	assert.Same(t, grown, s.Previous())
	assert.Same(t, grown, s.Current())
}

func TestStoreResyncOnShrinkAndColumns(t *testing.T) {
	var s Store
	s.Put(grid([]string{"n"}, []string{"1"}, []string{"2"}))

	assert.Equal(t, StatusResync, s.Put(grid([]string{"n"}, []string{"1"})))
	assert.Equal(t, StatusResync, s.Put(grid([]string{"n", "m"}, []string{"1", "2"})))
}

func TestStoreReset(t *testing.T) {
	var s Store
	s.Put(grid([]string{"n"}, []string{"1"}))
	s.Reset()
	assert.True(t, s.Empty())
	assert.Nil(t, s.Current())
	assert.Equal(t, StatusFirst, s.Put(grid([]string{"n"}, []string{"1"})))
}

func TestGridRelease(t *testing.T) {
	g := NewGrid(2, 3)
	assert.Equal(t, 2, g.NumRows())
	assert.Equal(t, 3, g.NumCols())
	g.Release()
	assert.Zero(t, g.NumRows())
	assert.Equal(t, "", g.Cell(0, 0))

	var nilGrid *Grid
	assert.Zero(t, nilGrid.NumRows())
	assert.Nil(t, nilGrid.Clone())
}
