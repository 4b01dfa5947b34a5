package collision

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/WenSimEHRP/paiagram/internal/geom"
)

func box(minX, minY, maxX, maxY float64) geom.AABB {
	return geom.AABB{Min: mgl64.Vec2{minX, minY}, Max: mgl64.Vec2{maxX, maxY}}
}

func TestGridCellRange(t *testing.T) {
	g := NewGrid(10)

	tests := []struct {
		name   string
		box    geom.AABB
		lo, hi Cell
	}{
		{"inside first cells", box(5, 5, 25, 15), Cell{0, 0}, Cell{3, 2}},
		{"on cell boundary", box(10, 20, 30, 40), Cell{1, 2}, Cell{3, 4}},
		{"negative saturates", box(-30, -5, -10, -1), Cell{0, 0}, Cell{0, 0}},
		{"straddles origin", box(-5, -5, 5, 5), Cell{0, 0}, Cell{1, 1}},
		{"huge saturates", box(0, 0, math.MaxFloat64, 1), Cell{0, 0}, Cell{math.MaxUint32, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := g.CellRange(tt.box)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestGridInsertQuery(t *testing.T) {
	g := NewGrid(10)
	g.Insert(0, box(0, 0, 5, 5))
	g.Insert(1, box(50, 50, 55, 55))
	g.Insert(2, box(8, 8, 12, 12))

	// id 2 spans 3x3 cells and covers the 2x2 cells of id 0
	assert.Equal(t, 9+4, g.Cells())
	assert.Equal(t, []int{0, 2}, g.Query(box(8, 8, 9, 9)))
	assert.Equal(t, []int{0, 1, 2}, g.Query(box(0, 0, 100, 100)))
	assert.Equal(t, []int{1}, g.Query(box(58, 58, 59, 59)))
	assert.Empty(t, g.Query(box(200, 200, 210, 210)))
}

func TestGridNegativeCoordinatesNeverMiss(t *testing.T) {
	g := NewGrid(1)
	g.Insert(0, box(-10, -10, -8, -8))

	// both sides saturate into cell (0, 0), so the candidate is still found
	assert.Equal(t, []int{0}, g.Query(box(-9, -9, -8.5, -8.5)))
}
