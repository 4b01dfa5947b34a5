package collision

import (
	"math"
	"slices"

	"github.com/WenSimEHRP/paiagram/internal/geom"
)

// Cell identifies one square of the grid.
type Cell struct {
	X, Y uint32
}

// Grid is a uniform spatial hash from cells to the ids of polygons whose
// bounding box touches them.
type Grid struct {
	unit  float64
	cells map[Cell][]int
}

// NewGrid returns an empty grid of unit-sized cells.
func NewGrid(unit float64) *Grid {
	return &Grid{
		unit:  unit,
		cells: make(map[Cell][]int),
	}
}

// CellRange returns the inclusive corner cells covered by box. Coordinates
// outside the uint32 range saturate, which keeps the mapping monotonic.
func (g *Grid) CellRange(box geom.AABB) (lo, hi Cell) {
	lo = Cell{
		X: toCell(math.Floor(box.Min[0] / g.unit)),
		Y: toCell(math.Floor(box.Min[1] / g.unit)),
	}
	hi = Cell{
		X: toCell(math.Ceil(box.Max[0] / g.unit)),
		Y: toCell(math.Ceil(box.Max[1] / g.unit)),
	}
	return lo, hi
}

// Insert records id in every cell covered by box. The work grows with the
// number of cells, so unit should not be tiny next to the boxes inserted.
func (g *Grid) Insert(id int, box geom.AABB) {
	lo, hi := g.CellRange(box)
	for x := uint64(lo.X); x <= uint64(hi.X); x++ {
		for y := uint64(lo.Y); y <= uint64(hi.Y); y++ {
			cell := Cell{X: uint32(x), Y: uint32(y)}
			g.cells[cell] = append(g.cells[cell], id)
		}
	}
}

// Query returns the sorted ids registered in any cell covered by box.
func (g *Grid) Query(box geom.AABB) []int {
	lo, hi := g.CellRange(box)
	seen := make(map[int]struct{})
	var ids []int
	for x := uint64(lo.X); x <= uint64(hi.X); x++ {
		for y := uint64(lo.Y); y <= uint64(hi.Y); y++ {
			for _, id := range g.cells[Cell{X: uint32(x), Y: uint32(y)}] {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// Cells returns the number of non-empty cells.
func (g *Grid) Cells() int {
	return len(g.cells)
}

func toCell(v float64) uint32 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}
