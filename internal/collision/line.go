package collision

import (
	"fmt"
	"math"
	"slices"

	"github.com/google/btree"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds the level probing of LineManager.Register.
const DefaultMaxDepth = 255

// Interval is a closed range on one axis with Start <= End.
type Interval struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// NewInterval returns the interval between a and b in either order.
func NewInterval(a, b float64) Interval {
	return Interval{Start: a, End: b}.Normalize()
}

// Normalize swaps the endpoints if they are reversed.
func (iv Interval) Normalize() Interval {
	if iv.Start > iv.End {
		iv.Start, iv.End = iv.End, iv.Start
	}
	return iv
}

// Overlaps reports whether the intervals share any point, endpoints included.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start <= other.End && iv.End >= other.Start
}

func lessInterval(a, b Interval) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// LevelForStep maps the probe sequence 0, 1, 2, 3, 4, ... onto the levels
// 0, +1, -1, +2, -2, ...
func LevelForStep(step int) int {
	switch {
	case step == 0:
		return 0
	case step%2 == 1:
		return (step + 1) / 2
	default:
		return -(step / 2)
	}
}

type levelSet map[int]*btree.BTreeG[Interval]

// LineManager stacks intervals drawn on the same line onto levels so that
// no two intervals on one level overlap.
type LineManager struct {
	lines    []levelSet
	maxDepth int
	logger   *zap.Logger
}

// LineOption configures a LineManager.
type LineOption func(*LineManager)

// WithLineLogger sets the logger for stacking decisions. nil is ignored.
func WithLineLogger(logger *zap.Logger) LineOption {
	return func(lm *LineManager) {
		if logger != nil {
			lm.logger = logger
		}
	}
}

// WithMaxDepth sets the probe cap used by Register.
func WithMaxDepth(depth int) LineOption {
	return func(lm *LineManager) {
		lm.maxDepth = depth
	}
}

// NewLineManager returns an empty manager with DefaultMaxDepth.
func NewLineManager(opts ...LineOption) *LineManager {
	lm := &LineManager{
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// Lines returns how many line slots exist.
func (lm *LineManager) Lines() int {
	return len(lm.lines)
}

// Occupied reports whether iv overlaps anything already stored on the given
// line and level.
func (lm *LineManager) Occupied(line, level int, iv Interval) bool {
	if line < 0 || line >= len(lm.lines) {
		return false
	}
	tree, ok := lm.lines[line][level]
	if !ok {
		return false
	}

	iv = iv.Normalize()
	occupied := false
	// Intervals on a level are disjoint, so ends ascend with starts and the
	// last interval starting at or before iv.End is the only candidate.
	tree.DescendLessOrEqual(Interval{Start: iv.End, End: math.Inf(1)}, func(existing Interval) bool {
		occupied = existing.Overlaps(iv)
		return false
	})
	return occupied
}

// Register places iv on the first free level of line and returns the level.
func (lm *LineManager) Register(line int, iv Interval) (int, error) {
	return lm.ResolveN(line, iv, lm.maxDepth)
}

// ResolveN probes levels 0, +1, -1, +2, -2, ... for at most maxDepth steps
// past level 0 and stores iv on the first level where it fits.
func (lm *LineManager) ResolveN(line int, iv Interval, maxDepth int) (int, error) {
	if line < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLine, line)
	}
	iv = iv.Normalize()

	for step := 0; step <= maxDepth; step++ {
		level := LevelForStep(step)
		if lm.Occupied(line, level, iv) {
			continue
		}
		lm.insert(line, level, iv)
		if level != 0 {
			lm.logger.Debug("stacked interval",
				zap.Int("line", line),
				zap.Int("level", level),
				zap.Float64("start", iv.Start),
				zap.Float64("end", iv.End))
		}
		return level, nil
	}

	return 0, fmt.Errorf("%w (%d) on line %d for [%g, %g]",
		ErrStackingExhausted, maxDepth, line, iv.Start, iv.End)
}

func (lm *LineManager) insert(line, level int, iv Interval) {
	for len(lm.lines) <= line {
		lm.lines = append(lm.lines, make(levelSet))
	}
	tree, ok := lm.lines[line][level]
	if !ok {
		tree = btree.NewG[Interval](8, lessInterval)
		lm.lines[line][level] = tree
	}
	tree.ReplaceOrInsert(iv)
}

// Levels returns the occupied levels of line in ascending order.
func (lm *LineManager) Levels(line int) []int {
	if line < 0 || line >= len(lm.lines) {
		return nil
	}
	levels := make([]int, 0, len(lm.lines[line]))
	for level := range lm.lines[line] {
		levels = append(levels, level)
	}
	slices.Sort(levels)
	return levels
}

// Intervals returns the intervals stored on line and level, ordered by start.
func (lm *LineManager) Intervals(line, level int) []Interval {
	if line < 0 || line >= len(lm.lines) {
		return nil
	}
	tree, ok := lm.lines[line][level]
	if !ok {
		return nil
	}
	out := make([]Interval, 0, tree.Len())
	tree.Ascend(func(iv Interval) bool {
		out = append(out, iv)
		return true
	})
	return out
}
