package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForStep(t *testing.T) {
	want := []int{0, 1, -1, 2, -2, 3, -3}
	for step, level := range want {
		assert.Equal(t, level, LevelForStep(step), "step %d", step)
	}
}

func TestIntervalNormalizeAndOverlap(t *testing.T) {
	assert.Equal(t, Interval{Start: 10, End: 20}, NewInterval(20, 10))

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", NewInterval(10, 20), NewInterval(10, 20), true},
		{"contained", NewInterval(0, 20), NewInterval(5, 6), true},
		{"touching", NewInterval(5, 9), NewInterval(9, 12), true},
		{"apart", NewInterval(5, 9), NewInterval(9.5, 12), false},
		{"point inside", NewInterval(5, 9), NewInterval(7, 7), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestLineManagerFansOutOverlaps(t *testing.T) {
	lm := NewLineManager()

	var levels []int
	for range 3 {
		level, err := lm.Register(0, NewInterval(10, 20))
		require.NoError(t, err)
		levels = append(levels, level)
	}
	assert.Equal(t, []int{0, 1, -1}, levels)
	assert.Equal(t, []int{-1, 0, 1}, lm.Levels(0))
}

func TestLineManagerTouchingIntervalsStack(t *testing.T) {
	lm := NewLineManager()

	level, err := lm.Register(0, NewInterval(5, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	// endpoints are inclusive, so a shared endpoint is an overlap
	level, err = lm.Register(0, NewInterval(9, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	level, err = lm.Register(0, NewInterval(12.5, 14))
	require.NoError(t, err)
	assert.Equal(t, 0, level)
}

func TestLineManagerOccupied(t *testing.T) {
	lm := NewLineManager()
	for _, iv := range []Interval{{0, 1}, {4, 5}, {2, 3}} {
		level, err := lm.Register(0, iv)
		require.NoError(t, err)
		require.Equal(t, 0, level)
	}
	assert.Equal(t, []Interval{{0, 1}, {2, 3}, {4, 5}}, lm.Intervals(0, 0))

	assert.False(t, lm.Occupied(0, 0, NewInterval(3.5, 3.9)))
	assert.False(t, lm.Occupied(0, 0, NewInterval(-1, -0.5)))
	assert.False(t, lm.Occupied(0, 0, NewInterval(5.5, 8)))
	assert.True(t, lm.Occupied(0, 0, NewInterval(1.5, 2)))
	assert.True(t, lm.Occupied(0, 0, NewInterval(5, 6)))
	assert.True(t, lm.Occupied(0, 0, NewInterval(-3, 10)))
	assert.True(t, lm.Occupied(0, 0, Interval{Start: 2.5, End: 1.5}), "reversed input is normalised")

	assert.False(t, lm.Occupied(0, 1, NewInterval(0, 1)), "unused level")
	assert.False(t, lm.Occupied(7, 0, NewInterval(0, 1)), "unknown line")
	assert.False(t, lm.Occupied(-1, 0, NewInterval(0, 1)))
}

func TestLineManagerGrowsLines(t *testing.T) {
	lm := NewLineManager()
	assert.Equal(t, 0, lm.Lines())

	level, err := lm.Register(3, Interval{Start: 20, End: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, level)
	assert.Equal(t, 4, lm.Lines())
	assert.Equal(t, []Interval{{10, 20}}, lm.Intervals(3, 0))
	assert.Empty(t, lm.Intervals(1, 0))

	// lines are independent
	level, err = lm.Register(1, NewInterval(10, 20))
	require.NoError(t, err)
	assert.Equal(t, 0, level)
}

func TestLineManagerExhausted(t *testing.T) {
	lm := NewLineManager(WithMaxDepth(2))
	for range 3 {
		_, err := lm.Register(0, NewInterval(0, 1))
		require.NoError(t, err)
	}

	_, err := lm.Register(0, NewInterval(0.5, 0.6))
	assert.ErrorIs(t, err, ErrStackingExhausted)
	for _, level := range []int{-1, 0, 1} {
		assert.Len(t, lm.Intervals(0, level), 1, "level %d", level)
	}

	// a failed first use of a line must not allocate it
	_, err = lm.ResolveN(5, NewInterval(0, 1), -1)
	assert.ErrorIs(t, err, ErrStackingExhausted)
	assert.Equal(t, 1, lm.Lines())

	level, err := lm.ResolveN(0, NewInterval(0.5, 0.6), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
}

func TestLineManagerRejectsNegativeLine(t *testing.T) {
	lm := NewLineManager()
	_, err := lm.Register(-1, NewInterval(0, 1))
	assert.ErrorIs(t, err, ErrInvalidLine)
	assert.Nil(t, lm.Levels(-1))
}
