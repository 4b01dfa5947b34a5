// Package collision places labels and schedule lines without overlap.
//
// Manager keeps every polygon placed so far in a uniform grid and pushes new
// candidates along a fixed angle until they clear all of them. LineManager
// stacks 1D intervals drawn on the same line onto alternating levels above
// and below it. Neither type is safe for concurrent use.
package collision

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/WenSimEHRP/paiagram/internal/geom"
)

const (
	// DefaultMaxIterations bounds the displacement loop of Resolve.
	DefaultMaxIterations = 255

	// DefaultSnapThreshold is the displacement below which a residual
	// overlap is accepted instead of stepping again.
	DefaultSnapThreshold = 0.5
)

// Manager registers polygons and resolves new ones against them.
type Manager struct {
	polygons []geom.Polygon
	grid     *Grid
	unit     float64
	bounds   geom.AABB

	snap          float64
	maxIterations int
	logger        *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for resolution steps. nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSnapThreshold sets the displacement below which a collision counts as
// resolved.
func WithSnapThreshold(threshold float64) Option {
	return func(m *Manager) {
		m.snap = threshold
	}
}

// WithMaxIterations sets the iteration cap used by Resolve.
func WithMaxIterations(n int) Option {
	return func(m *Manager) {
		m.maxIterations = n
	}
}

// NewManager creates an empty manager whose grid cells are unitSize wide.
// Bounds start as the degenerate box at the origin.
func NewManager(unitSize float64, opts ...Option) (*Manager, error) {
	if !(unitSize > 0) || math.IsInf(unitSize, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnitSize, unitSize)
	}

	m := &Manager{
		grid:          NewGrid(unitSize),
		unit:          unitSize,
		snap:          DefaultSnapThreshold,
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// UnitSize returns the grid cell size fixed at construction.
func (m *Manager) UnitSize() float64 {
	return m.unit
}

// Register stores a copy of p as an obstacle and returns its id.
func (m *Manager) Register(p geom.Polygon) (int, error) {
	if len(p) < 3 {
		return -1, fmt.Errorf("register polygon with %d vertices: %w", len(p), ErrInvalidShape)
	}
	box, _ := geom.Bounds(p)

	m.Extend(box)
	id := len(m.polygons)
	m.polygons = append(m.polygons, p.Clone())
	m.grid.Insert(id, box)
	return id, nil
}

// Polygon returns a copy of the polygon registered under id.
func (m *Manager) Polygon(id int) (geom.Polygon, bool) {
	if id < 0 || id >= len(m.polygons) {
		return nil, false
	}
	return m.polygons[id].Clone(), true
}

// Polygons returns copies of every registered polygon in id order.
func (m *Manager) Polygons() []geom.Polygon {
	out := make([]geom.Polygon, len(m.polygons))
	for i, p := range m.polygons {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of registered polygons.
func (m *Manager) Len() int {
	return len(m.polygons)
}

// Bounds returns the box covering everything registered or extended so far.
func (m *Manager) Bounds() geom.AABB {
	return m.bounds
}

// Extend widens the bounds to cover box. Bounds never shrink.
func (m *Manager) Extend(box geom.AABB) {
	m.bounds = m.bounds.Union(box)
}

// ExtendX widens the horizontal bounds to cover [lo, hi].
func (m *Manager) ExtendX(lo, hi float64) {
	m.bounds.Min[0] = math.Min(m.bounds.Min[0], lo)
	m.bounds.Max[0] = math.Max(m.bounds.Max[0], hi)
}

// ExtendY widens the vertical bounds to cover [lo, hi].
func (m *Manager) ExtendY(lo, hi float64) {
	m.bounds.Min[1] = math.Min(m.bounds.Min[1], lo)
	m.bounds.Max[1] = math.Max(m.bounds.Max[1], hi)
}

// Collides reports whether p overlaps any registered polygon.
func (m *Manager) Collides(p geom.Polygon) bool {
	box, ok := geom.Bounds(p)
	if !ok {
		return false
	}
	for _, id := range m.grid.Query(box) {
		if _, hit := geom.Collide(p, m.polygons[id]); hit {
			return true
		}
	}
	return false
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	ID           int
	Polygon      geom.Polygon
	Displacement float64
	Iterations   int
}

// Resolve is ResolveN with the manager's configured iteration cap.
func (m *Manager) Resolve(p geom.Polygon, angle float64) (Resolution, error) {
	return m.ResolveN(p, angle, m.maxIterations)
}

// ResolveN pushes p along angle (radians) until it no longer overlaps any
// registered polygon, then registers it. Each step moves p by the largest
// distance any current obstacle demands. Nothing is registered on error.
func (m *Manager) ResolveN(p geom.Polygon, angle float64, maxIterations int) (Resolution, error) {
	if len(p) < 3 {
		return Resolution{}, fmt.Errorf("resolve polygon with %d vertices: %w", len(p), ErrInvalidShape)
	}

	dir := mgl64.Vec2{math.Cos(angle), math.Sin(angle)}
	candidate := p.Clone()
	total := 0.0

	for iteration := 0; iteration < maxIterations; iteration++ {
		required := m.requiredDisplacement(candidate, dir)
		if required == 0 || required < m.snap {
			if required != 0 {
				m.logger.Debug("snapping residual overlap",
					zap.Float64("residual", required),
					zap.Int("iteration", iteration))
			}
			id, err := m.Register(candidate)
			if err != nil {
				return Resolution{}, err
			}
			return Resolution{
				ID:           id,
				Polygon:      candidate.Clone(),
				Displacement: total,
				Iterations:   iteration,
			}, nil
		}

		m.logger.Debug("moving candidate",
			zap.Float64("angle", angle),
			zap.Float64("distance", required),
			zap.Int("iteration", iteration))
		candidate = candidate.Translate(dir.Mul(required))
		total += required
	}

	return Resolution{}, fmt.Errorf("%w (%d) along angle %.4f rad after moving %.4f",
		ErrResolutionExhausted, maxIterations, angle, total)
}

// requiredDisplacement returns how far p must travel along dir to clear every
// obstacle it currently overlaps, or 0 when it overlaps none.
func (m *Manager) requiredDisplacement(p geom.Polygon, dir mgl64.Vec2) float64 {
	box, _ := geom.Bounds(p)

	maxRequired := 0.0
	for _, id := range m.grid.Query(box) {
		mtv, hit := geom.Collide(p, m.polygons[id])
		if !hit {
			continue
		}

		var required float64
		if dot := math.Abs(mtv.Axis.Dot(dir)); dot < geom.MachineEpsilon {
			// dir is perpendicular to the separating axis; fall back to the
			// overlap itself so the loop keeps moving.
			required = mtv.Overlap
		} else {
			required = mtv.Overlap / dot
		}
		maxRequired = math.Max(maxRequired, required)
	}
	return maxRequired
}
