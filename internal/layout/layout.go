// Package layout turns a network and one diagram selection into positioned
// station rows, train lines and collision-free labels.
package layout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/WenSimEHRP/paiagram/internal/collision"
	"github.com/WenSimEHRP/paiagram/internal/config"
	"github.com/WenSimEHRP/paiagram/internal/geom"
	"github.com/WenSimEHRP/paiagram/internal/network"
)

// Station is a drawn station row and its registered name label.
type Station struct {
	Name  string       `yaml:"name"`
	Row   int          `yaml:"row"`
	Y     float64      `yaml:"y"`
	Label geom.Polygon `yaml:"label"`
}

// Label is a placed train label. Polygon is the final outline, Anchor the
// node it was attached to and Shift how far it was pushed to get clear.
type Label struct {
	Polygon geom.Polygon `yaml:"polygon"`
	Anchor  mgl64.Vec2   `yaml:"anchor"`
	Angle   float64      `yaml:"angle"`
	Shift   float64      `yaml:"shift"`
}

// Edge is one continuous polyline of a train across adjacent rows.
type Edge struct {
	Nodes []mgl64.Vec2 `yaml:"nodes"`
	Label *Label       `yaml:"label,omitempty"`
}

// Dwell records where a stop was stacked on its station row.
type Dwell struct {
	Station  string             `yaml:"station"`
	Row      int                `yaml:"row"`
	Interval collision.Interval `yaml:"interval"`
	Level    int                `yaml:"level"`
}

// Train holds the edges and stacked dwells of one drawn train.
type Train struct {
	Name   string  `yaml:"name"`
	Edges  []Edge  `yaml:"edges"`
	Dwells []Dwell `yaml:"dwells,omitempty"`
}

// Diagram is the finished layout. X grows with time and Y with distance
// along the drawn stations.
type Diagram struct {
	Name      string         `yaml:"name"`
	Beg       network.Time   `yaml:"beg"`
	End       network.Time   `yaml:"end"`
	BegX      float64        `yaml:"beg_x"`
	EndX      float64        `yaml:"end_x"`
	TimeUnit  float64        `yaml:"time_unit"`
	Stations  []Station      `yaml:"stations"`
	Intervals []float64      `yaml:"intervals"`
	Trains    []Train        `yaml:"trains"`
	Bounds    geom.AABB      `yaml:"bounds"`
	Obstacles []geom.Polygon `yaml:"obstacles"`
	Skipped   []string       `yaml:"skipped,omitempty"`
}

// EstimateLabelSize guesses the box of a single line of text.
func EstimateLabelSize(text string, fontSize float64) network.Size {
	// Rough estimation: average character is 0.7 font sizes wide and a line
	// 1.5 font sizes tall
	return network.Size{
		W: float64(utf8.RuneCountInString(text)) * fontSize * 0.7,
		H: fontSize * 1.5,
	}
}

type openEdge struct {
	nodes []mgl64.Vec2
	row   int
}

type builder struct {
	net    *network.Network
	cfg    config.Config
	logger *zap.Logger

	polygons *collision.Manager
	lines    *collision.LineManager

	stations []Station
	rowsOf   map[network.ID][]int
	timeUnit float64
	begX     float64
	endX     float64
}

// Build lays out one diagram. The network is only read, so several diagrams
// may be built from it concurrently.
func Build(ctx context.Context, net *network.Network, d config.Diagram, cfg config.Config, logger *zap.Logger) (*Diagram, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("diagram", d.Name))

	if err := d.Validate(); err != nil {
		return nil, err
	}

	polygons, err := collision.NewManager(cfg.GridUnit(),
		collision.WithLogger(logger),
		collision.WithSnapThreshold(cfg.Collision.SnapThreshold),
		collision.WithMaxIterations(cfg.Collision.MaxIterations))
	if err != nil {
		return nil, err
	}

	b := &builder{
		net:      net,
		cfg:      cfg,
		logger:   logger,
		polygons: polygons,
		lines: collision.NewLineManager(
			collision.WithLineLogger(logger),
			collision.WithMaxDepth(cfg.Collision.MaxStackDepth)),
		rowsOf:   make(map[network.ID][]int, len(d.StationsToDraw)),
		timeUnit: cfg.TimeUnit(),
	}
	b.begX = d.Beg.Graph(b.timeUnit)
	b.endX = d.End.Graph(b.timeUnit)

	out := &Diagram{
		Name:     d.Name,
		Beg:      d.Beg,
		End:      d.End,
		BegX:     b.begX,
		EndX:     b.endX,
		TimeUnit: b.timeUnit,
	}

	out.Intervals, err = b.placeStations(d.StationsToDraw)
	if err != nil {
		return nil, err
	}
	out.Stations = b.stations

	b.polygons.ExtendX(b.begX, b.endX)
	b.polygons.ExtendY(b.stations[0].Y, b.stations[len(b.stations)-1].Y)

	ids := make([]network.ID, len(d.StationsToDraw))
	for i, name := range d.StationsToDraw {
		ids[i] = network.IDOf(name)
	}
	for _, name := range net.TrainsAt(ids) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		train, skipped, err := b.placeTrain(net.Trains[network.IDOf(name)])
		if err != nil {
			return nil, fmt.Errorf("diagram %q: train %q: %w", d.Name, name, err)
		}
		if skipped {
			out.Skipped = append(out.Skipped, name)
		}
		if len(train.Edges) > 0 {
			out.Trains = append(out.Trains, train)
		}
	}

	out.Bounds = b.polygons.Bounds()
	out.Obstacles = b.polygons.Polygons()

	logger.Debug("diagram laid out",
		zap.Int("stations", len(out.Stations)),
		zap.Int("trains", len(out.Trains)),
		zap.Int("obstacles", len(out.Obstacles)),
		zap.Int("skipped", len(out.Skipped)))
	return out, nil
}

// placeStations assigns every drawn station its row position and registers
// its name label left of the time axis. It returns the vertical distance of
// each drawn interval.
func (b *builder) placeStations(names []string) ([]float64, error) {
	intervals := make([]float64, 0, len(names)-1)
	y := 0.0

	for row, name := range names {
		st, ok := b.net.Station(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", network.ErrUnknownStation, name)
		}
		id := network.IDOf(name)

		if row > 0 {
			prev := network.IDOf(names[row-1])
			length, err := b.net.IntervalLength(prev, id)
			if err != nil {
				return nil, err
			}
			dy := length.Graph(b.cfg.PositionUnit(), b.cfg.PositionAxisScaleMode)
			intervals = append(intervals, dy)
			y += dy
		}

		size := st.LabelSize
		if size.IsZero() {
			size = EstimateLabelSize(st.Name, b.cfg.Labels.FontSize)
		}
		gap := b.cfg.Labels.StationGap
		label := geom.Rect(b.begX-size.W-gap, y-size.H/2, b.begX-gap, y+size.H/2)
		if _, err := b.polygons.Register(label); err != nil {
			return nil, fmt.Errorf("station %q label: %w", name, err)
		}

		b.stations = append(b.stations, Station{Name: name, Row: row, Y: y, Label: label})
		b.rowsOf[id] = append(b.rowsOf[id], row)
	}
	return intervals, nil
}

// placeTrain splits the schedule into edges over adjacent rows, stacks its
// dwells and places one label per edge. skipped is set when a label was
// dropped.
func (b *builder) placeTrain(t *network.Train) (train Train, skipped bool, err error) {
	train.Name = t.Name

	var (
		edges [][]mgl64.Vec2
		open  []openEdge
	)
	flush := func() {
		for _, e := range open {
			edges = append(edges, e.nodes)
		}
		open = nil
	}

	for _, stop := range t.Schedule {
		rows, ok := b.rowsOf[stop.Station]
		if !ok {
			flush()
			continue
		}

		var next []openEdge
		for _, row := range rows {
			nodes, dwell, err := b.stopNodes(stop, row)
			if err != nil {
				return Train{}, false, err
			}
			if dwell != nil {
				train.Dwells = append(train.Dwells, *dwell)
			}

			pos := slices.IndexFunc(open, func(e openEdge) bool {
				return e.row-row == 1 || row-e.row == 1
			})
			if pos < 0 {
				next = append(next, openEdge{nodes: nodes, row: row})
				continue
			}
			e := open[pos]
			open = slices.Delete(open, pos, pos+1)
			e.nodes = append(e.nodes, nodes...)
			e.row = row
			next = append(next, e)
		}
		flush()
		open = next
	}
	flush()

	for _, nodes := range edges {
		if !b.inWindow(nodes) {
			continue
		}
		edge := Edge{Nodes: nodes}
		label, err := b.placeLabel(t, nodes[0])
		switch {
		case err == nil:
			edge.Label = label
		case errors.Is(err, collision.ErrResolutionExhausted) && b.cfg.Collision.SkipUnplaceable:
			b.logger.Warn("skipping unplaceable label",
				zap.String("train", t.Name),
				zap.Float64("x", nodes[0][0]),
				zap.Float64("y", nodes[0][1]),
				zap.Error(err))
			skipped = true
		default:
			return Train{}, false, err
		}
		train.Edges = append(train.Edges, edge)
	}
	return train, skipped, nil
}

// stopNodes returns the arrival node and, if the train dwells, the departure
// node of stop on row. Dwelling stops are stacked on the row first.
func (b *builder) stopNodes(stop network.Stop, row int) ([]mgl64.Vec2, *Dwell, error) {
	arrX := stop.Arrival.Graph(b.timeUnit)
	y := b.stations[row].Y
	if !stop.Dwells() {
		return []mgl64.Vec2{{arrX, y}}, nil, nil
	}

	depX := stop.Departure.Graph(b.timeUnit)
	iv := collision.NewInterval(arrX, depX)
	level, err := b.lines.Register(row, iv)
	if err != nil {
		if !b.cfg.Collision.SkipUnplaceable {
			return nil, nil, fmt.Errorf("stop at %q: %w", stop.StationName, err)
		}
		b.logger.Warn("drawing dwell unstacked",
			zap.String("station", stop.StationName),
			zap.Error(err))
		level = 0
	}

	y += float64(level) * b.cfg.Collision.StackSpacing
	dwell := &Dwell{Station: stop.StationName, Row: row, Interval: iv, Level: level}
	return []mgl64.Vec2{{arrX, y}, {depX, y}}, dwell, nil
}

// placeLabel attaches a label whose bottom-right corner sits on anchor, tilts
// it and pushes it clear of everything placed so far.
func (b *builder) placeLabel(t *network.Train, anchor mgl64.Vec2) (*Label, error) {
	size := t.LabelSize
	if size.IsZero() {
		size = EstimateLabelSize(t.Name, b.cfg.Labels.FontSize)
	}
	x, y := anchor[0], anchor[1]
	rect := geom.Polygon{
		{x - size.W, y - size.H},
		{x, y - size.H},
		{x, y},
		{x - size.W, y},
	}
	tilt := b.cfg.TrainTilt()

	res, err := b.polygons.Resolve(rect.Rotate(anchor, tilt), b.cfg.TrainPush())
	if err != nil {
		return nil, err
	}
	return &Label{Polygon: res.Polygon, Anchor: anchor, Angle: tilt, Shift: res.Displacement}, nil
}

// inWindow reports whether any part of the polyline falls inside the time
// window of the diagram.
func (b *builder) inWindow(nodes []mgl64.Vec2) bool {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, n := range nodes {
		lo = math.Min(lo, n[0])
		hi = math.Max(hi, n[0])
	}
	return hi >= b.begX && lo <= b.endX
}
