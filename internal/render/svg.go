// Package render draws a laid out diagram as SVG.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/WenSimEHRP/paiagram/internal/config"
	"github.com/WenSimEHRP/paiagram/internal/geom"
	"github.com/WenSimEHRP/paiagram/internal/layout"
)

// errWriter remembers the first write error so the canvas calls, which do
// not return errors, can be checked once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}

type canvas struct {
	*svg.SVG
	cfg    config.Config
	origin mgl64.Vec2
}

// px maps a diagram point to canvas pixels.
func (c *canvas) px(p mgl64.Vec2) (int, int) {
	margin := float64(c.cfg.Render.Margin)
	x := (p[0]-c.origin[0])*c.cfg.Render.Scale + margin
	y := (p[1]-c.origin[1])*c.cfg.Render.Scale + margin
	return int(math.Round(x)), int(math.Round(y))
}

func (c *canvas) points(nodes []mgl64.Vec2) ([]int, []int) {
	xs := make([]int, len(nodes))
	ys := make([]int, len(nodes))
	for i, n := range nodes {
		xs[i], ys[i] = c.px(n)
	}
	return xs, ys
}

// SVG writes d to w.
func SVG(w io.Writer, d *layout.Diagram, cfg config.Config) error {
	ew := &errWriter{w: w}
	c := &canvas{SVG: svg.New(ew), cfg: cfg, origin: d.Bounds.Min}

	margin := 2 * cfg.Render.Margin
	width := int(math.Ceil(d.Bounds.Width()*cfg.Render.Scale)) + margin
	height := int(math.Ceil(d.Bounds.Height()*cfg.Render.Scale)) + margin

	c.Start(width, height)
	c.Title(d.Name)
	c.Rect(0, 0, width, height, "fill:"+cfg.Render.Background)

	if len(d.Stations) > 0 {
		c.drawHours(d)
		c.drawStations(d)
	}
	c.drawTrains(d)
	if cfg.Render.ShowCollisions {
		c.drawObstacles(d.Obstacles)
	}

	c.End()
	if ew.err != nil {
		return fmt.Errorf("error writing SVG for diagram %q: %w", d.Name, ew.err)
	}
	return nil
}

func (c *canvas) drawHours(d *layout.Diagram) {
	top := d.Stations[0].Y
	bottom := d.Stations[len(d.Stations)-1].Y
	style := fmt.Sprintf("stroke:%s;stroke-width:1", c.cfg.Render.GridColor)
	textStyle := fmt.Sprintf("text-anchor:middle;font-family:%s;font-size:%dpx;fill:%s",
		c.cfg.Render.FontFamily, c.cfg.Render.FontSize, c.cfg.Render.StationColor)

	c.Gid("hours")
	for hour := math.Ceil(d.Beg.Hours()); hour <= d.End.Hours(); hour++ {
		x := hour * d.TimeUnit
		x1, y1 := c.px(mgl64.Vec2{x, top})
		x2, y2 := c.px(mgl64.Vec2{x, bottom})
		c.Line(x1, y1, x2, y2, style)
		c.Text(x1, y1-c.cfg.Render.FontSize/2, fmt.Sprintf("%02d:00", int(hour)%24), textStyle)
	}
	c.Gend()
}

func (c *canvas) drawStations(d *layout.Diagram) {
	style := fmt.Sprintf("stroke:%s;stroke-width:1", c.cfg.Render.StationColor)

	c.Gid("stations")
	for _, st := range d.Stations {
		x1, y := c.px(mgl64.Vec2{d.BegX, st.Y})
		x2, _ := c.px(mgl64.Vec2{d.EndX, st.Y})
		c.Line(x1, y, x2, y, style)

		box, ok := geom.Bounds(st.Label)
		if !ok {
			continue
		}
		tx, ty := c.px(mgl64.Vec2{box.Max[0], (box.Min[1] + box.Max[1]) / 2})
		size := math.Max(1, box.Height()*c.cfg.Render.Scale/1.5)
		c.Text(tx, ty, st.Name, fmt.Sprintf(
			"text-anchor:end;dominant-baseline:middle;font-family:%s;font-size:%.1fpx;fill:%s",
			c.cfg.Render.FontFamily, size, c.cfg.Render.StationColor))
	}
	c.Gend()
}

func (c *canvas) drawTrains(d *layout.Diagram) {
	// lines stay inside the time window, labels may not
	left, top := c.px(mgl64.Vec2{d.BegX, d.Bounds.Min[1]})
	right, bottom := c.px(mgl64.Vec2{d.EndX, d.Bounds.Max[1]})
	c.ClipPath(`id="window"`)
	c.Rect(left, top, right-left, bottom-top)
	c.ClipEnd()

	lineStyle := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.2f;stroke-linejoin:round",
		c.cfg.Render.TrainColor, c.cfg.Render.LineWidth)

	c.Group(`id="trains"`, `clip-path="url(#window)"`)
	for _, t := range d.Trains {
		c.Group(`class="train"`)
		c.Title(t.Name)
		for _, e := range t.Edges {
			xs, ys := c.points(e.Nodes)
			if len(e.Nodes) > 1 {
				c.Polyline(xs, ys, lineStyle)
			}
			c.drawMarker(xs[0], ys[0])
			if last := len(xs) - 1; last > 0 {
				c.drawMarker(xs[last], ys[last])
			}
		}
		c.Gend()
	}
	c.Gend()

	c.Gid("labels")
	for _, t := range d.Trains {
		for _, e := range t.Edges {
			if e.Label != nil {
				c.drawLabel(t.Name, e.Label)
			}
		}
	}
	c.Gend()
}

// drawLabel writes the train name along the bottom edge of its placed
// outline, rotated like the outline.
func (c *canvas) drawLabel(name string, l *layout.Label) {
	if len(l.Polygon) != 4 {
		return
	}
	x, y := c.px(l.Polygon[3])
	height := l.Polygon[3].Sub(l.Polygon[0]).Len() * c.cfg.Render.Scale
	size := math.Max(1, height/1.5)

	c.Gtransform(fmt.Sprintf("rotate(%.3f %d %d)", mgl64.RadToDeg(l.Angle), x, y))
	c.Text(x, y, name, fmt.Sprintf("font-family:%s;font-size:%.1fpx;fill:%s",
		c.cfg.Render.FontFamily, size, c.cfg.Render.LabelColor))
	c.Gend()
}

// drawMarker draws the configured marker shape centred on (x, y).
func (c *canvas) drawMarker(x, y int) {
	m := c.cfg.Marker
	size := m.Size
	style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d", m.FillColor, m.StrokeColor, m.StrokeWidth)

	switch strings.ToLower(m.Shape) {
	case "none":
	case "square":
		c.Rect(x-size, y-size, size*2, size*2, style)
	case "diamond":
		c.Polygon(
			[]int{x, x + size, x, x - size},
			[]int{y - size, y, y + size, y},
			style)
	case "triangle":
		height := int(float64(size) * 1.5)
		c.Polygon(
			[]int{x, x - size, x + size},
			[]int{y - height, y + height/2, y + height/2},
			style)
	default:
		c.Circle(x, y, size, style)
	}
}

func (c *canvas) drawObstacles(obstacles []geom.Polygon) {
	c.Gid("collisions")
	for _, p := range obstacles {
		xs, ys := c.points(p)
		c.Polygon(xs, ys, "fill:none;stroke:#3498db;stroke-width:0.5;stroke-dasharray:2,2")
	}
	c.Gend()
}
