package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	svg "github.com/ajstarks/svgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WenSimEHRP/paiagram/internal/config"
	"github.com/WenSimEHRP/paiagram/internal/layout"
	"github.com/WenSimEHRP/paiagram/internal/network"
)

const doc = `
stations:
  Alpha: {label_size: [30, 6]}
  Bravo: {label_size: [30, 6]}
intervals:
  - {from: Alpha, to: Bravo, length: 3000}
trains:
  "R&D 1":
    label_size: [24, 6]
    schedule:
      - {station: Alpha, arrival: "08:00", departure: "08:05"}
      - {station: Bravo, arrival: "08:40", departure: "08:40"}
`

func diagram(t *testing.T, cfg config.Config) *layout.Diagram {
	t.Helper()
	n, err := network.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	d := config.Diagram{Name: "test", StationsToDraw: []string{"Alpha", "Bravo"}, Beg: 8 * 3600, End: 10 * 3600}
	out, err := layout.Build(context.Background(), n, d, cfg, nil)
	require.NoError(t, err)
	return out
}

func TestSVG(t *testing.T) {
	cfg := config.Default()
	d := diagram(t, cfg)

	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, d, cfg))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<title>test</title>")
	assert.Contains(t, out, ">Alpha</text>")
	assert.Contains(t, out, ">Bravo</text>")
	assert.Contains(t, out, ">08:00</text>")
	assert.Contains(t, out, ">10:00</text>")
	assert.Equal(t, 3, strings.Count(out, "<line")-2, "one line per hour after the station rows")
	assert.Equal(t, 1, strings.Count(out, "<polyline"))
	assert.Contains(t, out, `clip-path="url(#window)"`)
	assert.Contains(t, out, "rotate(20.000")
	assert.Contains(t, out, "R&amp;D 1")
	assert.Equal(t, 2, strings.Count(out, "<circle"), "markers at both ends of the edge")
	assert.NotContains(t, out, `id="collisions"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</svg>"))
}

func TestSVGShowsCollisions(t *testing.T) {
	cfg := config.Default()
	cfg.Render.ShowCollisions = true
	cfg.Marker.Shape = "diamond"
	d := diagram(t, cfg)

	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, d, cfg))
	out := buf.String()

	assert.Contains(t, out, `id="collisions"`)
	// two markers plus one outline per obstacle
	assert.Equal(t, 2+len(d.Obstacles), strings.Count(out, "<polygon"))
	assert.NotContains(t, out, "<circle")
}

func TestSVGMarkerShapes(t *testing.T) {
	for shape, element := range map[string]string{
		"circle":   "<circle",
		"square":   "<rect",
		"triangle": "<polygon",
		"bogus":    "<circle",
	} {
		t.Run(shape, func(t *testing.T) {
			cfg := config.Default()
			cfg.Marker.Shape = shape
			var buf bytes.Buffer
			c := &canvas{SVG: svg.New(&buf), cfg: cfg}
			c.drawMarker(10, 10)
			assert.Contains(t, buf.String(), element)
		})
	}

	cfg := config.Default()
	cfg.Marker.Shape = "none"
	var buf bytes.Buffer
	c := &canvas{SVG: svg.New(&buf), cfg: cfg}
	c.drawMarker(10, 10)
	assert.Empty(t, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestSVGReportsWriteErrors(t *testing.T) {
	cfg := config.Default()
	err := SVG(failingWriter{}, diagram(t, cfg), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), `"test"`)
}
