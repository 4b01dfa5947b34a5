// Package config holds the settings that control how diagrams are laid out
// and drawn.
//
// Configuration is read from YAML. Any key left out of the file keeps the
// value returned by Default, so a file only needs to list what it changes
// plus the diagrams to draw:
//
//	unit_length: 120
//	diagrams:
//	  - name: mainline
//	    stations_to_draw: [Alpha, Bravo, Charlie]
//	    beg: "06:00"
//	    end: "12:00"
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/WenSimEHRP/paiagram/internal/network"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// MinGridUnitRatio is the smallest collision.grid_unit allowed, as a fraction
// of unit_length. Every registered box is entered into each cell it covers.
const MinGridUnitRatio = 0.01

// Diagram selects the stations and time window of one output diagram.
type Diagram struct {
	Name           string       `yaml:"name"`             // Output file name without extension
	StationsToDraw []string     `yaml:"stations_to_draw"` // Station rows from top to bottom; a station may appear more than once
	Beg            network.Time `yaml:"beg"`              // Left edge of the time axis
	End            network.Time `yaml:"end"`              // Right edge of the time axis
}

// Config is the complete configuration. Lengths are in diagram units unless
// noted otherwise; the SVG renderer multiplies them by Render.Scale.
type Config struct {
	UnitLength            float64           `yaml:"unit_length"`              // Diagram units per hour and per kilometer before axis scaling
	PositionAxisScale     float64           `yaml:"position_axis_scale"`      // Multiplier for the vertical axis
	TimeAxisScale         float64           `yaml:"time_axis_scale"`          // Multiplier for the horizontal axis
	PositionAxisScaleMode network.ScaleMode `yaml:"position_axis_scale_mode"` // linear, logarithmic or uniform station spacing
	TimeAxisScaleMode     network.ScaleMode `yaml:"time_axis_scale_mode"`     // Accepted for symmetry; time is always linear
	Diagrams              []Diagram         `yaml:"diagrams"`

	Labels struct {
		StationGap   float64 `yaml:"station_gap"`    // Space between a station label and the start of the time axis
		TrainTiltDeg float64 `yaml:"train_tilt_deg"` // Rotation of train labels around their anchor
		TrainPushDeg float64 `yaml:"train_push_deg"` // Direction train labels are pushed when they collide
		FontSize     float64 `yaml:"font_size"`      // Used to estimate label sizes missing from the network
	} `yaml:"labels"`
	Collision struct {
		GridUnit        float64 `yaml:"grid_unit"`        // Spatial grid cell size; 0 uses unit_length
		MaxIterations   int     `yaml:"max_iterations"`   // Displacement steps before a label counts as unplaceable
		SnapThreshold   float64 `yaml:"snap_threshold"`   // Residual displacement accepted without moving
		MaxStackDepth   int     `yaml:"max_stack_depth"`  // Level probes per dwell before giving up
		StackSpacing    float64 `yaml:"stack_spacing"`    // Vertical offset between stacked dwell levels
		SkipUnplaceable bool    `yaml:"skip_unplaceable"` // Drop labels that cannot be placed instead of failing the diagram
	} `yaml:"collision"`
	Render struct {
		Scale          float64 `yaml:"scale"`           // Pixels per diagram unit
		Margin         int     `yaml:"margin"`          // Blank border around the diagram in pixels
		FontFamily     string  `yaml:"font_family"`     // Font family for all text
		FontSize       int     `yaml:"font_size"`       // Hour label size in pixels
		LineWidth      float64 `yaml:"line_width"`      // Train line width in pixels
		Background     string  `yaml:"background"`      // Background fill
		GridColor      string  `yaml:"grid_color"`      // Hour lines
		StationColor   string  `yaml:"station_color"`   // Station rows and names
		TrainColor     string  `yaml:"train_color"`     // Train lines
		LabelColor     string  `yaml:"label_color"`     // Train label text
		ShowCollisions bool    `yaml:"show_collisions"` // Outline every registered collision polygon
	} `yaml:"render"`
	Marker struct {
		Shape       string `yaml:"shape"`        // Dwell marker: "circle", "triangle", "square", "diamond" or "none"
		Size        int    `yaml:"size"`         // Radius or half side length in pixels
		FillColor   string `yaml:"fill_color"`   // Marker fill
		StrokeColor string `yaml:"stroke_color"` // Marker outline
		StrokeWidth int    `yaml:"stroke_width"` // Marker outline width in pixels
	} `yaml:"marker"`
}

// Default returns the configuration used for every key a file leaves out.
// It has no diagrams.
func Default() Config {
	var c Config
	c.UnitLength = 100
	c.PositionAxisScale = 1
	c.TimeAxisScale = 1
	c.PositionAxisScaleMode = network.Linear
	c.TimeAxisScaleMode = network.Linear

	c.Labels.StationGap = 3
	c.Labels.TrainTiltDeg = 20
	c.Labels.TrainPushDeg = 90
	c.Labels.FontSize = 10

	c.Collision.MaxIterations = 255
	c.Collision.SnapThreshold = 0.5
	c.Collision.MaxStackDepth = 255
	c.Collision.StackSpacing = 2

	c.Render.Scale = 1
	c.Render.Margin = 40
	c.Render.FontFamily = "Arial, sans-serif"
	c.Render.FontSize = 12
	c.Render.LineWidth = 1.5
	c.Render.Background = "#ffffff"
	c.Render.GridColor = "#dddddd"
	c.Render.StationColor = "#333333"
	c.Render.TrainColor = "#c0392b"
	c.Render.LabelColor = "#333333"

	c.Marker.Shape = "circle"
	c.Marker.Size = 2
	c.Marker.FillColor = "#ffffff"
	c.Marker.StrokeColor = "#c0392b"
	c.Marker.StrokeWidth = 1
	return c
}

// Load reads a configuration file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and fills in diagram names.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}
	for i := range c.Diagrams {
		c.Diagrams[i].Name = strings.TrimSpace(c.Diagrams[i].Name)
		if c.Diagrams[i].Name == "" {
			c.Diagrams[i].Name = fmt.Sprintf("diagram-%d", i+1)
		}
	}
	return c, nil
}

// GridUnit returns the cell size for the collision grid.
func (c Config) GridUnit() float64 {
	if c.Collision.GridUnit > 0 {
		return c.Collision.GridUnit
	}
	return c.UnitLength
}

// TimeUnit is the horizontal length of one hour.
func (c Config) TimeUnit() float64 {
	return c.UnitLength * c.TimeAxisScale
}

// PositionUnit is the vertical length of one kilometer in linear mode.
func (c Config) PositionUnit() float64 {
	return c.UnitLength * c.PositionAxisScale
}

// TrainTilt returns Labels.TrainTiltDeg in radians.
func (c Config) TrainTilt() float64 {
	return c.Labels.TrainTiltDeg * math.Pi / 180
}

// TrainPush returns Labels.TrainPushDeg in radians.
func (c Config) TrainPush() float64 {
	return c.Labels.TrainPushDeg * math.Pi / 180
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var err error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			err = multierr.Append(err, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if !(v >= 0) || math.IsInf(v, 0) {
			err = multierr.Append(err, fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidConfig, name, v))
		}
	}

	positive("unit_length", c.UnitLength)
	positive("position_axis_scale", c.PositionAxisScale)
	positive("time_axis_scale", c.TimeAxisScale)
	positive("labels.font_size", c.Labels.FontSize)
	positive("render.scale", c.Render.Scale)
	positive("render.font_size", float64(c.Render.FontSize))
	positive("collision.max_iterations", float64(c.Collision.MaxIterations))
	nonNegative("labels.station_gap", c.Labels.StationGap)
	nonNegative("collision.grid_unit", c.Collision.GridUnit)
	nonNegative("collision.snap_threshold", c.Collision.SnapThreshold)
	nonNegative("collision.max_stack_depth", float64(c.Collision.MaxStackDepth))
	nonNegative("collision.stack_spacing", c.Collision.StackSpacing)
	nonNegative("render.margin", float64(c.Render.Margin))
	if g := c.Collision.GridUnit; g > 0 && g < c.UnitLength*MinGridUnitRatio {
		err = multierr.Append(err, fmt.Errorf("%w: collision.grid_unit must be 0 or at least %v, got %v",
			ErrInvalidConfig, c.UnitLength*MinGridUnitRatio, g))
	}

	switch strings.ToLower(c.Marker.Shape) {
	case "circle", "square", "diamond", "triangle", "none":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown marker shape %q", ErrInvalidConfig, c.Marker.Shape))
	}

	if len(c.Diagrams) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: no diagrams configured", ErrInvalidConfig))
	}
	names := make(map[string]struct{}, len(c.Diagrams))
	for i, d := range c.Diagrams {
		if _, dup := names[d.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("%w: diagram %d: duplicate name %q", ErrInvalidConfig, i, d.Name))
		}
		names[d.Name] = struct{}{}
		if derr := d.Validate(); derr != nil {
			err = multierr.Append(err, fmt.Errorf("diagram %q: %w", d.Name, derr))
		}
	}
	return err
}

// Validate checks the station list and time window of d.
func (d Diagram) Validate() error {
	if len(d.StationsToDraw) == 0 {
		return fmt.Errorf("%w: at least one station must be drawn", ErrInvalidConfig)
	}

	seen := make(map[[2]string]struct{}, 2*len(d.StationsToDraw))
	for i := 1; i < len(d.StationsToDraw); i++ {
		prev, curr := d.StationsToDraw[i-1], d.StationsToDraw[i]
		if prev == curr {
			return fmt.Errorf("%w: consecutive stations cannot be the same: %s", ErrInvalidConfig, curr)
		}
		for _, pair := range [][2]string{{prev, curr}, {curr, prev}} {
			if _, dup := seen[pair]; dup {
				return fmt.Errorf("%w: duplicate interval from %q to %q", ErrInvalidConfig, pair[0], pair[1])
			}
			seen[pair] = struct{}{}
		}
	}

	if d.Beg > d.End {
		return fmt.Errorf("%w: beg %s is after end %s", ErrInvalidConfig, d.Beg, d.End)
	}
	return nil
}
