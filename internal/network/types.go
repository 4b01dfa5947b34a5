package network

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// ID identifies a station or train by the hash of its name.
type ID uint64

// IDOf hashes name into an ID.
func IDOf(name string) ID {
	return ID(xxhash.Sum64String(name))
}

// Time is a time of day in seconds since midnight. Values past 24h are
// allowed for services running over midnight.
type Time uint32

// ParseTime accepts "HH:MM" or "HH:MM:SS".
func ParseTime(s string) (Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	var fields [3]uint64
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		fields[i] = v
	}
	if fields[1] >= 60 || fields[2] >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	seconds := fields[0]*3600 + fields[1]*60 + fields[2]
	if seconds > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Time(seconds), nil
}

// Hours returns t as fractional hours.
func (t Time) Hours() float64 {
	return float64(t) / 3600
}

// Graph converts t to a horizontal diagram coordinate, unit being the
// length of one hour.
func (t Time) Graph(unit float64) float64 {
	return unit * t.Hours()
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t/3600, (t/60)%60, t%60)
}

// UnmarshalYAML accepts a plain number of seconds or a clock string.
func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: expected a scalar", node.Line, ErrInvalidTime)
	}
	if node.Tag == "!!int" {
		var seconds uint32
		if err := node.Decode(&seconds); err != nil {
			return fmt.Errorf("line %d: %w: %v", node.Line, ErrInvalidTime, err)
		}
		*t = Time(seconds)
		return nil
	}

	parsed, err := ParseTime(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = parsed
	return nil
}

func (t Time) MarshalYAML() (any, error) {
	return t.String(), nil
}

// ScaleMode selects how interval lengths map onto the position axis.
type ScaleMode int

const (
	Linear ScaleMode = iota
	Logarithmic
	Uniform
)

var scaleModeNames = map[ScaleMode]string{
	Linear:      "linear",
	Logarithmic: "logarithmic",
	Uniform:     "uniform",
}

func (m ScaleMode) String() string {
	if name, ok := scaleModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ScaleMode(%d)", int(m))
}

// ParseScaleMode is case-insensitive.
func ParseScaleMode(s string) (ScaleMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range scaleModeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown scale mode %q", s)
}

func (m *ScaleMode) UnmarshalYAML(node *yaml.Node) error {
	mode, err := ParseScaleMode(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = mode
	return nil
}

func (m ScaleMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Length is a track distance in meters.
type Length uint32

// Kilometers converts l from meters.
func (l Length) Kilometers() float64 {
	return float64(l) / 1000
}

// Graph converts l to a vertical diagram distance, unit being the length of
// one kilometer in linear mode.
func (l Length) Graph(unit float64, mode ScaleMode) float64 {
	switch mode {
	case Logarithmic:
		return unit * math.Max(math.Log(l.Kilometers()), 1)
	case Uniform:
		return unit
	default:
		return unit * l.Kilometers()
	}
}

// Action is something a train does at a stop besides dwelling.
type Action string

const (
	Compose   Action = "compose"
	Decompose Action = "decompose"
	Outbound  Action = "outbound"
	Inbound   Action = "inbound"
)

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	switch v := Action(strings.ToLower(node.Value)); v {
	case Compose, Decompose, Outbound, Inbound:
		*a = v
		return nil
	default:
		return fmt.Errorf("line %d: unknown train action %q", node.Line, node.Value)
	}
}

// Size is the width and height of a label in diagram units, written as
// [w, h] in YAML.
type Size struct {
	W, H float64
}

// IsZero reports whether no size was given.
func (s Size) IsZero() bool {
	return s.W == 0 && s.H == 0
}

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: label size: %w", node.Line, err)
	}
	if len(pair) != 2 || pair[0] < 0 || pair[1] < 0 {
		return fmt.Errorf("line %d: label size must be [w, h] with non-negative values", node.Line)
	}
	s.W, s.H = pair[0], pair[1]
	return nil
}

func (s Size) MarshalYAML() (any, error) {
	return []float64{s.W, s.H}, nil
}
