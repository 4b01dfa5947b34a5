// Package network reads the railway network a diagram is drawn from:
// stations, the intervals between them and the trains with their schedules.
package network

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownStation    = errors.New("unknown station")
	ErrDuplicateInterval = errors.New("duplicate interval")
	ErrInvalidSchedule   = errors.New("invalid schedule")
	ErrNoInterval        = errors.New("no interval between stations")
	ErrInvalidTime       = errors.New("invalid time")
	ErrIDCollision       = errors.New("name hashes collide")
)

// IntervalID is the ordered pair (from, to) of station ids.
type IntervalID [2]ID

// Reverse returns the id of the opposite direction.
func (id IntervalID) Reverse() IntervalID {
	return IntervalID{id[1], id[0]}
}

// Station is a named stop. Intervals and Trains index what touches it.
type Station struct {
	Name       string
	LabelSize  Size
	Tracks     int
	Milestones map[string]Length
	Intervals  map[IntervalID]struct{}
	Trains     map[ID]struct{}
}

// Interval is one direction of track between two stations.
type Interval struct {
	Name   string
	Length Length
}

// Stop is one schedule entry of a train.
type Stop struct {
	Station     ID
	StationName string
	Arrival     Time
	Departure   Time
	Actions     []Action
}

// Dwells reports whether the train stands at the station for any time.
func (s Stop) Dwells() bool {
	return s.Arrival != s.Departure
}

// Train is a named service with its stops in order.
type Train struct {
	Name      string
	LabelSize Size
	Schedule  []Stop
}

// Network is read-only once parsed and may be shared between goroutines.
type Network struct {
	Stations  map[ID]*Station
	Trains    map[ID]*Train
	Intervals map[IntervalID]Interval
}

type document struct {
	Stations  map[string]stationDoc `yaml:"stations"`
	Intervals []intervalDoc         `yaml:"intervals"`
	Trains    map[string]trainDoc   `yaml:"trains"`
}

type stationDoc struct {
	LabelSize  Size              `yaml:"label_size"`
	Tracks     *int              `yaml:"tracks"`
	Milestones map[string]Length `yaml:"milestones"`
}

type intervalDoc struct {
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	Name          string `yaml:"name"`
	Length        Length `yaml:"length"`
	Bidirectional *bool  `yaml:"bidirectional"`
}

type trainDoc struct {
	LabelSize Size      `yaml:"label_size"`
	Schedule  []stopDoc `yaml:"schedule"`
}

type stopDoc struct {
	Station   string   `yaml:"station"`
	Arrival   Time     `yaml:"arrival"`
	Departure Time     `yaml:"departure"`
	Actions   []Action `yaml:"actions"`
}

// Load reads a network file.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading network file: %w", err)
	}
	defer f.Close()

	n, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Parse decodes and validates a network document.
func Parse(r io.Reader) (*Network, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing network: %w", err)
	}

	n := &Network{
		Stations:  make(map[ID]*Station, len(doc.Stations)),
		Trains:    make(map[ID]*Train, len(doc.Trains)),
		Intervals: make(map[IntervalID]Interval, 2*len(doc.Intervals)),
	}

	for _, name := range sortedKeys(doc.Stations) {
		sd := doc.Stations[name]
		id := IDOf(name)
		if other, ok := n.Stations[id]; ok {
			return nil, fmt.Errorf("%w: stations %q and %q", ErrIDCollision, other.Name, name)
		}
		tracks := 1
		if sd.Tracks != nil {
			tracks = *sd.Tracks
		}
		n.Stations[id] = &Station{
			Name:       name,
			LabelSize:  sd.LabelSize,
			Tracks:     tracks,
			Milestones: sd.Milestones,
			Intervals:  make(map[IntervalID]struct{}),
			Trains:     make(map[ID]struct{}),
		}
	}

	for i, iv := range doc.Intervals {
		if err := n.addInterval(iv); err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
	}

	for _, name := range sortedKeys(doc.Trains) {
		if err := n.addTrain(name, doc.Trains[name]); err != nil {
			return nil, fmt.Errorf("train %q: %w", name, err)
		}
	}

	return n, nil
}

func (n *Network) addInterval(doc intervalDoc) error {
	from, err := n.lookup(doc.From)
	if err != nil {
		return err
	}
	to, err := n.lookup(doc.To)
	if err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: %q to itself", ErrDuplicateInterval, doc.From)
	}

	id := IntervalID{from, to}
	ids := []IntervalID{id}
	if doc.Bidirectional == nil || *doc.Bidirectional {
		ids = append(ids, id.Reverse())
	}
	for _, key := range ids {
		if _, ok := n.Intervals[key]; ok {
			return fmt.Errorf("%w: from %q to %q",
				ErrDuplicateInterval, n.Stations[key[0]].Name, n.Stations[key[1]].Name)
		}
	}

	for _, key := range ids {
		n.Intervals[key] = Interval{Name: doc.Name, Length: doc.Length}
	}
	n.Stations[from].Intervals[id] = struct{}{}
	n.Stations[to].Intervals[id] = struct{}{}
	return nil
}

func (n *Network) addTrain(name string, doc trainDoc) error {
	id := IDOf(name)
	if other, ok := n.Trains[id]; ok {
		return fmt.Errorf("%w: trains %q and %q", ErrIDCollision, other.Name, name)
	}

	train := &Train{
		Name:      name,
		LabelSize: doc.LabelSize,
		Schedule:  make([]Stop, 0, len(doc.Schedule)),
	}
	for i, sd := range doc.Schedule {
		station, err := n.lookup(sd.Station)
		if err != nil {
			return fmt.Errorf("stop %d: %w", i, err)
		}
		if sd.Departure < sd.Arrival {
			return fmt.Errorf("stop %d at %q: %w: departure %s before arrival %s",
				i, sd.Station, ErrInvalidSchedule, sd.Departure, sd.Arrival)
		}
		train.Schedule = append(train.Schedule, Stop{
			Station:     station,
			StationName: sd.Station,
			Arrival:     sd.Arrival,
			Departure:   sd.Departure,
			Actions:     sd.Actions,
		})
		n.Stations[station].Trains[id] = struct{}{}
	}

	n.Trains[id] = train
	return nil
}

func (n *Network) lookup(name string) (ID, error) {
	id := IDOf(name)
	if _, ok := n.Stations[id]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStation, name)
	}
	return id, nil
}

// Station returns the station with the given name.
func (n *Network) Station(name string) (*Station, bool) {
	s, ok := n.Stations[IDOf(name)]
	return s, ok
}

// IntervalLength returns the length between two stations, averaging both
// directions when both exist.
func (n *Network) IntervalLength(from, to ID) (Length, error) {
	forward, hasForward := n.Intervals[IntervalID{from, to}]
	backward, hasBackward := n.Intervals[IntervalID{to, from}]

	switch {
	case hasForward && hasBackward:
		return Length((uint64(forward.Length) + uint64(backward.Length)) / 2), nil
	case hasForward:
		return forward.Length, nil
	case hasBackward:
		return backward.Length, nil
	default:
		return 0, fmt.Errorf("%w %s and %s", ErrNoInterval, n.name(from), n.name(to))
	}
}

func (n *Network) name(id ID) string {
	if s, ok := n.Stations[id]; ok {
		return fmt.Sprintf("%q", s.Name)
	}
	return fmt.Sprintf("#%d", uint64(id))
}

// TrainsAt returns the names of the trains calling at any of the stations,
// sorted.
func (n *Network) TrainsAt(stations []ID) []string {
	seen := make(map[ID]struct{})
	var names []string
	for _, sid := range stations {
		s, ok := n.Stations[sid]
		if !ok {
			continue
		}
		for tid := range s.Trains {
			if _, dup := seen[tid]; dup {
				continue
			}
			seen[tid] = struct{}{}
			names = append(names, n.Trains[tid].Name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
