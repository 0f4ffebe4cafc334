package topology

import (
	"errors"
	"fmt"
	"math"
)

// Bus is one node of the radial feeder.
type Bus struct {
	ID        string  `yaml:"id" json:"id"`
	NominalKV float64 `yaml:"nominal_kv" json:"nominal_kv"`
	// LoadShare is this bus's fraction of the feeder-level historical load.
	LoadShare float64 `yaml:"load_share" json:"load_share"`
	// SolarCapacityKW is the rated PV capacity installed at the bus (0 = none).
	SolarCapacityKW float64 `yaml:"solar_capacity_kw" json:"solar_capacity_kw"`
	// X, Y are layout coordinates for the dashboard topology view.
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	// Metered marks buses with SCADA voltage/power sensors.
	Metered bool `yaml:"metered" json:"metered"`
}

// Line is a series impedance between two buses.
type Line struct {
	From      string  `yaml:"from" json:"from"`
	To        string  `yaml:"to" json:"to"`
	ROhmPerKM float64 `yaml:"r_ohm_per_km" json:"r_ohm_per_km"`
	XOhmPerKM float64 `yaml:"x_ohm_per_km" json:"x_ohm_per_km"`
	LengthKM  float64 `yaml:"length_km" json:"length_km"`
}

// Impedance returns the total line impedance in per-unit terms. Line data is
// already expressed on the system base, so this is just R+jX times length.
func (l Line) Impedance() complex128 {
	return complex(l.ROhmPerKM*l.LengthKM, l.XOhmPerKM*l.LengthKM)
}

// Topology is the static feeder description: a connected radial tree rooted
// at the source (substation) bus. It survives simulation resets unchanged.
type Topology struct {
	SourceBus string `yaml:"source_bus" json:"source_bus"`
	Buses     []Bus  `yaml:"buses" json:"buses"`
	Lines     []Line `yaml:"lines" json:"lines"`

	// parent and pathZ are derived at validation time.
	parent map[string]string
	pathZ  map[string]complex128
}

// Validate checks the radial-tree invariant and derives per-bus path
// impedances. A failure here is a fatal configuration error; no tick may run
// against an invalid topology.
func (t *Topology) Validate() error {
	if len(t.Buses) == 0 {
		return errors.New("topology has no buses")
	}
	if t.SourceBus == "" {
		return errors.New("topology source_bus is required")
	}

	byID := make(map[string]Bus, len(t.Buses))
	for _, b := range t.Buses {
		if b.ID == "" {
			return errors.New("bus with empty id")
		}
		if _, dup := byID[b.ID]; dup {
			return fmt.Errorf("duplicate bus id %q", b.ID)
		}
		if b.NominalKV <= 0 {
			return fmt.Errorf("bus %q: nominal_kv must be > 0", b.ID)
		}
		if b.LoadShare < 0 {
			return fmt.Errorf("bus %q: load_share must be >= 0", b.ID)
		}
		if b.SolarCapacityKW < 0 {
			return fmt.Errorf("bus %q: solar_capacity_kw must be >= 0", b.ID)
		}
		byID[b.ID] = b
	}
	if _, ok := byID[t.SourceBus]; !ok {
		return fmt.Errorf("source_bus %q is not a declared bus", t.SourceBus)
	}

	// A radial tree on N buses has exactly N-1 lines.
	if len(t.Lines) != len(t.Buses)-1 {
		return fmt.Errorf("radial feeder requires %d lines for %d buses, got %d",
			len(t.Buses)-1, len(t.Buses), len(t.Lines))
	}

	adj := make(map[string][]Line, len(t.Buses))
	for _, l := range t.Lines {
		if _, ok := byID[l.From]; !ok {
			return fmt.Errorf("line references unknown bus %q", l.From)
		}
		if _, ok := byID[l.To]; !ok {
			return fmt.Errorf("line references unknown bus %q", l.To)
		}
		if l.From == l.To {
			return fmt.Errorf("line from %q to itself", l.From)
		}
		if l.LengthKM <= 0 {
			return fmt.Errorf("line %s-%s: length_km must be > 0", l.From, l.To)
		}
		if l.ROhmPerKM < 0 || l.XOhmPerKM < 0 || (l.ROhmPerKM == 0 && l.XOhmPerKM == 0) {
			return fmt.Errorf("line %s-%s: impedance must be non-negative and non-zero", l.From, l.To)
		}
		adj[l.From] = append(adj[l.From], l)
		rev := l
		rev.From, rev.To = l.To, l.From
		adj[l.To] = append(adj[l.To], rev)
	}

	// BFS from the source. With N-1 edges, full reachability implies a tree
	// (connected and acyclic).
	parent := map[string]string{t.SourceBus: ""}
	pathZ := map[string]complex128{t.SourceBus: 0}
	queue := []string{t.SourceBus}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range adj[cur] {
			if _, seen := parent[l.To]; seen {
				continue
			}
			parent[l.To] = cur
			pathZ[l.To] = pathZ[cur] + l.Impedance()
			queue = append(queue, l.To)
		}
	}
	if len(parent) != len(t.Buses) {
		for id := range byID {
			if _, ok := parent[id]; !ok {
				return fmt.Errorf("bus %q is not connected to source %q", id, t.SourceBus)
			}
		}
	}

	t.parent = parent
	t.pathZ = pathZ
	return nil
}

// Bus returns the bus with the given ID.
func (t *Topology) Bus(id string) (Bus, bool) {
	for _, b := range t.Buses {
		if b.ID == id {
			return b, true
		}
	}
	return Bus{}, false
}

// PathImpedance returns the series impedance of the unique path from the
// source bus to the given bus. Valid only after Validate.
func (t *Topology) PathImpedance(busID string) (complex128, error) {
	if t.pathZ == nil {
		return 0, errors.New("topology not validated")
	}
	z, ok := t.pathZ[busID]
	if !ok {
		return 0, fmt.Errorf("unknown bus %q", busID)
	}
	return z, nil
}

// Parent returns the upstream neighbor of a bus on the path to the source.
func (t *Topology) Parent(busID string) (string, bool) {
	p, ok := t.parent[busID]
	return p, ok && p != ""
}

// DistanceFromSource returns the euclidean layout distance from the source,
// used by the dashboard for the voltage-vs-distance profile plot.
func (t *Topology) DistanceFromSource(busID string) float64 {
	src, _ := t.Bus(t.SourceBus)
	b, ok := t.Bus(busID)
	if !ok {
		return 0
	}
	return math.Hypot(b.X-src.X, b.Y-src.Y)
}

// MeteredBuses returns the IDs of buses carrying SCADA sensors, source bus
// excluded, in declaration order.
func (t *Topology) MeteredBuses() []string {
	out := make([]string, 0, len(t.Buses))
	for _, b := range t.Buses {
		if b.Metered && b.ID != t.SourceBus {
			out = append(out, b.ID)
		}
	}
	return out
}

// TotalSolarCapacityKW sums installed PV capacity across the feeder.
func (t *Topology) TotalSolarCapacityKW() float64 {
	var sum float64
	for _, b := range t.Buses {
		sum += b.SolarCapacityKW
	}
	return sum
}
