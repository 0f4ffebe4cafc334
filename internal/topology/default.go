package topology

// DefaultFeeder returns a small radial test feeder: substation, a main trunk
// and two laterals, with PV installed at the far end of each lateral. Load
// shares sum to 1.0 across the load buses.
func DefaultFeeder() *Topology {
	t := &Topology{
		SourceBus: "bus1",
		Buses: []Bus{
			{ID: "bus1", NominalKV: 11.0, X: 0, Y: 0},
			{ID: "bus1005", NominalKV: 11.0, LoadShare: 0.20, SolarCapacityKW: 100, X: 2, Y: 0, Metered: true},
			{ID: "bus1010", NominalKV: 11.0, LoadShare: 0.15, SolarCapacityKW: 150, X: 4, Y: 0, Metered: true},
			{ID: "bus2008", NominalKV: 11.0, LoadShare: 0.25, SolarCapacityKW: 80, X: 2, Y: 2, Metered: true},
			{ID: "bus2015", NominalKV: 11.0, LoadShare: 0.15, SolarCapacityKW: 120, X: 4, Y: 2, Metered: true},
			{ID: "bus3006", NominalKV: 11.0, LoadShare: 0.25, SolarCapacityKW: 50, X: 2, Y: -2, Metered: true},
		},
		Lines: []Line{
			{From: "bus1", To: "bus1005", ROhmPerKM: 0.005, XOhmPerKM: 0.002, LengthKM: 1.0},
			{From: "bus1005", To: "bus1010", ROhmPerKM: 0.005, XOhmPerKM: 0.002, LengthKM: 1.5},
			{From: "bus1", To: "bus2008", ROhmPerKM: 0.005, XOhmPerKM: 0.002, LengthKM: 1.2},
			{From: "bus2008", To: "bus2015", ROhmPerKM: 0.005, XOhmPerKM: 0.002, LengthKM: 1.8},
			{From: "bus1", To: "bus3006", ROhmPerKM: 0.005, XOhmPerKM: 0.002, LengthKM: 0.8},
		},
	}
	if err := t.Validate(); err != nil {
		panic("default feeder invalid: " + err.Error())
	}
	return t
}
