package model

import (
	"math"
	"time"
)

// BusState is the electrical operating point of a single bus for one tick.
// Units:
// - VoltagePU: per-unit voltage magnitude
// - AngleRad: voltage angle, radians
// - Loads/generation: kW / kVAR
type BusState struct {
	VoltagePU  float64
	AngleRad   float64
	PLoadKW    float64
	QLoadKVAR  float64
	PSolarKW   float64
	QSolarKVAR float64
	CellTempC  float64 // PV cell temperature; ambient when no PV at the bus
}

// PhysicsState is the full simulated feeder state for one tick. It is owned
// by the physics engine and treated as immutable once produced; each tick
// supersedes the previous snapshot.
type PhysicsState struct {
	Tick int
	Time time.Time

	// Generator swing state.
	RotorAngleRad  float64
	FrequencyHz    float64
	FrequencyDevHz float64
	MechPowerKW    float64

	// Transformer thermal state.
	TransformerTempC  float64
	TransformerLoadPU float64

	// Exogenous conditions for the tick.
	AmbientTempC float64
	IrradiancePU float64

	// Per-bus electrical state, keyed by bus ID.
	Buses map[string]BusState

	// Total feeder demand seen at the substation.
	TotalPKW   float64
	TotalQKVAR float64

	// Fault injection, if any.
	FaultActive bool
	FaultBus    string

	// Energized reflects the breaker position applied during this tick.
	Energized bool
}

// Finite reports whether every numeric field of the state is a finite number.
// The physics engine refuses to publish a state that fails this check.
func (s PhysicsState) Finite() bool {
	scalars := []float64{
		s.RotorAngleRad, s.FrequencyHz, s.FrequencyDevHz, s.MechPowerKW,
		s.TransformerTempC, s.TransformerLoadPU, s.TotalPKW, s.TotalQKVAR,
	}
	for _, v := range scalars {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, b := range s.Buses {
		for _, v := range []float64{b.VoltagePU, b.AngleRad, b.PLoadKW, b.QLoadKVAR, b.PSolarKW, b.QSolarKVAR, b.CellTempC} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// CloneBuses returns a copy of the per-bus map so a derived state can be
// mutated without aliasing the published snapshot.
func (s PhysicsState) CloneBuses() map[string]BusState {
	out := make(map[string]BusState, len(s.Buses))
	for id, b := range s.Buses {
		out[id] = b
	}
	return out
}
