// Package dispatch decides which generation source serves the feeder each
// tick. Policies are interchangeable behind the Policy interface; the solar
// handover policy is hysteretic so the source never flaps at a boundary.
package dispatch

import (
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// Context is everything a policy may consider for one decision.
type Context struct {
	Tick int
	// Hour is the simulated hour of day, 0..23.
	Hour int
	// AvailableSolarKW is the PV potential across the feeder this tick.
	AvailableSolarKW float64
	// DemandKW is the total feeder demand this tick.
	DemandKW float64
	// Status carries the tick condition flags; degraded ticks should hold.
	Status model.TickStatus
	// Prev is the source dispatched on the previous tick.
	Prev model.DispatchSource
}

// Decision is a policy's output: the source and the fraction of PV potential
// to dispatch.
type Decision struct {
	Source        model.DispatchSource
	SolarFraction float64
}

// Policy decides the dispatch source per tick.
type Policy interface {
	Name() string
	Decide(ctx Context) Decision
}

// GridOnly always serves from the grid. Useful as a baseline and in tests.
type GridOnly struct{}

func (GridOnly) Name() string { return "grid-only" }

func (GridOnly) Decide(Context) Decision {
	return Decision{Source: model.SourceGrid, SolarFraction: 0}
}
