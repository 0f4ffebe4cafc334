package model

// DispatchSource is the generation source feeding the feeder for a tick.
// Keep these values stable; they are intended for CSV output and the
// dashboard API.
type DispatchSource string

const (
	SourceGrid  DispatchSource = "GRID"
	SourceSolar DispatchSource = "SOLAR"
	SourceBlend DispatchSource = "BLEND"
)

// RecloserState is the protection state machine position (Device 79).
type RecloserState string

const (
	RecloserClosed  RecloserState = "CLOSED"
	RecloserTripped RecloserState = "TRIPPED"
	RecloserWaiting RecloserState = "WAITING_TO_RECLOSE"
	RecloserLockout RecloserState = "LOCKOUT"
)

// ControlAction is the control decision produced each tick by protection and
// dispatch logic. It is consumed by the physics engine on the next tick; this
// is the feedback edge closing the simulation loop.
type ControlAction struct {
	// TapPosition is the AVR tap as a source-voltage multiplier (1.0 = neutral).
	TapPosition float64 `json:"tap_position"`
	// Source selects grid vs solar generation dispatch.
	Source DispatchSource `json:"source"`
	// SolarFraction is the share of demand served by solar under SOLAR/BLEND.
	SolarFraction float64 `json:"solar_fraction"`
	// StorageKW is the battery power setpoint: positive discharges to the
	// feeder, negative charges from it.
	StorageKW float64 `json:"storage_kw"`
	// BreakerClose commands the recloser breaker position.
	BreakerClose bool `json:"breaker_close"`
	// ManualReset requests a lockout reset; honored only in LOCKOUT.
	ManualReset bool `json:"manual_reset,omitempty"`
}

// NeutralAction is the control action applied on the first tick, before any
// control evaluation has run.
func NeutralAction() ControlAction {
	return ControlAction{
		TapPosition:  1.0,
		Source:       SourceGrid,
		BreakerClose: true,
	}
}
