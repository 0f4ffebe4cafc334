package models

// FaultRequest injects a fault at a bus.
type FaultRequest struct {
	Bus string `json:"bus" binding:"required"`
	// Type is one of "L-G", "L-L", "L-L-G", "L-L-L".
	Type string `json:"type" binding:"required"`
	// ImpedancePU is the fault impedance; 0 = bolted.
	ImpedancePU float64 `json:"impedance_pu,omitempty"`
}

// OverrideRequest sets or clears the operator dispatch override.
type OverrideRequest struct {
	// Source is "GRID", "SOLAR" or "BLEND"; ignored when Clear is set.
	Source string `json:"source,omitempty"`
	Clear  bool   `json:"clear,omitempty"`
}

// FDIRequest reconfigures the false-data-injection attack emulation.
type FDIRequest struct {
	Enabled   bool    `json:"enabled"`
	BiasPU    float64 `json:"bias_pu,omitempty"`
	TargetBus string  `json:"target_bus,omitempty"`
}
