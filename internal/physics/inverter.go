package physics

import (
	"errors"
	"math"
)

// InverterParams defines the autonomous volt-watt and volt-var response of
// the PV smart inverters (IEEE 1547 category B style curves).
// Units:
// - Voltage breakpoints: per-unit
// - VoltWattSlopePerPU: curtailment fraction per pu of overvoltage
// - VoltVARSlopePerPU: var output as a fraction of nameplate per pu of error
// - MaxVARFraction: var capability as a fraction of nameplate (0.44 ~ the
//   reactive headroom of a unity-rated inverter at 0.9 pf)
type InverterParams struct {
	Enabled bool

	VoltWattStartPU    float64
	VoltWattSlopePerPU float64

	VoltVARHighPU     float64
	VoltVARLowPU      float64
	VoltVARSlopePerPU float64
	MaxVARFraction    float64
}

func (p InverterParams) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.VoltWattStartPU <= 1.0 {
		return errors.New("VoltWattStartPU must be > 1.0")
	}
	if p.VoltWattSlopePerPU <= 0 {
		return errors.New("VoltWattSlopePerPU must be > 0")
	}
	if p.VoltVARLowPU <= 0 || p.VoltVARLowPU >= 1.0 {
		return errors.New("VoltVARLowPU must be in (0, 1)")
	}
	if p.VoltVARHighPU <= 1.0 || p.VoltVARHighPU >= p.VoltWattStartPU {
		return errors.New("VoltVARHighPU must be in (1.0, VoltWattStartPU)")
	}
	if p.VoltVARSlopePerPU <= 0 {
		return errors.New("VoltVARSlopePerPU must be > 0")
	}
	if p.MaxVARFraction <= 0 || p.MaxVARFraction > 1 {
		return errors.New("MaxVARFraction must be in (0, 1]")
	}
	return nil
}

// DefaultInverter curtails above 1.05 pu and regulates vars outside the
// 0.98..1.02 deadband.
func DefaultInverter() InverterParams {
	return InverterParams{
		Enabled:            true,
		VoltWattStartPU:    1.05,
		VoltWattSlopePerPU: 10.0,
		VoltVARHighPU:      1.02,
		VoltVARLowPU:       0.98,
		VoltVARSlopePerPU:  5.0,
		MaxVARFraction:     0.44,
	}
}

// Respond maps the terminal voltage to the inverter's actual injection:
// active power after volt-watt curtailment and the var setpoint, positive
// capacitive (injecting), negative inductive (absorbing). capacityKW is the
// inverter nameplate, which bounds var output regardless of available power.
func (p InverterParams) Respond(vPU, pAvailKW, capacityKW float64) (pKW, qKVAR float64) {
	pKW = pAvailKW

	if vPU > p.VoltWattStartPU {
		factor := 1.0 - (vPU-p.VoltWattStartPU)*p.VoltWattSlopePerPU
		pKW = pAvailKW * math.Max(0, factor)
	}

	qCap := p.MaxVARFraction * capacityKW
	switch {
	case vPU > p.VoltVARHighPU:
		qKVAR = math.Max(-qCap, -capacityKW*(vPU-p.VoltVARHighPU)*p.VoltVARSlopePerPU)
	case vPU < p.VoltVARLowPU:
		qKVAR = math.Min(qCap, capacityKW*(p.VoltVARLowPU-vPU)*p.VoltVARSlopePerPU)
	}
	return pKW, qKVAR
}
