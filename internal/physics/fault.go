package physics

import (
	"math"
	"math/cmplx"
)

// FaultType enumerates the shunt fault configurations the twin can inject.
type FaultType string

const (
	FaultLG  FaultType = "L-G"   // single line to ground
	FaultLL  FaultType = "L-L"   // line to line
	FaultLLG FaultType = "L-L-G" // double line to ground
	FaultLLL FaultType = "L-L-L" // three-phase bolted
)

// Fault describes an injected shunt fault at a bus.
type Fault struct {
	Active      bool
	Bus         string
	Type        FaultType
	ImpedancePU float64
}

// Upstream source impedance in per unit, seen from the substation bus.
const (
	SourceR = 0.01
	SourceX = 0.10
)

// Sequence impedance ratios for the simplified network: negative sequence
// equals positive, zero sequence is 3x (typical for overhead distribution).
const zeroSeqFactor = 3.0

// FaultResult holds the sequence currents and the resulting worst phase
// current magnitude, all in per unit.
type FaultResult struct {
	I1, I2, I0 float64
	Phase      float64 // max phase current magnitude
}

// aOperator is the 120-degree rotation operator used to recompose phase
// currents from sequence currents.
var aOperator = cmplx.Rect(1.0, 2*math.Pi/3)

// FaultCurrents computes symmetrical-component fault currents for a shunt
// fault behind the given positive-sequence impedance. vPrefault is the
// prefault voltage in per unit.
func FaultCurrents(ft FaultType, vPrefault, r, x, zf float64) FaultResult {
	z1 := math.Hypot(r, x)
	if z1 < 1e-4 {
		z1 = 1e-4
	}
	z2 := z1
	z0 := z1 * zeroSeqFactor

	var i1, i2, i0 float64
	switch ft {
	case FaultLG:
		i1 = vPrefault / (z1 + z2 + z0 + 3*zf)
		i2, i0 = i1, i1
	case FaultLL:
		i1 = vPrefault / (z1 + z2 + zf)
		i2 = i1
	case FaultLLG:
		i1 = vPrefault / (z1 + z2*z0/(z2+z0))
		i2 = i1 * z0 / (z2 + z0)
		i0 = i1 * z2 / (z2 + z0)
	case FaultLLL:
		i1 = vPrefault / (z1 + zf)
	default:
		return FaultResult{}
	}

	return FaultResult{I1: i1, I2: i2, I0: i0, Phase: maxPhaseCurrent(i0, i1, i2)}
}

// maxPhaseCurrent recomposes phase currents Ia, Ib, Ic from sequence
// magnitudes and returns the largest.
func maxPhaseCurrent(i0, i1, i2 float64) float64 {
	c0 := complex(i0, 0)
	c1 := complex(i1, 0)
	c2 := complex(i2, 0)
	a := aOperator
	a2 := a * a

	ia := cmplx.Abs(c0 + c1 + c2)
	ib := cmplx.Abs(c0 + a2*c1 + a*c2)
	ic := cmplx.Abs(c0 + a*c1 + a2*c2)
	return math.Max(ia, math.Max(ib, ic))
}

// IECTripTime returns the IEC 60255 standard-inverse operating time in
// seconds for a given current multiple of pickup, or ok=false below pickup.
func IECTripTime(currentPU, tms float64) (float64, bool) {
	if currentPU <= 1.0 {
		return 0, false
	}
	const k = 0.14
	const alpha = 0.02
	denom := math.Pow(currentPU, alpha) - 1
	if math.Abs(denom) < 1e-5 {
		return 9999.0, true
	}
	return tms * k / denom, true
}
