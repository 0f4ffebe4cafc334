package physics

import "errors"

// GeneratorParams defines the swing-equation model of the upstream machine.
// Units:
// - BaseMVA: system power base, MVA
// - NominalHz: synchronous frequency (50 or 60)
// - InertiaH: inertia constant, seconds
// - DampingD: damping coefficient, per-unit
// - GovernorGainKWPerHz: primary frequency response, kW of mechanical power
//   per Hz of frequency deviation per second
type GeneratorParams struct {
	BaseMVA             float64
	NominalHz           float64
	InertiaH            float64
	DampingD            float64
	GovernorGainKWPerHz float64
	InitialMechPowerKW  float64
}

func (p GeneratorParams) Validate() error {
	if p.BaseMVA <= 0 {
		return errors.New("BaseMVA must be > 0")
	}
	if p.NominalHz <= 0 {
		return errors.New("NominalHz must be > 0")
	}
	if p.InertiaH <= 0 {
		return errors.New("InertiaH must be > 0")
	}
	if p.DampingD < 0 {
		return errors.New("DampingD must be >= 0")
	}
	if p.GovernorGainKWPerHz < 0 {
		return errors.New("GovernorGainKWPerHz must be >= 0")
	}
	return nil
}

// TransformerParams defines the IEEE C57.91-style first-order thermal model.
// Steady state settles at AmbientC + RatedRiseC * loading^RiseExponent.
type TransformerParams struct {
	RatingKVA     float64
	RatedRiseC    float64
	TimeConstantS float64
	RiseExponent  float64
	InitialTempC  float64
}

func (p TransformerParams) Validate() error {
	if p.RatingKVA <= 0 {
		return errors.New("RatingKVA must be > 0")
	}
	if p.RatedRiseC <= 0 {
		return errors.New("RatedRiseC must be > 0")
	}
	if p.TimeConstantS <= 0 {
		return errors.New("TimeConstantS must be > 0")
	}
	if p.RiseExponent < 1 || p.RiseExponent > 3 {
		return errors.New("RiseExponent must be in [1, 3]")
	}
	return nil
}

// PVParams defines the NOCT cell-temperature PV derating model.
type PVParams struct {
	// NOCTC is the nominal operating cell temperature, deg C.
	NOCTC float64
	// TempCoeffPerC is the power temperature coefficient (negative), 1/degC.
	TempCoeffPerC float64
	// STCTempC is the standard test condition cell temperature, deg C.
	STCTempC float64
}

func (p PVParams) Validate() error {
	if p.NOCTC <= 20 {
		return errors.New("NOCTC must be > 20")
	}
	if p.TempCoeffPerC > 0 {
		return errors.New("TempCoeffPerC must be <= 0")
	}
	return nil
}

// DefaultGenerator matches a 10 MVA machine on a 50 Hz system.
func DefaultGenerator() GeneratorParams {
	return GeneratorParams{
		BaseMVA:             10.0,
		NominalHz:           50.0,
		InertiaH:            5.0,
		DampingD:            1.0,
		GovernorGainKWPerHz: 1000.0,
		InitialMechPowerKW:  5000.0,
	}
}

// DefaultTransformer matches a 10 MVA ONAN unit with a 65 C rated rise.
func DefaultTransformer() TransformerParams {
	return TransformerParams{
		RatingKVA:     10000.0,
		RatedRiseC:    65.0,
		TimeConstantS: 20.0,
		RiseExponent:  2.0,
		InitialTempC:  40.0,
	}
}

// DefaultPV uses typical crystalline-silicon module constants.
func DefaultPV() PVParams {
	return PVParams{
		NOCTC:         45.0,
		TempCoeffPerC: -0.0041,
		STCTempC:      25.0,
	}
}
