package dispatch

import "errors"

// PeakShaveParams schedules the feeder battery: soak up solar through the
// midday window, discharge through the evening peak. Hours are inclusive,
// 0..23; the SOC guards keep the schedule from riding the battery into its
// hard limits.
type PeakShaveParams struct {
	ChargeStartHour    int
	ChargeEndHour      int
	DischargeStartHour int
	DischargeEndHour   int
	// ChargeFraction scales the charge setpoint relative to max power;
	// discharge runs at full power.
	ChargeFraction    float64
	ChargeCeilingSOC  float64
	DischargeFloorSOC float64
}

func (p PeakShaveParams) Validate() error {
	for _, h := range []int{p.ChargeStartHour, p.ChargeEndHour, p.DischargeStartHour, p.DischargeEndHour} {
		if h < 0 || h > 23 {
			return errors.New("schedule hours must be in [0, 23]")
		}
	}
	if p.ChargeStartHour > p.ChargeEndHour {
		return errors.New("ChargeStartHour must be <= ChargeEndHour")
	}
	if p.DischargeStartHour > p.DischargeEndHour {
		return errors.New("DischargeStartHour must be <= DischargeEndHour")
	}
	if p.ChargeFraction <= 0 || p.ChargeFraction > 1 {
		return errors.New("ChargeFraction must be in (0, 1]")
	}
	if p.ChargeCeilingSOC <= 0 || p.ChargeCeilingSOC > 1 {
		return errors.New("ChargeCeilingSOC must be in (0, 1]")
	}
	if p.DischargeFloorSOC < 0 || p.DischargeFloorSOC >= p.ChargeCeilingSOC {
		return errors.New("DischargeFloorSOC must be >= 0 and below ChargeCeilingSOC")
	}
	return nil
}

// DefaultPeakShave charges through the solar peak (10:00-15:00) and shaves
// the evening peak (18:00-22:00).
func DefaultPeakShave() PeakShaveParams {
	return PeakShaveParams{
		ChargeStartHour:    10,
		ChargeEndHour:      15,
		DischargeStartHour: 18,
		DischargeEndHour:   22,
		ChargeFraction:     0.8,
		ChargeCeilingSOC:   0.95,
		DischargeFloorSOC:  0.20,
	}
}

// PeakShave is the schedule-driven battery dispatch policy.
type PeakShave struct {
	params PeakShaveParams
}

func NewPeakShave(params PeakShaveParams) (*PeakShave, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &PeakShave{params: params}, nil
}

func (p *PeakShave) Name() string { return "peak-shave" }

// Setpoint returns the requested battery power for the given hour of day and
// state of charge: negative to charge, positive to discharge, zero outside
// the windows or past a SOC guard.
func (p *PeakShave) Setpoint(hour int, soc, maxPowerKW float64) float64 {
	h := ((hour % 24) + 24) % 24
	switch {
	case h >= p.params.ChargeStartHour && h <= p.params.ChargeEndHour:
		if soc < p.params.ChargeCeilingSOC {
			return -p.params.ChargeFraction * maxPowerKW
		}
	case h >= p.params.DischargeStartHour && h <= p.params.DischargeEndHour:
		if soc > p.params.DischargeFloorSOC {
			return maxPowerKW
		}
	}
	return 0
}
