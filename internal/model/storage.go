package model

import (
	"errors"
	"math"
)

// StorageMode labels what the feeder battery did on a tick.
type StorageMode string

const (
	StorageIdle        StorageMode = "IDLE"
	StorageCharging    StorageMode = "CHARGING"
	StorageDischarging StorageMode = "DISCHARGING"
)

// StorageParams defines the physical limits of the feeder-level battery.
// Units:
// - CapacityKWh: kWh
// - MaxPowerKW: kW, symmetric charge/discharge limit
// - Efficiencies: 0..1
// - SOC bounds: fraction 0..1
type StorageParams struct {
	CapacityKWh         float64
	MaxPowerKW          float64
	ChargeEfficiency    float64
	DischargeEfficiency float64
	MinSOC              float64
	MaxSOC              float64
}

// StorageState captures mutable state.
type StorageState struct {
	// SOC is the state of charge as a fraction [0,1].
	SOC float64
}

// Storage is a convenience wrapper bundling params + state.
type Storage struct {
	Params StorageParams
	State  StorageState
}

func NewStorage(params StorageParams, initialSOC float64) (*Storage, error) {
	s := &Storage{
		Params: params,
		State:  StorageState{SOC: initialSOC},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Validate() error {
	p := s.Params
	if p.CapacityKWh <= 0 {
		return errors.New("CapacityKWh must be > 0")
	}
	if p.MaxPowerKW <= 0 {
		return errors.New("MaxPowerKW must be > 0")
	}
	if p.ChargeEfficiency <= 0 || p.ChargeEfficiency > 1 {
		return errors.New("ChargeEfficiency must be in (0, 1]")
	}
	if p.DischargeEfficiency <= 0 || p.DischargeEfficiency > 1 {
		return errors.New("DischargeEfficiency must be in (0, 1]")
	}
	if p.MinSOC < 0 || p.MinSOC > 1 || p.MaxSOC < 0 || p.MaxSOC > 1 || p.MinSOC > p.MaxSOC {
		return errors.New("MinSOC/MaxSOC must satisfy 0<=MinSOC<=MaxSOC<=1")
	}
	if s.State.SOC < p.MinSOC || s.State.SOC > p.MaxSOC {
		return errors.New("initial SOC must be within [MinSOC, MaxSOC]")
	}
	return nil
}

// StorageResult captures what happened during one interval.
// Convention: positive kW = discharge to the feeder, negative kW = charge.
type StorageResult struct {
	PowerKW  float64 // realized power (may be clipped)
	SOCStart float64
	SOCEnd   float64
}

// ClipSetpoint enforces the power limit, without applying SOC constraints.
func (s *Storage) ClipSetpoint(kw float64) float64 {
	if kw > s.Params.MaxPowerKW {
		return s.Params.MaxPowerKW
	}
	if kw < -s.Params.MaxPowerKW {
		return -s.Params.MaxPowerKW
	}
	return kw
}

// Apply realizes a power setpoint over one interval, clipping at the power
// limit and the SOC bounds, and advances the state of charge.
func (s *Storage) Apply(setpointKW, durationHours float64) StorageResult {
	res := StorageResult{SOCStart: s.State.SOC}
	if durationHours <= 0 {
		res.SOCEnd = s.State.SOC
		return res
	}

	p := s.ClipSetpoint(setpointKW)
	if p < 0 {
		// Charging: SOC gains fromGrid * eff, bounded by MaxSOC.
		fromGridKWh := -p * durationHours
		limit := s.maxChargeFromGridKWh(durationHours)
		if fromGridKWh > limit {
			fromGridKWh = limit
			p = -fromGridKWh / durationHours
		}
		storedKWh := fromGridKWh * s.Params.ChargeEfficiency
		s.State.SOC = clampSOC((s.State.SOC*s.Params.CapacityKWh + storedKWh) / s.Params.CapacityKWh)
	} else if p > 0 {
		// Discharging: SOC loses toGrid / eff, bounded by MinSOC.
		toGridKWh := p * durationHours
		limit := s.maxDischargeToGridKWh(durationHours)
		if toGridKWh > limit {
			toGridKWh = limit
			p = toGridKWh / durationHours
		}
		withdrawnKWh := toGridKWh / s.Params.DischargeEfficiency
		s.State.SOC = clampSOC((s.State.SOC*s.Params.CapacityKWh - withdrawnKWh) / s.Params.CapacityKWh)
	}

	res.PowerKW = p
	res.SOCEnd = s.State.SOC
	return res
}

func (s *Storage) maxChargeFromGridKWh(durationHours float64) float64 {
	storableKWh := (s.Params.MaxSOC - s.State.SOC) * s.Params.CapacityKWh
	if storableKWh <= 0 {
		return 0
	}
	limitBySOC := storableKWh / s.Params.ChargeEfficiency
	limitByPower := s.Params.MaxPowerKW * durationHours
	return math.Max(0, math.Min(limitBySOC, limitByPower))
}

func (s *Storage) maxDischargeToGridKWh(durationHours float64) float64 {
	withdrawableKWh := (s.State.SOC - s.Params.MinSOC) * s.Params.CapacityKWh
	if withdrawableKWh <= 0 {
		return 0
	}
	limitBySOC := withdrawableKWh * s.Params.DischargeEfficiency
	limitByPower := s.Params.MaxPowerKW * durationHours
	return math.Max(0, math.Min(limitBySOC, limitByPower))
}

func clampSOC(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
