package physics

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

// Engine advances the continuous-time feeder model one fixed step at a time.
// It owns PhysicsState production; nothing else mutates a published state.
type Engine struct {
	top  *topology.Topology
	gen  GeneratorParams
	xfmr TransformerParams
	pv   PVParams
	inv  InverterParams
	dt   float64
}

// New builds an engine. dt is the integration step in seconds. The topology
// must already be validated.
func New(top *topology.Topology, gen GeneratorParams, xfmr TransformerParams, pv PVParams, inv InverterParams, dt float64) (*Engine, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("integration step must be > 0, got %g", dt)
	}
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("generator params: %w", err)
	}
	if err := xfmr.Validate(); err != nil {
		return nil, fmt.Errorf("transformer params: %w", err)
	}
	if err := pv.Validate(); err != nil {
		return nil, fmt.Errorf("pv params: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("inverter params: %w", err)
	}
	return &Engine{top: top, gen: gen, xfmr: xfmr, pv: pv, inv: inv, dt: dt}, nil
}

// DT returns the configured integration step in seconds.
func (e *Engine) DT() float64 { return e.dt }

// Initial returns the tick-zero state: nominal frequency, flat voltage,
// transformer at its configured starting temperature.
func (e *Engine) Initial(start time.Time) model.PhysicsState {
	buses := make(map[string]model.BusState, len(e.top.Buses))
	for _, b := range e.top.Buses {
		buses[b.ID] = model.BusState{VoltagePU: 1.0}
	}
	return model.PhysicsState{
		Tick:             0,
		Time:             start,
		FrequencyHz:      e.gen.NominalHz,
		MechPowerKW:      e.gen.InitialMechPowerKW,
		TransformerTempC: e.xfmr.InitialTempC,
		Buses:            buses,
		Energized:        true,
	}
}

// Step produces the state for tick t+1 from the state at tick t, the control
// action decided on tick t, exogenous inputs, and any injected fault.
//
// A non-finite result returns ErrStateDiverged (wrapped with the tick) and no
// state; the previous snapshot is never corrupted.
func (e *Engine) Step(prev model.PhysicsState, action model.ControlAction, input model.LoadInput, fault Fault) (model.PhysicsState, error) {
	next := prev
	next.Tick = prev.Tick + 1
	next.Time = prev.Time.Add(time.Duration(e.dt * float64(time.Second)))
	next.Buses = prev.CloneBuses()
	next.AmbientTempC = input.AmbientTempC
	next.IrradiancePU = input.IrradiancePU
	next.Energized = action.BreakerClose
	next.FaultActive = fault.Active
	next.FaultBus = fault.Bus

	// Allocate feeder-level demand to buses and compute PV generation.
	var totalP, totalQ, totalSolar float64
	for _, b := range e.top.Buses {
		bs := next.Buses[b.ID]
		bs.PLoadKW = input.PLoadKW * b.LoadShare
		bs.QLoadKVAR = input.QLoadKVAR * b.LoadShare
		pGen, cellTemp := e.pvOutput(b.SolarCapacityKW, input.IrradiancePU, input.AmbientTempC)
		bs.PSolarKW = pGen * action.SolarFraction
		bs.QSolarKVAR = 0
		bs.CellTempC = cellTemp
		totalP += bs.PLoadKW
		totalQ += bs.QLoadKVAR
		totalSolar += bs.PSolarKW
		next.Buses[b.ID] = bs
	}

	// A bolted fault appears as a large additional current draw at the
	// faulted bus; downstream voltage collapse falls out of the drop model.
	if fault.Active && next.Energized {
		if z, err := e.top.PathImpedance(fault.Bus); err == nil {
			iFault := FaultCurrents(fault.Type, 1.0, real(z)+SourceR, imag(z)+SourceX, fault.ImpedancePU).Phase
			pFaultKW := iFault * e.gen.BaseMVA * 1000.0
			bs := next.Buses[fault.Bus]
			bs.PLoadKW += pFaultKW
			totalP += pFaultKW
			next.Buses[fault.Bus] = bs
		}
	}

	next.TotalPKW = totalP
	next.TotalQKVAR = totalQ

	// The smart inverters react to their terminal voltage, so solve once
	// with the raw injections, apply the volt-watt/volt-var curves, and let
	// the final solve below see the adjusted injections.
	var totalQSolar float64
	if e.inv.Enabled && next.Energized {
		e.solveVoltages(&next, action.TapPosition)
		for _, b := range e.top.Buses {
			if b.SolarCapacityKW <= 0 {
				continue
			}
			bs := next.Buses[b.ID]
			pOut, qOut := e.inv.Respond(bs.VoltagePU, bs.PSolarKW, b.SolarCapacityKW)
			totalSolar += pOut - bs.PSolarKW
			bs.PSolarKW = pOut
			bs.QSolarKVAR = qOut
			totalQSolar += qOut
			next.Buses[b.ID] = bs
		}
	}

	// Electrical power drawn from the machine: demand net of dispatched PV
	// and of storage discharge. An open breaker sheds the whole feeder.
	peKW := totalP - totalSolar - action.StorageKW
	if peKW < 0 {
		peKW = 0
	}
	if !next.Energized {
		peKW = 0
	}

	e.stepSwing(&next, peKW)
	e.stepThermal(&next, peKW, totalQ-totalQSolar)
	e.solveVoltages(&next, action.TapPosition)

	if !next.Finite() {
		return model.PhysicsState{}, &StepError{Tick: next.Tick, Err: ErrStateDiverged}
	}
	return next, nil
}

// stepSwing integrates the swing equation
//
//	2H/w0 * d2(delta)/dt2 = Pm - Pe - D*d(delta)/dt
//
// over one step with classic RK4 on the state [delta, w_dev], after applying
// the governor's primary frequency response to mechanical power.
func (e *Engine) stepSwing(s *model.PhysicsState, peKW float64) {
	f0 := e.gen.NominalHz
	m := 2 * e.gen.InertiaH / (2 * math.Pi * f0)
	d := e.gen.DampingD
	baseKW := e.gen.BaseMVA * 1000.0

	s.MechPowerKW += e.gen.GovernorGainKWPerHz * (f0 - s.FrequencyHz) * e.dt

	pmPU := s.MechPowerKW / baseKW
	pePU := peKW / baseKW

	deriv := func(delta, wDev float64) (float64, float64) {
		_ = delta // Pe is held constant over the step
		return wDev, (pmPU - pePU - d*wDev) / m
	}

	delta := s.RotorAngleRad
	wDev := 2 * math.Pi * s.FrequencyDevHz
	h := e.dt

	k1d, k1w := deriv(delta, wDev)
	k2d, k2w := deriv(delta+h/2*k1d, wDev+h/2*k1w)
	k3d, k3w := deriv(delta+h/2*k2d, wDev+h/2*k2w)
	k4d, k4w := deriv(delta+h*k3d, wDev+h*k3w)

	delta += h / 6 * (k1d + 2*k2d + 2*k3d + k4d)
	wDev += h / 6 * (k1w + 2*k2w + 2*k3w + k4w)

	s.RotorAngleRad = delta
	s.FrequencyDevHz = wDev / (2 * math.Pi)
	s.FrequencyHz = f0 + s.FrequencyDevHz
}

// stepThermal advances the first-order top-oil model. The exact exponential
// integrator is unconditionally stable regardless of dt/tau.
func (e *Engine) stepThermal(s *model.PhysicsState, pKW, qKVAR float64) {
	sKVA := math.Hypot(pKW, qKVAR)
	loading := sKVA / e.xfmr.RatingKVA
	s.TransformerLoadPU = loading

	tUlt := s.AmbientTempC + e.xfmr.RatedRiseC*math.Pow(loading, e.xfmr.RiseExponent)
	decay := math.Exp(-e.dt / e.xfmr.TimeConstantS)
	s.TransformerTempC = tUlt + (s.TransformerTempC-tUlt)*decay
}

// solveVoltages computes each bus voltage as V_source - I*Z along the radial
// path, with the bus current derived from its net complex power. Two fixed-
// point passes are enough on a radial feeder; a full power flow is not run.
func (e *Engine) solveVoltages(s *model.PhysicsState, tap float64) {
	vSource := complex(tap, 0)
	baseKW := e.gen.BaseMVA * 1000.0

	for _, b := range e.top.Buses {
		bs := s.Buses[b.ID]
		if !s.Energized {
			bs.VoltagePU = 0
			bs.AngleRad = 0
			s.Buses[b.ID] = bs
			continue
		}
		if b.ID == e.top.SourceBus {
			bs.VoltagePU = tap
			bs.AngleRad = 0
			s.Buses[b.ID] = bs
			continue
		}
		z, err := e.top.PathImpedance(b.ID)
		if err != nil {
			continue
		}
		sNet := complex((bs.PLoadKW-bs.PSolarKW)/baseKW, (bs.QLoadKVAR-bs.QSolarKVAR)/baseKW)

		v := vSource
		for i := 0; i < 2; i++ {
			if cmplx.Abs(v) < 1e-6 {
				v = complex(1e-6, 0)
			}
			iBus := cmplx.Conj(sNet / v)
			v = vSource - iBus*z
		}
		bs.VoltagePU = cmplx.Abs(v)
		bs.AngleRad = cmplx.Phase(v)
		s.Buses[b.ID] = bs
	}
}

// SolarPotentialKW returns the PV generation available across the feeder at
// full dispatch for the given conditions, before any dispatch scaling.
func (e *Engine) SolarPotentialKW(input model.LoadInput) float64 {
	var sum float64
	for _, b := range e.top.Buses {
		p, _ := e.pvOutput(b.SolarCapacityKW, input.IrradiancePU, input.AmbientTempC)
		sum += p
	}
	return sum
}

// pvOutput applies the NOCT cell-temperature model:
//
//	T_cell = T_amb + (NOCT-20)/0.8 * G
//	P = P_rated * G * (1 + gamma*(T_cell - T_stc))
//
// with the derating factor clamped to [0.5, 1.2] to keep extreme-temperature
// behavior physical.
func (e *Engine) pvOutput(capacityKW, irradiance, ambientC float64) (float64, float64) {
	if capacityKW <= 0 {
		return 0, ambientC
	}
	if irradiance < 0 {
		irradiance = 0
	}
	cellTemp := ambientC + (e.pv.NOCTC-20.0)/0.8*irradiance
	factor := 1.0 + e.pv.TempCoeffPerC*(cellTemp-e.pv.STCTempC)
	factor = math.Max(0.5, math.Min(1.2, factor))
	return capacityKW * irradiance * factor, cellTemp
}
