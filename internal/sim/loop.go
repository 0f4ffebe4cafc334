// Package sim runs the closed simulation loop: physics, telemetry,
// estimation and control advance strictly in that order each tick, and the
// control action decided on tick t is the one the physics engine applies on
// tick t+1. The dashboard consumes immutable snapshots and can never block
// the loop.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/config"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/data"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/dispatch"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/estimator"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/forecast"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/physics"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/protection"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/scada"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

// historyCap bounds the load history retained for forecasting (two weeks of
// hourly points).
const historyCap = 24 * 14

// Loop owns the simulation timeline for one feeder. Step is not reentrant;
// call it from a single goroutine. All other methods are safe to call
// concurrently with Step.
type Loop struct {
	cfg *config.Config
	top *topology.Topology

	engine  *physics.Engine
	sampler *scada.Sampler
	wls     *estimator.WLS
	ledger  *Ledger
	profile *Profile

	runner  *forecast.Runner
	metrics *forecast.Metrics

	// mu guards the mutable loop state below.
	mu       sync.Mutex
	recloser *protection.Recloser
	avr      *protection.AVR
	policy   *dispatch.ManualOverride
	shave    *dispatch.PeakShave
	storage  *model.Storage
	fault    physics.Fault
	state    model.PhysicsState
	action   model.ControlAction
	history  []model.LoadPoint

	forecastPending float64
	hasPending      bool

	snapMu sync.RWMutex
	snap   Snapshot

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

// New assembles a loop from configuration. History and solar profile files
// named in the config are loaded here; a load error is fatal.
func New(cfg *config.Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	top, err := cfg.BuildTopology()
	if err != nil {
		return nil, err
	}

	engine, err := physics.New(top, cfg.GeneratorParams(), cfg.TransformerParams(), cfg.PVParams(), cfg.InverterParams(), cfg.Simulation.DTSeconds)
	if err != nil {
		return nil, err
	}
	sampler, err := scada.NewSampler(top, cfg.NoiseParams(), cfg.FDIParams(), cfg.Simulation.Seed)
	if err != nil {
		return nil, err
	}
	baseKW := cfg.Generator.BaseMVA * 1000.0
	wls, err := estimator.New(top, cfg.WLSParams(), baseKW)
	if err != nil {
		return nil, err
	}
	recloser, err := protection.NewRecloser(cfg.RecloserParams())
	if err != nil {
		return nil, err
	}
	avr, err := protection.NewAVR(cfg.AVRParams())
	if err != nil {
		return nil, err
	}
	handover, err := dispatch.NewSolarHandover(cfg.SolarParams())
	if err != nil {
		return nil, err
	}
	storage, err := cfg.BuildStorage()
	if err != nil {
		return nil, err
	}
	var shave *dispatch.PeakShave
	if storage != nil {
		shave, err = dispatch.NewPeakShave(cfg.PeakShaveParams())
		if err != nil {
			return nil, err
		}
	}

	var history []model.LoadPoint
	if cfg.HistoryFile != "" {
		history, err = data.LoadHistoryCSV(cfg.HistoryFile)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}
	solar := data.SyntheticSolarProfile()
	if cfg.SolarProfileFile != "" {
		solar, err = data.LoadSolarProfileCSV(cfg.SolarProfileFile)
		if err != nil {
			return nil, fmt.Errorf("load solar profile: %w", err)
		}
	}

	l := &Loop{
		cfg:      cfg,
		top:      top,
		engine:   engine,
		sampler:  sampler,
		wls:      wls,
		ledger:   NewLedger(cfg.Simulation.LedgerCapacity),
		profile:  NewProfile(history, solar, cfg.Simulation.TicksPerHour, cfg.Simulation.AmbientTempC),
		runner:   forecast.NewRunner(forecast.SeasonalNaive{}, cfg.Simulation.ForecastHorizon),
		metrics:  forecast.NewMetrics(168),
		recloser: recloser,
		avr:      avr,
		policy:   dispatch.NewManualOverride(handover),
		shave:    shave,
		storage:  storage,
		state:    engine.Initial(time.Now().UTC()),
		action:   model.NeutralAction(),
		subs:     make(map[chan Snapshot]struct{}),
	}
	l.publish(l.initialSnapshot())
	l.runner.Start()
	return l, nil
}

// Topology returns the static feeder description.
func (l *Loop) Topology() *topology.Topology { return l.top }

// Ledger returns the tick record.
func (l *Loop) Ledger() *Ledger { return l.ledger }

// Close stops the background forecaster.
func (l *Loop) Close() {
	l.runner.Stop()
}

// Latest returns the snapshot of the last completed tick.
func (l *Loop) Latest() Snapshot {
	l.snapMu.RLock()
	defer l.snapMu.RUnlock()
	return l.snap
}

// Subscribe registers a snapshot listener for push delivery. The channel is
// buffered; a slow consumer loses intermediate snapshots, never blocks the
// loop. The returned cancel func must be called when done.
func (l *Loop) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	l.subMu.Lock()
	l.subs[ch] = struct{}{}
	l.subMu.Unlock()
	cancel := func() {
		l.subMu.Lock()
		delete(l.subs, ch)
		l.subMu.Unlock()
	}
	return ch, cancel
}

// InjectFault starts a fault at the given bus on the next tick.
func (l *Loop) InjectFault(bus string, ft physics.FaultType, impedancePU float64) error {
	if _, ok := l.top.Bus(bus); !ok {
		return fmt.Errorf("unknown bus %q", bus)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fault = physics.Fault{Active: true, Bus: bus, Type: ft, ImpedancePU: impedancePU}
	return nil
}

// ClearFault removes the injected fault.
func (l *Loop) ClearFault() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fault = physics.Fault{}
}

// ResetRecloser applies the operator lockout-reset action. Returns false if
// the recloser is not locked out.
func (l *Loop) ResetRecloser() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recloser.Reset()
}

// ForceSource pins the dispatch source until ClearOverride.
func (l *Loop) ForceSource(src model.DispatchSource) {
	l.policy.Force(src)
}

// ClearOverride returns dispatch control to the automatic policy.
func (l *Loop) ClearOverride() {
	l.policy.Clear()
}

// SetFDI reconfigures the measurement attack injection at runtime.
func (l *Loop) SetFDI(fdi scada.FDIParams) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sampler.SetFDI(fdi)
}

// Reset returns the loop to tick zero: fresh dynamic state, cleared ledger
// and forecast history, fault removed. Topology and configuration survive
// unchanged, and the telemetry seed is reapplied so a reset run reproduces
// the original.
func (l *Loop) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sampler, err := scada.NewSampler(l.top, l.cfg.NoiseParams(), l.cfg.FDIParams(), l.cfg.Simulation.Seed)
	if err != nil {
		return err
	}
	recloser, err := protection.NewRecloser(l.cfg.RecloserParams())
	if err != nil {
		return err
	}
	avr, err := protection.NewAVR(l.cfg.AVRParams())
	if err != nil {
		return err
	}
	handover, err := dispatch.NewSolarHandover(l.cfg.SolarParams())
	if err != nil {
		return err
	}
	storage, err := l.cfg.BuildStorage()
	if err != nil {
		return err
	}

	l.sampler = sampler
	l.recloser = recloser
	l.avr = avr
	l.policy = dispatch.NewManualOverride(handover)
	l.storage = storage
	l.fault = physics.Fault{}
	l.state = l.engine.Initial(time.Now().UTC())
	l.action = model.NeutralAction()
	l.history = nil
	l.hasPending = false
	l.metrics = forecast.NewMetrics(168)
	l.ledger.Reset()
	l.publish(l.initialSnapshot())
	return nil
}

// Step advances the simulation one tick. On a numeric fault it either halts
// (returning the physics error) or re-publishes the last good state with the
// tick flagged, per configuration.
func (l *Loop) Step() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	input := l.profile.At(l.state.Tick, l.state.Time.Add(time.Duration(l.cfg.Simulation.DTSeconds*float64(time.Second))))

	next, err := l.engine.Step(l.state, l.action, input, l.fault)
	if err != nil {
		if l.cfg.Simulation.OnNumericFault == config.FaultHalt {
			return err
		}
		log.Printf("[Sim] tick %d: %v; holding last good state", l.state.Tick+1, err)
		snap := l.Latest()
		snap.Status.NumericFault = true
		l.appendLedger(snap, input)
		l.publish(snap)
		return nil
	}

	var status model.TickStatus
	measurements := l.sampler.Sample(next)
	est, estErr := l.wls.Estimate(measurements, l.action.TapPosition)
	if estErr != nil {
		if !errors.Is(estErr, estimator.ErrNotConverged) {
			return estErr
		}
		status.EstimatorStale = true
	}
	status.BadData = est.BadData

	recloserState := l.recloser.Update(l.faultIndicator(next, est, status))

	vReg, haveV := lowestEstimatedVoltage(est)
	tap := l.avr.Update(vReg, haveV && !status.Degraded() && next.Energized)

	decision := l.policy.Decide(dispatch.Context{
		Tick:             next.Tick,
		Hour:             l.profile.Hour(next.Tick),
		AvailableSolarKW: l.engine.SolarPotentialKW(input),
		DemandKW:         input.PLoadKW,
		Status:           status,
		Prev:             l.action.Source,
	})

	storage := l.dispatchStorage(next)

	l.state = next
	l.action = model.ControlAction{
		TapPosition:   tap,
		Source:        decision.Source,
		SolarFraction: decision.SolarFraction,
		StorageKW:     storage.PowerKW,
		BreakerClose:  l.recloser.BreakerClosed(),
	}

	l.advanceForecast(input)

	snap := Snapshot{
		Tick:     next.Tick,
		Time:     next.Time,
		State:    next,
		Estimate: est,
		Status:   status,
		Action:   l.action,
		Recloser: RecloserInfo{
			State:     recloserState,
			Attempts:  l.recloser.Attempts(),
			TripCount: l.recloser.TripCount(),
		},
		Overridden:   l.policy.Overridden(),
		Storage:      storage,
		Fault:        FaultInfo{Active: l.fault.Active, Bus: l.fault.Bus, Type: l.fault.Type, ImpedancePU: l.fault.ImpedancePU},
		ForecastRMSE: l.metrics.RMSE(),
		ForecastMAE:  l.metrics.MAE(),
	}
	if res, ok := l.runner.Latest(); ok {
		snap.Forecast = &res
	}

	l.appendLedger(snap, input)
	l.publish(snap)
	return nil
}

// Run advances the loop until ticks are exhausted (ticks <= 0 means no
// limit), the context is cancelled, or a halt-policy numeric fault occurs.
// A non-zero every paces the loop at wall-clock rate; zero runs flat out.
func (l *Loop) Run(ctx context.Context, ticks int, every time.Duration) error {
	var tick <-chan time.Time
	if every > 0 {
		t := time.NewTicker(every)
		defer t.Stop()
		tick = t.C
	}
	for i := 0; ticks <= 0 || i < ticks; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Step(); err != nil {
			return err
		}
	}
	return nil
}

// dispatchStorage runs the peak-shave schedule against the battery and
// advances its state of charge by one tick of simulated time. A de-energized
// feeder idles the battery.
func (l *Loop) dispatchStorage(state model.PhysicsState) StorageInfo {
	if l.storage == nil {
		return StorageInfo{Mode: model.StorageIdle}
	}
	info := StorageInfo{SOC: l.storage.State.SOC, Mode: model.StorageIdle}
	if !state.Energized && !l.recloser.BreakerClosed() {
		return info
	}
	setpoint := l.shave.Setpoint(l.profile.Hour(state.Tick), l.storage.State.SOC, l.storage.Params.MaxPowerKW)
	res := l.storage.Apply(setpoint, 1.0/float64(l.cfg.Simulation.TicksPerHour))
	info.PowerKW = res.PowerKW
	info.SOC = res.SOCEnd
	switch {
	case res.PowerKW < 0:
		info.Mode = model.StorageCharging
	case res.PowerKW > 0:
		info.Mode = model.StorageDischarging
	}
	return info
}

// faultIndicator derives the protection fault signal. While energized it
// combines the relay's local overcurrent measurement with estimated
// undervoltage; a degraded estimate contributes nothing, so protection never
// acts on an untrusted voltage. With the breaker open the line-side detector
// sees whether the physical fault persists, which is what decides a reclose.
func (l *Loop) faultIndicator(state model.PhysicsState, est model.EstimatedState, status model.TickStatus) bool {
	if !state.Energized {
		return l.fault.Active
	}
	if state.TransformerLoadPU > l.cfg.FaultDetect.OvercurrentPU {
		return true
	}
	if status.Degraded() {
		return false
	}
	for _, be := range est.Buses {
		if be.VoltagePU < l.cfg.FaultDetect.UndervoltagePU {
			return true
		}
	}
	return false
}

// advanceForecast feeds the hourly load history to the background forecaster
// and scores the previous one-step-ahead prediction against the realized
// demand.
func (l *Loop) advanceForecast(input model.LoadInput) {
	if l.state.Tick%l.cfg.Simulation.TicksPerHour != 0 {
		return
	}
	if l.hasPending {
		l.metrics.Observe(l.forecastPending, input.PLoadKW)
		l.hasPending = false
	}
	l.history = append(l.history, model.LoadPoint{
		Timestamp:         input.Timestamp,
		ActivePowerKW:     input.PLoadKW,
		ReactivePowerKVAR: input.QLoadKVAR,
	})
	if len(l.history) > historyCap {
		l.history = l.history[len(l.history)-historyCap:]
	}
	l.runner.Submit(l.history)
	if res, ok := l.runner.Latest(); ok && len(res.Prediction.Values) > 0 {
		l.forecastPending = res.Prediction.Values[0]
		l.hasPending = true
	}
}

func (l *Loop) appendLedger(snap Snapshot, input model.LoadInput) {
	// Sum in topology order so replays with the same seed produce
	// bit-identical rows.
	var solarKW float64
	for _, b := range l.top.Buses {
		solarKW += snap.State.Buses[b.ID].PSolarKW
	}
	l.ledger.Append(Row{
		Tick:               snap.Tick,
		Timestamp:          snap.Time,
		FrequencyHz:        snap.State.FrequencyHz,
		MinVoltagePU:       snap.MinVoltagePU(l.top.SourceBus),
		TransformerTempC:   snap.State.TransformerTempC,
		TransformerLoadPU:  snap.State.TransformerLoadPU,
		DemandKW:           input.PLoadKW,
		SolarKW:            solarKW,
		StorageKW:          snap.Storage.PowerKW,
		StorageSOC:         snap.Storage.SOC,
		Source:             snap.Action.Source,
		TapPosition:        snap.Action.TapPosition,
		RecloserState:      snap.Recloser.State,
		EstimatorConverged: snap.Estimate.Converged,
		BadData:            snap.Status.BadData,
		CostJ:              snap.Estimate.CostJ,
		NumericFault:       snap.Status.NumericFault,
		FaultActive:        snap.Fault.Active,
	})
}

func (l *Loop) initialSnapshot() Snapshot {
	snap := Snapshot{
		Tick:     l.state.Tick,
		Time:     l.state.Time,
		State:    l.state,
		Action:   l.action,
		Recloser: RecloserInfo{State: l.recloser.State()},
		Storage:  StorageInfo{Mode: model.StorageIdle},
	}
	if l.storage != nil {
		snap.Storage.SOC = l.storage.State.SOC
	}
	return snap
}

func (l *Loop) publish(snap Snapshot) {
	l.snapMu.Lock()
	l.snap = snap
	l.snapMu.Unlock()

	l.subMu.Lock()
	defer l.subMu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot and push the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func lowestEstimatedVoltage(est model.EstimatedState) (float64, bool) {
	min := -1.0
	for _, be := range est.Buses {
		if min < 0 || be.VoltagePU < min {
			min = be.VoltagePU
		}
	}
	if min < 0 {
		return 0, false
	}
	return min, true
}
