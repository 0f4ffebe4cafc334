// Package scada turns physics snapshots into noisy telemetry. It is the only
// place measurement noise (and the optional false-data-injection bias) enters
// the loop; the estimator downstream never sees clean state.
package scada

import (
	"errors"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

// NoiseParams is the per-class standard deviation of sensor noise.
// Voltage/frequency sigmas are in the measured unit (p.u., Hz); power sigma
// is a fraction of the system base.
type NoiseParams struct {
	VoltageSigma   float64
	FrequencySigma float64
	PowerSigma     float64
}

func (p NoiseParams) Validate() error {
	if p.VoltageSigma <= 0 || p.FrequencySigma <= 0 || p.PowerSigma <= 0 {
		return errors.New("noise sigmas must be > 0")
	}
	return nil
}

// DefaultNoise matches typical distribution-class instrument accuracy.
func DefaultNoise() NoiseParams {
	return NoiseParams{
		VoltageSigma:   0.015,
		FrequencySigma: 0.005,
		PowerSigma:     0.02,
	}
}

// FDIParams configures the false-data-injection attack emulation. When
// enabled, BiasPU is added to voltage measurements at the target bus (every
// metered bus if TargetBus is empty). This is a toggle on the one measurement
// path, not a separate code path.
type FDIParams struct {
	Enabled   bool
	BiasPU    float64
	TargetBus string
}

// Sampler maps a PhysicsState to a measurement set. Apart from consuming its
// RNG stream it has no side effects; with a fixed seed the telemetry sequence
// is reproducible.
type Sampler struct {
	top   *topology.Topology
	noise NoiseParams
	fdi   FDIParams
	rng   *rand.Rand

	// Stable sensor identities, assigned once at construction.
	sensorIDs map[string]uuid.UUID
}

// NewSampler builds a sampler over the topology's metered buses. seed fixes
// the noise stream for deterministic runs.
func NewSampler(top *topology.Topology, noise NoiseParams, fdi FDIParams, seed int64) (*Sampler, error) {
	if err := noise.Validate(); err != nil {
		return nil, err
	}
	if fdi.Enabled && fdi.BiasPU == 0 {
		return nil, errors.New("fdi enabled with zero bias")
	}
	s := &Sampler{
		top:       top,
		noise:     noise,
		fdi:       fdi,
		rng:       rand.New(rand.NewSource(seed)),
		sensorIDs: make(map[string]uuid.UUID),
	}
	s.sensorIDs["freq"] = uuid.New()
	for _, bus := range top.MeteredBuses() {
		for _, kind := range []model.MeasurementKind{model.MeasVoltagePU, model.MeasActiveKW, model.MeasReactiveKVAR} {
			s.sensorIDs[bus+"/"+string(kind)] = uuid.New()
		}
	}
	return s, nil
}

// SetFDI swaps the attack configuration at runtime (operator toggle).
func (s *Sampler) SetFDI(fdi FDIParams) { s.fdi = fdi }

// Sample produces the telemetry set for one physics snapshot: one frequency
// measurement plus voltage, P and Q per metered bus.
func (s *Sampler) Sample(state model.PhysicsState) []model.Measurement {
	metered := s.top.MeteredBuses()
	out := make([]model.Measurement, 0, 1+3*len(metered))

	out = append(out, model.Measurement{
		SensorID:  s.sensorIDs["freq"],
		Class:     model.SensorFrequency,
		Kind:      model.MeasFrequencyHz,
		Value:     state.FrequencyHz + s.gauss(s.noise.FrequencySigma),
		Sigma:     s.noise.FrequencySigma,
		Tick:      state.Tick,
		Timestamp: state.Time,
	})

	for _, bus := range metered {
		bs, ok := state.Buses[bus]
		if !ok {
			continue
		}

		v := bs.VoltagePU + s.gauss(s.noise.VoltageSigma)
		if s.fdi.Enabled && (s.fdi.TargetBus == "" || s.fdi.TargetBus == bus) {
			v += s.fdi.BiasPU
		}
		out = append(out, model.Measurement{
			SensorID:  s.sensorIDs[bus+"/"+string(model.MeasVoltagePU)],
			Class:     model.SensorVoltage,
			Kind:      model.MeasVoltagePU,
			Bus:       bus,
			Value:     v,
			Sigma:     s.noise.VoltageSigma,
			Tick:      state.Tick,
			Timestamp: state.Time,
		})

		pNet := bs.PLoadKW - bs.PSolarKW
		qNet := bs.QLoadKVAR - bs.QSolarKVAR
		powerSigmaKW := s.noise.PowerSigma * math.Max(math.Abs(pNet), 100.0)
		out = append(out,
			model.Measurement{
				SensorID:  s.sensorIDs[bus+"/"+string(model.MeasActiveKW)],
				Class:     model.SensorPower,
				Kind:      model.MeasActiveKW,
				Bus:       bus,
				Value:     pNet + s.gauss(powerSigmaKW),
				Sigma:     powerSigmaKW,
				Tick:      state.Tick,
				Timestamp: state.Time,
			},
			model.Measurement{
				SensorID:  s.sensorIDs[bus+"/"+string(model.MeasReactiveKVAR)],
				Class:     model.SensorPower,
				Kind:      model.MeasReactiveKVAR,
				Bus:       bus,
				Value:     qNet + s.gauss(powerSigmaKW),
				Sigma:     powerSigmaKW,
				Tick:      state.Tick,
				Timestamp: state.Time,
			},
		)
	}
	return out
}

func (s *Sampler) gauss(sigma float64) float64 {
	return s.rng.NormFloat64() * sigma
}
