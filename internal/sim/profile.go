package sim

import (
	"math"
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// Profile turns a tick number into the exogenous input for that tick: demand
// from the historical load series (or a synthetic daily curve when none is
// loaded), irradiance from the hourly solar shape with linear interpolation
// inside the hour, and the configured ambient temperature.
type Profile struct {
	history      []model.LoadPoint
	solar        []float64
	ticksPerHour int
	ambientC     float64
}

// NewProfile builds a profile. history may be nil; solar must have at least
// one entry (use data.SyntheticSolarProfile for the default 24-hour shape).
func NewProfile(history []model.LoadPoint, solar []float64, ticksPerHour int, ambientC float64) *Profile {
	return &Profile{
		history:      history,
		solar:        solar,
		ticksPerHour: ticksPerHour,
		ambientC:     ambientC,
	}
}

// Hour returns the simulated hour of day for a tick.
func (p *Profile) Hour(tick int) int {
	return (tick / p.ticksPerHour) % 24
}

// At returns the input for the given tick, stamped with the given simulation
// time.
func (p *Profile) At(tick int, ts time.Time) model.LoadInput {
	pKW, qKVAR := p.demand(tick)
	return model.LoadInput{
		PLoadKW:      pKW,
		QLoadKVAR:    qKVAR,
		IrradiancePU: p.irradiance(tick),
		AmbientTempC: p.ambientC,
		Timestamp:    ts,
	}
}

func (p *Profile) demand(tick int) (float64, float64) {
	if len(p.history) > 0 {
		pt := p.history[(tick/p.ticksPerHour)%len(p.history)]
		return pt.ActivePowerKW, pt.ReactivePowerKVAR
	}
	// Synthetic daily curve: morning ramp, evening peak, overnight trough.
	h := float64(tick%(24*p.ticksPerHour)) / float64(p.ticksPerHour)
	pKW := 4000.0 + 1500.0*math.Sin((h-9.0)/24.0*2.0*math.Pi)
	return pKW, pKW * 0.35
}

func (p *Profile) irradiance(tick int) float64 {
	if len(p.solar) == 0 {
		return 0
	}
	hour := (tick / p.ticksPerHour) % len(p.solar)
	next := (hour + 1) % len(p.solar)
	frac := float64(tick%p.ticksPerHour) / float64(p.ticksPerHour)
	return p.solar[hour]*(1-frac) + p.solar[next]*frac
}
