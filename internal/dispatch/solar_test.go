package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

func ctxWithRatio(ratio float64) Context {
	return Context{DemandKW: 1000, AvailableSolarKW: ratio * 1000}
}

func TestSolarHandoverParamsValidate(t *testing.T) {
	_, err := NewSolarHandover(SolarHandoverParams{EnterRatio: 0.5, ExitRatio: 0.5})
	assert.Error(t, err, "equal thresholds defeat hysteresis")

	_, err = NewSolarHandover(SolarHandoverParams{EnterRatio: 0.4, ExitRatio: 0.6})
	assert.Error(t, err)
}

func TestSolarHandoverHysteresis(t *testing.T) {
	p := SolarHandoverParams{EnterRatio: 0.6, ExitRatio: 0.4}
	s, err := NewSolarHandover(p)
	require.NoError(t, err)

	t.Run("starts on grid", func(t *testing.T) {
		d := s.Decide(ctxWithRatio(0.5))
		assert.Equal(t, model.SourceGrid, d.Source)
		assert.Zero(t, d.SolarFraction)
	})

	t.Run("crossing enter threshold switches to solar", func(t *testing.T) {
		d := s.Decide(ctxWithRatio(0.65))
		assert.Equal(t, model.SourceSolar, d.Source)
		assert.Equal(t, 1.0, d.SolarFraction)
	})

	t.Run("dipping between thresholds holds solar", func(t *testing.T) {
		d := s.Decide(ctxWithRatio(0.5))
		assert.Equal(t, model.SourceSolar, d.Source)
	})

	t.Run("crossing exit threshold returns to grid", func(t *testing.T) {
		d := s.Decide(ctxWithRatio(0.35))
		assert.Equal(t, model.SourceGrid, d.Source)
	})
}

// An availability signal parked exactly at one threshold must not flap.
func TestSolarHandoverNoFlapAtThreshold(t *testing.T) {
	s, err := NewSolarHandover(SolarHandoverParams{EnterRatio: 0.6, ExitRatio: 0.4})
	require.NoError(t, err)

	var switches int
	prev := s.Decide(ctxWithRatio(0.6)).Source
	for i := 0; i < 100; i++ {
		cur := s.Decide(ctxWithRatio(0.6)).Source
		if cur != prev {
			switches++
			prev = cur
		}
	}
	assert.Zero(t, switches)

	// Same at the exit threshold: ratio 0.4 is not strictly below 0.4.
	prev = s.Decide(ctxWithRatio(0.4)).Source
	for i := 0; i < 100; i++ {
		cur := s.Decide(ctxWithRatio(0.4)).Source
		if cur != prev {
			switches++
			prev = cur
		}
	}
	assert.Zero(t, switches)
}

func TestSolarHandoverBlendBand(t *testing.T) {
	s, err := NewSolarHandover(DefaultSolarHandover())
	require.NoError(t, err)

	require.Equal(t, model.SourceSolar, s.Decide(ctxWithRatio(0.8)).Source)
	d := s.Decide(ctxWithRatio(0.5))
	assert.Equal(t, model.SourceBlend, d.Source)
}

func TestSolarHandoverHoldsWhenDegraded(t *testing.T) {
	s, err := NewSolarHandover(SolarHandoverParams{EnterRatio: 0.6, ExitRatio: 0.4})
	require.NoError(t, err)

	// Degraded tick with high availability: must not switch.
	ctx := ctxWithRatio(0.9)
	ctx.Status = model.TickStatus{EstimatorStale: true}
	d := s.Decide(ctx)
	assert.Equal(t, model.SourceGrid, d.Source)
}

func TestSolarHandoverZeroDemand(t *testing.T) {
	s, err := NewSolarHandover(SolarHandoverParams{EnterRatio: 0.6, ExitRatio: 0.4})
	require.NoError(t, err)

	d := s.Decide(Context{DemandKW: 0, AvailableSolarKW: 500})
	assert.Equal(t, model.SourceGrid, d.Source)
}

func TestManualOverride(t *testing.T) {
	inner, err := NewSolarHandover(SolarHandoverParams{EnterRatio: 0.6, ExitRatio: 0.4})
	require.NoError(t, err)
	m := NewManualOverride(inner)

	assert.False(t, m.Overridden())
	assert.Equal(t, model.SourceGrid, m.Decide(ctxWithRatio(0.1)).Source)

	m.Force(model.SourceSolar)
	assert.True(t, m.Overridden())
	assert.Equal(t, model.SourceSolar, m.Decide(ctxWithRatio(0.1)).Source)

	m.Clear()
	assert.Equal(t, model.SourceGrid, m.Decide(ctxWithRatio(0.1)).Source)
}
