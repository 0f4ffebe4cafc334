package scada

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

func flatState(top *topology.Topology) model.PhysicsState {
	buses := make(map[string]model.BusState)
	for _, b := range top.Buses {
		buses[b.ID] = model.BusState{VoltagePU: 1.0, PLoadKW: 1000 * b.LoadShare, QLoadKVAR: 400 * b.LoadShare}
	}
	return model.PhysicsState{Tick: 7, Time: time.Now(), FrequencyHz: 50.0, Buses: buses, Energized: true}
}

func TestSample(t *testing.T) {
	top := topology.DefaultFeeder()

	t.Run("covers every metered bus", func(t *testing.T) {
		s, err := NewSampler(top, DefaultNoise(), FDIParams{}, 1)
		require.NoError(t, err)

		ms := s.Sample(flatState(top))
		assert.Len(t, ms, 1+3*len(top.MeteredBuses()))
		for _, m := range ms {
			assert.Equal(t, 7, m.Tick)
			assert.Greater(t, m.Sigma, 0.0)
			assert.NotEqual(t, m.SensorID.String(), "00000000-0000-0000-0000-000000000000")
		}
	})

	t.Run("same seed same telemetry", func(t *testing.T) {
		s1, err := NewSampler(top, DefaultNoise(), FDIParams{}, 42)
		require.NoError(t, err)
		s2, err := NewSampler(top, DefaultNoise(), FDIParams{}, 42)
		require.NoError(t, err)

		st := flatState(top)
		m1 := s1.Sample(st)
		m2 := s2.Sample(st)
		require.Equal(t, len(m1), len(m2))
		for i := range m1 {
			assert.Equal(t, m1[i].Value, m2[i].Value)
		}
	})

	t.Run("noise is roughly zero mean", func(t *testing.T) {
		s, err := NewSampler(top, DefaultNoise(), FDIParams{}, 3)
		require.NoError(t, err)

		st := flatState(top)
		var sum float64
		var n int
		for i := 0; i < 500; i++ {
			for _, m := range s.Sample(st) {
				if m.Kind == model.MeasVoltagePU {
					sum += m.Value - 1.0
					n++
				}
			}
		}
		assert.InDelta(t, 0.0, sum/float64(n), 0.002)
	})

	t.Run("fdi bias shifts the targeted voltage sensor", func(t *testing.T) {
		fdi := FDIParams{Enabled: true, BiasPU: 0.15, TargetBus: "bus1005"}
		s, err := NewSampler(top, DefaultNoise(), fdi, 5)
		require.NoError(t, err)

		st := flatState(top)
		var target, other float64
		var nt, no int
		for i := 0; i < 200; i++ {
			for _, m := range s.Sample(st) {
				if m.Kind != model.MeasVoltagePU {
					continue
				}
				if m.Bus == "bus1005" {
					target += m.Value
					nt++
				} else {
					other += m.Value
					no++
				}
			}
		}
		assert.InDelta(t, 1.15, target/float64(nt), 0.01)
		assert.InDelta(t, 1.0, other/float64(no), 0.01)
	})

	t.Run("rejects zero-bias fdi", func(t *testing.T) {
		_, err := NewSampler(top, DefaultNoise(), FDIParams{Enabled: true}, 1)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive sigma", func(t *testing.T) {
		n := DefaultNoise()
		n.VoltageSigma = 0
		_, err := NewSampler(top, n, FDIParams{}, 1)
		assert.Error(t, err)
	})
}
