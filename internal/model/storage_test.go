package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageParams() StorageParams {
	return StorageParams{
		CapacityKWh:         500,
		MaxPowerKW:          100,
		ChargeEfficiency:    0.95,
		DischargeEfficiency: 0.95,
		MinSOC:              0.05,
		MaxSOC:              1.0,
	}
}

func TestNewStorageValidates(t *testing.T) {
	_, err := NewStorage(testStorageParams(), 0.5)
	require.NoError(t, err)

	bad := testStorageParams()
	bad.CapacityKWh = 0
	_, err = NewStorage(bad, 0.5)
	require.Error(t, err)

	bad = testStorageParams()
	bad.ChargeEfficiency = 1.2
	_, err = NewStorage(bad, 0.5)
	require.Error(t, err)

	// Initial SOC outside the configured band.
	_, err = NewStorage(testStorageParams(), 0.01)
	require.Error(t, err)
}

func TestStorageClipSetpoint(t *testing.T) {
	s, err := NewStorage(testStorageParams(), 0.5)
	require.NoError(t, err)

	assert.Equal(t, 100.0, s.ClipSetpoint(250))
	assert.Equal(t, -100.0, s.ClipSetpoint(-250))
	assert.Equal(t, 60.0, s.ClipSetpoint(60))
}

func TestStorageChargeAccounting(t *testing.T) {
	s, err := NewStorage(testStorageParams(), 0.5)
	require.NoError(t, err)

	// One hour at -80 kW stores 80*0.95 = 76 kWh.
	res := s.Apply(-80, 1.0)
	assert.Equal(t, -80.0, res.PowerKW)
	assert.Equal(t, 0.5, res.SOCStart)
	assert.InDelta(t, 0.5+76.0/500.0, res.SOCEnd, 1e-9)
}

func TestStorageDischargeAccounting(t *testing.T) {
	s, err := NewStorage(testStorageParams(), 0.5)
	require.NoError(t, err)

	// One hour at 100 kW withdraws 100/0.95 kWh from the cells.
	res := s.Apply(100, 1.0)
	assert.Equal(t, 100.0, res.PowerKW)
	assert.InDelta(t, 0.5-(100.0/0.95)/500.0, res.SOCEnd, 1e-9)
}

func TestStorageRespectsSOCBounds(t *testing.T) {
	t.Run("charge clips at MaxSOC", func(t *testing.T) {
		s, err := NewStorage(testStorageParams(), 0.999)
		require.NoError(t, err)

		res := s.Apply(-100, 1.0)
		assert.Greater(t, res.PowerKW, -100.0, "power must be clipped near full")
		assert.InDelta(t, 1.0, res.SOCEnd, 1e-9)
	})

	t.Run("discharge clips at MinSOC", func(t *testing.T) {
		s, err := NewStorage(testStorageParams(), 0.06)
		require.NoError(t, err)

		res := s.Apply(100, 1.0)
		assert.Less(t, res.PowerKW, 100.0)
		assert.InDelta(t, 0.05, res.SOCEnd, 1e-9)
	})

	t.Run("empty battery realizes zero discharge", func(t *testing.T) {
		s, err := NewStorage(testStorageParams(), 0.05)
		require.NoError(t, err)

		res := s.Apply(100, 1.0)
		assert.Zero(t, res.PowerKW)
		assert.Equal(t, 0.05, res.SOCEnd)
	})
}

func TestStorageIdleInterval(t *testing.T) {
	s, err := NewStorage(testStorageParams(), 0.5)
	require.NoError(t, err)

	res := s.Apply(0, 1.0)
	assert.Zero(t, res.PowerKW)
	assert.Equal(t, 0.5, res.SOCEnd)
}
