package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultCurrents(t *testing.T) {
	const r, x = 0.01, 0.10

	t.Run("three phase is the most severe", func(t *testing.T) {
		lll := FaultCurrents(FaultLLL, 1.0, r, x, 0)
		lg := FaultCurrents(FaultLG, 1.0, r, x, 0)
		ll := FaultCurrents(FaultLL, 1.0, r, x, 0)

		assert.Greater(t, lll.Phase, lg.Phase)
		assert.Greater(t, lll.Phase, ll.Phase)
	})

	t.Run("three phase has no negative or zero sequence", func(t *testing.T) {
		res := FaultCurrents(FaultLLL, 1.0, r, x, 0)
		assert.Zero(t, res.I2)
		assert.Zero(t, res.I0)
		assert.Greater(t, res.I1, 1.0)
	})

	t.Run("line to ground has equal sequence currents", func(t *testing.T) {
		res := FaultCurrents(FaultLG, 1.0, r, x, 0)
		assert.Equal(t, res.I1, res.I2)
		assert.Equal(t, res.I1, res.I0)
	})

	t.Run("fault impedance limits current", func(t *testing.T) {
		bolted := FaultCurrents(FaultLG, 1.0, r, x, 0)
		limited := FaultCurrents(FaultLG, 1.0, r, x, 0.5)
		assert.Less(t, limited.Phase, bolted.Phase)
	})

	t.Run("unknown type yields zero", func(t *testing.T) {
		res := FaultCurrents(FaultType("bogus"), 1.0, r, x, 0)
		assert.Zero(t, res.Phase)
	})
}

func TestIECTripTime(t *testing.T) {
	t.Run("below pickup never trips", func(t *testing.T) {
		_, ok := IECTripTime(0.9, 0.5)
		assert.False(t, ok)
		_, ok = IECTripTime(1.0, 0.5)
		assert.False(t, ok)
	})

	t.Run("higher current trips faster", func(t *testing.T) {
		slow, ok := IECTripTime(1.5, 0.5)
		require.True(t, ok)
		fast, ok := IECTripTime(5.0, 0.5)
		require.True(t, ok)
		assert.Less(t, fast, slow)
	})

	t.Run("time scales with tms", func(t *testing.T) {
		a, _ := IECTripTime(2.0, 0.5)
		b, _ := IECTripTime(2.0, 1.0)
		assert.InDelta(t, 2*a, b, 1e-9)
	})
}
