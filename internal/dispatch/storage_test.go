package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeakShaveSchedule(t *testing.T) {
	p, err := NewPeakShave(DefaultPeakShave())
	require.NoError(t, err)

	t.Run("charges through the solar window", func(t *testing.T) {
		for _, h := range []int{10, 12, 15} {
			assert.Equal(t, -80.0, p.Setpoint(h, 0.5, 100), "hour %d", h)
		}
	})

	t.Run("discharges through the evening peak", func(t *testing.T) {
		for _, h := range []int{18, 20, 22} {
			assert.Equal(t, 100.0, p.Setpoint(h, 0.5, 100), "hour %d", h)
		}
	})

	t.Run("idles outside both windows", func(t *testing.T) {
		for _, h := range []int{0, 9, 16, 17, 23} {
			assert.Zero(t, p.Setpoint(h, 0.5, 100), "hour %d", h)
		}
	})

	t.Run("soc guards stop the schedule", func(t *testing.T) {
		assert.Zero(t, p.Setpoint(12, 0.96, 100), "full battery must not charge")
		assert.Zero(t, p.Setpoint(20, 0.15, 100), "depleted battery must not discharge")
	})

	t.Run("hour wraps past midnight", func(t *testing.T) {
		assert.Equal(t, p.Setpoint(20, 0.5, 100), p.Setpoint(44, 0.5, 100))
	})
}

func TestPeakShaveParamsValidate(t *testing.T) {
	bad := DefaultPeakShave()
	bad.ChargeEndHour = 25
	require.Error(t, bad.Validate())

	bad = DefaultPeakShave()
	bad.DischargeFloorSOC = 0.98
	require.Error(t, bad.Validate())

	bad = DefaultPeakShave()
	bad.ChargeFraction = 0
	require.Error(t, bad.Validate())
}
