package protection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAVR(t *testing.T) *AVR {
	t.Helper()
	p := DefaultAVR()
	p.MinTapIntervalTicks = 5
	a, err := NewAVR(p)
	require.NoError(t, err)
	return a
}

func TestAVRParamsValidate(t *testing.T) {
	p := DefaultAVR()
	p.VMaxPU = p.VMinPU
	_, err := NewAVR(p)
	assert.Error(t, err)

	p = DefaultAVR()
	p.TapStep = 0
	_, err = NewAVR(p)
	assert.Error(t, err)
}

func TestAVRHoldsInsideDeadband(t *testing.T) {
	a := newAVR(t)
	for i := 0; i < 50; i++ {
		a.Update(1.0, true)
	}
	assert.Equal(t, 1.0, a.Tap())
	assert.Zero(t, a.Moves())
}

// Sustained undervoltage triggers exactly one tap-up per interval, never more.
func TestAVRSingleTapPerInterval(t *testing.T) {
	a := newAVR(t)

	var moveTicks []int
	last := a.Tap()
	for i := 0; i < 25; i++ {
		tap := a.Update(0.93, true)
		if tap != last {
			moveTicks = append(moveTicks, i)
			last = tap
		}
	}

	// One move per 5-tick interval across 25 ticks.
	assert.Equal(t, 5, a.Moves())
	for i := 1; i < len(moveTicks); i++ {
		assert.GreaterOrEqual(t, moveTicks[i]-moveTicks[i-1], 5, "moves too close together")
	}
	assert.InDelta(t, 1.0+5*DefaultAVR().TapStep, a.Tap(), 1e-12)
}

func TestAVRDirection(t *testing.T) {
	a := newAVR(t)
	a.Update(0.90, true)
	assert.Greater(t, a.Tap(), 1.0, "undervoltage taps up")

	b := newAVR(t)
	b.Update(1.08, true)
	assert.Less(t, b.Tap(), 1.0, "overvoltage taps down")
}

func TestAVRRespectsTapLimits(t *testing.T) {
	p := DefaultAVR()
	p.MinTapIntervalTicks = 1
	a, err := NewAVR(p)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		a.Update(0.80, true)
	}
	assert.LessOrEqual(t, a.Tap(), p.TapMax)

	for i := 0; i < 200; i++ {
		a.Update(1.20, true)
	}
	assert.GreaterOrEqual(t, a.Tap(), p.TapMin)
}

// Untrusted readings (stale estimate, numeric fault) must not move the tap.
func TestAVRIgnoresUntrustedReadings(t *testing.T) {
	a := newAVR(t)
	for i := 0; i < 20; i++ {
		a.Update(0.80, false)
	}
	assert.Equal(t, 1.0, a.Tap())
	assert.Zero(t, a.Moves())
}
