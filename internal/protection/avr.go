package protection

import "errors"

// AVRParams tunes the automatic tap changer.
type AVRParams struct {
	// Deadband bounds in per unit; no action while voltage stays inside.
	VMinPU float64
	VMaxPU float64
	// MinTapIntervalTicks is the minimum spacing between tap moves, the
	// anti-hunting guard.
	MinTapIntervalTicks int
	// TapStep is the per-move change of the source multiplier.
	TapStep float64
	TapMin  float64
	TapMax  float64
}

func (p AVRParams) Validate() error {
	if p.VMinPU <= 0 || p.VMaxPU <= p.VMinPU {
		return errors.New("deadband requires 0 < VMinPU < VMaxPU")
	}
	if p.MinTapIntervalTicks < 1 {
		return errors.New("MinTapIntervalTicks must be >= 1")
	}
	if p.TapStep <= 0 {
		return errors.New("TapStep must be > 0")
	}
	if p.TapMin <= 0 || p.TapMax <= p.TapMin {
		return errors.New("tap range requires 0 < TapMin < TapMax")
	}
	return nil
}

// DefaultAVR holds voltage in the 0.96..1.04 band with 0.0125 taps.
func DefaultAVR() AVRParams {
	return AVRParams{
		VMinPU:              0.96,
		VMaxPU:              1.04,
		MinTapIntervalTicks: 10,
		TapStep:             0.0125,
		TapMin:              0.90,
		TapMax:              1.10,
	}
}

// AVR is the tap-changer controller. It issues at most one tap move per
// MinTapIntervalTicks, in the direction that reduces the deviation.
type AVR struct {
	params AVRParams

	tap         float64
	sinceLast   int
	movesIssued int
}

func NewAVR(params AVRParams) (*AVR, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &AVR{params: params, tap: 1.0, sinceLast: params.MinTapIntervalTicks}, nil
}

// Tap returns the current tap position (source-voltage multiplier).
func (a *AVR) Tap() float64 { return a.tap }

// Moves returns the number of tap changes issued since construction.
func (a *AVR) Moves() int { return a.movesIssued }

// Update advances one tick with the regulated-bus voltage and whether that
// voltage reading is trustworthy. Untrusted ticks (estimator stale, numeric
// fault) hold the current tap; the interval timer still advances.
func (a *AVR) Update(voltagePU float64, trusted bool) float64 {
	a.sinceLast++
	if !trusted {
		return a.tap
	}
	if a.sinceLast < a.params.MinTapIntervalTicks {
		return a.tap
	}

	switch {
	case voltagePU < a.params.VMinPU && a.tap < a.params.TapMax:
		a.tap += a.params.TapStep
		if a.tap > a.params.TapMax {
			a.tap = a.params.TapMax
		}
		a.movesIssued++
		a.sinceLast = 0
	case voltagePU > a.params.VMaxPU && a.tap > a.params.TapMin:
		a.tap -= a.params.TapStep
		if a.tap < a.params.TapMin {
			a.tap = a.params.TapMin
		}
		a.movesIssued++
		a.sinceLast = 0
	}
	return a.tap
}
