// Package protection implements the discrete protection and voltage
// regulation devices of the feeder: the recloser (Device 79) state machine
// and the AVR tap changer.
package protection

import (
	"errors"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// RecloserParams tunes the autoreclose sequence.
type RecloserParams struct {
	// MaxAttempts is the number of failed reclose attempts before lockout.
	MaxAttempts int
	// ReclosureDelayTicks is the dead time between trip and reclose attempt.
	ReclosureDelayTicks int
	// DebounceTicks is how long the fault indicator must persist before the
	// initial trip.
	DebounceTicks int
}

func (p RecloserParams) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("MaxAttempts must be >= 1")
	}
	if p.ReclosureDelayTicks < 1 {
		return errors.New("ReclosureDelayTicks must be >= 1")
	}
	if p.DebounceTicks < 0 {
		return errors.New("DebounceTicks must be >= 0")
	}
	return nil
}

// DefaultRecloser allows two reclose attempts with a five-tick dead time.
func DefaultRecloser() RecloserParams {
	return RecloserParams{MaxAttempts: 2, ReclosureDelayTicks: 5, DebounceTicks: 2}
}

// Recloser is the Device 79 state machine:
//
//	CLOSED -> TRIPPED              sustained fault indicator
//	TRIPPED -> WAITING_TO_RECLOSE  immediately, dead timer starts
//	WAITING -> CLOSED              timer expired, fault cleared
//	WAITING -> TRIPPED             timer expired, fault persists (re-trip)
//	re-trip N times -> LOCKOUT     terminal until manual reset
type Recloser struct {
	params RecloserParams

	state    model.RecloserState
	timer    int
	debounce int
	attempts int
	// TripCount is the total number of trips since the last reset.
	tripCount int
}

// NewRecloser starts CLOSED.
func NewRecloser(params RecloserParams) (*Recloser, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Recloser{params: params, state: model.RecloserClosed}, nil
}

// State returns the current machine position.
func (r *Recloser) State() model.RecloserState { return r.state }

// Attempts returns consecutive failed reclose attempts.
func (r *Recloser) Attempts() int { return r.attempts }

// TripCount returns total trips since the last manual reset.
func (r *Recloser) TripCount() int { return r.tripCount }

// BreakerClosed reports whether the breaker conducts in the current state.
func (r *Recloser) BreakerClosed() bool {
	return r.state == model.RecloserClosed
}

// Update advances the machine one tick given the fault indicator and returns
// the new state. The indicator is typically derived from estimated
// undervoltage or overcurrent; callers must debounce nothing themselves.
func (r *Recloser) Update(faultActive bool) model.RecloserState {
	switch r.state {
	case model.RecloserClosed:
		if faultActive {
			r.debounce++
			if r.debounce > r.params.DebounceTicks {
				r.trip()
			}
		} else {
			r.debounce = 0
		}

	case model.RecloserTripped:
		// Dead time starts immediately after a trip.
		r.state = model.RecloserWaiting
		r.timer = 0

	case model.RecloserWaiting:
		r.timer++
		if r.timer < r.params.ReclosureDelayTicks {
			break
		}
		if faultActive {
			// Failed attempt.
			r.attempts++
			if r.attempts >= r.params.MaxAttempts {
				r.state = model.RecloserLockout
			} else {
				r.trip()
			}
		} else {
			// Successful reclose.
			r.state = model.RecloserClosed
			r.attempts = 0
			r.debounce = 0
		}

	case model.RecloserLockout:
		// Terminal; only Reset leaves this state.
	}
	return r.state
}

// Reset is the explicit operator action returning a locked-out recloser to
// service. It is ignored in any other state.
func (r *Recloser) Reset() bool {
	if r.state != model.RecloserLockout {
		return false
	}
	r.state = model.RecloserClosed
	r.attempts = 0
	r.debounce = 0
	r.timer = 0
	r.tripCount = 0
	return true
}

func (r *Recloser) trip() {
	r.state = model.RecloserTripped
	r.tripCount++
	r.debounce = 0
	r.timer = 0
}
