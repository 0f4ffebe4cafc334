package physics

import (
	"errors"
	"fmt"
)

// ErrStateDiverged indicates the integrator produced a non-finite state. The
// engine never publishes such a state; the caller decides whether to hold the
// last good snapshot or halt the run.
var ErrStateDiverged = errors.New("physics: state diverged (NaN or Inf)")

// StepError wraps a physics failure with the tick it occurred on.
type StepError struct {
	Tick int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("physics step at tick %d: %v", e.Tick, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
