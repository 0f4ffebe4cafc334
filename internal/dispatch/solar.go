package dispatch

import (
	"errors"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// SolarHandoverParams defines the hysteresis band for the grid/solar
// handover, in terms of the solar-availability ratio (PV potential over
// demand). EnterRatio must be strictly above ExitRatio.
type SolarHandoverParams struct {
	EnterRatio float64
	ExitRatio  float64
	// BlendBelowEnter dispatches partial solar while availability sits
	// between the thresholds after a handover.
	BlendBelowEnter bool
}

func (p SolarHandoverParams) Validate() error {
	if p.EnterRatio <= 0 || p.EnterRatio > 1.5 {
		return errors.New("EnterRatio must be in (0, 1.5]")
	}
	if p.ExitRatio < 0 || p.ExitRatio >= p.EnterRatio {
		return errors.New("ExitRatio must be >= 0 and strictly below EnterRatio")
	}
	return nil
}

// DefaultSolarHandover switches to solar at 60% availability and back to grid
// under 40%.
func DefaultSolarHandover() SolarHandoverParams {
	return SolarHandoverParams{EnterRatio: 0.6, ExitRatio: 0.4, BlendBelowEnter: true}
}

// SolarHandover is the master/slave source handover policy. The distinct
// enter/exit thresholds guarantee that an availability signal oscillating at
// a single value cannot cause repeated switching.
type SolarHandover struct {
	params  SolarHandoverParams
	onSolar bool
}

func NewSolarHandover(params SolarHandoverParams) (*SolarHandover, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &SolarHandover{params: params}, nil
}

func (s *SolarHandover) Name() string { return "solar-handover" }

func (s *SolarHandover) Decide(ctx Context) Decision {
	// On a degraded tick the availability signal is unreliable; hold the
	// current source.
	if ctx.Status.Degraded() {
		return s.current()
	}

	ratio := 0.0
	if ctx.DemandKW > 0 {
		ratio = ctx.AvailableSolarKW / ctx.DemandKW
	}

	if s.onSolar {
		if ratio < s.params.ExitRatio {
			s.onSolar = false
		}
	} else {
		if ratio >= s.params.EnterRatio {
			s.onSolar = true
		}
	}

	if !s.onSolar {
		return Decision{Source: model.SourceGrid, SolarFraction: 0}
	}
	if s.params.BlendBelowEnter && ratio < s.params.EnterRatio {
		return Decision{Source: model.SourceBlend, SolarFraction: 1.0}
	}
	return Decision{Source: model.SourceSolar, SolarFraction: 1.0}
}

func (s *SolarHandover) current() Decision {
	if s.onSolar {
		return Decision{Source: model.SourceSolar, SolarFraction: 1.0}
	}
	return Decision{Source: model.SourceGrid, SolarFraction: 0}
}
