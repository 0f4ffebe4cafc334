package sim

import (
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/forecast"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/physics"
)

// RecloserInfo is the protection status surfaced with each snapshot.
type RecloserInfo struct {
	State     model.RecloserState `json:"state"`
	Attempts  int                 `json:"attempts"`
	TripCount int                 `json:"trip_count"`
}

// StorageInfo is the battery status surfaced with each snapshot.
type StorageInfo struct {
	SOC     float64           `json:"soc"`
	PowerKW float64           `json:"power_kw"`
	Mode    model.StorageMode `json:"mode"`
}

// FaultInfo describes the currently injected fault, if any.
type FaultInfo struct {
	Active      bool              `json:"active"`
	Bus         string            `json:"bus,omitempty"`
	Type        physics.FaultType `json:"type,omitempty"`
	ImpedancePU float64           `json:"impedance_pu,omitempty"`
}

// Snapshot is the immutable per-tick view handed to the dashboard. The loop
// replaces it wholesale each tick; readers never see a partially written
// state.
type Snapshot struct {
	Tick int       `json:"tick"`
	Time time.Time `json:"time"`

	State    model.PhysicsState   `json:"-"`
	Estimate model.EstimatedState `json:"estimate"`
	Status   model.TickStatus     `json:"status"`
	Action   model.ControlAction  `json:"action"`

	Recloser   RecloserInfo `json:"recloser"`
	Overridden bool         `json:"overridden"`
	Storage    StorageInfo  `json:"storage"`
	Fault      FaultInfo    `json:"fault"`

	Forecast     *forecast.Result `json:"forecast,omitempty"`
	ForecastRMSE float64          `json:"forecast_rmse"`
	ForecastMAE  float64          `json:"forecast_mae"`
}

// MinVoltagePU returns the lowest true bus voltage in the snapshot, source
// bus excluded. Returns 0 when the feeder is de-energized.
func (s Snapshot) MinVoltagePU(sourceBus string) float64 {
	min := -1.0
	for id, b := range s.State.Buses {
		if id == sourceBus {
			continue
		}
		if min < 0 || b.VoltagePU < min {
			min = b.VoltagePU
		}
	}
	if min < 0 {
		return 0
	}
	return min
}
