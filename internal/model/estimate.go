package model

import "github.com/google/uuid"

// BusEstimate is the estimator's reconstruction of one bus operating point.
type BusEstimate struct {
	VoltagePU float64 `json:"voltage_pu"`
	AngleRad  float64 `json:"angle_rad"`
}

// EstimatedState is the WLS estimator output for one tick.
//
// Converged distinguishes a real solution from the last iterate of a run that
// hit the iteration cap; downstream control must treat non-converged
// estimates as untrustworthy.
type EstimatedState struct {
	Tick       int                    `json:"tick"`
	Buses      map[string]BusEstimate `json:"buses"`
	Residuals  []float64              `json:"residuals"`
	CostJ      float64                `json:"cost_j"`
	Threshold  float64                `json:"chi2_threshold"`
	DOF        int                    `json:"dof"`
	Iterations int                    `json:"iterations"`
	Converged  bool                   `json:"converged"`

	BadData       bool      `json:"bad_data"`
	SuspectSensor uuid.UUID `json:"suspect_sensor,omitempty"`
}
