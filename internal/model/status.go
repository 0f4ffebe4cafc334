package model

// TickStatus carries the non-fatal condition flags surfaced to the dashboard
// for one tick. All flags false means a clean tick.
type TickStatus struct {
	NumericFault   bool `json:"numeric_fault"`
	EstimatorStale bool `json:"estimator_stale"` // estimator did not converge this tick
	BadData        bool `json:"bad_data"`
}

// Degraded reports whether downstream control should distrust the estimate.
func (s TickStatus) Degraded() bool {
	return s.NumericFault || s.EstimatorStale
}
