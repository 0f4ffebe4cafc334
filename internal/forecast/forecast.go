// Package forecast defines the contract the simulation consumes for load
// forecasting. Concrete models (trend/seasonality, recurrent nets) live
// behind the Forecaster interface and can be swapped without touching the
// tick loop; the in-tree seasonal-naive backend keeps the loop runnable
// without any external model.
package forecast

import (
	"errors"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// Prediction is a point forecast with confidence bounds, one entry per
// horizon step.
type Prediction struct {
	Values []float64 `json:"values"`
	Lower  []float64 `json:"lower"`
	Upper  []float64 `json:"upper"`
}

// Forecaster is the pluggable model contract.
type Forecaster interface {
	Name() string
	// Forecast predicts the next horizon load values from ordered history.
	Forecast(history []model.LoadPoint, horizon int) (Prediction, error)
}

// ErrInsufficientHistory indicates the model needs more history than given.
var ErrInsufficientHistory = errors.New("forecast: insufficient history")
