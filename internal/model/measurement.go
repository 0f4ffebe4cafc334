package model

import (
	"time"

	"github.com/google/uuid"
)

// SensorClass groups sensors by the quantity they observe. Noise magnitude is
// configured per class, not per individual sensor.
type SensorClass string

const (
	SensorVoltage   SensorClass = "voltage"
	SensorFrequency SensorClass = "frequency"
	SensorPower     SensorClass = "power"
)

// MeasurementKind identifies which state quantity a measurement observes.
type MeasurementKind string

const (
	MeasVoltagePU    MeasurementKind = "v_pu"
	MeasFrequencyHz  MeasurementKind = "freq_hz"
	MeasActiveKW     MeasurementKind = "p_kw"
	MeasReactiveKVAR MeasurementKind = "q_kvar"
)

// Measurement is one noisy telemetry point produced by the SCADA layer.
// Consumers treat it as read-only.
type Measurement struct {
	SensorID  uuid.UUID       `json:"sensor_id"`
	Class     SensorClass     `json:"class"`
	Kind      MeasurementKind `json:"kind"`
	Bus       string          `json:"bus"`
	Value     float64         `json:"value"`
	Sigma     float64         `json:"sigma"` // standard deviation of the sensor noise
	Tick      int             `json:"tick"`
	Timestamp time.Time       `json:"timestamp"`
}

// Variance is the measurement variance sigma^2 used for WLS weighting.
func (m Measurement) Variance() float64 {
	return m.Sigma * m.Sigma
}
