package models

import (
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/sim"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

// SnapshotResponse is the per-tick dashboard payload: the true feeder state
// side by side with the estimator's reconstruction.
type SnapshotResponse struct {
	Tick int       `json:"tick"`
	Time time.Time `json:"time"`

	FrequencyHz       float64 `json:"frequency_hz"`
	RotorAngleRad     float64 `json:"rotor_angle_rad"`
	MechPowerKW       float64 `json:"mech_power_kw"`
	TransformerTempC  float64 `json:"transformer_temp_c"`
	TransformerLoadPU float64 `json:"transformer_load_pu"`
	AmbientTempC      float64 `json:"ambient_temp_c"`
	IrradiancePU      float64 `json:"irradiance_pu"`
	TotalPKW          float64 `json:"total_p_kw"`
	TotalQKVAR        float64 `json:"total_q_kvar"`
	Energized         bool    `json:"energized"`

	Buses []BusSnapshot `json:"buses"`

	Estimator EstimatorSummary    `json:"estimator"`
	Status    model.TickStatus    `json:"status"`
	Action    model.ControlAction `json:"action"`
	Recloser  sim.RecloserInfo    `json:"recloser"`

	Overridden bool            `json:"overridden"`
	Storage    sim.StorageInfo `json:"storage"`
	Fault      sim.FaultInfo   `json:"fault"`

	Forecast     *ForecastResponse `json:"forecast,omitempty"`
	ForecastRMSE float64           `json:"forecast_rmse"`
	ForecastMAE  float64           `json:"forecast_mae"`
}

// BusSnapshot pairs the true and estimated operating point of one bus.
type BusSnapshot struct {
	ID                 string   `json:"id"`
	VoltagePU          float64  `json:"voltage_pu"`
	AngleRad           float64  `json:"angle_rad"`
	PLoadKW            float64  `json:"p_load_kw"`
	QLoadKVAR          float64  `json:"q_load_kvar"`
	PSolarKW           float64  `json:"p_solar_kw"`
	QSolarKVAR         float64  `json:"q_solar_kvar"`
	CellTempC          float64  `json:"cell_temp_c"`
	DistanceFromSource float64  `json:"distance_from_source"`
	EstimatedVoltagePU *float64 `json:"estimated_voltage_pu,omitempty"`
	EstimatedAngleRad  *float64 `json:"estimated_angle_rad,omitempty"`
}

// EstimatorSummary is the estimator health surfaced to the dashboard.
type EstimatorSummary struct {
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	CostJ      float64 `json:"cost_j"`
	Threshold  float64 `json:"chi2_threshold"`
	DOF        int     `json:"dof"`
	BadData    bool    `json:"bad_data"`
	// SuspectSensor is set when bad-data analysis singled out a sensor.
	SuspectSensor string `json:"suspect_sensor,omitempty"`
}

// ForecastResponse is the latest load forecast with confidence bounds.
type ForecastResponse struct {
	Backend     string    `json:"backend"`
	GeneratedAt time.Time `json:"generated_at"`
	Values      []float64 `json:"values"`
	Lower       []float64 `json:"lower"`
	Upper       []float64 `json:"upper"`
}

// TopologyResponse is the static feeder description for the topology view.
type TopologyResponse struct {
	SourceBus string          `json:"source_bus"`
	Buses     []topology.Bus  `json:"buses"`
	Lines     []topology.Line `json:"lines"`
}

// LedgerResponse wraps recent tick rows.
type LedgerResponse struct {
	Count int       `json:"count"`
	Rows  []sim.Row `json:"rows"`
}

// ActionResponse acknowledges an operator action.
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FromSnapshot maps a loop snapshot to the API payload.
func FromSnapshot(snap sim.Snapshot, top *topology.Topology) SnapshotResponse {
	resp := SnapshotResponse{
		Tick:              snap.Tick,
		Time:              snap.Time,
		FrequencyHz:       snap.State.FrequencyHz,
		RotorAngleRad:     snap.State.RotorAngleRad,
		MechPowerKW:       snap.State.MechPowerKW,
		TransformerTempC:  snap.State.TransformerTempC,
		TransformerLoadPU: snap.State.TransformerLoadPU,
		AmbientTempC:      snap.State.AmbientTempC,
		IrradiancePU:      snap.State.IrradiancePU,
		TotalPKW:          snap.State.TotalPKW,
		TotalQKVAR:        snap.State.TotalQKVAR,
		Energized:         snap.State.Energized,
		Status:            snap.Status,
		Action:            snap.Action,
		Recloser:          snap.Recloser,
		Overridden:        snap.Overridden,
		Storage:           snap.Storage,
		Fault:             snap.Fault,
		ForecastRMSE:      snap.ForecastRMSE,
		ForecastMAE:       snap.ForecastMAE,
		Estimator: EstimatorSummary{
			Converged:  snap.Estimate.Converged,
			Iterations: snap.Estimate.Iterations,
			CostJ:      snap.Estimate.CostJ,
			Threshold:  snap.Estimate.Threshold,
			DOF:        snap.Estimate.DOF,
			BadData:    snap.Estimate.BadData,
		},
	}
	if snap.Estimate.BadData {
		resp.Estimator.SuspectSensor = snap.Estimate.SuspectSensor.String()
	}
	for _, b := range top.Buses {
		bs := snap.State.Buses[b.ID]
		out := BusSnapshot{
			ID:                 b.ID,
			VoltagePU:          bs.VoltagePU,
			AngleRad:           bs.AngleRad,
			PLoadKW:            bs.PLoadKW,
			QLoadKVAR:          bs.QLoadKVAR,
			PSolarKW:           bs.PSolarKW,
			QSolarKVAR:         bs.QSolarKVAR,
			CellTempC:          bs.CellTempC,
			DistanceFromSource: top.DistanceFromSource(b.ID),
		}
		if est, ok := snap.Estimate.Buses[b.ID]; ok {
			v, a := est.VoltagePU, est.AngleRad
			out.EstimatedVoltagePU = &v
			out.EstimatedAngleRad = &a
		}
		resp.Buses = append(resp.Buses, out)
	}
	if snap.Forecast != nil {
		resp.Forecast = &ForecastResponse{
			Backend:     snap.Forecast.Backend,
			GeneratedAt: snap.Forecast.GeneratedAt,
			Values:      snap.Forecast.Prediction.Values,
			Lower:       snap.Forecast.Prediction.Lower,
			Upper:       snap.Forecast.Prediction.Upper,
		}
	}
	return resp
}
