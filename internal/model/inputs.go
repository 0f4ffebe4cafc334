package model

import "time"

// LoadPoint is one row of the historical load time series.
type LoadPoint struct {
	Timestamp         time.Time
	ActivePowerKW     float64
	ReactivePowerKVAR float64
}

// LoadInput is the exogenous input driving one physics tick: the demand drawn
// from the historical profile plus ambient conditions for PV and thermal
// modeling.
type LoadInput struct {
	PLoadKW      float64
	QLoadKVAR    float64
	IrradiancePU float64 // 0..1, 1.0 = 1000 W/m2 equivalent
	AmbientTempC float64
	Timestamp    time.Time
}
