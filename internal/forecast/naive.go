package forecast

import (
	"math"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// SeasonalNaive predicts each horizon step as the value one season earlier,
// with confidence bounds from the spread of seasonal residuals. For hourly
// load a season of 24 captures the daily cycle.
type SeasonalNaive struct {
	// Season is the cycle length in samples.
	Season int
}

func (s SeasonalNaive) Name() string { return "seasonal-naive" }

func (s SeasonalNaive) Forecast(history []model.LoadPoint, horizon int) (Prediction, error) {
	season := s.Season
	if season <= 0 {
		season = 24
	}
	if horizon < 1 || len(history) < season {
		return Prediction{}, ErrInsufficientHistory
	}

	// Residual spread between consecutive seasons; falls back to a flat
	// margin when only one season of history exists.
	sigma := s.seasonalResidualSigma(history, season)

	p := Prediction{
		Values: make([]float64, horizon),
		Lower:  make([]float64, horizon),
		Upper:  make([]float64, horizon),
	}
	n := len(history)
	for h := 0; h < horizon; h++ {
		// Index of the same season phase in the last observed cycle.
		idx := n - season + (h % season)
		v := history[idx].ActivePowerKW
		margin := 1.96 * sigma * math.Sqrt(float64(h/season+1))
		p.Values[h] = v
		p.Lower[h] = v - margin
		p.Upper[h] = v + margin
	}
	return p, nil
}

func (s SeasonalNaive) seasonalResidualSigma(history []model.LoadPoint, season int) float64 {
	n := len(history)
	if n < 2*season {
		// Single cycle: use 5% of the mean level as the spread.
		var sum float64
		for _, pt := range history {
			sum += pt.ActivePowerKW
		}
		return 0.05 * sum / float64(n)
	}

	var sq float64
	var cnt int
	for i := season; i < n; i++ {
		d := history[i].ActivePowerKW - history[i-season].ActivePowerKW
		sq += d * d
		cnt++
	}
	return math.Sqrt(sq / float64(cnt))
}
