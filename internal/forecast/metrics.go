package forecast

import "math"

// Metrics is the rolling forecast-accuracy scorer. It compares realized load
// against the predictions that were made for it over a bounded window, so
// backends can be judged (and swapped) on live RMSE/MAE.
type Metrics struct {
	window int
	errs   []float64 // prediction - realized, newest last
}

// NewMetrics scores over the last window comparisons.
func NewMetrics(window int) *Metrics {
	if window < 1 {
		window = 1
	}
	return &Metrics{window: window}
}

// Observe records one realized value against its earlier prediction.
func (m *Metrics) Observe(predicted, realized float64) {
	m.errs = append(m.errs, predicted-realized)
	if len(m.errs) > m.window {
		m.errs = m.errs[1:]
	}
}

// Count returns the number of comparisons currently in the window.
func (m *Metrics) Count() int { return len(m.errs) }

// RMSE is the root-mean-square error over the window, 0 when empty.
func (m *Metrics) RMSE() float64 {
	if len(m.errs) == 0 {
		return 0
	}
	var sq float64
	for _, e := range m.errs {
		sq += e * e
	}
	return math.Sqrt(sq / float64(len(m.errs)))
}

// MAE is the mean absolute error over the window, 0 when empty.
func (m *Metrics) MAE() float64 {
	if len(m.errs) == 0 {
		return 0
	}
	var sum float64
	for _, e := range m.errs {
		sum += math.Abs(e)
	}
	return sum / float64(len(m.errs))
}
