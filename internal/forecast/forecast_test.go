package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// dailyHistory builds n hourly points repeating a fixed 24-value pattern.
func dailyHistory(n int) []model.LoadPoint {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.LoadPoint, n)
	for i := range out {
		hour := i % 24
		out[i] = model.LoadPoint{
			Timestamp:     base.Add(time.Duration(i) * time.Hour),
			ActivePowerKW: 4000 + 1000*float64(hour%12),
		}
	}
	return out
}

func TestSeasonalNaive(t *testing.T) {
	f := SeasonalNaive{Season: 24}

	t.Run("repeats the last season exactly on periodic data", func(t *testing.T) {
		hist := dailyHistory(72)
		p, err := f.Forecast(hist, 24)
		require.NoError(t, err)
		require.Len(t, p.Values, 24)

		for h := 0; h < 24; h++ {
			assert.Equal(t, hist[48+h].ActivePowerKW, p.Values[h], "hour %d", h)
			assert.LessOrEqual(t, p.Lower[h], p.Values[h])
			assert.GreaterOrEqual(t, p.Upper[h], p.Values[h])
		}
	})

	t.Run("bounds widen with sigma on noisy data", func(t *testing.T) {
		hist := dailyHistory(72)
		// Perturb the middle day so seasonal residuals are nonzero.
		for i := 24; i < 48; i++ {
			hist[i].ActivePowerKW += 300
		}
		p, err := f.Forecast(hist, 3)
		require.NoError(t, err)
		assert.Greater(t, p.Upper[0]-p.Lower[0], 0.0)
	})

	t.Run("rejects short history", func(t *testing.T) {
		_, err := f.Forecast(dailyHistory(10), 4)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})

	t.Run("rejects zero horizon", func(t *testing.T) {
		_, err := f.Forecast(dailyHistory(48), 0)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})
}

func TestMetrics(t *testing.T) {
	t.Run("perfect predictions score zero", func(t *testing.T) {
		m := NewMetrics(10)
		for i := 0; i < 5; i++ {
			m.Observe(100, 100)
		}
		assert.Zero(t, m.RMSE())
		assert.Zero(t, m.MAE())
	})

	t.Run("constant bias", func(t *testing.T) {
		m := NewMetrics(10)
		for i := 0; i < 5; i++ {
			m.Observe(110, 100)
		}
		assert.InDelta(t, 10.0, m.RMSE(), 1e-9)
		assert.InDelta(t, 10.0, m.MAE(), 1e-9)
	})

	t.Run("rmse weights large errors more", func(t *testing.T) {
		m := NewMetrics(10)
		m.Observe(100, 100)
		m.Observe(120, 100)
		assert.Greater(t, m.RMSE(), m.MAE())
	})

	t.Run("window slides", func(t *testing.T) {
		m := NewMetrics(2)
		m.Observe(150, 100) // falls out of the window
		m.Observe(100, 100)
		m.Observe(100, 100)
		assert.Equal(t, 2, m.Count())
		assert.Zero(t, m.MAE())
	})

	t.Run("empty window scores zero", func(t *testing.T) {
		m := NewMetrics(5)
		assert.Zero(t, m.RMSE())
		assert.Zero(t, m.MAE())
	})
}

func TestRunner(t *testing.T) {
	t.Run("unavailable before first result", func(t *testing.T) {
		r := NewRunner(SeasonalNaive{Season: 24}, 12)
		_, ok := r.Latest()
		assert.False(t, ok)
	})

	t.Run("produces a result asynchronously", func(t *testing.T) {
		r := NewRunner(SeasonalNaive{Season: 24}, 12)
		r.Start()
		defer r.Stop()

		r.Submit(dailyHistory(48))

		require.Eventually(t, func() bool {
			_, ok := r.Latest()
			return ok
		}, time.Second, time.Millisecond)

		res, ok := r.Latest()
		require.True(t, ok)
		assert.Equal(t, "seasonal-naive", res.Backend)
		assert.Len(t, res.Prediction.Values, 12)
	})

	t.Run("failed forecasts leave last result in place", func(t *testing.T) {
		r := NewRunner(SeasonalNaive{Season: 24}, 12)
		r.Start()
		defer r.Stop()

		r.Submit(dailyHistory(48))
		require.Eventually(t, func() bool {
			_, ok := r.Latest()
			return ok
		}, time.Second, time.Millisecond)
		first, _ := r.Latest()

		// Too-short history fails inside the worker; Latest is unchanged.
		r.Submit(dailyHistory(3))
		time.Sleep(20 * time.Millisecond)
		cur, ok := r.Latest()
		require.True(t, ok)
		assert.Equal(t, first.GeneratedAt, cur.GeneratedAt)
	})
}
