package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api/models"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/sim"
)

// TwinHandler serves read-only views of the running simulation.
type TwinHandler struct {
	loop *sim.Loop
}

func NewTwinHandler(loop *sim.Loop) *TwinHandler {
	return &TwinHandler{loop: loop}
}

// GetSnapshot handles GET /api/v1/snapshot
func (h *TwinHandler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, models.FromSnapshot(h.loop.Latest(), h.loop.Topology()))
}

// GetTopology handles GET /api/v1/topology
func (h *TwinHandler) GetTopology(c *gin.Context) {
	top := h.loop.Topology()
	c.JSON(http.StatusOK, models.TopologyResponse{
		SourceBus: top.SourceBus,
		Buses:     top.Buses,
		Lines:     top.Lines,
	})
}

// GetLedger handles GET /api/v1/ledger?n=100
func (h *TwinHandler) GetLedger(c *gin.Context) {
	n := 100
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "n must be a positive integer",
				},
			})
			return
		}
		n = parsed
	}
	rows := h.loop.Ledger().Last(n)
	c.JSON(http.StatusOK, models.LedgerResponse{Count: len(rows), Rows: rows})
}

// GetForecast handles GET /api/v1/forecast
func (h *TwinHandler) GetForecast(c *gin.Context) {
	snap := h.loop.Latest()
	if snap.Forecast == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "FORECAST_UNAVAILABLE",
				Message: "no forecast has completed yet",
			},
		})
		return
	}
	c.JSON(http.StatusOK, models.ForecastResponse{
		Backend:     snap.Forecast.Backend,
		GeneratedAt: snap.Forecast.GeneratedAt,
		Values:      snap.Forecast.Prediction.Values,
		Lower:       snap.Forecast.Prediction.Lower,
		Upper:       snap.Forecast.Prediction.Upper,
	})
}
