// Package api exposes the dashboard HTTP surface over a running simulation
// loop. It is a read-mostly consumer: snapshot reads never block the tick
// loop, and operator actions are applied between ticks.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api/handlers"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api/middleware"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/sim"
)

// NewRouter wires all routes over the given loop.
func NewRouter(loop *sim.Loop) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	router.Use(middleware.ErrorHandler())

	twin := handlers.NewTwinHandler(loop)
	actions := handlers.NewActionsHandler(loop)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "tick": loop.Latest().Tick})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/snapshot", twin.GetSnapshot)
		api.GET("/topology", twin.GetTopology)
		api.GET("/ledger", twin.GetLedger)
		api.GET("/forecast", twin.GetForecast)
		api.GET("/stream", twin.Stream)

		act := api.Group("/actions")
		{
			act.POST("/fault", actions.InjectFault)
			act.POST("/fault/clear", actions.ClearFault)
			act.POST("/reset-recloser", actions.ResetRecloser)
			act.POST("/override", actions.Override)
			act.POST("/fdi", actions.SetFDI)
			act.POST("/reset", actions.Reset)
		}
	}

	return router
}
