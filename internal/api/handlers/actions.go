package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api/models"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/physics"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/scada"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/sim"
)

// ActionsHandler applies operator actions to the running simulation.
type ActionsHandler struct {
	loop *sim.Loop
}

func NewActionsHandler(loop *sim.Loop) *ActionsHandler {
	return &ActionsHandler{loop: loop}
}

var faultTypes = map[string]physics.FaultType{
	string(physics.FaultLG):  physics.FaultLG,
	string(physics.FaultLL):  physics.FaultLL,
	string(physics.FaultLLG): physics.FaultLLG,
	string(physics.FaultLLL): physics.FaultLLL,
}

// InjectFault handles POST /api/v1/actions/fault
func (h *ActionsHandler) InjectFault(c *gin.Context) {
	var req models.FaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	ft, ok := faultTypes[req.Type]
	if !ok {
		badRequest(c, "INVALID_FAULT_TYPE", "type must be one of L-G, L-L, L-L-G, L-L-L")
		return
	}
	if err := h.loop.InjectFault(req.Bus, ft, req.ImpedancePU); err != nil {
		badRequest(c, "UNKNOWN_BUS", err.Error())
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Status: "ok"})
}

// ClearFault handles POST /api/v1/actions/fault/clear
func (h *ActionsHandler) ClearFault(c *gin.Context) {
	h.loop.ClearFault()
	c.JSON(http.StatusOK, models.ActionResponse{Status: "ok"})
}

// ResetRecloser handles POST /api/v1/actions/reset-recloser
func (h *ActionsHandler) ResetRecloser(c *gin.Context) {
	if !h.loop.ResetRecloser() {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "RESET_IGNORED",
				Message: "recloser is not locked out",
			},
		})
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Status: "ok", Message: "recloser reset to CLOSED"})
}

// Override handles POST /api/v1/actions/override
func (h *ActionsHandler) Override(c *gin.Context) {
	var req models.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Clear {
		h.loop.ClearOverride()
		c.JSON(http.StatusOK, models.ActionResponse{Status: "ok", Message: "override cleared"})
		return
	}
	switch model.DispatchSource(req.Source) {
	case model.SourceGrid, model.SourceSolar, model.SourceBlend:
		h.loop.ForceSource(model.DispatchSource(req.Source))
	default:
		badRequest(c, "INVALID_SOURCE", "source must be GRID, SOLAR or BLEND")
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Status: "ok"})
}

// SetFDI handles POST /api/v1/actions/fdi
func (h *ActionsHandler) SetFDI(c *gin.Context) {
	var req models.FDIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Enabled && req.BiasPU == 0 {
		badRequest(c, "INVALID_REQUEST", "bias_pu must be non-zero when enabling")
		return
	}
	h.loop.SetFDI(scada.FDIParams{
		Enabled:   req.Enabled,
		BiasPU:    req.BiasPU,
		TargetBus: req.TargetBus,
	})
	c.JSON(http.StatusOK, models.ActionResponse{Status: "ok"})
}

// Reset handles POST /api/v1/actions/reset
func (h *ActionsHandler) Reset(c *gin.Context) {
	if err := h.loop.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "RESET_FAILED",
				Message: err.Error(),
			},
		})
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Status: "ok", Message: "simulation reset to tick 0"})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: msg},
	})
}
