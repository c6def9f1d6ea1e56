package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/internal/service"
	"github.com/loglive/telemetry-backend-go/pkg/response"
)

// StatsHandler handles HTTP requests for fleet statistics
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetFleetStats handles GET /api/v1/estatisticas
func (h *StatsHandler) GetFleetStats(c *gin.Context) {
	startTimeStr := c.DefaultQuery("startTime", "0")
	endTimeStr := c.DefaultQuery("endTime", "0")

	startTime, err := strconv.ParseInt(startTimeStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid startTime parameter")
		return
	}

	endTime, err := strconv.ParseInt(endTimeStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid endTime parameter")
		return
	}

	result, err := h.statsService.GetFleetStats(startTime, endTime)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}
