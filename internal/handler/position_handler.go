package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/pkg/response"
)

// PositionHandler handles HTTP requests for raw positions
type PositionHandler struct {
	positions *repository.PositionRepository
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positions *repository.PositionRepository) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// GetPositions handles GET /api/v1/posicoes
func (h *PositionHandler) GetPositions(c *gin.Context) {
	var filter models.PositionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	positions, total, err := h.positions.List(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get positions")
		return
	}

	response.Success(c, gin.H{
		"data":  positions,
		"total": total,
	})
}
