package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/pkg/response"
)

// TripHandler handles HTTP requests for trips
type TripHandler struct {
	trips *repository.TripRepository
}

// NewTripHandler creates a new trip handler
func NewTripHandler(trips *repository.TripRepository) *TripHandler {
	return &TripHandler{trips: trips}
}

// GetTrips handles GET /api/v1/viagens
func (h *TripHandler) GetTrips(c *gin.Context) {
	var filter models.TripFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	trips, total, err := h.trips.List(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get trips")
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, models.TripsResponse{
		Data:       trips,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	})
}
