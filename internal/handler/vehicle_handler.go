package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/pkg/response"
)

// VehicleHandler handles HTTP requests for vehicles
type VehicleHandler struct {
	vehicles *repository.VehicleRepository
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles *repository.VehicleRepository) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// GetVehicles handles GET /api/v1/veiculos
func (h *VehicleHandler) GetVehicles(c *gin.Context) {
	vehicles, err := h.vehicles.List()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get vehicles")
		return
	}
	response.Success(c, vehicles)
}
