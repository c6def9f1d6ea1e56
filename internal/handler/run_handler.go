package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/internal/ingest"
	"github.com/loglive/telemetry-backend-go/internal/service"
	"github.com/loglive/telemetry-backend-go/pkg/response"
)

// RunHandler exposes the run-trigger surface: start a feed sync or a
// trip-processing run. Both operations are idempotent with respect to
// stored data, so a double-submitted trigger is harmless.
type RunHandler struct {
	sync      *service.SyncService
	processor *service.ProcessorService
}

// NewRunHandler creates a new run handler
func NewRunHandler(sync *service.SyncService, processor *service.ProcessorService) *RunHandler {
	return &RunHandler{sync: sync, processor: processor}
}

// SyncRequest selects the ingestion mode: live drain by default, or a
// backfill window when Hours is set.
type SyncRequest struct {
	Hours     int   `json:"hours"`
	VehicleID int64 `json:"vehicleId"`
}

// RunSync handles POST /api/v1/sync
func (h *RunHandler) RunSync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	var (
		sum ingest.Summary
		err error
	)
	if req.Hours > 0 {
		sum, err = h.sync.RunBackfill(c.Request.Context(), req.Hours, req.VehicleID)
	} else {
		sum, err = h.sync.RunLive(c.Request.Context())
	}
	if err != nil {
		if errors.Is(err, ingest.ErrRunAborted) {
			// Partial progress is preserved; report it alongside the abort.
			c.JSON(http.StatusBadGateway, response.Response{
				Code:    http.StatusBadGateway,
				Message: err.Error(),
				Data:    sum,
			})
			return
		}
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, sum)
}

// ProcessRequest optionally restricts processing to one plate, or
// switches to reprocessing the last Dias days (gap-filling only; stored
// trips are never rewritten).
type ProcessRequest struct {
	Plate string `json:"placa"`
	Dias  int    `json:"dias"`
}

// RunProcess handles POST /api/v1/processar
func (h *RunHandler) RunProcess(c *gin.Context) {
	var req ProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	sum, err := h.processor.Run(c.Request.Context(), req.Plate, req.Dias)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, sum)
}
