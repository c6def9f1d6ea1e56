package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/internal/config"
	"github.com/loglive/telemetry-backend-go/internal/handler"
	"github.com/loglive/telemetry-backend-go/internal/middleware"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/service"
)

// SetupRouter wires repositories, services and handlers into the HTTP
// surface: open read endpoints for reporting, JWT-protected triggers
// for sync and processing runs.
func SetupRouter(cfg *config.Config, db *sql.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	positions := repository.NewPositionRepository(db)
	vehicles := repository.NewVehicleRepository(db)
	pois := repository.NewPOIRepository(db)
	trips := repository.NewTripRepository(db)

	syncService := service.NewSyncService(cfg, positions, vehicles)
	processorService := service.NewProcessorService(pois, vehicles, positions, trips)
	statsService := service.NewStatsService(trips)

	tripHandler := handler.NewTripHandler(trips)
	vehicleHandler := handler.NewVehicleHandler(vehicles)
	positionHandler := handler.NewPositionHandler(positions)
	statsHandler := handler.NewStatsHandler(statsService)
	runHandler := handler.NewRunHandler(syncService, processorService)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "LOGLIVE telemetry backend is running",
		})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(120, time.Minute))
	{
		api.GET("/viagens", tripHandler.GetTrips)
		api.GET("/veiculos", vehicleHandler.GetVehicles)
		api.GET("/posicoes", positionHandler.GetPositions)
		api.GET("/estatisticas", statsHandler.GetFleetStats)

		// Run triggers mutate stored data; keep them behind auth.
		runs := api.Group("")
		runs.Use(middleware.Auth(cfg.JWTSecret))
		{
			runs.POST("/sync", runHandler.RunSync)
			runs.POST("/processar", runHandler.RunProcess)
		}
	}

	return r
}
