package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/rtr-ops/backend/internal/config"
	"github.com/rtr-ops/backend/internal/http/handlers"
	"github.com/rtr-ops/backend/internal/http/middleware"
	"github.com/rtr-ops/backend/internal/service"

	_ "github.com/rtr-ops/backend/docs"
)

// Router wires the API. store may be nil when the importer runs on an
// in-memory repository.
func Router(cfg config.Config, store handlers.Pinger, importer *service.Importer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id", handlers.ActorHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Repo:      importer.Repo,
		Importer:  importer,
		Validator: validator.New(validator.WithRequiredStructEnabled()),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
		Location:  importer.Lifecycle.Location,
		Timeout:   cfg.RequestTimeout,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/runs/latest", h.RunsLatest)
		api.GET("/permits/:number", h.GetPermit)
		api.POST("/sheets/resolve", h.ResolveSheet)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/imports", h.Import)
		admin.POST("/imports/rows", h.ImportRows)
		admin.POST("/permits", h.UpsertPermit)
		admin.POST("/permits/refresh", h.RefreshPermits)
		admin.POST("/tickets/:id/reevaluate", h.ReevaluateTicket)
		admin.DELETE("/tickets/:id", h.DeleteTicket)
		admin.DELETE("/permits/:id", h.DeletePermit)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
