package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/mediavault/archive"
	"github.com/cppla/mediavault/chat"
	"github.com/cppla/mediavault/config"
	"github.com/cppla/mediavault/controllers"
	"github.com/cppla/mediavault/middleware"
	"github.com/cppla/mediavault/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(store *archive.Store, fetcher *chat.Fetcher, confirms chat.ConfirmStore, handler *chat.Handler) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController()
	archiveController := controllers.NewArchiveController(store, fetcher, confirms, cfg)
	webhookController := controllers.NewWebhookController(handler)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/token", authController.Token)

	channels := api.Group("/channels/:channel")
	channels.GET("/items", archiveController.ListItems)
	channels.GET("/items/:index", archiveController.GetItem)
	channels.GET("/stats", archiveController.Stats)

	protected := channels.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/items", archiveController.IngestItem)
	protected.DELETE("/items/:index", archiveController.DeleteItem)
	protected.POST("/clear", archiveController.ClearChannel)

	// Gateway bridge: inbound chat events run through the batch handler.
	api.POST("/webhook/event", middleware.AuthRequired(), webhookController.Event)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
