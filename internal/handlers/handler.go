package handlers

import (
	"ptzcam/internal/logger"
	"ptzcam/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Camera control, capture and streaming
	h.registerPTZRoutes(router)
	h.registerStreamRoutes(router)
	h.registerCaptureRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Status push over WebSocket on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerPTZRoutes(r *gin.Engine) {
	ptz := r.Group("/ptz")
	{
		ptz.GET("/goto/:index", h.gotoPreset)
		ptz.GET("/start", h.startCycle)
		ptz.GET("/stop", h.stopCycle)
		ptz.GET("/automatic/:state", h.setAutomaticMode)
		ptz.GET("/presets", h.listPresets)
		ptz.GET("/status", h.ptzStatus)
		ptz.POST("/config", h.updateConfig)
	}
}

func (h *Handler) registerStreamRoutes(r *gin.Engine) {
	stream := r.Group("/stream")
	{
		stream.GET("/snapshot", h.snapshot)
		stream.GET("/cache", h.cacheStatus)
	}
}

func (h *Handler) registerCaptureRoutes(r *gin.Engine) {
	capture := r.Group("/capture")
	{
		capture.GET("/capture_now", h.captureNow)
		capture.GET("/latest.jpg", h.latestJPEG)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		logs := api.Group("/logs")
		{
			logs.GET("/", h.getLogs)
		}
	}
}
