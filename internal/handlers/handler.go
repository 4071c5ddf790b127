package handlers

import (
	"net/http"

	"multizone_thermostat/internal/logger"
	"multizone_thermostat/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  http.Handler
}

// NewHandler constructs a new HTTP handler with dependencies. metrics may be nil,
// in which case /metrics is not served.
func NewHandler(services *service.Service, log *logger.Logger, metrics http.Handler) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, log: log.Named("http"), metrics: metrics}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// live status stream
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

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdentity)
	{
		api.GET("/status", h.getStatus)
		h.registerThermostatRoutes(api)
		h.registerScheduleRoutes(api)
		h.registerSensorRoutes(api)
		h.registerLogRoutes(api)
		h.registerHistoryRoutes(api)
	}
}

func (h *Handler) registerThermostatRoutes(api *gin.RouterGroup) {
	t := api.Group("/thermostat")
	{
		// Body example: {"kind":"heat","value":70}
		t.POST("/temperature", h.setTemperature)
		t.POST("/mode", h.setMode)
		t.POST("/fan", h.setFan)
	}
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	s := api.Group("/schedules")
	{
		s.GET("", h.listSchedules)
		s.POST("", h.createSchedule)
		s.PUT("/:id", h.updateSchedule)
		s.DELETE("/:id", h.deleteSchedule)
		s.POST("/resume", h.resumeSchedules)
		s.POST("/enable", h.enableSchedules)
	}
}

func (h *Handler) registerSensorRoutes(api *gin.RouterGroup) {
	s := api.Group("/sensors")
	{
		s.GET("", h.listSensors)
		s.PUT("/:id", h.updateSensor)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	hist := api.Group("/history")
	{
		hist.GET("/sensors/:id", h.sensorHistory)
		hist.GET("/hvac", h.hvacHistory)
		hist.GET("/settings", h.settingHistory)
	}
}
