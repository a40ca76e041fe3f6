package server

import (
	"net/http"
	"time"

	httpHandler "social-dashboard/interfaces/http"
	"social-dashboard/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var allowedOrigins = []string{
	"http://localhost:4200",
	"http://localhost:4201",
	"https://localhost:4200",
	"https://localhost:4201",
}

// Handlers groups everything the router mounts. Nil handlers leave their routes unregistered.
type Handlers struct {
	Alert        httpHandler.IAlertHandler
	RateLimit    httpHandler.IRateLimitHandler
	Report       httpHandler.IReportHandler
	Notification httpHandler.INotificationHandler
	Post         httpHandler.IPostHandler
	Monitoring   httpHandler.IMonitoringHandler
	AlertStream  gin.HandlerFunc
	Metrics      gin.HandlerFunc
	Instrument   gin.HandlerFunc
}

func InitiateRouter(h Handlers, secretKey string, origins ...string) *gin.Engine {
	if len(origins) == 0 {
		origins = allowedOrigins
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if h.Instrument != nil {
		router.Use(h.Instrument)
	}
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		router.GET("/metrics", h.Metrics)
	}

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	if h.Alert != nil {
		api.GET("/alerts/config", h.Alert.GetConfig)
		api.PUT("/alerts/config", h.Alert.UpdateConfig)
		api.GET("/alerts", h.Alert.List)
		api.POST("/alerts/:id/resolve", h.Alert.Resolve)
	}
	if h.AlertStream != nil {
		api.GET("/alerts/stream", h.AlertStream)
	}
	if h.RateLimit != nil {
		api.GET("/rate-limits/:category", h.RateLimit.Status)
		api.DELETE("/rate-limits/:category", h.RateLimit.Clear)
	}
	if h.Report != nil {
		reports := api.Group("/reports/schedules")
		{
			reports.GET("", h.Report.List)
			reports.POST("", h.Report.Create)
			reports.PUT("/:id", h.Report.Update)
			reports.DELETE("/:id", h.Report.Delete)
		}
	}
	if h.Notification != nil {
		api.GET("/notifications/preferences", h.Notification.GetPreference)
		api.PUT("/notifications/preferences", h.Notification.UpdatePreference)
	}
	if h.Post != nil {
		api.POST("/posts/publish", h.Post.Publish)
	}
	if h.Monitoring != nil {
		api.POST("/monitoring/sample", h.Monitoring.Sample)
		api.POST("/monitoring/events", h.Monitoring.RecordEvent)
	}

	return router
}
