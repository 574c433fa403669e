package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/gradebridge-backend/internal/handlers"
	"github.com/yungbote/gradebridge-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName    string
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	SyncHandler    *handlers.SyncHandler
	GradingHandler *handlers.GradingHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/classroom")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Sync
	protected.POST("/connect", cfg.SyncHandler.Connect)
	protected.POST("/sync", cfg.SyncHandler.Sync)
	protected.GET("/sync/status", cfg.SyncHandler.Status)
	// Grading
	protected.POST("/courses/:courseId/coursework", cfg.GradingHandler.PublishCourseWork)
	protected.POST("/submissions/grade", cfg.GradingHandler.GradeSubmission)

	return router
}
