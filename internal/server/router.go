package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/reai/reai-backend/internal/handlers"
	"github.com/reai/reai-backend/internal/middleware"
	"github.com/reai/reai-backend/internal/observability"
)

type RouterConfig struct {
	ReviewHandler     *handlers.ReviewHandler
	AnalysisHandler   *handlers.AnalysisHandler
	CompanyHandler    *handlers.CompanyHandler
	DepartmentHandler *handlers.DepartmentHandler
	SystemHandler     *handlers.SystemHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(observability.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Reviews
		api.POST("/reviews", cfg.ReviewHandler.Submit)
		api.GET("/reviews", cfg.ReviewHandler.List)
		api.GET("/reviews/search", cfg.ReviewHandler.Search)
		api.GET("/reviews/stats", cfg.ReviewHandler.SentimentStats)
		api.GET("/reviews/:id", cfg.ReviewHandler.Get)
		api.DELETE("/reviews/:id", cfg.ReviewHandler.Delete)
		api.POST("/reviews/:id/process", cfg.ReviewHandler.Process)
		api.POST("/reviews/analyze", cfg.AnalysisHandler.Analyze)
		api.POST("/reviews/reconcile", cfg.ReviewHandler.Reconcile)

		// Companies
		api.POST("/companies", cfg.CompanyHandler.Create)
		api.GET("/companies", cfg.CompanyHandler.List)
		api.GET("/companies/:id", cfg.CompanyHandler.Get)

		// Departments
		api.POST("/departments", cfg.DepartmentHandler.Create)
		api.GET("/departments", cfg.DepartmentHandler.List)
		api.GET("/departments/:id", cfg.DepartmentHandler.Get)

		// System
		api.GET("/system/status", cfg.SystemHandler.Status)
	}

	return router
}
