package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/conceptmesh/conceptmesh-backend/internal/handlers"
)

type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
	GraphHandler  *handlers.GraphHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		// Search pipeline
		api.POST("/search/classify", cfg.SearchHandler.Classify)
		api.POST("/search/plan", cfg.SearchHandler.Plan)
		api.POST("/search/start", cfg.SearchHandler.Start)
		api.GET("/search/status/:task_id", cfg.SearchHandler.Status)
		api.GET("/search/results/:task_id", cfg.SearchHandler.Results)
		api.POST("/search/cancel/:task_id", cfg.SearchHandler.Cancel)

		// Knowledge graph
		api.GET("/graph/concepts", cfg.GraphHandler.ListConcepts)
		api.GET("/graph/:concept", cfg.GraphHandler.GetGraph)
		api.POST("/qa", cfg.GraphHandler.QA)
	}

	return router
}
