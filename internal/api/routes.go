package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(handler.metrics.Handler()))

	api := router.Group("/api")
	{
		api.POST("/portfolios/:id/properties", handler.CreateProperty)
		api.GET("/portfolios/:id/properties", handler.ListProperties)
		api.GET("/portfolios/:id/relationships", handler.ListRelationships)
		api.GET("/portfolios/:id/optimization", handler.GetOptimizationState)

		api.GET("/properties/:id", handler.GetProperty)
		api.GET("/properties/:id/units", handler.ListUnits)
		api.GET("/properties/:id/market-area", handler.GetMarketArea)
		api.POST("/properties/:id/units/import", handler.ImportUnits)

		api.POST("/relationships", handler.CreateRelationship)
		api.POST("/relationships/click", handler.ClickRelationship)
		api.GET("/relationships/lookup", handler.LookupRelationship)
		api.POST("/relationships/:id/toggle", handler.ToggleRelationship)

		api.POST("/analysis", handler.RunAnalysis)

		api.GET("/optimization-presets", handler.ListOptimizationPresets)
		api.GET("/optimization-presets/:goal", handler.GetOptimizationPreset)
		api.POST("/optimization/transition", handler.TransitionOptimization)
	}
}
