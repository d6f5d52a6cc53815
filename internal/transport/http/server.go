package http

import (
	"github.com/gin-gonic/gin"

	"careercompass/internal/bootstrap"
	"careercompass/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	careerHandler := handler.NewCareerHandler(app.Career, app.RecommendationRepo, app.Config.LLM.APIKey)

	v1 := router.Group("/api/v1")
	v1.POST("/recommend", careerHandler.Recommend)
	v1.POST("/recommend/structured", careerHandler.RecommendStructured)
	v1.POST("/similar", careerHandler.Similar)
	v1.POST("/index/rebuild", careerHandler.RebuildIndex)
	v1.GET("/index/status", careerHandler.IndexStatus)
	v1.GET("/recommendations", careerHandler.ListRecommendations)

	return router
}
