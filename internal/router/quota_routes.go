package router

import (
	"github.com/viosson-d/topoo-gateway/internal/handler"
	"github.com/viosson-d/topoo-gateway/internal/middleware"
	"github.com/viosson-d/topoo-gateway/internal/utils"

	"github.com/gin-gonic/gin"
)

func registerQuotaRoutes(api *gin.RouterGroup, h *handler.Handler, tokens *utils.TokenService) {
	quota := api.Group("/quota")
	quota.Use(middleware.JWTAuth(tokens))

	quota.GET("/current", h.QuotaCurrent)
	quota.POST("/consume", h.QuotaConsume)
	quota.GET("/history", h.QuotaHistory)
}
