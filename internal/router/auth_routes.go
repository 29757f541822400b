package router

import (
	"time"

	"github.com/viosson-d/topoo-gateway/internal/config"
	"github.com/viosson-d/topoo-gateway/internal/handler"
	"github.com/viosson-d/topoo-gateway/internal/middleware"

	"github.com/gin-gonic/gin"
)

func registerAuthRoutes(api *gin.RouterGroup, authLimiter gin.HandlerFunc, h *handler.Handler) {
	api.POST("/auth/register", authLimiter, h.Register)
	api.POST("/auth/login", authLimiter, h.Login)
	api.POST("/auth/verify", h.Verify)

	api.GET("/auth/github", h.GithubRedirect)
	api.GET("/auth/github/callback", h.GithubCallback)

	// 接入申请间隔：读取配置（秒）
	interval := time.Duration(config.Get().RateLimit.AccessRequestIntervalSeconds) * time.Second
	api.POST("/auth/access-request", middleware.IntervalRateMiddleware(interval), h.AccessRequest)
}
