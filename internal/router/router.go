package router

import (
	"net/http"

	"github.com/viosson-d/topoo-gateway/internal/consts"
	"github.com/viosson-d/topoo-gateway/internal/handler"
	"github.com/viosson-d/topoo-gateway/internal/middleware"
	"github.com/viosson-d/topoo-gateway/internal/utils"

	"github.com/gin-gonic/gin"
)

type Router struct {
	handler *handler.Handler
	tokens  *utils.TokenService
}

func NewRouter(h *handler.Handler, tokens *utils.TokenService) *Router {
	return &Router{
		handler: h,
		tokens:  tokens,
	}
}

func (rt *Router) Init(r *gin.Engine) {
	// 跨域完全开放，桌面客户端与请求网关直接调用
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"name":    consts.ApplicationName,
			"version": consts.ApplicationVersion,
		})
	})

	api := r.Group("/api")

	// 认证限流：多个域路由复用同一个实例，保持行为一致
	authLimiter := middleware.RateLimitMiddleware()

	registerAuthRoutes(api, authLimiter, rt.handler)
	registerQuotaRoutes(api, rt.handler, rt.tokens)
}
