package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS 完全开放的跨域策略。调用方是桌面客户端与请求网关，
// 凭据走 Authorization 头而非 Cookie，放开 Origin 没有额外风险。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
