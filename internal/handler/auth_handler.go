package handler

import (
	"net/http"
	"strings"

	"github.com/viosson-d/topoo-gateway/internal/common/httpx"
	"github.com/viosson-d/topoo-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// Register 注册入口，支持两种凭据：
// 提供 id_token 走外部身份路径，否则走邮箱密码路径。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		IDToken    string `json:"id_token"`
		InviteCode string `json:"invite_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数格式错误"})
		return
	}

	var (
		result *service.AuthResult
		err    error
	)
	if req.IDToken != "" {
		result, err = h.authService.RegisterWithIDToken(c.Request.Context(), req.IDToken, req.InviteCode)
	} else {
		if req.Email == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 email 或 password"})
			return
		}
		result, err = h.authService.RegisterWithPassword(req.Email, req.Password, req.InviteCode)
	}
	if err != nil {
		httpx.WriteServiceError(c, err, "注册失败，请稍后重试")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	result, err := h.authService.LoginWithPassword(req.Email, req.Password)
	if err != nil {
		httpx.WriteServiceError(c, err, "登录失败，请稍后重试")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// Verify 校验 Bearer 令牌并返回用户信息。
// 不挂认证中间件：令牌无效与用户不存在要分别映射为 401 和 404。
func (h *Handler) Verify(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token 格式错误"})
		return
	}

	user, err := h.authService.VerifyToken(parts[1])
	if err != nil {
		httpx.WriteServiceError(c, err, "校验失败，请稍后重试")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) AccessRequest(c *gin.Context) {
	var req struct {
		Email  string `json:"email" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	if err := h.authService.SubmitAccessRequest(req.Email, req.Reason); err != nil {
		httpx.WriteServiceError(c, err, "提交失败，请稍后重试")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
