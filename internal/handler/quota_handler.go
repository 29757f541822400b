package handler

import (
	"net/http"

	"github.com/viosson-d/topoo-gateway/internal/common/httpx"

	"github.com/gin-gonic/gin"
)

func currentUserID(c *gin.Context) (uint, bool) {
	val, exists := c.Get("id")
	if !exists {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok
}

func (h *Handler) QuotaCurrent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未获取到用户信息"})
		return
	}

	view, err := h.quotaService.GetQuota(userID)
	if err != nil {
		httpx.WriteServiceError(c, err, "查询配额失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": view})
}

func (h *Handler) QuotaConsume(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未获取到用户信息"})
		return
	}

	var req struct {
		Model  string `json:"model"`
		Tokens int64  `json:"tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数格式错误"})
		return
	}

	remaining, err := h.quotaService.Consume(userID, req.Model, req.Tokens)
	if err != nil {
		httpx.WriteServiceError(c, err, "配额扣减失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"quota_remaining": remaining,
	})
}

func (h *Handler) QuotaHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未获取到用户信息"})
		return
	}

	logs, err := h.quotaService.History(userID)
	if err != nil {
		httpx.WriteServiceError(c, err, "查询用量日志失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
