package handler

import (
	"fmt"
	"html"
	"net/http"

	"github.com/viosson-d/topoo-gateway/internal/common"
	"github.com/viosson-d/topoo-gateway/internal/common/httpx"

	"github.com/gin-gonic/gin"
)

// GithubRedirect 跳转到 GitHub 授权页
func (h *Handler) GithubRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, h.authService.GithubAuthorizeURL())
}

// GithubCallback 处理授权回调，返回一个把令牌桥接给
// 桌面客户端的 HTML 页面（深链唤起 + 手动复制兜底）。
func (h *Handler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少授权码"})
		return
	}

	result, err := h.authService.HandleGithubCallback(c.Request.Context(), code, state)
	if err != nil {
		if serviceErr, ok := common.AsServiceError(err); ok && serviceErr.Code == common.ErrorCodeValidation {
			httpx.WriteServiceError(c, err, "登录失败")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "GitHub 登录失败，请稍后重试"})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, callbackPage(result.Token))
}

func callbackPage(token string) string {
	safe := html.EscapeString(token)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>登录成功</title>
<style>
body { font-family: sans-serif; text-align: center; padding-top: 4em; }
code { display: inline-block; max-width: 80%%; word-break: break-all; background: #f4f4f4; padding: 1em; border-radius: 6px; }
</style>
</head>
<body>
<h2>✅ 登录成功</h2>
<p>正在返回应用……如果没有自动跳转，请复制下方令牌：</p>
<code id="token">%s</code>
<script>
window.location.href = "topoo://auth/callback?token=" + encodeURIComponent(document.getElementById("token").textContent);
</script>
</body>
</html>`, safe)
}
