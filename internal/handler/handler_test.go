package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/config"
	"github.com/viosson-d/topoo-gateway/internal/middleware"
	"github.com/viosson-d/topoo-gateway/internal/model"
	"github.com/viosson-d/topoo-gateway/internal/repository"
	"github.com/viosson-d/topoo-gateway/internal/service"
	"github.com/viosson-d/topoo-gateway/internal/testutils"
	"github.com/viosson-d/topoo-gateway/internal/utils"

	"github.com/gin-gonic/gin"
)

type handlerEnv struct {
	router *gin.Engine
	repos  *repository.Repositories
	tokens *utils.TokenService
}

// setupHandlerEnv 组装完整的 HTTP 栈：真实 service + 内存库，
// 外部身份走 httptest 假 introspection 端点。
func setupHandlerEnv(t *testing.T, introspectionURL string) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.InitConfig("")

	gdb := testutils.SetupDB(t)
	repos := repository.NewRepositories(gdb)
	tokens := utils.NewTokenService("test_secret", time.Hour)

	idp := service.NewTopooIdentityProvider(introspectionURL)
	github := service.NewGitHubProvider(config.GitHubConfig{})
	authService := service.NewAuthService(repos, tokens, idp, github)
	quotaService := service.NewQuotaService(repos)
	h := NewHandler(authService, quotaService)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/verify", h.Verify)
	api.POST("/auth/access-request", h.AccessRequest)

	quota := api.Group("/quota")
	quota.Use(middleware.JWTAuth(tokens))
	quota.GET("/current", h.QuotaCurrent)
	quota.POST("/consume", h.QuotaConsume)
	quota.GET("/history", h.QuotaHistory)

	return &handlerEnv{router: r, repos: repos, tokens: tokens}
}

func (e *handlerEnv) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v (body=%s)", err, w.Body.String())
	}
	return body
}

func (e *handlerEnv) seedInvite(t *testing.T, code string) {
	t.Helper()
	if err := e.repos.Invite.Create(&model.InviteCode{Code: code}); err != nil {
		t.Fatalf("创建邀请码失败: %v", err)
	}
}
