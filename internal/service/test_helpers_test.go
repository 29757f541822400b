package service

import (
	"context"
	"testing"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/common"
	"github.com/viosson-d/topoo-gateway/internal/config"
	"github.com/viosson-d/topoo-gateway/internal/model"
	"github.com/viosson-d/topoo-gateway/internal/repository"
	"github.com/viosson-d/topoo-gateway/internal/testutils"
	"github.com/viosson-d/topoo-gateway/internal/utils"

	"gorm.io/gorm"
)

// fakeIdentityProvider 单测用的外部身份桩，避免任何网络调用。
type fakeIdentityProvider struct {
	identity *ExternalIdentity
	err      error
}

func (f *fakeIdentityProvider) ResolveIDToken(_ context.Context, _ string) (*ExternalIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeOAuthProvider struct {
	identity *ExternalIdentity
	err      error
}

func (f *fakeOAuthProvider) AuthorizeURL(state string) string {
	return "https://example.com/oauth/authorize?state=" + state
}

func (f *fakeOAuthProvider) ExchangeCode(_ context.Context, _ string) (*ExternalIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type testEnv struct {
	db      *gorm.DB
	repos   *repository.Repositories
	auth    *AuthService
	quota   *QuotaService
	idp     *fakeIdentityProvider
	oauth   *fakeOAuthProvider
	tokens  *utils.TokenService
	context context.Context
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	config.InitConfig("")

	gdb := testutils.SetupDB(t)
	repos := repository.NewRepositories(gdb)
	tokens := utils.NewTokenService("test_secret", time.Hour)
	idp := &fakeIdentityProvider{}
	oauth := &fakeOAuthProvider{}

	return &testEnv{
		db:      gdb,
		repos:   repos,
		auth:    NewAuthService(repos, tokens, idp, oauth),
		quota:   NewQuotaService(repos),
		idp:     idp,
		oauth:   oauth,
		tokens:  tokens,
		context: context.Background(),
	}
}

func (e *testEnv) seedInvite(t *testing.T, code string) {
	t.Helper()
	if err := e.repos.Invite.Create(&model.InviteCode{Code: code}); err != nil {
		t.Fatalf("创建邀请码失败: %v", err)
	}
}

func (e *testEnv) registerUser(t *testing.T, email, password, invite string) *model.User {
	t.Helper()
	result, err := e.auth.RegisterWithPassword(email, password, invite)
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	return result.User
}

// issueState 发起一次授权跳转并从跳转地址中取出 state。
func (e *testEnv) issueState(t *testing.T) string {
	t.Helper()
	const prefix = "https://example.com/oauth/authorize?state="
	url := e.auth.GithubAuthorizeURL()
	if len(url) <= len(prefix) {
		t.Fatalf("期望跳转地址携带 state，实际为 %s", url)
	}
	return url[len(prefix):]
}

func mustBizCode(t *testing.T, err error, want string) {
	t.Helper()
	serviceErr, ok := common.AsServiceError(err)
	if !ok {
		t.Fatalf("期望 ServiceError，实际为 %v", err)
	}
	if serviceErr.BizCode != want {
		t.Fatalf("期望业务码 %s，实际为 %s", want, serviceErr.BizCode)
	}
}
