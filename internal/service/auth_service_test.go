package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/common"
	"github.com/viosson-d/topoo-gateway/internal/consts"
	"github.com/viosson-d/topoo-gateway/internal/model"
)

// 测试内容：验证携带有效邀请码的新用户注册会建号、发令牌、
// 生成默认许可证与空用量行（场景 A）。
func TestRegisterWithPassword_NewUserWithInvite(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "TOPOO-2024-TEST-01")

	result, err := env.auth.RegisterWithPassword("a@x.com", "secret1", "TOPOO-2024-TEST-01")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if result.Token == "" {
		t.Fatal("期望签发令牌，实际为空")
	}
	if result.User.Nickname != "a" {
		t.Fatalf("期望昵称 a，实际为 %s", result.User.Nickname)
	}

	// 邀请码已消费
	invite, err := env.repos.Invite.FindByCode("TOPOO-2024-TEST-01")
	if err != nil {
		t.Fatalf("查询邀请码失败: %v", err)
	}
	if !invite.IsUsed || invite.UsedBy != result.User.ID {
		t.Fatalf("期望邀请码被该用户消费，实际为 used=%v used_by=%d", invite.IsUsed, invite.UsedBy)
	}

	// 默认许可证与用量行
	license, err := env.repos.License.FindActiveByUser(result.User.ID, consts.DefaultProductCode)
	if err != nil {
		t.Fatalf("查询许可证失败: %v", err)
	}
	if license.PlanTier != model.PlanTierFree {
		t.Fatalf("期望 free 档位，实际为 %s", license.PlanTier)
	}
	product, ok := consts.LookupProduct(license.ProductCode)
	if !ok {
		t.Fatalf("期望许可证产品码在目录中，实际为 %s", license.ProductCode)
	}
	if license.PlanTier != product.DefaultPlan {
		t.Fatalf("期望档位取目录默认档 %s，实际为 %s", product.DefaultPlan, license.PlanTier)
	}

	usage, err := env.repos.Usage.FindByUserID(result.User.ID)
	if err != nil {
		t.Fatalf("查询用量失败: %v", err)
	}
	if usage.TokenQuotaLimit != consts.DefaultTokenQuota {
		t.Fatalf("期望默认配额 %d，实际为 %d", consts.DefaultTokenQuota, usage.TokenQuotaLimit)
	}
	if usage.TokensConsumed != 0 {
		t.Fatalf("期望初始消费为 0，实际为 %d", usage.TokensConsumed)
	}
}

// 测试内容：验证无邀请码的新用户注册被拒绝（INVITE_REQUIRED）。
func TestRegisterWithPassword_InviteRequired(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.auth.RegisterWithPassword("a@x.com", "secret1", "")
	if err == nil {
		t.Fatal("期望注册被拒绝，实际成功")
	}
	mustBizCode(t, err, common.BizCodeInviteRequired)
}

// 测试内容：验证已用/不存在的邀请码被拒绝，且不会留下半建的用户。
func TestRegisterWithPassword_InvalidInviteRollsBack(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.auth.RegisterWithPassword("a@x.com", "secret1", "NO-SUCH-CODE")
	if err == nil {
		t.Fatal("期望注册被拒绝，实际成功")
	}
	mustBizCode(t, err, common.BizCodeInvalidInviteCode)

	// 事务回滚：用户不应存在
	if _, err := env.repos.User.FindByEmail("a@x.com"); err == nil {
		t.Fatal("期望用户创建被回滚，实际存在")
	}
}

// 测试内容：验证已有账号重复注册时返回原账号且不消费新邀请码（场景 B）。
func TestRegisterWithPassword_ExistingUserSkipsInvite(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "CODE-1")
	env.seedInvite(t, "CODE-2")

	first := env.registerUser(t, "a@x.com", "secret1", "CODE-1")

	result, err := env.auth.RegisterWithPassword("a@x.com", "secret1", "CODE-2")
	if err != nil {
		t.Fatalf("重复注册应退化为登录，实际失败: %v", err)
	}
	if result.User.ID != first.ID {
		t.Fatalf("期望返回原账号 %d，实际为 %d", first.ID, result.User.ID)
	}

	invite, err := env.repos.Invite.FindByCode("CODE-2")
	if err != nil {
		t.Fatalf("查询邀请码失败: %v", err)
	}
	if invite.IsUsed {
		t.Fatal("期望已有账号注册不消费邀请码，实际被消费")
	}
}

// 测试内容：验证已有账号重复注册但密码不符时返回 401。
func TestRegisterWithPassword_ExistingUserWrongPassword(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "CODE-1")
	env.registerUser(t, "a@x.com", "secret1", "CODE-1")

	_, err := env.auth.RegisterWithPassword("a@x.com", "wrong-pass", "")
	serviceErr, ok := common.AsServiceError(err)
	if !ok || serviceErr.Code != common.ErrorCodeUnauthorized {
		t.Fatalf("期望 401，实际为 %v", err)
	}
}

// 测试内容：验证 N 个并发注册争抢同一邀请码时恰好一个成功。
func TestRegisterWithPassword_ConcurrentInviteRace(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "RACE-CODE")

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("u%d@x.com", i)
			_, results[i] = env.auth.RegisterWithPassword(email, "secret1", "RACE-CODE")
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range results {
		if err == nil {
			success++
			continue
		}
		mustBizCode(t, err, common.BizCodeInvalidInviteCode)
	}
	if success != 1 {
		t.Fatalf("期望恰好 1 个注册成功，实际为 %d", success)
	}
}

// 测试内容：验证登录对不存在用户与错误密码返回同一句 401（场景 C）。
func TestLoginWithPassword_GenericUnauthorized(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "CODE-1")
	env.registerUser(t, "a@x.com", "secret1", "CODE-1")

	_, errNoUser := env.auth.LoginWithPassword("ghost@x.com", "secret1")
	_, errBadPass := env.auth.LoginWithPassword("a@x.com", "wrong")

	for _, err := range []error{errNoUser, errBadPass} {
		serviceErr, ok := common.AsServiceError(err)
		if !ok || serviceErr.Code != common.ErrorCodeUnauthorized {
			t.Fatalf("期望 401，实际为 %v", err)
		}
	}
	if errNoUser.Error() != errBadPass.Error() {
		t.Fatalf("期望两种失败返回同一句错误，实际为 %q / %q", errNoUser.Error(), errBadPass.Error())
	}
}

// 测试内容：验证登录成功后的令牌能被 VerifyToken 还原为同一用户。
func TestVerifyToken_RoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "CODE-1")
	user := env.registerUser(t, "a@x.com", "secret1", "CODE-1")

	result, err := env.auth.LoginWithPassword("a@x.com", "secret1")
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	verified, err := env.auth.VerifyToken(result.Token)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if verified.ID != user.ID {
		t.Fatalf("期望用户 %d，实际为 %d", user.ID, verified.ID)
	}

	if _, err := env.auth.VerifyToken("not-a-token"); err == nil {
		t.Fatal("期望非法令牌被拒绝，实际通过")
	}
}

// 测试内容：验证外部 ID Token 注册新用户同样受邀请码约束。
func TestRegisterWithIDToken_NewUserNeedsInvite(t *testing.T) {
	env := setupTestEnv(t)
	env.idp.identity = &ExternalIdentity{Email: "ext@x.com", SubjectID: "sub-1", Name: "Ext User"}

	_, err := env.auth.RegisterWithIDToken(env.context, "some-id-token", "")
	if err == nil {
		t.Fatal("期望无邀请码被拒绝，实际成功")
	}
	mustBizCode(t, err, common.BizCodeInviteRequired)

	env.seedInvite(t, "CODE-1")
	result, err := env.auth.RegisterWithIDToken(env.context, "some-id-token", "CODE-1")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if result.User.Email != "ext@x.com" || result.User.ExternalID != "sub-1" {
		t.Fatalf("期望外部身份落库，实际为 %+v", result.User)
	}
	if result.User.Nickname != "Ext User" {
		t.Fatalf("期望昵称取外部姓名，实际为 %s", result.User.Nickname)
	}
}

// 测试内容：验证同邮箱账号通过外部身份登录时静默合并且不再要求邀请码。
func TestRegisterWithIDToken_MergesExistingAccount(t *testing.T) {
	env := setupTestEnv(t)
	env.seedInvite(t, "CODE-1")
	user := env.registerUser(t, "a@x.com", "secret1", "CODE-1")

	env.idp.identity = &ExternalIdentity{Email: "a@x.com", SubjectID: "sub-9", AvatarURL: "https://img/a.png"}
	result, err := env.auth.RegisterWithIDToken(env.context, "some-id-token", "")
	if err != nil {
		t.Fatalf("期望已有账号免邀请码，实际失败: %v", err)
	}
	if result.User.ID != user.ID {
		t.Fatalf("期望合并到原账号 %d，实际为 %d", user.ID, result.User.ID)
	}

	merged, err := env.repos.User.FindByID(user.ID)
	if err != nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if merged.ExternalID != "sub-9" {
		t.Fatalf("期望补写外部 subject id，实际为 %q", merged.ExternalID)
	}
	if !merged.HasPassword() {
		t.Fatal("期望合并不丢失密码凭据，实际丢失")
	}
}

// 测试内容：验证 GitHub 回调对新邮箱免邀请码自动建号。
func TestHandleGithubCallback_AutoCreatesWithoutInvite(t *testing.T) {
	env := setupTestEnv(t)
	env.oauth.identity = &ExternalIdentity{Email: "gh@x.com", SubjectID: "777", Name: "octo"}

	result, err := env.auth.HandleGithubCallback(env.context, "auth-code", env.issueState(t))
	if err != nil {
		t.Fatalf("回调处理失败: %v", err)
	}
	if result.User.GithubID != "777" {
		t.Fatalf("期望绑定 GitHub id，实际为 %q", result.User.GithubID)
	}

	// 自动建号同样带默认许可证与用量行
	if _, err := env.repos.License.FindActiveByUser(result.User.ID, consts.DefaultProductCode); err != nil {
		t.Fatalf("期望自动建号附带许可证，实际查询失败: %v", err)
	}
	if _, err := env.repos.Usage.FindByUserID(result.User.ID); err != nil {
		t.Fatalf("期望自动建号附带用量行，实际查询失败: %v", err)
	}
}

// 测试内容：验证 state 一次性消费，重放被拒绝。
func TestGithubAuthorizeURL_StateSingleUse(t *testing.T) {
	env := setupTestEnv(t)
	env.oauth.identity = &ExternalIdentity{Email: "gh@x.com", SubjectID: "777"}

	state := env.issueState(t)

	if _, err := env.auth.HandleGithubCallback(env.context, "code", state); err != nil {
		t.Fatalf("首次回调应成功，实际失败: %v", err)
	}
	if _, err := env.auth.HandleGithubCallback(env.context, "code", state); err == nil {
		t.Fatal("期望重放 state 被拒绝，实际通过")
	}
}

// 测试内容：验证缺失或伪造 state 的回调一律被拒绝。
func TestHandleGithubCallback_RequiresState(t *testing.T) {
	env := setupTestEnv(t)
	env.oauth.identity = &ExternalIdentity{Email: "gh@x.com", SubjectID: "777"}

	for _, state := range []string{"", "forged-state"} {
		_, err := env.auth.HandleGithubCallback(env.context, "code", state)
		serviceErr, ok := common.AsServiceError(err)
		if !ok || serviceErr.Code != common.ErrorCodeValidation {
			t.Fatalf("期望 state 校验失败，实际为 %v (state=%q)", err, state)
		}
	}
}

// 测试内容：验证从未被消费的过期 state 会在下次签发时被清理。
func TestOAuthStateStore_SweepsExpired(t *testing.T) {
	store := newOAuthStateStore(time.Millisecond)

	stale := store.Issue()
	time.Sleep(5 * time.Millisecond)
	store.Issue()

	if _, ok := store.states.Load(stale); ok {
		t.Fatal("期望过期 state 被清理，实际仍在")
	}
	if store.Consume(stale) {
		t.Fatal("期望过期 state 不可消费，实际通过")
	}
}

// 测试内容：验证接入申请保存成功且非法邮箱被拒绝。
func TestSubmitAccessRequest(t *testing.T) {
	env := setupTestEnv(t)

	if err := env.auth.SubmitAccessRequest("want@x.com", "想试用"); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if err := env.auth.SubmitAccessRequest("not-an-email", "x"); err == nil {
		t.Fatal("期望非法邮箱被拒绝，实际通过")
	}

	var count int64
	env.db.Model(&model.AccessRequest{}).Count(&count)
	if count != 1 {
		t.Fatalf("期望 1 条申请记录，实际为 %d", count)
	}
}
