package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/common"
	"github.com/viosson-d/topoo-gateway/internal/consts"
	"github.com/viosson-d/topoo-gateway/internal/model"
	"github.com/viosson-d/topoo-gateway/internal/repository"
	"github.com/viosson-d/topoo-gateway/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// oauthStateStore 存储 OAuth state 参数，防止回调伪造。
// Key: state (string), Value: 过期时间 (time.Time)
type oauthStateStore struct {
	ttl    time.Duration
	states sync.Map
}

func newOAuthStateStore(ttl time.Duration) *oauthStateStore {
	return &oauthStateStore{ttl: ttl}
}

func (s *oauthStateStore) Issue() string {
	s.sweep()
	state := uuid.NewString()
	s.states.Store(state, time.Now().Add(s.ttl))
	return state
}

// Consume 一次性消费 state；不存在或已过期返回 false。
func (s *oauthStateStore) Consume(state string) bool {
	val, ok := s.states.LoadAndDelete(state)
	if !ok {
		return false
	}
	expiresAt, ok := val.(time.Time)
	return ok && time.Now().Before(expiresAt)
}

// sweep 清理从未被消费的过期 state，避免反复发起授权撑大内存。
func (s *oauthStateStore) sweep() {
	now := time.Now()
	s.states.Range(func(key, val interface{}) bool {
		if expiresAt, ok := val.(time.Time); !ok || now.After(expiresAt) {
			s.states.Delete(key)
		}
		return true
	})
}

// AuthResult 认证成功后的会话令牌与用户信息
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterWithPassword 邮箱密码注册。
// 用户已存在时退化为密码校验（不检查邀请码）；新用户必须携带
// 有效邀请码，码的消费与建号在同一事务内完成。
func (s *AuthService) RegisterWithPassword(email, password, inviteCode string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, common.NewValidationError("邮箱格式不正确")
	}
	if len(password) < 6 {
		return nil, common.NewValidationError("密码长度不能少于 6 位")
	}

	existing, err := s.repos.User.FindByEmail(email)
	if err == nil {
		// 已有账号：邀请码跳过，按登录处理
		if !existing.HasPassword() {
			return nil, common.NewUnauthorizedError("该账号未设置密码，请使用外部身份登录")
		}
		if !utils.VerifyPassword(password, existing.PasswordSalt, existing.PasswordHash) {
			return nil, common.NewUnauthorizedError("邮箱或密码错误")
		}
		return s.issueResult(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("❌ 查询用户失败: %v", err)
		return nil, common.NewInternalError("注册失败，请稍后重试")
	}

	salt, err := utils.GenerateSalt()
	if err != nil {
		return nil, common.NewInternalError("注册失败，请稍后重试")
	}
	user := &model.User{
		Email:        email,
		PasswordHash: utils.HashPassword(password, salt),
		PasswordSalt: salt,
		Nickname:     nicknameFromEmail(email),
	}

	if err := s.createWithInvite(user, inviteCode); err != nil {
		return nil, err
	}
	log.Printf("✅ 新用户注册成功: %s (邀请码 %s)", email, inviteCode)
	return s.issueResult(user)
}

// RegisterWithIDToken 外部 ID Token 注册/登录。
// 同邮箱已有账号时静默合并外部身份（仅补写 subject id），
// 未重新验证邮箱归属，合并动作记录告警日志。
func (s *AuthService) RegisterWithIDToken(ctx context.Context, idToken, inviteCode string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, common.NewValidationError("缺少 id_token")
	}

	identity, err := s.identity.ResolveIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(identity.Email)

	existing, err := s.repos.User.FindByEmail(email)
	if err == nil {
		s.mergeExternalIdentity(existing, identity, "")
		return s.issueResult(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("❌ 查询用户失败: %v", err)
		return nil, common.NewInternalError("注册失败，请稍后重试")
	}

	user := &model.User{
		Email:      email,
		ExternalID: identity.SubjectID,
		Nickname:   pickNickname(identity.Name, email),
		AvatarURL:  identity.AvatarURL,
	}
	if err := s.createWithInvite(user, inviteCode); err != nil {
		return nil, err
	}
	log.Printf("✅ 新用户注册成功（外部身份）: %s", email)
	return s.issueResult(user)
}

// LoginWithPassword 邮箱密码登录。用户不存在、未设密码、密码错误
// 统一返回同一句 401，不向探测者泄露账号是否存在。
func (s *AuthService) LoginWithPassword(email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewValidationError("邮箱和密码不能为空")
	}

	user, err := s.repos.User.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewUnauthorizedError("邮箱或密码错误")
		}
		log.Printf("❌ 查询用户失败: %v", err)
		return nil, common.NewInternalError("登录失败，请稍后重试")
	}
	if !user.HasPassword() || !utils.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, common.NewUnauthorizedError("邮箱或密码错误")
	}

	return s.issueResult(user)
}

// VerifyToken 校验会话令牌并返回对应用户。
func (s *AuthService) VerifyToken(tokenString string) (*model.User, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, common.NewUnauthorizedError("会话令牌无效或已过期")
	}

	user, err := s.repos.User.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("用户不存在")
		}
		return nil, common.NewInternalError("查询用户失败")
	}
	return user, nil
}

func (s *AuthService) GetUser(userID uint) (*model.User, error) {
	user, err := s.repos.User.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("用户不存在")
		}
		return nil, common.NewInternalError("查询用户失败")
	}
	return user, nil
}

// GithubAuthorizeURL 生成带一次性 state 的 GitHub 授权跳转地址。
func (s *AuthService) GithubAuthorizeURL() string {
	state := s.states.Issue()
	return s.github.AuthorizeURL(state)
}

// HandleGithubCallback 处理 OAuth 回调。
// 回调路径不要求邀请码：能完成 GitHub 授权的用户直接建号。
// state 必须是本服务签发且未消费过的，缺失同样拒绝。
func (s *AuthService) HandleGithubCallback(ctx context.Context, code, state string) (*AuthResult, error) {
	if code == "" {
		return nil, common.NewValidationError("缺少授权码")
	}
	if !s.states.Consume(state) {
		return nil, common.NewValidationError("state 无效或已过期")
	}

	identity, err := s.github.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(identity.Email)

	existing, err := s.repos.User.FindByEmail(email)
	if err == nil {
		s.mergeExternalIdentity(existing, identity, identity.SubjectID)
		return s.issueResult(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("❌ 查询用户失败: %v", err)
		return nil, common.NewInternalError("登录失败，请稍后重试")
	}

	user := &model.User{
		Email:     email,
		GithubID:  identity.SubjectID,
		Nickname:  pickNickname(identity.Name, email),
		AvatarURL: identity.AvatarURL,
	}
	license, usage := newEntitlementDefaults()
	if err := s.repos.Registration.CreateUser(user, license, usage); err != nil {
		log.Printf("❌ OAuth 建号失败: %v", err)
		return nil, common.NewInternalError("登录失败，请稍后重试")
	}
	log.Printf("✅ 新用户注册成功（GitHub）: %s", email)
	return s.issueResult(user)
}

// SubmitAccessRequest 提交接入申请（无邀请码用户的人工通道）。
func (s *AuthService) SubmitAccessRequest(email, reason string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return common.NewValidationError("邮箱格式不正确")
	}
	if len(reason) > 1024 {
		return common.NewValidationError("申请理由过长")
	}

	req := &model.AccessRequest{Email: email, Reason: reason, Status: "pending"}
	if err := s.repos.AccessRequest.Create(req); err != nil {
		log.Printf("❌ 接入申请保存失败: %v", err)
		return common.NewInternalError("提交失败，请稍后重试")
	}
	log.Printf("📨 收到接入申请: %s", email)
	return nil
}

func (s *AuthService) createWithInvite(user *model.User, inviteCode string) error {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return common.NewBizError(common.ErrorCodeForbidden, common.BizCodeInviteRequired, "注册需要邀请码")
	}

	license, usage := newEntitlementDefaults()
	err := s.repos.Registration.CreateUserWithInvite(user, inviteCode, license, usage)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrInviteNotApplied) {
		return common.NewBizError(common.ErrorCodeForbidden, common.BizCodeInvalidInviteCode, "邀请码无效或已被使用")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return common.NewConflictError("该邮箱已被注册")
	}
	log.Printf("❌ 注册事务失败: %v", err)
	return common.NewInternalError("注册失败，请稍后重试")
}

// mergeExternalIdentity 同邮箱账号的外部身份合并。
// 仅补写缺失的外部 id，不重新验证邮箱归属，记录告警以便审计。
func (s *AuthService) mergeExternalIdentity(user *model.User, identity *ExternalIdentity, githubID string) {
	updates := map[string]interface{}{}
	if githubID != "" && user.GithubID == "" {
		updates["github_id"] = githubID
	}
	if githubID == "" && user.ExternalID == "" && identity.SubjectID != "" {
		updates["external_id"] = identity.SubjectID
	}
	if user.AvatarURL == "" && identity.AvatarURL != "" {
		updates["avatar_url"] = identity.AvatarURL
	}
	if len(updates) == 0 {
		return
	}

	log.Printf("⚠️ 外部身份与已有账号按邮箱合并（未二次验证邮箱归属）: %s", user.Email)
	if err := s.repos.User.UpdateByID(user.ID, updates); err != nil {
		log.Printf("❌ 外部身份合并写入失败: %v", err)
		return
	}
	if v, ok := updates["github_id"].(string); ok {
		user.GithubID = v
	}
	if v, ok := updates["external_id"].(string); ok {
		user.ExternalID = v
	}
	if v, ok := updates["avatar_url"].(string); ok {
		user.AvatarURL = v
	}
}

func (s *AuthService) issueResult(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.Printf("❌ 会话令牌签发失败: %v", err)
		return nil, common.NewInternalError("登录失败，请稍后重试")
	}
	return &AuthResult{Token: token, User: user}, nil
}

// newEntitlementDefaults 新用户的默认许可证与用量行。
// 档位取产品目录的默认档，配额取同一个默认配额常量。
func newEntitlementDefaults() (*model.License, *model.UsageStats) {
	now := time.Now()
	product, _ := consts.LookupProduct(consts.DefaultProductCode)
	license := &model.License{
		ProductCode: product.Code,
		PlanTier:    product.DefaultPlan,
		Status:      model.LicenseStatusActive,
	}
	usage := &model.UsageStats{
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		TokenQuotaLimit:    consts.DefaultTokenQuota,
	}
	return license, usage
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nicknameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

func pickNickname(name, email string) string {
	if name != "" {
		return name
	}
	return nicknameFromEmail(email)
}
