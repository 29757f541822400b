package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/common"
	"github.com/viosson-d/topoo-gateway/internal/config"
)

// GitHubProvider GitHub OAuth 授权码流程实现。
// 用户资料未公开邮箱时回退到邮箱列表接口。
type GitHubProvider struct {
	cfg    config.GitHubConfig
	client *http.Client
}

func NewGitHubProvider(cfg config.GitHubConfig) *GitHubProvider {
	return &GitHubProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GitHubProvider) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("scope", "user:email")
	params.Set("state", state)
	if p.cfg.RedirectURL != "" {
		params.Set("redirect_uri", p.cfg.RedirectURL)
	}
	return p.cfg.AuthorizeURL + "?" + params.Encode()
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ErrorDesc   string `json:"error_description"`
}

type githubUserResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmailEntry struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	accessToken, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := p.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		// 资料页邮箱设为私密时，从邮箱列表接口取 primary+verified
		email, err = p.fetchPrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
	}
	if email == "" {
		return nil, common.NewUnauthorizedError("无法获取 GitHub 账号邮箱")
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &ExternalIdentity{
		Email:     email,
		SubjectID: strconv.FormatInt(user.ID, 10),
		Name:      name,
		AvatarURL: user.AvatarURL,
	}, nil
}

func (p *GitHubProvider) exchangeToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("code", code)
	if p.cfg.RedirectURL != "" {
		form.Set("redirect_uri", p.cfg.RedirectURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", common.NewInternalError("OAuth 请求构建失败")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", common.NewInternalError("OAuth 服务暂时不可用")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", common.NewInternalError("OAuth 响应读取失败")
	}

	var token githubTokenResponse
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", common.NewUnauthorizedError("授权码无效或已过期")
	}
	return token.AccessToken, nil
}

func (p *GitHubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUserResponse, error) {
	body, status, err := p.apiGet(ctx, "/user", accessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, common.NewUnauthorizedError("获取 GitHub 用户信息失败")
	}

	var user githubUserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, common.NewInternalError("GitHub 用户信息解析失败")
	}
	return &user, nil
}

func (p *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	body, status, err := p.apiGet(ctx, "/user/emails", accessToken)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", common.NewUnauthorizedError("获取 GitHub 邮箱列表失败")
	}

	var emails []githubEmailEntry
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", common.NewInternalError("GitHub 邮箱列表解析失败")
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func (p *GitHubProvider) apiGet(ctx context.Context, path, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, 0, common.NewInternalError("GitHub API 请求构建失败")
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, common.NewInternalError("GitHub API 暂时不可用")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, common.NewInternalError("GitHub API 响应读取失败")
	}
	return body, resp.StatusCode, nil
}
