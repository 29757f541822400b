package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/common"
)

// ExternalIdentity 外部身份提供方解析出的用户属性
type ExternalIdentity struct {
	Email     string
	SubjectID string
	Name      string
	AvatarURL string
}

// IdentityProvider 校验外部 ID Token 并解析身份属性。
// 校验完全信任远端 introspection 结果，本地不做签名验证。
type IdentityProvider interface {
	ResolveIDToken(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

// OAuthProvider 授权码流程：生成跳转地址、用 code 换取身份。
type OAuthProvider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
}

// TopooIdentityProvider 基于 tokeninfo 风格 introspection 端点的实现。
type TopooIdentityProvider struct {
	introspectionURL string
	client           *http.Client
}

func NewTopooIdentityProvider(introspectionURL string) *TopooIdentityProvider {
	return &TopooIdentityProvider{
		introspectionURL: introspectionURL,
		client:           &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfoResponse struct {
	Email     string `json:"email"`
	Sub       string `json:"sub"`
	Name      string `json:"name"`
	Picture   string `json:"picture"`
	ErrorDesc string `json:"error_description"`
}

func (p *TopooIdentityProvider) ResolveIDToken(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	endpoint := fmt.Sprintf("%s?id_token=%s", p.introspectionURL, url.QueryEscape(idToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, common.NewInternalError("身份校验请求构建失败")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// 上游网络故障，不向调用方泄露细节
		return nil, common.NewInternalError("身份服务暂时不可用")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, common.NewInternalError("身份服务响应读取失败")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, common.NewUnauthorizedError("外部身份令牌无效")
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, common.NewUnauthorizedError("外部身份令牌无效")
	}
	if info.Email == "" {
		return nil, common.NewUnauthorizedError("外部身份令牌缺少邮箱信息")
	}

	return &ExternalIdentity{
		Email:     info.Email,
		SubjectID: info.Sub,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}, nil
}
