package service

import (
	"time"

	"github.com/viosson-d/topoo-gateway/internal/config"
	repo "github.com/viosson-d/topoo-gateway/internal/repository"
	"github.com/viosson-d/topoo-gateway/internal/utils"
)

type AuthService struct {
	repos    *repo.Repositories
	tokens   *utils.TokenService
	identity IdentityProvider
	github   OAuthProvider
	states   *oauthStateStore
}

type QuotaService struct {
	repos *repo.Repositories
}

func NewAuthService(repos *repo.Repositories, tokens *utils.TokenService, identity IdentityProvider, github OAuthProvider) *AuthService {
	return &AuthService{
		repos:    repos,
		tokens:   tokens,
		identity: identity,
		github:   github,
		states:   newOAuthStateStore(10 * time.Minute),
	}
}

func NewQuotaService(repos *repo.Repositories) *QuotaService {
	return &QuotaService{repos: repos}
}

// NewDefaultAuthService 按当前配置装配外部身份提供方
func NewDefaultAuthService(repos *repo.Repositories, tokens *utils.TokenService) *AuthService {
	cfg := config.Get()
	identity := NewTopooIdentityProvider(cfg.Identity.IntrospectionURL)
	github := NewGitHubProvider(cfg.GitHub)
	return NewAuthService(repos, tokens, identity, github)
}
