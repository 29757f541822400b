package handler

import "github.com/viosson-d/topoo-gateway/internal/service"

type Handler struct {
	authService  *service.AuthService
	quotaService *service.QuotaService
}

func NewHandler(authService *service.AuthService, quotaService *service.QuotaService) *Handler {
	return &Handler{
		authService:  authService,
		quotaService: quotaService,
	}
}
