package repository

import (
	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

type AccessRequestRepository struct {
	db *gorm.DB
}

func (r *AccessRequestRepository) Create(req *model.AccessRequest) error {
	return r.db.Create(req).Error
}
