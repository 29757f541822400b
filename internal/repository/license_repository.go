package repository

import (
	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

type LicenseRepository struct {
	db *gorm.DB
}

func (r *LicenseRepository) FindActiveByUser(userID uint, productCode string) (*model.License, error) {
	var license model.License
	err := r.db.Where("user_id = ? AND product_code = ? AND status = ?",
		userID, productCode, model.LicenseStatusActive).
		Order("id DESC").
		First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}
