package repository

import (
	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

type AccessLogRepository struct {
	db *gorm.DB
}

func (r *AccessLogRepository) Append(tx *gorm.DB, entry *model.AccessLog) error {
	return tx.Create(entry).Error
}

func (r *AccessLogRepository) ListRecent(userID uint, limit int) ([]model.AccessLog, error) {
	var logs []model.AccessLog
	err := r.db.Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
