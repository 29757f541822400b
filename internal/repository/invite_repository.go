package repository

import (
	"time"

	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

type InviteRepository struct {
	db *gorm.DB
}

func (r *InviteRepository) FindByCode(code string) (*model.InviteCode, error) {
	var invite model.InviteCode
	if err := r.db.Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// TryConsume 以条件 UPDATE 消费邀请码：WHERE is_used = false 保证
// N 个并发注册同一个码时恰好一个成功。必须在注册事务内调用。
func (r *InviteRepository) TryConsume(tx *gorm.DB, code string, consumerUserID uint) (bool, error) {
	return tryConsumeInvite(tx, code, consumerUserID)
}

func tryConsumeInvite(tx *gorm.DB, code string, consumerUserID uint) (bool, error) {
	res := tx.Model(&model.InviteCode{}).
		Where("code = ? AND is_used = ?", code, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_by": consumerUserID,
			"used_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *InviteRepository) Create(code *model.InviteCode) error {
	return r.db.Create(code).Error
}
