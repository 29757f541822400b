package repository

import (
	"errors"

	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

// ErrInviteNotApplied 邀请码不存在或已被使用（条件更新未命中任何行）。
var ErrInviteNotApplied = errors.New("invite code not applied")

type RegistrationRepository struct {
	db *gorm.DB
}

// CreateUserWithInvite 注册的原子批量写：用户创建、邀请码消费、
// 许可证创建、用量行创建在同一事务内完成，任何一步失败则全部回滚，
// 不会出现"码已用掉但用户不存在"的中间状态。
func (r *RegistrationRepository) CreateUserWithInvite(user *model.User, inviteCode string, license *model.License, usage *model.UsageStats) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		applied, err := tryConsumeInvite(tx, inviteCode, user.ID)
		if err != nil {
			return err
		}
		if !applied {
			return ErrInviteNotApplied
		}

		return createEntitlementRows(tx, user.ID, license, usage)
	})
}

// CreateUser 无邀请码路径（OAuth 回调自动建号）使用的原子批量写。
func (r *RegistrationRepository) CreateUser(user *model.User, license *model.License, usage *model.UsageStats) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return createEntitlementRows(tx, user.ID, license, usage)
	})
}

// EnsureUsageRow 幂等补建用量行：仅当该用户还没有用量行时创建。
func (r *RegistrationRepository) EnsureUsageRow(userID uint, usage *model.UsageStats) error {
	var count int64
	if err := r.db.Model(&model.UsageStats{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	usage.UserID = userID
	return r.db.Create(usage).Error
}

func createEntitlementRows(tx *gorm.DB, userID uint, license *model.License, usage *model.UsageStats) error {
	license.UserID = userID
	if err := tx.Create(license).Error; err != nil {
		return err
	}

	// 用量行幂等创建（理论上新用户不可能已有，但保持与补建路径一致）
	var count int64
	if err := tx.Model(&model.UsageStats{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		usage.UserID = userID
		if err := tx.Create(usage).Error; err != nil {
			return err
		}
	}
	return nil
}
