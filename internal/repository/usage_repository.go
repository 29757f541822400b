package repository

import (
	"time"

	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func (r *UsageRepository) FindByUserID(userID uint) (*model.UsageStats, error) {
	var usage model.UsageStats
	if err := r.db.Where("user_id = ?", userID).First(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// ResetPeriod 惰性滚动。WHERE current_period_end <= now 保证：
// 周期边界只向前推进，且并发读取触发的多次滚动只有一次生效。
func (r *UsageRepository) ResetPeriod(userID uint, now, start, end time.Time) error {
	return r.db.Model(&model.UsageStats{}).
		Where("user_id = ? AND current_period_end <= ?", userID, now).
		Updates(map[string]interface{}{
			"tokens_consumed":      0,
			"current_period_start": start,
			"current_period_end":   end,
		}).Error
}

// ConsumeTokens 条件递增。WHERE tokens_consumed + delta <= limit 在
// 数据库层拦截并发超额：两个并发请求不可能都越过配额上限。
func (r *UsageRepository) ConsumeTokens(tx *gorm.DB, userID uint, tokens int64) (bool, error) {
	res := tx.Model(&model.UsageStats{}).
		Where("user_id = ? AND tokens_consumed + ? <= token_quota_limit", userID, tokens).
		Update("tokens_consumed", gorm.Expr("tokens_consumed + ?", tokens))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
