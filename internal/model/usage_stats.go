package model

import "time"

// UsageStats 用户当前计费周期内的 Token 用量。
// 周期边界只向前推进；tokens_consumed 通过条件更新递增，
// 保证并发消费不会超出配额。
type UsageStats struct {
	ID                 uint      `json:"-" gorm:"primaryKey"`
	UserID             uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	TokenQuotaLimit    int64     `json:"token_quota_limit" gorm:"not null"`
	TokensConsumed     int64     `json:"tokens_consumed" gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
