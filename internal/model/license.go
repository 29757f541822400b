package model

import "time"

const (
	PlanTierFree = "free"

	LicenseStatusActive = "active"
)

// License 用户对某个产品的授权档位。
// 约定每个 (user, product) 只有一条 active 记录，但不做数据库层面的强制。
type License struct {
	ID          uint `json:"id" gorm:"primaryKey"`
	UserID      uint `json:"user_id" gorm:"index;not null"`
	ProductCode string `json:"product_code" gorm:"size:64;not null"`
	PlanTier    string `json:"plan_tier" gorm:"size:32;not null"`
	Status      string `json:"status" gorm:"size:32;not null"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
