package model

import "time"

// AccessRequest 无邀请码用户提交的接入申请，供运营人工审核。
type AccessRequest struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Email     string `json:"email" gorm:"index;size:255;not null"`
	Reason    string `json:"reason" gorm:"size:1024"`
	Status    string `json:"status" gorm:"size:32;default:pending"`
	CreatedAt time.Time
}
