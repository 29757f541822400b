package model

import "time"

// InviteCode 一次性邀请码。is_used 只允许 false→true 翻转一次，
// 翻转必须与新用户创建处于同一事务。
type InviteCode struct {
	Code      string `json:"code" gorm:"primaryKey;size:64"`
	IsUsed    bool   `json:"is_used" gorm:"not null;default:false"`
	UsedBy    uint   `json:"used_by"`
	CreatedAt time.Time
	UsedAt    *time.Time `json:"used_at"`
}
