package model

import "time"

// AccessLog 用量日志，只追加，不修改不删除。
type AccessLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	ModelName string    `json:"model_name" gorm:"size:128"`
	Tokens    int64     `json:"tokens" gorm:"not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	RequestID string    `json:"request_id,omitempty" gorm:"size:64"`
}
