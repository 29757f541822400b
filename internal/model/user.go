package model

import "time"

// User 全局用户。email 唯一标识一个用户；仅使用外部身份登录的
// 账号没有密码字段（PasswordHash/PasswordSalt 为空）。
type User struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string `json:"email" gorm:"unique;not null;size:255"`
	// ExternalID 外部身份提供方（ID Token）的 subject id
	ExternalID string `json:"-" gorm:"index;size:128"`
	// GithubID GitHub 账号 id（OAuth 回调时绑定）
	GithubID     string `json:"-" gorm:"index;size:64"`
	PasswordHash string `json:"-" gorm:"size:64"`
	PasswordSalt string `json:"-" gorm:"size:32"`
	Nickname     string `json:"nickname" gorm:"size:64"`
	AvatarURL    string `json:"avatar_url" gorm:"size:512"`
}

// HasPassword 判断账号是否设置了密码凭据
func (u *User) HasPassword() bool {
	return u.PasswordHash != "" && u.PasswordSalt != ""
}
