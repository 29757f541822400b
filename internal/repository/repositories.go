package repository

import (
	"time"

	"github.com/viosson-d/topoo-gateway/internal/model"

	"gorm.io/gorm"
)

type UserStore interface {
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	Save(user *model.User) error
	UpdateByID(userID uint, updates map[string]interface{}) error
}

type InviteStore interface {
	FindByCode(code string) (*model.InviteCode, error)
	// TryConsume 条件更新：仅当邀请码存在且未使用时置位。
	// applied=false 表示码不存在或已被他人用掉。
	TryConsume(tx *gorm.DB, code string, consumerUserID uint) (bool, error)
	Create(code *model.InviteCode) error
}

type LicenseStore interface {
	FindActiveByUser(userID uint, productCode string) (*model.License, error)
}

type UsageStore interface {
	FindByUserID(userID uint) (*model.UsageStats, error)
	// ResetPeriod 惰性滚动：仅当当前周期已过期（end <= now）时清零并推进边界。
	ResetPeriod(userID uint, now, start, end time.Time) error
	// ConsumeTokens 条件递增：仅当 used+delta <= limit 时生效，返回是否生效。
	ConsumeTokens(tx *gorm.DB, userID uint, tokens int64) (bool, error)
}

type AccessLogStore interface {
	Append(tx *gorm.DB, entry *model.AccessLog) error
	ListRecent(userID uint, limit int) ([]model.AccessLog, error)
}

type AccessRequestStore interface {
	Create(req *model.AccessRequest) error
}

// RegistrationStore 注册的原子批量写：
// 邀请码消费 + 用户创建 + 许可证创建 + 用量行创建在同一事务内完成。
type RegistrationStore interface {
	CreateUserWithInvite(user *model.User, inviteCode string, license *model.License, usage *model.UsageStats) error
	CreateUser(user *model.User, license *model.License, usage *model.UsageStats) error
	EnsureUsageRow(userID uint, usage *model.UsageStats) error
}

type Repositories struct {
	User          UserStore
	Invite        InviteStore
	License       LicenseStore
	Usage         UsageStore
	AccessLog     AccessLogStore
	AccessRequest AccessRequestStore
	Registration  RegistrationStore
	DB            *gorm.DB
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          &UserRepository{db: db},
		Invite:        &InviteRepository{db: db},
		License:       &LicenseRepository{db: db},
		Usage:         &UsageRepository{db: db},
		AccessLog:     &AccessLogRepository{db: db},
		AccessRequest: &AccessRequestRepository{db: db},
		Registration:  &RegistrationRepository{db: db},
		DB:            db,
	}
}
