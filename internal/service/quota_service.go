package service

import (
	"errors"
	"log"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/common"
	"github.com/viosson-d/topoo-gateway/internal/consts"
	"github.com/viosson-d/topoo-gateway/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotaView 当前配额视图（随 /api/quota/current 的 subscription 字段返回）
type QuotaView struct {
	ProductCode  string    `json:"product_code"`
	PlanTier     string    `json:"plan_tier"`
	Status       string    `json:"status"`
	QuotaLimit   int64     `json:"quota_limit"`
	QuotaUsed    int64     `json:"quota_used"`
	QuotaResetAt time.Time `json:"quota_reset_at"`
}

// GetQuota 读取当前周期配额。周期已过期时惰性滚动：清零消费、
// 把周期边界推进到 now + 1 个日历月，然后返回滚动后的视图。
func (s *QuotaService) GetQuota(userID uint) (*QuotaView, error) {
	license, err := s.repos.License.FindActiveByUser(userID, consts.DefaultProductCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewForbiddenError("没有有效的产品许可")
		}
		return nil, common.NewInternalError("查询许可失败")
	}

	usage, err := s.loadUsageWithRollover(userID)
	if err != nil {
		return nil, err
	}

	return &QuotaView{
		ProductCode:  license.ProductCode,
		PlanTier:     license.PlanTier,
		Status:       license.Status,
		QuotaLimit:   usage.TokenQuotaLimit,
		QuotaUsed:    usage.TokensConsumed,
		QuotaResetAt: usage.CurrentPeriodEnd,
	}, nil
}

// Consume 扣减配额并追加用量日志。
// 扣减是条件更新（used + tokens <= limit 才生效），与日志追加在
// 同一事务内；超额返回 429 QUOTA_EXCEEDED。消费路径同样做惰性
// 滚动，避免按已过期周期的余额拒绝请求。
func (s *QuotaService) Consume(userID uint, modelName string, tokens int64) (int64, error) {
	if tokens <= 0 {
		return 0, common.NewValidationError("tokens 必须为正整数")
	}

	_, err := s.loadUsageWithRollover(userID)
	if err != nil {
		return 0, err
	}

	var remaining int64
	err = s.repos.DB.Transaction(func(tx *gorm.DB) error {
		applied, err := s.repos.Usage.ConsumeTokens(tx, userID, tokens)
		if err != nil {
			return err
		}
		if !applied {
			return common.NewQuotaExceededError("本周期 Token 配额不足")
		}

		entry := &model.AccessLog{
			UserID:    userID,
			ModelName: modelName,
			Tokens:    tokens,
			Timestamp: time.Now(),
			RequestID: uuid.NewString(),
		}
		if err := s.repos.AccessLog.Append(tx, entry); err != nil {
			return err
		}

		var after model.UsageStats
		if err := tx.Where("user_id = ?", userID).First(&after).Error; err != nil {
			return err
		}
		remaining = after.TokenQuotaLimit - after.TokensConsumed
		return nil
	})
	if err != nil {
		if _, ok := common.AsServiceError(err); ok {
			return 0, err
		}
		log.Printf("❌ 配额扣减事务失败: %v", err)
		return 0, common.NewInternalError("配额扣减失败")
	}

	// 检测到竞态导致的轻微超卖只会出现在日志里，不会出现在余额里
	if remaining < 0 {
		log.Printf("⚠️ 用户 %d 余额为负（%d），条件更新约束可能被绕过", userID, remaining)
	}
	return remaining, nil
}

// History 返回最近的用量日志，按时间倒序，最多 100 条。
func (s *QuotaService) History(userID uint) ([]model.AccessLog, error) {
	logs, err := s.repos.AccessLog.ListRecent(userID, consts.QuotaHistoryLimit)
	if err != nil {
		return nil, common.NewInternalError("查询用量日志失败")
	}
	if logs == nil {
		logs = []model.AccessLog{}
	}
	return logs, nil
}

func (s *QuotaService) loadUsageWithRollover(userID uint) (*model.UsageStats, error) {
	usage, err := s.repos.Usage.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("没有找到用量记录")
		}
		return nil, common.NewInternalError("查询用量失败")
	}

	now := time.Now()
	if now.Before(usage.CurrentPeriodEnd) {
		return usage, nil
	}

	// 条件更新保证并发触发的多次滚动只有一次生效
	if err := s.repos.Usage.ResetPeriod(userID, now, now, now.AddDate(0, 1, 0)); err != nil {
		return nil, common.NewInternalError("配额周期滚动失败")
	}
	usage, err = s.repos.Usage.FindByUserID(userID)
	if err != nil {
		return nil, common.NewInternalError("查询用量失败")
	}
	log.Printf("🔄 用户 %d 配额周期已滚动，新周期至 %s", userID, usage.CurrentPeriodEnd.Format(time.RFC3339))
	return usage, nil
}
