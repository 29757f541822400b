package consts

const (
	ApplicationName    = "Topoo Auth Server"
	ApplicationVersion = "1.2.0"
)

// SessionTokenDays 会话令牌默认有效期（天）
const SessionTokenDays = 30

// DefaultTokenQuota 免费档默认每月 Token 配额。
// 许可证创建与用量行创建共用这一个常量，避免两处默认值各自漂移。
const DefaultTokenQuota int64 = 10_000_000

// QuotaHistoryLimit 用量日志查询的默认/最大条数
const QuotaHistoryLimit = 100
