package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/viosson-d/topoo-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var (
	// intervalSeen 内存模式下记录每个来源的上次请求时间
	// Key: "<name>:<ip>" (string), Value: time.Time
	intervalSeen sync.Map
)

// allowByRedisInterval 基于 Redis SETNX 的跨实例间隔限制；
// 键已存在表示间隔未到。Redis 出错时交由调用方回退内存模式。
func allowByRedisInterval(client *redis.Client, name, ip string, interval time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := service.RedisKey("interval", name, ip)
	ok, err := client.SetNX(ctx, key, time.Now().Unix(), interval).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func allowByMemoryInterval(name, ip string, interval time.Duration) bool {
	key := name + ":" + ip
	now := time.Now()
	if v, ok := intervalSeen.Load(key); ok {
		if last, ok := v.(time.Time); ok && now.Sub(last) < interval {
			return false
		}
	}
	intervalSeen.Store(key, now)
	return true
}

// IntervalRateMiddleware 限制同一来源两次请求之间的最小间隔。
// 优先用 Redis 做跨实例共享，不可用时回退单机内存记录。
func IntervalRateMiddleware(interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if interval <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		name := c.FullPath()

		allowed := false
		if client := service.GetRedisClient(); client != nil {
			ok, err := allowByRedisInterval(client, name, ip, interval)
			if err == nil {
				allowed = ok
			} else {
				allowed = allowByMemoryInterval(name, ip, interval)
			}
		} else {
			allowed = allowByMemoryInterval(name, ip, interval)
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "操作过于频繁，请稍后再试"})
			c.Abort()
			return
		}
		c.Next()
	}
}
