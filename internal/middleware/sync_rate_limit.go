package middleware

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 同步限流中间件 ====================

// ContextSyncLimitKey 命中的限流键，handler 同步失败时可据此 Reset
const ContextSyncLimitKey = "sync_limit_key"

// SyncRateLimit 按租户 + 同步类型限流，必须挂在 SessionAuth 之后
//
// 使用示例:
//
//	router.POST("/api/sync/orders",
//	    middleware.SyncRateLimit(limiter, model.SyncTypeManual, 2*time.Minute),
//	    ctl.TriggerSync,
//	)
func SyncRateLimit(limiter *SyncRateLimiter, syncType string, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := GetShopDomain(c)
		if shop == "" {
			abortJSON(c, http.StatusForbidden, "仅店主可以触发同步")
			return
		}

		key := ShopSyncKey(shop, syncType)
		result := limiter.Check(key, interval)
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   formatRetryMessage(result.RetryAfter),
				"details": gin.H{
					"retry_after": retryAfter,
					"sync_type":   syncType,
				},
			})
			return
		}

		c.Set(ContextSyncLimitKey, key)
		c.Next()
	}
}

// ==================== 辅助函数 ====================

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))

	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
