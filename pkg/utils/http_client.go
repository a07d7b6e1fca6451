package utils

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient 创建统一配置的 Resty 客户端
// 对 429 / 5xx 自动重试，适配 Shopify 的限流响应
func NewHTTPClient(timeout time.Duration, retries int) *resty.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Vendor-Hub/1.0").
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
}
