package middleware

import (
	"bytes"
	"io"
	"net/http"

	"shopify_vendor_hub/pkg/logger"
	"shopify_vendor_hub/pkg/shopify"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Shopify webhook 请求头
const (
	HeaderShopifyTopic  = "X-Shopify-Topic"
	HeaderShopifyDomain = "X-Shopify-Shop-Domain"
	HeaderShopifyHmac   = "X-Shopify-Hmac-Sha256"
)

// ContextKeyRawBody 已校验的原始请求体
const ContextKeyRawBody = "raw_body"

// maxWebhookBody webhook 请求体上限
const maxWebhookBody = 5 << 20

// ShopifyWebhookAuth 校验 webhook 签名，失败直接 401，不解析请求体
func ShopifyWebhookAuth(secret string, onReject func(topic string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.GetHeader(HeaderShopifyTopic)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			abortJSON(c, http.StatusBadRequest, "读取请求体失败")
			return
		}

		if !shopify.VerifyWebhook(body, c.GetHeader(HeaderShopifyHmac), secret) {
			logger.GetLogger().Warn("[Webhook] 签名校验失败",
				zap.String("topic", topic),
				zap.String("shop", c.GetHeader(HeaderShopifyDomain)),
			)
			if onReject != nil {
				onReject(topic)
			}
			abortJSON(c, http.StatusUnauthorized, "invalid webhook signature")
			return
		}

		c.Set(ContextKeyRawBody, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// GetRawBody 获取已校验的请求体
func GetRawBody(c *gin.Context) []byte {
	if body, exists := c.Get(ContextKeyRawBody); exists {
		return body.([]byte)
	}
	return nil
}
