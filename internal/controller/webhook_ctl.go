package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"shopify_vendor_hub/internal/metrics"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"
	"shopify_vendor_hub/pkg/logger"
	"shopify_vendor_hub/pkg/shopify"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Webhook 主题
const (
	TopicOrdersCreate    = "orders/create"
	TopicOrdersUpdated   = "orders/updated"
	TopicOrdersPaid      = "orders/paid"
	TopicOrdersCancelled = "orders/cancelled"
	TopicOrdersFulfilled = "orders/fulfilled"
	TopicAppUninstalled  = "app/uninstalled"
	TopicShopRedact      = "shop/redact"
)

// OrderSyncer webhook 订单写入
type OrderSyncer interface {
	SyncWebhookOrder(ctx context.Context, shopDomain string, order shopify.Order) error
}

// TenantRedactor 租户注销
type TenantRedactor interface {
	RedactTenant(ctx context.Context, shopDomain string) error
}

// WebhookController Shopify webhook 入口（签名已由中间件校验）
type WebhookController struct {
	syncer   OrderSyncer
	redactor TenantRedactor
	metrics  *metrics.Metrics
}

// NewWebhookController 创建 webhook 控制器
func NewWebhookController(syncer OrderSyncer, redactor TenantRedactor, m *metrics.Metrics) *WebhookController {
	return &WebhookController{syncer: syncer, redactor: redactor, metrics: m}
}

// Handle 按主题分发
// @Summary Shopify webhook
// @Description 需携带 X-Shopify-Hmac-Sha256，签名无效返回 401
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Shopify-Topic header string true "主题"
// @Param X-Shopify-Shop-Domain header string true "店铺域名"
// @Param X-Shopify-Hmac-Sha256 header string true "签名"
// @Success 200 {object} dto.Response
// @Failure 401 {object} dto.Response
// @Router /api/webhooks/shopify [post]
func (ctl *WebhookController) Handle(c *gin.Context) {
	topic := c.GetHeader(middleware.HeaderShopifyTopic)
	shop := strings.ToLower(c.GetHeader(middleware.HeaderShopifyDomain))
	log := logger.GetLogger().With(zap.String("topic", topic), zap.String("shop", shop))

	if !shopify.ValidShopDomain(shop) {
		ctl.metrics.Webhook(topic, "bad_request")
		respondFail(c, http.StatusBadRequest, "无效的店铺域名", shop)
		return
	}

	switch topic {
	case TopicOrdersCreate, TopicOrdersUpdated, TopicOrdersPaid, TopicOrdersCancelled, TopicOrdersFulfilled:
		var raw shopify.RESTOrder
		if err := json.Unmarshal(middleware.GetRawBody(c), &raw); err != nil {
			ctl.metrics.Webhook(topic, "bad_request")
			respondFail(c, http.StatusBadRequest, "无法解析订单", err.Error())
			return
		}
		order, err := raw.ToOrder()
		if err != nil {
			ctl.metrics.Webhook(topic, "bad_request")
			respondFail(c, http.StatusBadRequest, "订单数据无效", err.Error())
			return
		}
		if err := ctl.syncer.SyncWebhookOrder(c.Request.Context(), shop, order); err != nil {
			// 未安装的店铺直接确认，避免 Shopify 重试
			if errors.Is(err, service.ErrTenantNotFound) {
				log.Warn("[Webhook] 店铺未安装，忽略")
				ctl.metrics.Webhook(topic, "ignored")
				respondMessage(c, "ignored", nil)
				return
			}
			ctl.metrics.Webhook(topic, "error")
			respondError(c, err)
			return
		}
		log.Info("[Webhook] 订单已同步", zap.Int64("shopify_order_id", order.ExternalID))

	case TopicAppUninstalled, TopicShopRedact:
		if err := ctl.redactor.RedactTenant(c.Request.Context(), shop); err != nil {
			ctl.metrics.Webhook(topic, "error")
			respondError(c, err)
			return
		}

	default:
		log.Info("[Webhook] 未处理的主题")
		ctl.metrics.Webhook(topic, "ignored")
		respondMessage(c, "ignored", nil)
		return
	}

	ctl.metrics.Webhook(topic, "ok")
	respondMessage(c, "ok", nil)
}
