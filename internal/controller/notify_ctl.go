package controller

import (
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// NotifyController 通知控制器
type NotifyController struct {
	svc *service.NotifyService
}

// NewNotifyController 创建通知控制器
func NewNotifyController(svc *service.NotifyService) *NotifyController {
	return &NotifyController{svc: svc}
}

// Trigger 立即执行一次通知聚合
// @Summary 手动触发通知
// @Description 汇总未通知的订单明细，按供应商与 SKU 合并后发送
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /api/notifications/trigger [post]
func (ctl *NotifyController) Trigger(c *gin.Context) {
	result, err := ctl.svc.TriggerNotification(c.Request.Context(), middleware.GetShopDomain(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, result.Message, result)
}
