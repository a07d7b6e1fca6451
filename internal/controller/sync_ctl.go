package controller

import (
	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// SyncController 同步控制器
type SyncController struct {
	svc     *service.SyncService
	limiter *middleware.SyncRateLimiter
}

// NewSyncController 创建同步控制器
func NewSyncController(svc *service.SyncService, limiter *middleware.SyncRateLimiter) *SyncController {
	return &SyncController{svc: svc, limiter: limiter}
}

// TriggerSync 手动全量同步订单
// @Summary 手动同步订单
// @Description 拉取 Shopify 全部订单并写入，受冷却时间限制
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response
// @Failure 429 {object} dto.Response
// @Failure 502 {object} dto.Response
// @Router /api/sync/orders [post]
func (ctl *SyncController) TriggerSync(c *gin.Context) {
	shop := middleware.GetShopDomain(c)

	synced, err := ctl.svc.ManualSync(c.Request.Context(), shop)
	if err != nil {
		// 失败不占用冷却时间
		if key := c.GetString(middleware.ContextSyncLimitKey); key != "" && ctl.limiter != nil {
			ctl.limiter.Reset(key)
		}
		respondError(c, err)
		return
	}
	respondMessage(c, "订单同步完成", dto.SyncResultResp{ShopDomain: shop, Synced: synced})
}

// Logs 同步日志
// @Summary 同步日志
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param sync_type query string false "initial / webhook / manual"
// @Param status query string false "running / success / error"
// @Success 200 {object} dto.ListResponse
// @Router /api/sync/logs [get]
func (ctl *SyncController) Logs(c *gin.Context) {
	var req dto.SyncLogListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}
	page, limit := req.Normalize()

	logs, total, err := ctl.svc.ListLogs(c.Request.Context(), repository.SyncLogFilter{
		ShopDomain: middleware.GetShopDomain(c),
		SyncType:   req.SyncType,
		Status:     req.Status,
		Page:       page,
		PageSize:   limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, logs, dto.NewPageMeta(page, limit, total))
}
