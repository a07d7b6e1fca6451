package controller

import (
	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderController 订单控制器
type OrderController struct {
	svc *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(svc *service.OrderService) *OrderController {
	return &OrderController{svc: svc}
}

// List 订单列表
// @Summary 订单列表
// @Description 当前店铺的订单，支持按名称模糊搜索与通知状态筛选
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param name query string false "订单名称"
// @Param notification query bool false "是否已通知"
// @Success 200 {object} dto.ListResponse
// @Failure 400 {object} dto.Response
// @Router /api/orders [get]
func (ctl *OrderController) List(c *gin.Context) {
	var req dto.OrderListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	orders, meta, err := ctl.svc.List(c.Request.Context(), middleware.GetShopDomain(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, orders, meta)
}

// GetByID 订单详情
// @Summary 订单详情
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Success 200 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /api/orders/{id} [get]
func (ctl *OrderController) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := ctl.svc.GetByID(c.Request.Context(), middleware.GetShopDomain(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}
