package controller

import (
	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductController 商品控制器
type ProductController struct {
	svc *service.ProductService
}

// NewProductController 创建商品控制器
func NewProductController(svc *service.ProductService) *ProductController {
	return &ProductController{svc: svc}
}

// List 商品列表
// @Summary 商品列表
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param search query string false "标题关键字"
// @Param vendor_name query string false "供应商名称"
// @Success 200 {object} dto.ListResponse
// @Router /api/products [get]
func (ctl *ProductController) List(c *gin.Context) {
	var req dto.ProductListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	products, meta, err := ctl.svc.List(c.Request.Context(), middleware.GetShopDomain(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, products, meta)
}
