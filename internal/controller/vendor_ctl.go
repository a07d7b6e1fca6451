package controller

import (
	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// VendorController 供应商控制器
type VendorController struct {
	svc     *service.VendorService
	userSvc *service.UserService
}

// NewVendorController 创建供应商控制器
func NewVendorController(svc *service.VendorService, userSvc *service.UserService) *VendorController {
	return &VendorController{svc: svc, userSvc: userSvc}
}

// List 供应商列表
// @Summary 供应商列表
// @Tags Vendors
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param search query string false "名称 / 邮箱关键字"
// @Success 200 {object} dto.ListResponse
// @Router /api/vendors [get]
func (ctl *VendorController) List(c *gin.Context) {
	var req dto.VendorListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	vendors, meta, err := ctl.svc.List(c.Request.Context(), middleware.GetShopDomain(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, vendors, meta)
}

// Update 更新供应商联系方式
// @Summary 更新供应商
// @Tags Vendors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "供应商 ID"
// @Param body body dto.VendorUpdateReq true "联系方式"
// @Success 200 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /api/vendors/{id} [put]
func (ctl *VendorController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.VendorUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	vendor, err := ctl.svc.Update(c.Request.Context(), middleware.GetShopDomain(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, vendor)
}

// ProvisionAccount 为供应商开通登录账号
// @Summary 开通供应商账号
// @Tags Vendors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "供应商 ID"
// @Param body body dto.VendorAccountReq true "账号信息"
// @Success 200 {object} dto.Response
// @Failure 400 {object} dto.Response
// @Router /api/vendors/{id}/account [post]
func (ctl *VendorController) ProvisionAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.VendorAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := ctl.userSvc.ProvisionVendorAccount(c.Request.Context(), middleware.GetShopDomain(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "供应商账号已开通", profile)
}
