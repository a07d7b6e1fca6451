package controller

import (
	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileController 个人资料
type ProfileController struct {
	svc *service.UserService
}

// NewProfileController 创建个人资料控制器
func NewProfileController(svc *service.UserService) *ProfileController {
	return &ProfileController{svc: svc}
}

// Get 当前用户资料
// @Summary 个人资料
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response
// @Router /api/profile [get]
func (ctl *ProfileController) Get(c *gin.Context) {
	profile, err := ctl.svc.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}

// Update 更新资料与通知设置
// @Summary 更新个人资料
// @Description 店主可设置 notify_mode (every_x_hours / specific_time) 与 notify_value，notify_mode 传空串关闭
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ProfileUpdateReq true "资料"
// @Success 200 {object} dto.Response
// @Failure 400 {object} dto.Response
// @Router /api/profile [put]
func (ctl *ProfileController) Update(c *gin.Context) {
	var req dto.ProfileUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	profile, err := ctl.svc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}
