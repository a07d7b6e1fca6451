package controller

import (
	"net/http"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthController 安装授权与登录
type AuthController struct {
	authService *service.AuthService
}

// NewAuthController 创建授权控制器
func NewAuthController(s *service.AuthService) *AuthController {
	return &AuthController{authService: s}
}

// Install
// @Summary Shopify 安装入口
// @Description 校验店铺域名并跳转到 Shopify 授权页
// @Tags Auth
// @Param shop query string true "店铺域名，如 demo.myshopify.com"
// @Success 302 {string} string "跳转授权页"
// @Failure 400 {object} dto.Response
// @Router /api/auth/install [get]
func (ctl *AuthController) Install(c *gin.Context) {
	url, err := ctl.authService.InstallURL(c.Query("shop"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback
// @Summary Shopify 授权回调
// @Description 校验 state 与 HMAC，换取 Token；首次安装时登记供应商并在后台启动初始同步
// @Tags Auth
// @Produce json
// @Param shop query string true "店铺域名"
// @Param code query string true "授权码"
// @Param state query string true "安全校验码"
// @Param hmac query string true "签名"
// @Success 200 {object} dto.Response
// @Failure 401 {object} dto.Response
// @Router /api/auth/callback [get]
func (ctl *AuthController) Callback(c *gin.Context) {
	query := c.Request.URL.Query()
	if query.Get("code") == "" || query.Get("state") == "" {
		respondFail(c, http.StatusBadRequest, "缺少必要参数 code 或 state", nil)
		return
	}

	resp, err := ctl.authService.CompleteInstall(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "店铺授权成功", resp)
}

// VendorLogin
// @Summary 供应商登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.VendorLoginReq true "邮箱与密码"
// @Success 200 {object} dto.Response
// @Failure 401 {object} dto.Response
// @Router /api/auth/vendor/login [post]
func (ctl *AuthController) VendorLogin(c *gin.Context) {
	var req dto.VendorLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	resp, err := ctl.authService.VendorLogin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, resp)
}
