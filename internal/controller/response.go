package controller

import (
	"errors"
	"net/http"
	"strconv"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"
	"shopify_vendor_hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ==================== 统一响应 ====================

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Data: data})
}

func respondMessage(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Message: msg, Data: data})
}

func respondList(c *gin.Context, data interface{}, meta dto.PageMeta) {
	c.JSON(http.StatusOK, dto.ListResponse{Success: true, Data: data, Pagination: meta})
}

func respondFail(c *gin.Context, status int, msg string, details interface{}) {
	c.AbortWithStatusJSON(status, dto.Response{Success: false, Error: msg, Details: details})
}

func respondBindError(c *gin.Context, err error) {
	respondFail(c, http.StatusBadRequest, "参数错误", err.Error())
}

// respondError 按错误分类映射 HTTP 状态码
func respondError(c *gin.Context, err error) {
	var (
		authErr     *service.AuthError
		upstreamErr *service.UpstreamFetchError
		persistErr  *service.PersistenceError
	)

	switch {
	case errors.As(err, &authErr):
		respondFail(c, http.StatusUnauthorized, authErr.Reason, nil)
	case errors.Is(err, service.ErrInvalidArgument):
		respondFail(c, http.StatusBadRequest, "参数错误", err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondFail(c, http.StatusForbidden, "无权限访问", nil)
	case errors.Is(err, service.ErrTenantNotFound):
		respondFail(c, http.StatusNotFound, "店铺未安装", err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondFail(c, http.StatusNotFound, "资源不存在", nil)
	case errors.As(err, &upstreamErr):
		logError(c, err)
		respondFail(c, http.StatusBadGateway, "Shopify 请求失败", upstreamErr.Op)
	case errors.As(err, &persistErr):
		logError(c, err)
		respondFail(c, http.StatusInternalServerError, "数据保存失败", nil)
	default:
		logError(c, err)
		respondFail(c, http.StatusInternalServerError, "服务器内部错误", nil)
	}
}

func logError(c *gin.Context, err error) {
	_ = c.Error(err)
	logger.GetLogger().Error("[HTTP] 请求处理失败",
		zap.String("request_id", middleware.RequestIDFrom(c.Request.Context())),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondFail(c, http.StatusBadRequest, "无效的ID", c.Param(name))
		return 0, false
	}
	return id, true
}
